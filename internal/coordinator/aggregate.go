package coordinator

import (
	"errors"
	"fmt"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/flmodel"
)

// ErrNoUpdates is returned when aggregation is attempted on an empty round.
var ErrNoUpdates = errors.New("coordinator: no updates to aggregate")

// Update is one participant's contribution to a round: its locally trained
// parameters and the number of training examples behind them.
type Update struct {
	Cid         string
	Weights     flmodel.Weights
	NumExamples int
}

// FedAvg aggregates updates into a single parameter set: the per-element
// mean of all contributed weights, each weighted by the contributing
// participant's training example count.
func FedAvg(updates []Update) (flmodel.Weights, error) {
	if len(updates) == 0 {
		return nil, ErrNoUpdates
	}

	aggregated := zeroLike(updates[0].Weights)
	totalExamples := int64(0)
	for _, update := range updates {
		if !flmodel.SameShape(aggregated, update.Weights) {
			return nil, fmt.Errorf("%w: update from %s has a different weight structure",
				flmodel.ErrShapeMismatch, update.Cid)
		}
		if update.NumExamples <= 0 {
			return nil, fmt.Errorf("coordinator: update from %s carries no examples", update.Cid)
		}

		weight := float64(update.NumExamples)
		totalExamples += int64(update.NumExamples)
		for t, tensor := range update.Weights {
			out := aggregated[t].Data
			for i, value := range tensor.Data {
				out[i] += value * weight
			}
		}
	}

	norm := float64(totalExamples)
	for _, tensor := range aggregated {
		for i := range tensor.Data {
			tensor.Data[i] /= norm
		}
	}

	return aggregated, nil
}

func zeroLike(w flmodel.Weights) flmodel.Weights {
	zero := make(flmodel.Weights, len(w))
	for i, tensor := range w {
		shape := make([]int, len(tensor.Shape))
		copy(shape, tensor.Shape)
		zero[i] = flmodel.Tensor{Shape: shape, Data: make([]float64, len(tensor.Data))}
	}
	return zero
}
