package coordinator

import (
	"math"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/common"
)

// Progress tracks the metric trajectory of a running federated training.
type Progress struct {
	round      int32
	accuracies []float32
	losses     []float32
	converged  bool
	done       bool
	exitReason string
}

// Snapshot is a point-in-time view of a run's progress.
type Snapshot struct {
	Round      int32   `json:"round"`
	Accuracy   float32 `json:"accuracy"`
	Loss       float32 `json:"loss"`
	Converged  bool    `json:"converged"`
	Done       bool    `json:"done"`
	ExitReason string  `json:"exitReason,omitempty"`
}

func (p *Progress) record(round int32, accuracy float32, loss float32) {
	p.round = round
	p.accuracies = append(p.accuracies, accuracy)
	p.losses = append(p.losses, loss)
}

func (p *Progress) snapshot() Snapshot {
	snap := Snapshot{
		Round:      p.round,
		Converged:  p.converged,
		Done:       p.done,
		ExitReason: p.exitReason,
	}
	if len(p.accuracies) > 0 {
		snap.Accuracy = p.accuracies[len(p.accuracies)-1]
		snap.Loss = p.losses[len(p.losses)-1]
	}
	return snap
}

func movingAverage(values []float32, windowSize int) []float32 {
	if len(values) < windowSize {
		return nil // Not enough data for the window size
	}
	averages := make([]float32, len(values)-windowSize+1)
	for i := 0; i <= len(values)-windowSize; i++ {
		averages[i] = common.CalculateAverageFloat32(values[i : i+windowSize])
	}
	return averages
}

func hasConverged(accuracies []float32, threshold float32, patience int, windowSize int) bool {
	averages := movingAverage(accuracies, windowSize)
	if len(averages) < patience+1 {
		return false // Not enough data to determine convergence
	}

	for i := len(averages) - patience; i < len(averages); i++ {
		improvement := averages[i] - averages[i-1]
		if math.Abs(float64(improvement)) > float64(threshold) {
			return false
		}
	}
	return true
}
