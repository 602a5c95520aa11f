package participant

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/fldata"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/flmodel"
)

// BuildPool splits a dataset contiguously into numParticipants disjoint
// slices, carves a validation set off each slice, and constructs one
// Participant per slice with client ids c1..cN.
func BuildPool(data *fldata.Partition, numParticipants int, valFraction float64,
	provider flmodel.Provider, numClasses int, batchSize int, logger hclog.Logger) ([]*Participant, error) {
	slices, err := fldata.Split(data, numParticipants)
	if err != nil {
		return nil, err
	}

	pool := make([]*Participant, 0, numParticipants)
	for i, slice := range slices {
		xyTrain, xyVal, err := fldata.SplitTrainVal(slice, valFraction)
		if err != nil {
			return nil, fmt.Errorf("building participant %d: %w", i+1, err)
		}

		part, err := New(fmt.Sprintf("c%d", i+1), provider, xyTrain, xyVal, numClasses, batchSize, logger)
		if err != nil {
			return nil, err
		}
		pool = append(pool, part)
	}

	return pool, nil
}
