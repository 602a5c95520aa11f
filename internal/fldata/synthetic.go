package fldata

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Synthetic generates a deterministic classification dataset: examples are
// drawn around one Gaussian cluster center per class, labels cycle through
// the classes so every class is represented. The same seed always produces
// the same partition.
func Synthetic(examples int, featureDim int, numClasses int, seed int64) *Partition {
	rng := rand.New(rand.NewSource(seed))

	centers := make([][]float64, numClasses)
	for c := range centers {
		center := make([]float64, featureDim)
		for j := range center {
			center[j] = rng.Float64()*2 - 1
		}
		centers[c] = center
	}

	x := mat.NewDense(examples, featureDim, nil)
	y := make([]int, examples)
	for i := 0; i < examples; i++ {
		label := i % numClasses
		y[i] = label
		for j := 0; j < featureDim; j++ {
			x.Set(i, j, centers[label][j]+rng.NormFloat64()*0.3)
		}
	}

	// NewPartition cannot fail here, both dimensions derive from examples.
	partition, _ := NewPartition(x, y)
	return partition
}
