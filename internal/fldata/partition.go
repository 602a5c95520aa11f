package fldata

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrExampleCountMismatch is returned when a partition's feature and label
// example counts differ.
var ErrExampleCountMismatch = errors.New("fldata: feature and label example counts differ")

// Partition is one client's private slice of a dataset: a dense feature
// matrix (one row per example) and the matching integer class labels.
// A Partition is immutable after construction.
type Partition struct {
	x *mat.Dense
	y []int
}

func NewPartition(x *mat.Dense, y []int) (*Partition, error) {
	rows, _ := x.Dims()
	if rows != len(y) {
		return nil, fmt.Errorf("%w: %d feature rows, %d labels", ErrExampleCountMismatch, rows, len(y))
	}

	return &Partition{x: x, y: y}, nil
}

func (p *Partition) Examples() int {
	rows, _ := p.x.Dims()
	return rows
}

func (p *Partition) FeatureDim() int {
	_, cols := p.x.Dims()
	return cols
}

func (p *Partition) Features() mat.Matrix {
	return p.x
}

func (p *Partition) Label(i int) int {
	return p.y[i]
}

// Split partitions p into numPartitions disjoint contiguous partitions of
// equal size. Leftover examples that do not fill a complete partition are
// dropped.
func Split(p *Partition, numPartitions int) ([]*Partition, error) {
	if numPartitions <= 0 {
		return nil, fmt.Errorf("fldata: numPartitions must be positive, got %d", numPartitions)
	}

	size := p.Examples() / numPartitions
	if size == 0 {
		return nil, fmt.Errorf("fldata: cannot split %d examples into %d partitions", p.Examples(), numPartitions)
	}

	partitions := make([]*Partition, 0, numPartitions)
	for i := 0; i < numPartitions; i++ {
		start := i * size
		end := start + size
		slice := p.x.Slice(start, end, 0, p.FeatureDim()).(*mat.Dense)
		partition, err := NewPartition(slice, p.y[start:end])
		if err != nil {
			return nil, err
		}
		partitions = append(partitions, partition)
	}

	return partitions, nil
}

// SplitTrainVal splits p contiguously into a training partition and a
// validation partition holding roughly valFraction of the examples (at
// least one).
func SplitTrainVal(p *Partition, valFraction float64) (*Partition, *Partition, error) {
	if valFraction <= 0 || valFraction >= 1 {
		return nil, nil, fmt.Errorf("fldata: valFraction must be in (0, 1), got %f", valFraction)
	}

	valCount := int(float64(p.Examples()) * valFraction)
	if valCount == 0 {
		valCount = 1
	}
	trainCount := p.Examples() - valCount
	if trainCount == 0 {
		return nil, nil, fmt.Errorf("fldata: %d examples are too few to split off a validation set", p.Examples())
	}

	trainSlice := p.x.Slice(0, trainCount, 0, p.FeatureDim()).(*mat.Dense)
	train, err := NewPartition(trainSlice, p.y[:trainCount])
	if err != nil {
		return nil, nil, err
	}
	valSlice := p.x.Slice(trainCount, p.Examples(), 0, p.FeatureDim()).(*mat.Dense)
	val, err := NewPartition(valSlice, p.y[trainCount:])
	if err != nil {
		return nil, nil, err
	}

	return train, val, nil
}

// KlDivergence computes the Kullback-Leibler divergence between two label
// distributions of the same length.
func KlDivergence(p, q []float64) float64 {
	if len(p) != len(q) {
		panic("fldata: distributions must have the same number of classes")
	}

	klDiv := 0.0
	for i := 0; i < len(p); i++ {
		if q[i] == 0 || p[i] == 0 {
			continue
		}
		klDiv += p[i] * math.Log(p[i]/q[i])
	}
	return klDiv
}

// LabelDistribution returns the fraction of examples per class. Classes with
// no examples are assigned a small floor probability so that divergence
// computations stay finite.
func LabelDistribution(p *Partition, numClasses int) []float64 {
	samplesPerClass := make([]int64, numClasses)
	totalSamples := 0
	for i := 0; i < p.Examples(); i++ {
		label := p.Label(i)
		if label >= 0 && label < numClasses {
			samplesPerClass[label]++
			totalSamples++
		}
	}

	distribution := make([]float64, numClasses)
	for i, samples := range samplesPerClass {
		percentage := 0.0
		if totalSamples > 0 {
			percentage = float64(samples) / float64(totalSamples)
		}
		if percentage == 0.0 {
			percentage = 0.0001
		}
		distribution[i] = percentage
	}

	return distribution
}
