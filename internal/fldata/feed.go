package fldata

import (
	"gonum.org/v1/gonum/mat"
)

// Batch is one minibatch drawn from a partition. X holds one feature row per
// example, Y the one-hot encoded labels, and Labels the raw class indices.
type Batch struct {
	X      mat.Matrix
	Y      mat.Matrix
	Labels []int
}

// Feed yields the batches of one epoch over a partition, in partition order
// and without reshuffling. Reset rewinds it for the next epoch.
type Feed struct {
	p          *Partition
	numClasses int
	batchSize  int
	steps      int
	next       int
}

// NewTrainFeed builds a feed yielding exactly floor(examples/batchSize) full
// batches of batchSize examples per epoch.
func NewTrainFeed(p *Partition, numClasses int, batchSize int) *Feed {
	return &Feed{
		p:          p,
		numClasses: numClasses,
		batchSize:  batchSize,
		steps:      p.Examples() / batchSize,
	}
}

// NewValFeed builds a feed yielding the entire partition as a single batch.
func NewValFeed(p *Partition, numClasses int) *Feed {
	steps := 1
	if p.Examples() == 0 {
		steps = 0
	}
	return &Feed{
		p:          p,
		numClasses: numClasses,
		batchSize:  p.Examples(),
		steps:      steps,
	}
}

func (f *Feed) Steps() int {
	return f.steps
}

func (f *Feed) BatchSize() int {
	return f.batchSize
}

// Next returns the next batch of the current epoch, or ok=false once the
// epoch's batches are exhausted.
func (f *Feed) Next() (Batch, bool) {
	if f.next >= f.steps {
		return Batch{}, false
	}

	start := f.next * f.batchSize
	end := start + f.batchSize
	f.next++

	x := f.p.x.Slice(start, end, 0, f.p.FeatureDim())

	labels := make([]int, f.batchSize)
	y := mat.NewDense(f.batchSize, f.numClasses, nil)
	for i := 0; i < f.batchSize; i++ {
		label := f.p.Label(start + i)
		labels[i] = label
		if label >= 0 && label < f.numClasses {
			y.Set(i, label, 1)
		}
	}

	return Batch{X: x, Y: y, Labels: labels}, true
}

func (f *Feed) Reset() {
	f.next = 0
}
