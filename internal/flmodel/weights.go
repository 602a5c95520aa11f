package flmodel

// Tensor is one parameter array with its shape. Data is laid out row-major.
type Tensor struct {
	Shape []int
	Data  []float64
}

func (t Tensor) Size() int {
	size := 1
	for _, dim := range t.Shape {
		size *= dim
	}
	return size
}

func (t Tensor) Clone() Tensor {
	shape := make([]int, len(t.Shape))
	copy(shape, t.Shape)
	data := make([]float64, len(t.Data))
	copy(data, t.Data)
	return Tensor{Shape: shape, Data: data}
}

// Weights is the ordered sequence of parameter tensors fully describing a
// model's trainable state. It is treated as a value type: copied at the
// boundary of every operation that installs or extracts it.
type Weights []Tensor

func (w Weights) Clone() Weights {
	if w == nil {
		return nil
	}
	clone := make(Weights, len(w))
	for i, tensor := range w {
		clone[i] = tensor.Clone()
	}
	return clone
}

// SameShape reports whether a and b have the same sequence length and the
// same per-tensor shapes.
func SameShape(a, b Weights) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i].Shape) != len(b[i].Shape) {
			return false
		}
		for j := range a[i].Shape {
			if a[i].Shape[j] != b[i].Shape[j] {
				return false
			}
		}
	}
	return true
}
