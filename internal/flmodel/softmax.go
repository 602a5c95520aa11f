package flmodel

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/fldata"
)

// SoftmaxRegression is a single dense layer with bias, trained with plain
// SGD on softmax cross-entropy. Initialization is seeded, so two models
// built from the same parameters are identical.
type SoftmaxRegression struct {
	inputSize  int
	numClasses int
	lr         float64
	w          *mat.Dense // inputSize x numClasses
	b          []float64
}

func NewSoftmaxRegression(inputSize int, numClasses int, lr float64, seed int64) *SoftmaxRegression {
	rng := rand.New(rand.NewSource(seed))
	data := make([]float64, inputSize*numClasses)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * 0.01
	}

	return &SoftmaxRegression{
		inputSize:  inputSize,
		numClasses: numClasses,
		lr:         lr,
		w:          mat.NewDense(inputSize, numClasses, data),
		b:          make([]float64, numClasses),
	}
}

// SoftmaxProvider builds identically-initialized SoftmaxRegression models.
type SoftmaxProvider struct {
	InputSize    int
	NumClasses   int
	LearningRate float64
	Seed         int64
}

func (p SoftmaxProvider) InitModel() Model {
	return NewSoftmaxRegression(p.InputSize, p.NumClasses, p.LearningRate, p.Seed)
}

func (m *SoftmaxRegression) SetWeights(w Weights) error {
	if len(w) != 2 {
		return fmt.Errorf("%w: expected 2 tensors, got %d", ErrShapeMismatch, len(w))
	}
	expected := Weights{
		{Shape: []int{m.inputSize, m.numClasses}},
		{Shape: []int{m.numClasses}},
	}
	if !SameShape(w, expected) {
		return fmt.Errorf("%w: expected shapes [%d %d] and [%d], got %v and %v",
			ErrShapeMismatch, m.inputSize, m.numClasses, m.numClasses, w[0].Shape, w[1].Shape)
	}
	if len(w[0].Data) != w[0].Size() || len(w[1].Data) != w[1].Size() {
		return fmt.Errorf("%w: tensor data length does not match its shape", ErrShapeMismatch)
	}

	weightData := make([]float64, len(w[0].Data))
	copy(weightData, w[0].Data)
	m.w = mat.NewDense(m.inputSize, m.numClasses, weightData)

	biasData := make([]float64, len(w[1].Data))
	copy(biasData, w[1].Data)
	m.b = biasData

	return nil
}

func (m *SoftmaxRegression) Weights() Weights {
	weightData := make([]float64, m.inputSize*m.numClasses)
	copy(weightData, m.w.RawMatrix().Data)
	biasData := make([]float64, m.numClasses)
	copy(biasData, m.b)

	return Weights{
		{Shape: []int{m.inputSize, m.numClasses}, Data: weightData},
		{Shape: []int{m.numClasses}, Data: biasData},
	}
}

func (m *SoftmaxRegression) Fit(train *fldata.Feed, val *fldata.Feed, epochs int, onEpochEnd EpochObserver) (History, error) {
	if epochs <= 0 {
		return nil, fmt.Errorf("flmodel: epochs must be positive, got %d", epochs)
	}

	hist := History{}
	for epoch := 0; epoch < epochs; epoch++ {
		train.Reset()

		lossSum := 0.0
		accuracySum := 0.0
		steps := 0
		for {
			batch, ok := train.Next()
			if !ok {
				break
			}
			loss, accuracy, err := m.trainStep(batch)
			if err != nil {
				return nil, err
			}
			lossSum += loss
			accuracySum += accuracy
			steps++
		}

		epochLoss := 0.0
		epochAccuracy := 0.0
		if steps > 0 {
			epochLoss = lossSum / float64(steps)
			epochAccuracy = accuracySum / float64(steps)
		}
		hist["loss"] = append(hist["loss"], float32(epochLoss))
		hist["accuracy"] = append(hist["accuracy"], float32(epochAccuracy))

		valLoss, valAccuracy, err := m.Evaluate(val)
		if err != nil {
			return nil, err
		}
		hist["val_loss"] = append(hist["val_loss"], valLoss)
		hist["val_accuracy"] = append(hist["val_accuracy"], valAccuracy)

		if onEpochEnd != nil {
			onEpochEnd(epoch)
		}
	}

	return hist, nil
}

func (m *SoftmaxRegression) Evaluate(feed *fldata.Feed) (float32, float32, error) {
	feed.Reset()
	batch, ok := feed.Next()
	if !ok {
		return 0, 0, errors.New("flmodel: evaluation feed yielded no batch")
	}
	if err := m.checkLabels(batch.Labels); err != nil {
		return 0, 0, err
	}

	probs, err := m.forward(batch.X)
	if err != nil {
		return 0, 0, err
	}
	loss, accuracy := batchMetrics(probs, batch.Labels)

	return float32(loss), float32(accuracy), nil
}

// trainStep runs one SGD update on a single batch and returns the batch loss
// and accuracy measured before the update.
func (m *SoftmaxRegression) trainStep(batch fldata.Batch) (float64, float64, error) {
	if err := m.checkLabels(batch.Labels); err != nil {
		return 0, 0, err
	}

	probs, err := m.forward(batch.X)
	if err != nil {
		return 0, 0, err
	}
	loss, accuracy := batchMetrics(probs, batch.Labels)

	n, _ := batch.X.Dims()

	// Softmax cross-entropy gradient: (probs - onehot) / batch size.
	var g mat.Dense
	g.Sub(probs, batch.Y)
	g.Scale(1/float64(n), &g)

	var gw mat.Dense
	gw.Mul(batch.X.T(), &g)
	gw.Scale(m.lr, &gw)
	m.w.Sub(m.w, &gw)

	for c := 0; c < m.numClasses; c++ {
		gradSum := 0.0
		for i := 0; i < n; i++ {
			gradSum += g.At(i, c)
		}
		m.b[c] -= m.lr * gradSum
	}

	return loss, accuracy, nil
}

// checkLabels rejects class indices the model's output layer cannot
// represent before they reach any matrix indexing.
func (m *SoftmaxRegression) checkLabels(labels []int) error {
	for _, label := range labels {
		if label < 0 || label >= m.numClasses {
			return fmt.Errorf("%w: label %d outside the model's %d classes", ErrShapeMismatch, label, m.numClasses)
		}
	}
	return nil
}

func (m *SoftmaxRegression) forward(x mat.Matrix) (*mat.Dense, error) {
	_, cols := x.Dims()
	if cols != m.inputSize {
		return nil, fmt.Errorf("%w: input has %d features, model expects %d", ErrShapeMismatch, cols, m.inputSize)
	}

	var logits mat.Dense
	logits.Mul(x, m.w)

	rows, _ := logits.Dims()
	for i := 0; i < rows; i++ {
		row := logits.RawRowView(i)
		for c := range row {
			row[c] += m.b[c]
		}
		softmaxInPlace(row)
	}

	return &logits, nil
}

func softmaxInPlace(logits []float64) {
	maxLogit := logits[0]
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	sum := 0.0
	for i, v := range logits {
		exp := math.Exp(v - maxLogit)
		logits[i] = exp
		sum += exp
	}
	inv := 1.0 / sum
	for i := range logits {
		logits[i] *= inv
	}
}

func batchMetrics(probs *mat.Dense, labels []int) (float64, float64) {
	rows, cols := probs.Dims()
	if rows == 0 {
		return 0, 0
	}

	lossSum := 0.0
	correct := 0
	for i := 0; i < rows; i++ {
		label := labels[i]
		lossSum += -math.Log(math.Max(probs.At(i, label), 1e-9))

		argmax := 0
		for c := 1; c < cols; c++ {
			if probs.At(i, c) > probs.At(i, argmax) {
				argmax = c
			}
		}
		if argmax == label {
			correct++
		}
	}

	return lossSum / float64(rows), float64(correct) / float64(rows)
}
