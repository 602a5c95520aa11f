package performance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// LogarithmicRegression fits y = a + b*ln(x+1), the typical shape of an
// accuracy curve over communication rounds.
type LogarithmicRegression struct {
	a float64
	b float64
}

func NewLogarithmicRegression(xs, ys []float64) (*LogarithmicRegression, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("performance: %d xs but %d ys", len(xs), len(ys))
	}
	if len(xs) < 2 {
		return nil, fmt.Errorf("performance: need at least 2 points, got %d", len(xs))
	}

	// Least squares on log-transformed x; +1 keeps round 0 finite.
	X := mat.NewDense(len(xs), 2, nil)
	for i, x := range xs {
		X.Set(i, 0, 1)
		X.Set(i, 1, math.Log(x+1))
	}
	Y := mat.NewVecDense(len(ys), ys)

	var coef mat.VecDense
	if err := coef.SolveVec(X, Y); err != nil {
		return nil, fmt.Errorf("performance: solving the linear system: %w", err)
	}

	return &LogarithmicRegression{
		a: coef.AtVec(0),
		b: coef.AtVec(1),
	}, nil
}

// PredictY predicts a value for x using the logarithmic model
func (lr *LogarithmicRegression) PredictY(x float64) float64 {
	return lr.a + lr.b*math.Log(x+1)
}

// PredictX solves for x given a y value using the logarithmic model
func (lr *LogarithmicRegression) PredictX(y float64) float64 {
	if lr.b == 0 {
		return math.NaN()
	}
	return math.Exp((y-lr.a)/lr.b) - 1
}

func (lr *LogarithmicRegression) PrintFunction() string {
	return fmt.Sprintf("f(x) = %.2f + %.2f * ln(x+1)", lr.a, lr.b)
}
