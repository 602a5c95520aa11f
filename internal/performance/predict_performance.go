package performance

import (
	"math"
)

// PerformancePrediction extrapolates the accuracy and loss trajectories of
// a training run from the per-round metrics observed so far.
type PerformancePrediction struct {
	regressionAccuracies Regression
	regressionLosses     Regression
}

func NewPerformancePrediction(accuracies []float32, losses []float32) (*PerformancePrediction, error) {
	accXs, accYs := prepareXAndY(accuracies)
	lossXs, lossYs := prepareXAndY(losses)

	regressionAccuracies, err := NewLogarithmicRegression(accXs, accYs)
	if err != nil {
		return nil, err
	}
	regressionLosses, err := NewLogarithmicRegression(lossXs, lossYs)
	if err != nil {
		return nil, err
	}

	return &PerformancePrediction{
		regressionAccuracies: regressionAccuracies,
		regressionLosses:     regressionLosses,
	}, nil
}

func (pp *PerformancePrediction) PredictAccuracy(round int32) float32 {
	return float32(pp.regressionAccuracies.PredictY(float64(round)))
}

func (pp *PerformancePrediction) PredictRoundForAccuracy(accuracy float32) int32 {
	predictedRound := math.Ceil(pp.regressionAccuracies.PredictX(float64(accuracy)))
	if math.IsNaN(predictedRound) || math.IsInf(predictedRound, 0) {
		return -1
	}

	return int32(predictedRound)
}

func (pp *PerformancePrediction) PredictLoss(round int32) float32 {
	return float32(pp.regressionLosses.PredictY(float64(round)))
}

func (pp *PerformancePrediction) PrintPrediction() string {
	return pp.regressionAccuracies.PrintFunction()
}

func prepareXAndY(values []float32) ([]float64, []float64) {
	xs := make([]float64, len(values))
	ys := make([]float64, len(values))

	for i, value := range values {
		xs[i] = float64(i + 1)
		ys[i] = float64(value)
	}

	return xs, ys
}
