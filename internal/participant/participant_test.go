package participant

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	"gonum.org/v1/gonum/mat"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/fldata"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/flmodel"
)

const testFeatureDim = 4
const testNumClasses = 3

func testProvider() flmodel.Provider {
	return flmodel.ProviderFunc(func() flmodel.Model {
		return flmodel.NewSoftmaxRegression(testFeatureDim, testNumClasses, 0.1, 42)
	})
}

func testParticipant(t *testing.T, trainExamples int, batchSize int, logger hclog.Logger) *Participant {
	t.Helper()
	xyTrain := fldata.Synthetic(trainExamples, testFeatureDim, testNumClasses, 7)
	xyVal := fldata.Synthetic(24, testFeatureDim, testNumClasses, 8)

	part, err := New("c1", testProvider(), xyTrain, xyVal, testNumClasses, batchSize, logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return part
}

func TestNewValidatesInputs(t *testing.T) {
	xyTrain := fldata.Synthetic(64, testFeatureDim, testNumClasses, 7)
	xyVal := fldata.Synthetic(24, testFeatureDim, testNumClasses, 8)

	if _, err := New("c1", nil, xyTrain, xyVal, 0, 0, nil); err == nil {
		t.Fatal("expected error for missing provider")
	}
	if _, err := New("c1", testProvider(), nil, xyVal, 0, 0, nil); err == nil {
		t.Fatal("expected error for missing training partition")
	}
	if _, err := New("c1", testProvider(), xyTrain, nil, 0, 0, nil); err == nil {
		t.Fatal("expected error for missing validation partition")
	}
}

func TestPartitionInvariantIsFatalAtConstruction(t *testing.T) {
	// A partition with mismatched example counts cannot be built at all,
	// so no participant can ever hold one.
	x := mat.NewDense(4, testFeatureDim, nil)
	if _, err := fldata.NewPartition(x, []int{0, 1, 2}); !errors.Is(err, fldata.ErrExampleCountMismatch) {
		t.Fatalf("expected ErrExampleCountMismatch, got %v", err)
	}
}

func TestStepsTrain(t *testing.T) {
	tests := []struct {
		examples  int
		batchSize int
		steps     int
	}{
		{128, 64, 2},
		{64, 64, 1},
		{30, 64, 0},
		{200, 64, 3},
	}

	for _, tc := range tests {
		part := testParticipant(t, tc.examples, tc.batchSize, nil)
		if part.StepsTrain() != tc.steps {
			t.Fatalf("%d examples, batch %d: expected %d steps, got %d",
				tc.examples, tc.batchSize, tc.steps, part.StepsTrain())
		}
		if part.StepsVal() != 1 {
			t.Fatalf("expected a single validation step, got %d", part.StepsVal())
		}
	}
}

func TestDefaultsApplied(t *testing.T) {
	xyTrain := fldata.Synthetic(128, testFeatureDim, testNumClasses, 7)
	xyVal := fldata.Synthetic(24, testFeatureDim, testNumClasses, 8)

	part, err := New("c1", testProvider(), xyTrain, xyVal, 0, 0, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	// 128 examples at the default batch size of 64.
	if part.StepsTrain() != 2 {
		t.Fatalf("expected default batch size to yield 2 steps, got %d", part.StepsTrain())
	}
}

func TestTrainRoundPreservesShapes(t *testing.T) {
	part := testParticipant(t, 128, 64, nil)
	theta := testProvider().InitModel().Weights()

	thetaPrime, err := part.TrainRound(theta, 2)
	if err != nil {
		t.Fatalf("TrainRound: %v", err)
	}

	if !flmodel.SameShape(theta, thetaPrime) {
		t.Fatal("trained weights must keep the incoming sequence length and tensor shapes")
	}
}

func TestTrainRoundDeterministic(t *testing.T) {
	theta := testProvider().InitModel().Weights()

	a, err := testParticipant(t, 128, 64, nil).TrainRound(theta.Clone(), 1)
	if err != nil {
		t.Fatalf("TrainRound: %v", err)
	}
	b, err := testParticipant(t, 128, 64, nil).TrainRound(theta.Clone(), 1)
	if err != nil {
		t.Fatalf("TrainRound: %v", err)
	}

	for i := range a {
		for j := range a[i].Data {
			if a[i].Data[j] != b[i].Data[j] {
				t.Fatalf("seeded training diverged at tensor %d element %d", i, j)
			}
		}
	}
}

func TestTrainRoundUpdatesWeights(t *testing.T) {
	part := testParticipant(t, 128, 64, nil)
	theta := testProvider().InitModel().Weights()

	thetaPrime, err := part.TrainRound(theta, 1)
	if err != nil {
		t.Fatalf("TrainRound: %v", err)
	}

	changed := false
	for i := range theta {
		for j := range theta[i].Data {
			if theta[i].Data[j] != thetaPrime[i].Data[j] {
				changed = true
			}
		}
	}
	if !changed {
		t.Fatal("two steps of training should move the parameters")
	}
}

func TestTrainRoundDoesNotAliasInput(t *testing.T) {
	part := testParticipant(t, 128, 64, nil)
	theta := testProvider().InitModel().Weights()
	original := theta.Clone()

	if _, err := part.TrainRound(theta, 1); err != nil {
		t.Fatalf("TrainRound: %v", err)
	}

	for i := range theta {
		for j := range theta[i].Data {
			if theta[i].Data[j] != original[i].Data[j] {
				t.Fatal("TrainRound must not mutate the caller's weights")
			}
		}
	}
}

func TestTrainRoundRejectsNonPositiveEpochs(t *testing.T) {
	part := testParticipant(t, 128, 64, nil)
	theta := testProvider().InitModel().Weights()

	if _, err := part.TrainRound(theta, 0); err == nil {
		t.Fatal("expected error for zero epochs")
	}
	if _, err := part.TrainRound(theta, -1); err == nil {
		t.Fatal("expected error for negative epochs")
	}
}

func TestTrainRoundDegenerateStepCount(t *testing.T) {
	// 30 examples with batch size 64 means zero full batches: the round
	// is a no-op and the installed parameters come back unchanged.
	part := testParticipant(t, 30, 64, nil)
	theta := testProvider().InitModel().Weights()

	thetaPrime, err := part.TrainRound(theta, 1)
	if err != nil {
		t.Fatalf("TrainRound: %v", err)
	}

	for i := range theta {
		for j := range theta[i].Data {
			if theta[i].Data[j] != thetaPrime[i].Data[j] {
				t.Fatal("a zero-step round must return the parameters unchanged")
			}
		}
	}
}

func TestTrainRoundRejectsOutOfRangeLabels(t *testing.T) {
	// A dataset whose labels exceed the configured class count must fail
	// the round with an error, not take down the caller.
	labels := make([]int, 64)
	labels[3] = 9
	xyTrain, err := fldata.NewPartition(mat.NewDense(64, testFeatureDim, nil), labels)
	if err != nil {
		t.Fatalf("NewPartition: %v", err)
	}
	xyVal := fldata.Synthetic(24, testFeatureDim, testNumClasses, 8)

	part, err := New("c1", testProvider(), xyTrain, xyVal, testNumClasses, 64, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	theta := testProvider().InitModel().Weights()
	if _, err := part.TrainRound(theta, 1); !errors.Is(err, flmodel.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for label 9 with %d classes, got %v", testNumClasses, err)
	}
}

func TestTrainRoundShapeMismatch(t *testing.T) {
	part := testParticipant(t, 128, 64, nil)

	wrong := flmodel.Weights{{Shape: []int{2, 2}, Data: make([]float64, 4)}}
	if _, err := part.TrainRound(wrong, 1); !errors.Is(err, flmodel.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestTrainRoundEmitsEpochLogLines(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Info})

	part := testParticipant(t, 128, 64, logger)
	theta := testProvider().InitModel().Weights()

	if _, err := part.TrainRound(theta, 2); err != nil {
		t.Fatalf("TrainRound: %v", err)
	}

	logs := buf.String()
	for _, line := range []string{"CID c1 epoch 0", "CID c1 epoch 1"} {
		if got := strings.Count(logs, line); got != 1 {
			t.Fatalf("expected %q exactly once, found %d times", line, got)
		}
	}
	if strings.Contains(logs, "CID c1 epoch 2") {
		t.Fatal("no log line expected beyond the last epoch")
	}
	if !strings.Contains(logs, "Participant c1: train_round START") ||
		!strings.Contains(logs, "Participant c1: train_round FINISH") {
		t.Fatal("expected round START and FINISH log lines")
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	part := testParticipant(t, 128, 64, nil)
	theta := testProvider().InitModel().Weights()
	xyTest := fldata.Synthetic(50, testFeatureDim, testNumClasses, 9)

	loss1, accuracy1, err := part.Evaluate(theta, xyTest)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	loss2, accuracy2, err := part.Evaluate(theta, xyTest)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if loss1 != loss2 || accuracy1 != accuracy2 {
		t.Fatalf("evaluate must be idempotent: (%v, %v) vs (%v, %v)", loss1, accuracy1, loss2, accuracy2)
	}
}

func TestEvaluateDoesNotLog(t *testing.T) {
	var buf bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Output: &buf, Level: hclog.Info})

	part := testParticipant(t, 128, 64, logger)
	theta := testProvider().InitModel().Weights()
	xyTest := fldata.Synthetic(50, testFeatureDim, testNumClasses, 9)

	if _, _, err := part.Evaluate(theta, xyTest); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if buf.Len() != 0 {
		t.Fatalf("evaluate must not emit log lines, got: %s", buf.String())
	}
}

func TestEvaluateShapeMismatch(t *testing.T) {
	part := testParticipant(t, 128, 64, nil)
	xyTest := fldata.Synthetic(50, testFeatureDim, testNumClasses, 9)

	wrong := flmodel.Weights{{Shape: []int{2, 2}, Data: make([]float64, 4)}}
	if _, _, err := part.Evaluate(wrong, xyTest); !errors.Is(err, flmodel.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}

	theta := testProvider().InitModel().Weights()
	wrongDim := fldata.Synthetic(50, testFeatureDim+1, testNumClasses, 9)
	if _, _, err := part.Evaluate(theta, wrongDim); !errors.Is(err, flmodel.ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch for incompatible test features, got %v", err)
	}
}

func TestCastHistoryNormalizesToFloat64(t *testing.T) {
	hist := flmodel.History{
		"loss":     []float32{0.5, 0.25},
		"accuracy": []float32{0.1},
	}

	normalized := castHistory(hist)

	if len(normalized) != 2 {
		t.Fatalf("expected 2 metrics, got %d", len(normalized))
	}
	if got := normalized["loss"]; len(got) != 2 || got[0] != 0.5 || got[1] != 0.25 {
		t.Fatalf("unexpected loss series: %v", got)
	}
	if got := normalized["accuracy"]; len(got) != 1 || got[0] != float64(float32(0.1)) {
		t.Fatalf("unexpected accuracy series: %v", got)
	}
}

func TestDataDistribution(t *testing.T) {
	part := testParticipant(t, 90, 64, nil)

	distribution := part.DataDistribution()
	if len(distribution) != testNumClasses {
		t.Fatalf("expected %d classes, got %d", testNumClasses, len(distribution))
	}
	sum := 0.0
	for _, fraction := range distribution {
		sum += fraction
	}
	if sum < 0.99 || sum > 1.01 {
		t.Fatalf("distribution should sum to 1, got %f", sum)
	}
}
