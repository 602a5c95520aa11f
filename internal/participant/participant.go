package participant

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/common"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/fldata"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/flmodel"
)

// Participant is one simulated federated-learning client. It owns a private
// training partition and a validation partition, and exposes exactly two
// operations to a coordinator: TrainRound and Evaluate. Each operation
// builds a fresh model instance from the injected provider, so no state
// (including optimizer state) carries across calls.
//
// A Participant is safe to use from one goroutine at a time; distinct
// Participant instances share no mutable state.
type Participant struct {
	cid        string
	provider   flmodel.Provider
	xyTrain    *fldata.Partition
	xyVal      *fldata.Partition
	numClasses int
	batchSize  int
	stepsTrain int
	stepsVal   int
	logger     hclog.Logger
}

// New constructs a Participant. numClasses and batchSize fall back to the
// package defaults when non-positive. The partitions are owned by the
// participant for its lifetime and must not be mutated by the caller.
func New(cid string, provider flmodel.Provider, xyTrain *fldata.Partition, xyVal *fldata.Partition,
	numClasses int, batchSize int, logger hclog.Logger) (*Participant, error) {
	if provider == nil {
		return nil, errors.New("participant: model provider is required")
	}
	if xyTrain == nil || xyVal == nil {
		return nil, errors.New("participant: training and validation partitions are required")
	}
	if numClasses <= 0 {
		numClasses = common.DEFAULT_NUM_CLASSES
	}
	if batchSize <= 0 {
		batchSize = common.DEFAULT_BATCH_SIZE
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Participant{
		cid:        cid,
		provider:   provider,
		xyTrain:    xyTrain,
		xyVal:      xyVal,
		numClasses: numClasses,
		batchSize:  batchSize,
		stepsTrain: xyTrain.Examples() / batchSize,
		stepsVal:   1,
		logger:     logger,
	}, nil
}

func (p *Participant) Cid() string {
	return p.cid
}

// StepsTrain is the number of full batches one epoch consumes.
func (p *Participant) StepsTrain() int {
	return p.stepsTrain
}

// StepsVal is the number of batches one validation pass consumes; the
// validation partition is always consumed as a single batch.
func (p *Participant) StepsVal() int {
	return p.stepsVal
}

// TrainExamples is the size of the participant's training partition.
func (p *Participant) TrainExamples() int {
	return p.xyTrain.Examples()
}

// DataDistribution returns the per-class fraction of the participant's
// training examples.
func (p *Participant) DataDistribution() []float64 {
	return fldata.LabelDistribution(p.xyTrain, p.numClasses)
}

// TrainRound installs theta on a fresh model, trains it locally for the
// given number of epochs, and returns the resulting parameters as a
// snapshot independent of the discarded model instance.
//
// epochs must be positive; passing zero or a negative count is an error. A
// training partition smaller than one batch makes the round a no-op: the
// installed parameters come back unchanged, with a warning logged.
func (p *Participant) TrainRound(theta flmodel.Weights, epochs int) (flmodel.Weights, error) {
	p.logger.Info(fmt.Sprintf("Participant %s: train_round START", p.cid))

	if epochs <= 0 {
		return nil, fmt.Errorf("participant %s: epochs must be positive, got %d", p.cid, epochs)
	}

	model := p.provider.InitModel()
	if err := model.SetWeights(theta.Clone()); err != nil {
		return nil, fmt.Errorf("participant %s: %w", p.cid, err)
	}

	if p.stepsTrain == 0 {
		p.logger.Warn(fmt.Sprintf("Participant %s: %d training examples for batch size %d, skipping local training",
			p.cid, p.xyTrain.Examples(), p.batchSize))
	} else {
		hist, err := p.train(model, epochs)
		if err != nil {
			return nil, fmt.Errorf("participant %s: %w", p.cid, err)
		}
		if valAccuracy, ok := hist["val_accuracy"]; ok && len(valAccuracy) > 0 {
			p.logger.Debug(fmt.Sprintf("Participant %s: val_accuracy %.4f (mean %.4f over %d epochs)",
				p.cid, valAccuracy[len(valAccuracy)-1], common.CalculateAverageFloat64(valAccuracy), len(valAccuracy)))
		}
	}

	thetaPrime := model.Weights()
	p.logger.Info(fmt.Sprintf("Participant %s: train_round FINISH", p.cid))

	return thetaPrime, nil
}

// train runs the local fit loop: stepsTrain batches per epoch in partition
// order without reshuffling, one whole-set validation pass per epoch, and
// the per-epoch observer. The returned history is normalized to float64.
func (p *Participant) train(model flmodel.Model, epochs int) (map[string][]float64, error) {
	dsTrain := fldata.NewTrainFeed(p.xyTrain, p.numClasses, p.batchSize)
	dsVal := fldata.NewValFeed(p.xyVal, p.numClasses)

	hist, err := model.Fit(dsTrain, dsVal, epochs, epochObserver(p.cid, p.logger))
	if err != nil {
		return nil, err
	}

	return castHistory(hist), nil
}

// Evaluate installs theta on a fresh model and computes loss and accuracy
// over xyTest, consumed as a single batch. It has no side effects beyond
// the returned metrics.
func (p *Participant) Evaluate(theta flmodel.Weights, xyTest *fldata.Partition) (float64, float64, error) {
	model := p.provider.InitModel()
	if err := model.SetWeights(theta.Clone()); err != nil {
		return 0, 0, fmt.Errorf("participant %s: %w", p.cid, err)
	}

	dsTest := fldata.NewValFeed(xyTest, p.numClasses)
	loss, accuracy, err := model.Evaluate(dsTest)
	if err != nil {
		return 0, 0, fmt.Errorf("participant %s: %w", p.cid, err)
	}

	return float64(loss), float64(accuracy), nil
}

// epochObserver builds the per-epoch diagnostic hook: one line per
// completed epoch, carrying the client id and the epoch index.
func epochObserver(cid string, logger hclog.Logger) flmodel.EpochObserver {
	return func(epoch int) {
		logger.Info(fmt.Sprintf("CID %s epoch %d", cid, epoch))
	}
}

// castHistory normalizes every recorded metric value to float64 so that
// callers always see one consistent, serializable numeric type regardless
// of the training framework's native precision.
func castHistory(hist flmodel.History) map[string][]float64 {
	normalized := make(map[string][]float64, len(hist))
	for name, values := range hist {
		series := make([]float64, len(values))
		for i, value := range values {
			series[i] = float64(value)
		}
		normalized[name] = series
	}
	return normalized
}
