package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/common"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/events"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/fldata"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/flmodel"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/participant"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/performance"
)

// Coordinator drives a federated training run: each round it selects a
// subset of participants, collects their locally trained weights, averages
// them, and evaluates the aggregate on a held-out test partition.
//
// Participants are invoked sequentially within a round; every participant
// only ever sees one call at a time.
type Coordinator struct {
	cfg          Config
	participants []*participant.Participant
	provider     flmodel.Provider
	xyTest       *fldata.Partition
	numClasses   int
	eventBus     *events.EventBus
	logger       hclog.Logger
	rng          *rand.Rand

	mu       sync.Mutex
	progress Progress
	theta    flmodel.Weights
}

func New(cfg Config, participants []*participant.Participant, provider flmodel.Provider,
	xyTest *fldata.Partition, numClasses int, eventBus *events.EventBus, logger hclog.Logger) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(participants) == 0 {
		return nil, errors.New("coordinator: at least one participant is required")
	}
	if provider == nil {
		return nil, errors.New("coordinator: model provider is required")
	}
	if xyTest == nil {
		return nil, errors.New("coordinator: test partition is required")
	}
	if numClasses <= 0 {
		numClasses = common.DEFAULT_NUM_CLASSES
	}
	if eventBus == nil {
		eventBus = events.NewEventBus()
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Coordinator{
		cfg:          cfg,
		participants: participants,
		provider:     provider,
		xyTest:       xyTest,
		numClasses:   numClasses,
		eventBus:     eventBus,
		logger:       logger,
		rng:          rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Run executes the full training: cfg.Rounds rounds, or fewer when the
// target accuracy is reached or the accuracy trajectory converges. The
// final global weights are retained and served by GlobalWeights.
func (c *Coordinator) Run(ctx context.Context) error {
	theta := c.provider.InitModel().Weights()

	c.logDataDistributions()

	resultsFileName := ""
	if c.cfg.ResultsDir != "" {
		fileName, err := common.GetResultsFileName(c.cfg.ResultsDir)
		if err != nil {
			return err
		}
		resultsFileName = fileName
	}

	reporter := cron.New(cron.WithSeconds())
	reporter.AddFunc("@every 30s", c.reportProgress)
	reporter.Start()
	defer reporter.Stop()

	exitMessage := common.EXIT_ROUNDS_COMPLETED
	for round := int32(1); round <= c.cfg.Rounds; round++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		selected := selectParticipants(c.participants,
			numToSelect(len(c.participants), c.cfg.ParticipantsRatio, int(c.cfg.MinParticipants)), c.rng)

		updates := make([]Update, 0, len(selected))
		for _, part := range selected {
			thetaPrime, err := part.TrainRound(theta.Clone(), int(c.cfg.Epochs))
			if err != nil {
				return fmt.Errorf("round %d: %w", round, err)
			}
			updates = append(updates, Update{
				Cid:         part.Cid(),
				Weights:     thetaPrime,
				NumExamples: part.TrainExamples(),
			})
		}

		aggregated, err := FedAvg(updates)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}
		theta = aggregated

		loss, accuracy, err := c.evaluateGlobal(theta)
		if err != nil {
			return fmt.Errorf("round %d: %w", round, err)
		}

		c.logger.Info(fmt.Sprintf("Finished global round %d", round))
		c.logger.Info(fmt.Sprintf("Latest accuracy: %.4f", accuracy))
		c.logger.Info(fmt.Sprintf("Latest loss: %.4f", loss))

		c.mu.Lock()
		c.progress.record(round, accuracy, loss)
		c.theta = theta.Clone()
		converged := hasConverged(c.progress.accuracies, common.CONVERGENCE_THRESHOLD,
			common.CONVERGENCE_PATIENCE, common.CONVERGENCE_WINDOW_SIZE)
		c.progress.converged = converged
		accuracies := append([]float32(nil), c.progress.accuracies...)
		losses := append([]float32(nil), c.progress.losses...)
		c.mu.Unlock()

		if resultsFileName != "" {
			if err := common.WriteResultsToFile(resultsFileName, round, accuracy, loss); err != nil {
				c.logger.Error(fmt.Sprintf("Error while writing results: %s", err.Error()))
			}
		}

		c.eventBus.Publish(events.Event{
			Type:      common.ROUND_FINISHED_EVENT_TYPE,
			Timestamp: time.Now(),
			Data: events.RoundFinishedEvent{
				Round:    round,
				Accuracy: accuracy,
				Loss:     loss,
			},
		})

		if c.cfg.TargetAccuracy > 0 && accuracy >= c.cfg.TargetAccuracy {
			c.logger.Info(fmt.Sprintf("Target accuracy reached! Final accuracy: %.4f", accuracy))
			exitMessage = common.EXIT_TARGET_ACCURACY
			break
		}
		if converged {
			c.logger.Info("Accuracy has converged!")
			exitMessage = common.EXIT_CONVERGED
			break
		}

		c.predictTargetRound(round, accuracies, losses)
	}

	c.mu.Lock()
	c.progress.done = true
	c.progress.exitReason = exitMessage
	snap := c.progress.snapshot()
	c.mu.Unlock()

	c.eventBus.Publish(events.Event{
		Type:      common.TRAINING_FINISHED_EVENT_TYPE,
		Timestamp: time.Now(),
		Data: events.TrainingFinishedEvent{
			Rounds:        snap.Round,
			FinalAccuracy: snap.Accuracy,
			ExitMessage:   exitMessage,
		},
	})

	c.logger.Info(fmt.Sprintf("Training finished after round %d: %s", snap.Round, exitMessage))

	return nil
}

// GlobalWeights returns a snapshot of the latest aggregated parameters.
func (c *Coordinator) GlobalWeights() flmodel.Weights {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.theta.Clone()
}

// Snapshot returns the current progress of the run.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress.snapshot()
}

// evaluateGlobal measures the aggregated parameters on the held-out test
// partition, consumed as one batch.
func (c *Coordinator) evaluateGlobal(theta flmodel.Weights) (float32, float32, error) {
	model := c.provider.InitModel()
	if err := model.SetWeights(theta.Clone()); err != nil {
		return 0, 0, err
	}
	return model.Evaluate(fldata.NewValFeed(c.xyTest, c.numClasses))
}

// logDataDistributions reports how far each participant's label
// distribution diverges from the pooled distribution, a proxy for how
// non-IID the partitioning is.
func (c *Coordinator) logDataDistributions() {
	pooled := make([]float64, c.numClasses)
	totalExamples := 0
	for _, part := range c.participants {
		distribution := part.DataDistribution()
		for i, fraction := range distribution {
			pooled[i] += fraction * float64(part.TrainExamples())
		}
		totalExamples += part.TrainExamples()
	}
	if totalExamples == 0 {
		return
	}
	for i := range pooled {
		pooled[i] /= float64(totalExamples)
	}

	distributionsPrint := fmt.Sprintln("Participant data distributions ::")
	for _, part := range c.participants {
		kld := fldata.KlDivergence(part.DataDistribution(), pooled)
		distributionsPrint += fmt.Sprintf("\tCID %s\t| Examples:%d\t| KLD:%.4f\n",
			part.Cid(), part.TrainExamples(), kld)
	}

	c.logger.Info(distributionsPrint)
}

// predictTargetRound extrapolates the accuracy curve and logs the round at
// which the target accuracy is expected.
func (c *Coordinator) predictTargetRound(round int32, accuracies []float32, losses []float32) {
	if c.cfg.TargetAccuracy <= 0 || len(accuracies) < 3 {
		return
	}

	pp, err := performance.NewPerformancePrediction(accuracies, losses)
	if err != nil {
		c.logger.Debug(fmt.Sprintf("Performance prediction unavailable: %s", err.Error()))
		return
	}

	predictedRound := pp.PredictRoundForAccuracy(c.cfg.TargetAccuracy)
	if predictedRound > round {
		c.logger.Info(fmt.Sprintf("Predicted round for target accuracy %.2f: %d",
			c.cfg.TargetAccuracy, predictedRound))
	}
}

func (c *Coordinator) reportProgress() {
	snap := c.Snapshot()
	if snap.Round == 0 {
		return
	}
	c.logger.Info(fmt.Sprintf("Progress: round %d, accuracy %.4f, loss %.4f",
		snap.Round, snap.Accuracy, snap.Loss))
}
