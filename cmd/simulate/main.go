package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/common"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/coordinator"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/events"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/fldata"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/flmodel"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/participant"
)

func main() {
	numParticipants := flag.Int("participants", 2, "number of simulated participants")
	rounds := flag.Int("rounds", common.DEFAULT_ROUNDS, "number of communication rounds")
	epochs := flag.Int("epochs", common.DEFAULT_EPOCHS, "local epochs per round")
	batchSize := flag.Int("batch-size", common.DEFAULT_BATCH_SIZE, "local training batch size")
	learningRate := flag.Float64("learning-rate", common.DEFAULT_LEARNING_RATE, "local SGD learning rate")
	numClasses := flag.Int("classes", common.DEFAULT_NUM_CLASSES, "number of classes")
	examples := flag.Int("examples", 2000, "synthetic dataset size (ignored with -dataset)")
	featureDim := flag.Int("feature-dim", 16, "synthetic feature dimension (ignored with -dataset)")
	datasetPath := flag.String("dataset", "", "CSV dataset path; synthetic data when empty")
	participantsRatio := flag.Float64("participants-ratio", common.DEFAULT_PARTICIPANTS_RATIO, "fraction of participants per round")
	targetAccuracy := flag.Float64("target-accuracy", 0, "stop once this test accuracy is reached")
	resultsDir := flag.String("results-dir", "results", "directory for per-round results CSV")
	seed := flag.Int64("seed", 42, "seed for data generation, model init, and selection")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "xain-fl",
		Level: hclog.LevelFromString("DEBUG"),
	})

	var data *fldata.Partition
	var err error
	if *datasetPath != "" {
		data, err = fldata.LoadCSV(*datasetPath)
		if err != nil {
			logger.Error("Error loading dataset", "error", err)
			os.Exit(1)
		}
	} else {
		data = fldata.Synthetic(*examples, *featureDim, *numClasses, *seed)
	}

	xyPool, xyTest, err := fldata.SplitTrainVal(data, 0.2)
	if err != nil {
		logger.Error("Error splitting dataset", "error", err)
		os.Exit(1)
	}

	provider := flmodel.SoftmaxProvider{
		InputSize:    data.FeatureDim(),
		NumClasses:   *numClasses,
		LearningRate: *learningRate,
		Seed:         *seed,
	}

	pool, err := participant.BuildPool(xyPool, *numParticipants, 0.1, provider, *numClasses, *batchSize, logger)
	if err != nil {
		logger.Error("Error building participants", "error", err)
		os.Exit(1)
	}

	eventBus := events.NewEventBus()

	coord, err := coordinator.New(coordinator.Config{
		Rounds:            int32(*rounds),
		Epochs:            int32(*epochs),
		ParticipantsRatio: *participantsRatio,
		TargetAccuracy:    float32(*targetAccuracy),
		ResultsDir:        *resultsDir,
		Seed:              *seed,
	}, pool, provider, xyTest, *numClasses, eventBus, logger)
	if err != nil {
		logger.Error("Error creating coordinator", "error", err)
		os.Exit(1)
	}

	if err := coord.Run(context.Background()); err != nil {
		logger.Error("Training failed", "error", err)
		os.Exit(1)
	}

	snap := coord.Snapshot()
	fmt.Printf("Final accuracy after round %d: %.4f (loss %.4f)\n", snap.Round, snap.Accuracy, snap.Loss)
}
