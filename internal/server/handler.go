package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hashicorp/go-hclog"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/common"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/coordinator"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/events"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/fldata"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/flmodel"
	"github.com/elgohr-update/keyko-io-xain-fl/internal/participant"
)

const testFraction = 0.2
const valFraction = 0.1

type run struct {
	coordinator *coordinator.Coordinator
	cancel      context.CancelFunc
}

type Handler struct {
	logger   hclog.Logger
	eventBus *events.EventBus
	mu       sync.Mutex
	runs     map[string]*run
}

func NewHandler(logger hclog.Logger, eventBus *events.EventBus) *Handler {
	handler := &Handler{
		logger:   logger,
		eventBus: eventBus,
		runs:     map[string]*run{},
	}

	finished := make(chan events.Event, 16)
	eventBus.Subscribe(common.TRAINING_FINISHED_EVENT_TYPE, finished)
	go handler.consumeTrainingFinished(finished)

	return handler
}

// consumeTrainingFinished logs the outcome of every run that finishes
// training, for the lifetime of the handler.
func (handler *Handler) consumeTrainingFinished(ch <-chan events.Event) {
	for event := range ch {
		data, ok := event.Data.(events.TrainingFinishedEvent)
		if !ok {
			continue
		}
		handler.logger.Info(fmt.Sprintf("Training finished after %d rounds with accuracy %.4f: %s",
			data.Rounds, data.FinalAccuracy, data.ExitMessage))
	}
}

func (handler *Handler) StartRun(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	runId := uuid.New().String()

	request := &StartRunRequest{}
	err := fromJSON(request, r.Body)
	if err != nil {
		handler.logger.Error("error starting run: ", "error", err)
		rw.WriteHeader(http.StatusBadRequest)
		return
	}
	applyRequestDefaults(request)

	coord, err := handler.buildCoordinator(request)
	if err != nil {
		handler.logger.Error("error starting run", "error", err)
		rw.WriteHeader(http.StatusBadRequest)
		toJSON(err.Error(), rw)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	handler.mu.Lock()
	handler.runs[runId] = &run{coordinator: coord, cancel: cancel}
	handler.mu.Unlock()

	handler.logger.Info(fmt.Sprintf("Starting run %s with %d participants, %d rounds, %d epochs",
		runId, request.NumParticipants, request.Rounds, request.Epochs))

	go func() {
		if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			handler.logger.Error(fmt.Sprintf("Run %s failed", runId), "error", err)
		}
	}()

	rw.WriteHeader(http.StatusOK)
	toJSON(runId, rw)
}

func (handler *Handler) GetRun(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	runId := getURLParameter(r, "runId")

	handler.mu.Lock()
	activeRun := handler.runs[runId]
	handler.mu.Unlock()

	if activeRun == nil {
		rw.WriteHeader(http.StatusNotFound)
		toJSON("no run with the given ID", rw)
		return
	}

	rw.WriteHeader(http.StatusOK)
	toJSON(activeRun.coordinator.Snapshot(), rw)
}

func (handler *Handler) StopRun(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Add("Content-Type", "application/json")

	runId := getURLParameter(r, "runId")

	handler.logger.Info(fmt.Sprintf("Stopping run with ID: %s", runId))

	handler.mu.Lock()
	activeRun := handler.runs[runId]
	delete(handler.runs, runId)
	handler.mu.Unlock()

	if activeRun != nil {
		activeRun.cancel()
		rw.WriteHeader(http.StatusOK)
	} else {
		rw.WriteHeader(http.StatusBadRequest)
		toJSON("no run with the given ID", rw)
	}
}

func (handler *Handler) buildCoordinator(request *StartRunRequest) (*coordinator.Coordinator, error) {
	var data *fldata.Partition
	var err error
	if request.DatasetPath != "" {
		data, err = fldata.LoadCSV(request.DatasetPath)
		if err != nil {
			return nil, err
		}
	} else {
		data = fldata.Synthetic(request.Examples, request.FeatureDim, request.NumClasses, request.Seed)
	}

	xyPool, xyTest, err := fldata.SplitTrainVal(data, testFraction)
	if err != nil {
		return nil, err
	}

	provider := flmodel.SoftmaxProvider{
		InputSize:    data.FeatureDim(),
		NumClasses:   request.NumClasses,
		LearningRate: float64(request.TrainingParams.LearningRate),
		Seed:         request.Seed,
	}

	pool, err := participant.BuildPool(xyPool, request.NumParticipants, valFraction, provider,
		request.NumClasses, int(request.TrainingParams.BatchSize), handler.logger)
	if err != nil {
		return nil, err
	}

	return coordinator.New(coordinator.Config{
		Rounds:            request.Rounds,
		Epochs:            request.Epochs,
		ParticipantsRatio: request.ParticipantsRatio,
		MinParticipants:   request.MinParticipants,
		TargetAccuracy:    request.TargetAccuracy,
		ResultsDir:        request.ResultsDir,
		Seed:              request.Seed,
	}, pool, provider, xyTest, request.NumClasses, handler.eventBus, handler.logger)
}

func applyRequestDefaults(request *StartRunRequest) {
	if request.NumParticipants <= 0 {
		request.NumParticipants = 2
	}
	if request.Examples <= 0 {
		request.Examples = 2000
	}
	if request.FeatureDim <= 0 {
		request.FeatureDim = 16
	}
	if request.NumClasses <= 0 {
		request.NumClasses = common.DEFAULT_NUM_CLASSES
	}
	if request.TrainingParams.BatchSize <= 0 {
		request.TrainingParams.BatchSize = common.DEFAULT_BATCH_SIZE
	}
	if request.TrainingParams.LearningRate <= 0 {
		request.TrainingParams.LearningRate = common.DEFAULT_LEARNING_RATE
	}
}

func getURLParameter(r *http.Request, parameter string) string {
	vars := mux.Vars(r)
	id := vars[parameter]
	return id
}
