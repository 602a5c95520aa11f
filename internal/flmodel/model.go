package flmodel

import (
	"errors"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/fldata"
)

// ErrShapeMismatch is returned when incoming weights are structurally
// incompatible with the parameters a model expects.
var ErrShapeMismatch = errors.New("flmodel: weights incompatible with model parameters")

// History maps a metric name to its ordered per-epoch values, in the
// training framework's native numeric precision.
type History map[string][]float32

// EpochObserver is invoked exactly once after each completed epoch, in epoch
// order, after the epoch's metrics have been recorded. It must not alter
// training data or control flow.
type EpochObserver func(epoch int)

// Model is one trainable model instance.
type Model interface {
	// SetWeights installs a full parameter set, copying it in.
	SetWeights(w Weights) error
	// Weights returns a snapshot of the current parameters, independent of
	// the model's internal storage.
	Weights() Weights
	// Fit runs supervised optimization for the given number of epochs, one
	// whole-set validation pass per epoch.
	Fit(train *fldata.Feed, val *fldata.Feed, epochs int, onEpochEnd EpochObserver) (History, error)
	// Evaluate consumes a single batch from the feed and returns the loss
	// and accuracy over it.
	Evaluate(feed *fldata.Feed) (loss float32, accuracy float32, err error)
}

// Provider constructs a fresh, freshly-initialized trainable model whose
// parameter shapes match any weights its consumers exchange.
type Provider interface {
	InitModel() Model
}

// ProviderFunc adapts a plain function to the Provider interface.
type ProviderFunc func() Model

func (f ProviderFunc) InitModel() Model {
	return f()
}
