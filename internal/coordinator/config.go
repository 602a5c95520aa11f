package coordinator

import (
	"fmt"

	"github.com/elgohr-update/keyko-io-xain-fl/internal/common"
)

// Config captures the knobs of one federated training run.
type Config struct {
	Rounds            int32   `json:"rounds"`
	Epochs            int32   `json:"epochs"`
	ParticipantsRatio float64 `json:"participantsRatio"`
	MinParticipants   int32   `json:"minParticipants"`
	TargetAccuracy    float32 `json:"targetAccuracy"`
	ResultsDir        string  `json:"resultsDir"`
	Seed              int64   `json:"seed"`
}

// Validate fills defaults for unset fields and rejects unusable values.
func (c *Config) Validate() error {
	if c.Rounds == 0 {
		c.Rounds = common.DEFAULT_ROUNDS
	}
	if c.Rounds < 0 {
		return fmt.Errorf("coordinator: rounds must be positive, got %d", c.Rounds)
	}
	if c.Epochs == 0 {
		c.Epochs = common.DEFAULT_EPOCHS
	}
	if c.Epochs < 0 {
		return fmt.Errorf("coordinator: epochs must be positive, got %d", c.Epochs)
	}
	if c.ParticipantsRatio == 0 {
		c.ParticipantsRatio = common.DEFAULT_PARTICIPANTS_RATIO
	}
	if c.ParticipantsRatio < 0 || c.ParticipantsRatio > 1 {
		return fmt.Errorf("coordinator: participants ratio must be in (0, 1], got %f", c.ParticipantsRatio)
	}
	if c.MinParticipants == 0 {
		c.MinParticipants = common.DEFAULT_MIN_PARTICIPANTS
	}
	if c.MinParticipants < 0 {
		return fmt.Errorf("coordinator: min participants must be positive, got %d", c.MinParticipants)
	}
	if c.TargetAccuracy < 0 || c.TargetAccuracy > 1 {
		return fmt.Errorf("coordinator: target accuracy must be in [0, 1], got %f", c.TargetAccuracy)
	}

	return nil
}
