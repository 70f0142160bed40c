package pipeline

import (
	"time"

	"github.com/arbiterhq/arbiter/pkg/models"
)

// Config is the tuning surface of the staged pipeline. Floor and weights
// are injected per orchestrator instance so verticals can carry their own
// thresholds.
type Config struct {
	// CatastrophicFloor is the stage score below which the pipeline
	// terminates early instead of building on a compromised artifact.
	CatastrophicFloor int

	// Weights applied to stage scores during aggregation. Stages that never
	// ran contribute 0, so an early-terminated pipeline cannot look good by
	// omission.
	Weights map[models.Stage]float64

	PassThreshold    int
	WarningThreshold int

	// StageTimeout bounds each agent call.
	StageTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		CatastrophicFloor: 20,
		Weights: map[models.Stage]float64{
			models.StageSecurity:  0.4,
			models.StageIntegrity: 0.3,
			models.StageAccuracy:  0.3,
		},
		PassThreshold:    80,
		WarningThreshold: 60,
		StageTimeout:     30 * time.Second,
	}
}
