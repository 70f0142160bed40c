// Package protocol defines the contracts between the orchestration core and
// its pluggable collaborators.
package protocol

import (
	"context"

	"github.com/arbiterhq/arbiter/pkg/models"
)

// Agent evaluates one quality/safety dimension of a text artifact. The
// orchestration core depends only on this contract; internal heuristics are
// arbitrary and swappable. Analyze must not mutate the artifact and must
// return within the caller-imposed deadline or be treated as failed.
type Agent interface {
	ID() string
	Analyze(ctx context.Context, artifact models.Artifact) (*models.AnalysisResult, error)
}

type AgentFactory interface {
	ID() string
	Create(config map[string]any) (Agent, error)
}
