package protocol

import (
	"context"

	"github.com/arbiterhq/arbiter/pkg/models"
)

// ServiceAction is the typed capability a workflow step invokes. The engine
// treats the return value as opaque, except for *models.StepResult which
// steers execution.
type ServiceAction func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any) (any, error)
