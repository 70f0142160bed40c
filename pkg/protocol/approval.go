package protocol

import (
	"context"

	"github.com/arbiterhq/arbiter/pkg/models"
)

// ApprovalGate blocks a workflow execution on a human decision. Await
// returns the resolved approval; the engine aborts the step on rejection.
type ApprovalGate interface {
	Await(ctx context.Context, approval *models.Approval) (*models.Approval, error)
}
