package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence"
)

// PollingGate resolves approval gates by polling the approval store until a
// decision lands (typically via the API). It blocks the single workflow
// execution, not the worker pool.
type PollingGate struct {
	approvals persistence.ApprovalRepository
	interval  time.Duration
}

func NewPollingGate(approvals persistence.ApprovalRepository, interval time.Duration) *PollingGate {
	if interval <= 0 {
		interval = time.Second
	}

	return &PollingGate{approvals: approvals, interval: interval}
}

func (g *PollingGate) Await(ctx context.Context, approval *models.Approval) (*models.Approval, error) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("approval %s not decided: %w", approval.ID, ctx.Err())
		case <-ticker.C:
			current, err := g.approvals.GetByID(ctx, approval.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to poll approval %s: %w", approval.ID, err)
			}

			if current.Status != models.ApprovalStatusPending {
				return current, nil
			}
		}
	}
}

// AutoGate decides every approval immediately. Used in tests and in
// deployments that run gated workflows unattended.
type AutoGate struct {
	Approve   bool
	DecidedBy string
}

func (g AutoGate) Await(_ context.Context, approval *models.Approval) (*models.Approval, error) {
	decided := *approval
	now := time.Now().UTC()
	decided.DecidedAt = &now
	decided.DecidedBy = g.DecidedBy

	if g.Approve {
		decided.Status = models.ApprovalStatusApproved
	} else {
		decided.Status = models.ApprovalStatusRejected
	}

	return &decided, nil
}
