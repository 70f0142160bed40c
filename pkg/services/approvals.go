package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence"
)

// ApprovalService resolves human-approval gates raised by workflow
// executions. A decision lands in the store and the engine's polling gate
// picks it up.
type ApprovalService struct {
	persistence persistence.Persistence
	logger      *slog.Logger
}

func NewApprovalService(store persistence.Persistence, logger *slog.Logger) *ApprovalService {
	return &ApprovalService{
		persistence: store,
		logger:      logger.With("module", "approval-service"),
	}
}

func (s *ApprovalService) ListPending(ctx context.Context) ([]*models.Approval, error) {
	return s.persistence.Approvals().ListPending(ctx)
}

func (s *ApprovalService) Get(ctx context.Context, id string) (*models.Approval, error) {
	return s.persistence.Approvals().GetByID(ctx, id)
}

// Decide records an approve/reject decision. Deciding twice is rejected so
// a gate never flips after the engine has acted on it.
func (s *ApprovalService) Decide(ctx context.Context, id string, approve bool, decidedBy, comment string) (*models.Approval, error) {
	approval, err := s.persistence.Approvals().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if approval.Status != models.ApprovalStatusPending {
		return nil, validationErrorf("approval %s already decided (%s)", id, approval.Status)
	}

	now := time.Now().UTC()
	approval.DecidedAt = &now
	approval.DecidedBy = decidedBy
	approval.Comment = comment

	if approve {
		approval.Status = models.ApprovalStatusApproved
	} else {
		approval.Status = models.ApprovalStatusRejected
	}

	if err := s.persistence.Approvals().Save(ctx, approval); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "Approval decided",
		"approval_id", id, "status", approval.Status, "decided_by", decidedBy)

	return approval, nil
}
