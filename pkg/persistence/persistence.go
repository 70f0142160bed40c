// Package persistence provides the storage abstraction for workflow
// definitions, execution records, pipeline sessions, batches, escalations
// and approvals. Documents are written per-id via read-modify-write; the
// store is not a distributed lock and concurrent writers to the same id are
// not a supported scenario.
package persistence

import (
	"context"

	"github.com/arbiterhq/arbiter/pkg/models"
)

type WorkflowRepository interface {
	Save(ctx context.Context, workflow *models.Workflow) error
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context) ([]*models.Workflow, error)
	Delete(ctx context.Context, id string) error
}

// ExecutionRepository stores workflow execution records. Records are
// updated incrementally at each status transition so a crash mid-run leaves
// an inspectable partial record.
type ExecutionRepository interface {
	Save(ctx context.Context, execution *models.WorkflowExecution) error
	GetByID(ctx context.Context, id string) (*models.WorkflowExecution, error)
	List(ctx context.Context) ([]*models.WorkflowExecution, error)
}

type SessionRepository interface {
	Save(ctx context.Context, session *models.PipelineSession) error
	GetByID(ctx context.Context, id string) (*models.PipelineSession, error)
}

type BatchRepository interface {
	Save(ctx context.Context, batch *models.BatchExecution) error
	GetByID(ctx context.Context, id string) (*models.BatchExecution, error)
}

type EscalationRepository interface {
	Save(ctx context.Context, escalation *models.Escalation) error
	List(ctx context.Context) ([]*models.Escalation, error)
}

type ApprovalRepository interface {
	Save(ctx context.Context, approval *models.Approval) error
	GetByID(ctx context.Context, id string) (*models.Approval, error)
	ListPending(ctx context.Context) ([]*models.Approval, error)
}

type Persistence interface {
	Workflows() WorkflowRepository
	Executions() ExecutionRepository
	Sessions() SessionRepository
	Batches() BatchRepository
	Escalations() EscalationRepository
	Approvals() ApprovalRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
