package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/arbiterhq/arbiter/pkg/batch"
	"github.com/arbiterhq/arbiter/pkg/engine"
	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence"
)

// ExecutionService manages workflow definitions, their executions and
// batch evaluations.
type ExecutionService struct {
	engine      *engine.Engine
	queue       *batch.Queue
	persistence persistence.Persistence
	validate    *validator.Validate
	logger      *slog.Logger
}

func NewExecutionService(eng *engine.Engine, queue *batch.Queue, store persistence.Persistence, logger *slog.Logger) *ExecutionService {
	return &ExecutionService{
		engine:      eng,
		queue:       queue,
		persistence: store,
		validate:    validator.New(),
		logger:      logger.With("module", "execution-service"),
	}
}

// CreateWorkflow validates and stores a workflow definition. An existing id
// is overwritten; a missing id gets a generated one.
func (s *ExecutionService) CreateWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if err := s.validate.Struct(workflow); err != nil {
		return validationErrorf("invalid workflow: %s", err)
	}

	now := time.Now().UTC()

	if workflow.ID == "" {
		workflow.ID = "wf-" + uuid.New().String()[:8]
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if err := s.persistence.Workflows().Save(ctx, workflow); err != nil {
		return fmt.Errorf("failed to save workflow %s: %w", workflow.ID, err)
	}

	s.logger.InfoContext(ctx, "Workflow saved", "workflow_id", workflow.ID, "steps", len(workflow.Steps))

	return nil
}

func (s *ExecutionService) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	return s.persistence.Workflows().GetByID(ctx, id)
}

func (s *ExecutionService) ListWorkflows(ctx context.Context) ([]*models.Workflow, error) {
	return s.persistence.Workflows().List(ctx)
}

func (s *ExecutionService) DeleteWorkflow(ctx context.Context, id string) error {
	return s.persistence.Workflows().Delete(ctx, id)
}

// StartExecution launches a workflow run and returns its pending record.
func (s *ExecutionService) StartExecution(ctx context.Context, workflowID string, input, metadata map[string]any) (*models.WorkflowExecution, error) {
	execution, err := s.engine.Start(ctx, workflowID, input, metadata)
	if err != nil {
		if strings.Contains(err.Error(), "failed validation") {
			return nil, validationErrorf("%s", err)
		}

		return nil, err
	}

	return execution, nil
}

// GetExecution reads the persisted record, which the engine updates at
// every status transition.
func (s *ExecutionService) GetExecution(ctx context.Context, id string) (*models.WorkflowExecution, error) {
	return s.persistence.Executions().GetByID(ctx, id)
}

func (s *ExecutionService) ListExecutions(ctx context.Context) ([]*models.WorkflowExecution, error) {
	return s.persistence.Executions().List(ctx)
}

// CancelExecution requests cooperative cancellation of an in-flight run.
func (s *ExecutionService) CancelExecution(ctx context.Context, id string) error {
	if s.engine.Cancel(id) {
		s.logger.InfoContext(ctx, "Execution cancellation requested", "execution_id", id)

		return nil
	}

	execution, err := s.persistence.Executions().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if execution.Status.Terminal() {
		return validationErrorf("execution %s already finished with status %s", id, execution.Status)
	}

	// Not in this process's active index and not terminal: the record is an
	// orphan from a crashed worker. Mark it cancelled directly.
	now := time.Now().UTC()
	execution.Status = models.ExecutionStatusCancelled
	execution.FinishedAt = &now

	return s.persistence.Executions().Save(ctx, execution)
}

// SubmitBatch queues a batch evaluation.
func (s *ExecutionService) SubmitBatch(ctx context.Context, request models.BatchRequest) (*models.BatchExecution, error) {
	if strings.TrimSpace(request.Artifact.Text) == "" {
		return nil, validationErrorf("artifact text must not be empty")
	}

	return s.queue.Submit(ctx, request)
}

func (s *ExecutionService) GetBatch(ctx context.Context, id string) (*models.BatchExecution, error) {
	return s.persistence.Batches().GetByID(ctx, id)
}

// CancelBatch removes a still-queued batch. A batch already picked up by a
// worker cannot be cancelled.
func (s *ExecutionService) CancelBatch(ctx context.Context, id string) error {
	removed, err := s.queue.CancelPending(ctx, id)
	if err != nil {
		return err
	}

	if removed {
		return nil
	}

	existing, err := s.persistence.Batches().GetByID(ctx, id)
	if err != nil {
		return err
	}

	return validationErrorf("batch %s is no longer queued (status %s)", id, existing.Status)
}
