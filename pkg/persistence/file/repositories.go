package file

import (
	"context"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence"
)

type workflowRepository struct {
	store *store
}

func (r *workflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	return r.store.write(workflow.ID, workflow)
}

func (r *workflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	var workflow models.Workflow

	found, err := r.store.read(id, &workflow)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrWorkflowNotFound
	}

	return &workflow, nil
}

func (r *workflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := r.store.ids()
	if err != nil {
		return nil, err
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

func (r *workflowRepository) Delete(_ context.Context, id string) error {
	return r.store.delete(id)
}

type executionRepository struct {
	store *store
}

func (r *executionRepository) Save(_ context.Context, execution *models.WorkflowExecution) error {
	return r.store.write(execution.ID, execution)
}

func (r *executionRepository) GetByID(_ context.Context, id string) (*models.WorkflowExecution, error) {
	var execution models.WorkflowExecution

	found, err := r.store.read(id, &execution)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrExecutionNotFound
	}

	return &execution, nil
}

func (r *executionRepository) List(ctx context.Context) ([]*models.WorkflowExecution, error) {
	ids, err := r.store.ids()
	if err != nil {
		return nil, err
	}

	executions := make([]*models.WorkflowExecution, 0, len(ids))

	for _, id := range ids {
		execution, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		executions = append(executions, execution)
	}

	return executions, nil
}

type sessionRepository struct {
	store *store
}

func (r *sessionRepository) Save(_ context.Context, session *models.PipelineSession) error {
	return r.store.write(session.ID, session)
}

func (r *sessionRepository) GetByID(_ context.Context, id string) (*models.PipelineSession, error) {
	var session models.PipelineSession

	found, err := r.store.read(id, &session)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrSessionNotFound
	}

	return &session, nil
}

type batchRepository struct {
	store *store
}

func (r *batchRepository) Save(_ context.Context, batch *models.BatchExecution) error {
	return r.store.write(batch.ID, batch)
}

func (r *batchRepository) GetByID(_ context.Context, id string) (*models.BatchExecution, error) {
	var batch models.BatchExecution

	found, err := r.store.read(id, &batch)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrBatchNotFound
	}

	return &batch, nil
}

type escalationRepository struct {
	store *store
}

func (r *escalationRepository) Save(_ context.Context, escalation *models.Escalation) error {
	return r.store.write(escalation.ID, escalation)
}

func (r *escalationRepository) List(_ context.Context) ([]*models.Escalation, error) {
	ids, err := r.store.ids()
	if err != nil {
		return nil, err
	}

	escalations := make([]*models.Escalation, 0, len(ids))

	for _, id := range ids {
		var escalation models.Escalation

		found, err := r.store.read(id, &escalation)
		if err != nil {
			return nil, err
		}

		if found {
			escalations = append(escalations, &escalation)
		}
	}

	return escalations, nil
}

type approvalRepository struct {
	store *store
}

func (r *approvalRepository) Save(_ context.Context, approval *models.Approval) error {
	return r.store.write(approval.ID, approval)
}

func (r *approvalRepository) GetByID(_ context.Context, id string) (*models.Approval, error) {
	var approval models.Approval

	found, err := r.store.read(id, &approval)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, persistence.ErrApprovalNotFound
	}

	return &approval, nil
}

func (r *approvalRepository) ListPending(ctx context.Context) ([]*models.Approval, error) {
	ids, err := r.store.ids()
	if err != nil {
		return nil, err
	}

	pending := make([]*models.Approval, 0, len(ids))

	for _, id := range ids {
		approval, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if approval.Status == models.ApprovalStatusPending {
			pending = append(pending, approval)
		}
	}

	return pending, nil
}
