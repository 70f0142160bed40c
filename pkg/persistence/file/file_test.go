package file_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence"
	"github.com/arbiterhq/arbiter/pkg/persistence/file"
)

func newTestPersistence(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func TestWorkflowRoundtrip(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	workflow := &models.Workflow{
		ID:   "wf-roundtrip",
		Name: "roundtrip",
		Steps: []models.WorkflowStep{
			{ID: "only", Name: "only", Type: models.StepTypeExecute, Service: "core", Action: "log"},
		},
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, store.Workflows().Save(ctx, workflow))

	loaded, err := store.Workflows().GetByID(ctx, "wf-roundtrip")
	require.NoError(t, err)
	assert.Equal(t, workflow.Name, loaded.Name)
	require.Len(t, loaded.Steps, 1)
	assert.Equal(t, "only", loaded.Steps[0].ID)

	all, err := store.Workflows().List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.Workflows().Delete(ctx, "wf-roundtrip"))

	_, err = store.Workflows().GetByID(ctx, "wf-roundtrip")
	assert.ErrorIs(t, err, persistence.ErrWorkflowNotFound)
}

func TestDeleteMissingWorkflowIsNoop(t *testing.T) {
	store := newTestPersistence(t)

	assert.NoError(t, store.Workflows().Delete(context.Background(), "wf-ghost"))
}

func TestNotFoundSentinels(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	_, err := store.Executions().GetByID(ctx, "exec-missing")
	assert.ErrorIs(t, err, persistence.ErrExecutionNotFound)
	assert.True(t, persistence.IsNotFound(err))

	_, err = store.Sessions().GetByID(ctx, "sess-missing")
	assert.ErrorIs(t, err, persistence.ErrSessionNotFound)

	_, err = store.Batches().GetByID(ctx, "batch-missing")
	assert.ErrorIs(t, err, persistence.ErrBatchNotFound)

	_, err = store.Approvals().GetByID(ctx, "appr-missing")
	assert.ErrorIs(t, err, persistence.ErrApprovalNotFound)
}

func TestExecutionSaveOverwrites(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	execution := &models.WorkflowExecution{
		ID:         "exec-overwrite",
		WorkflowID: "wf-test",
		Status:     models.ExecutionStatusRunning,
	}

	require.NoError(t, store.Executions().Save(ctx, execution))

	execution.Status = models.ExecutionStatusCompleted
	require.NoError(t, store.Executions().Save(ctx, execution))

	loaded, err := store.Executions().GetByID(ctx, "exec-overwrite")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, loaded.Status)
}

func TestApprovalListPendingFiltersDecided(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	require.NoError(t, store.Approvals().Save(ctx, &models.Approval{
		ID:     "appr-open",
		Status: models.ApprovalStatusPending,
	}))
	require.NoError(t, store.Approvals().Save(ctx, &models.Approval{
		ID:     "appr-done",
		Status: models.ApprovalStatusApproved,
	}))

	pending, err := store.Approvals().ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "appr-open", pending[0].ID)
}

func TestEscalationList(t *testing.T) {
	ctx := context.Background()
	store := newTestPersistence(t)

	require.NoError(t, store.Escalations().Save(ctx, &models.Escalation{
		ID:          "esc-one",
		ExecutionID: "exec-1",
		StepID:      "step-1",
		Error:       "retries exhausted",
	}))

	escalations, err := store.Escalations().List(ctx)
	require.NoError(t, err)
	require.Len(t, escalations, 1)
	assert.Equal(t, "retries exhausted", escalations[0].Error)
}

func TestFileURLPrefixStripped(t *testing.T) {
	root := t.TempDir()
	store := file.NewPersistence("file://" + root)

	require.NoError(t, store.HealthCheck(context.Background()))

	batch := &models.BatchExecution{ID: "batch-prefix", Status: models.BatchStatusQueued}
	require.NoError(t, store.Batches().Save(context.Background(), batch))

	loaded, err := store.Batches().GetByID(context.Background(), "batch-prefix")
	require.NoError(t, err)
	assert.Equal(t, models.BatchStatusQueued, loaded.Status)
}
