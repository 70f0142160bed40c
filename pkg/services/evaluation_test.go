package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/agents/accuracy"
	"github.com/arbiterhq/arbiter/pkg/agents/integrity"
	"github.com/arbiterhq/arbiter/pkg/agents/security"
	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence/file"
	"github.com/arbiterhq/arbiter/pkg/pipeline"
	"github.com/arbiterhq/arbiter/pkg/protocol"
)

func newTestEvaluationService(t *testing.T) (*EvaluationService, *file.Persistence) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	orchestrator := pipeline.NewOrchestrator(pipeline.DefaultConfig(), map[models.Stage]protocol.Agent{
		models.StageSecurity:  security.NewAgent(nil),
		models.StageIntegrity: integrity.NewAgent(nil),
		models.StageAccuracy:  accuracy.NewAgent(nil),
	}, testLogger())

	return NewEvaluationService(orchestrator, store, testLogger()), store
}

func TestEvaluateRejectsEmptyText(t *testing.T) {
	service, _ := newTestEvaluationService(t)

	_, err := service.Evaluate(context.Background(), models.Artifact{Text: " "}, models.EvaluationContext{})

	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestEvaluatePersistsSession(t *testing.T) {
	service, store := newTestEvaluationService(t)

	session, err := service.Evaluate(context.Background(), models.Artifact{
		Text: "The deployment finished cleanly and all health checks pass.",
	}, models.EvaluationContext{Vertical: "fintech"})

	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	require.NotNil(t, session.AggregatedScore)
	assert.Equal(t, 100, *session.AggregatedScore)

	persisted, err := store.Sessions().GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, persisted.ID)
}

func TestGetSessionFallsBackToStore(t *testing.T) {
	service, store := newTestEvaluationService(t)

	require.NoError(t, store.Sessions().Save(context.Background(), &models.PipelineSession{
		ID:     "sess-stored",
		Status: models.SessionStatusCompleted,
	}))

	session, err := service.GetSession(context.Background(), "sess-stored")

	require.NoError(t, err)
	assert.Equal(t, "sess-stored", session.ID)
}
