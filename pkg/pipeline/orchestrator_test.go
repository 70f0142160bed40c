package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/protocol"
)

type stubAgent struct {
	id       string
	result   *models.AnalysisResult
	err      error
	delay    time.Duration
	calls    int
	lastMeta map[string]any
}

func (a *stubAgent) ID() string {
	return a.id
}

func (a *stubAgent) Analyze(ctx context.Context, artifact models.Artifact) (*models.AnalysisResult, error) {
	a.calls++
	a.lastMeta = artifact.Metadata

	if a.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.delay):
		}
	}

	if a.err != nil {
		return nil, a.err
	}

	return a.result, nil
}

func scoreResult(agentID string, score int) *models.AnalysisResult {
	return &models.AnalysisResult{AgentID: agentID, Score: score, Confidence: 0.9}
}

func newTestOrchestrator(config Config, security, integrity, accuracy *stubAgent) *Orchestrator {
	agents := map[models.Stage]protocol.Agent{
		models.StageSecurity:  security,
		models.StageIntegrity: integrity,
		models.StageAccuracy:  accuracy,
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewOrchestrator(config, agents, logger)
}

func TestExecuteWeightedAggregation(t *testing.T) {
	security := &stubAgent{id: "security", result: scoreResult("security", 90)}
	integrity := &stubAgent{id: "integrity", result: scoreResult("integrity", 85)}
	accuracy := &stubAgent{id: "accuracy", result: scoreResult("accuracy", 95)}

	orchestrator := newTestOrchestrator(DefaultConfig(), security, integrity, accuracy)

	session, err := orchestrator.Execute(context.Background(), models.Artifact{Text: "generated text"}, models.EvaluationContext{})

	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	require.NotNil(t, session.AggregatedScore)

	// 0.4*90 + 0.3*85 + 0.3*95 = 90
	assert.Equal(t, 90, *session.AggregatedScore)
	assert.False(t, session.Terminated)
	require.NotNil(t, session.Report)
	assert.Equal(t, models.ReportStatusPass, session.Report.Status)
	require.NotNil(t, session.EndTime)
}

func TestExecuteEarlyTermination(t *testing.T) {
	security := &stubAgent{id: "security", result: scoreResult("security", 15)}
	integrity := &stubAgent{id: "integrity", result: scoreResult("integrity", 85)}
	accuracy := &stubAgent{id: "accuracy", result: scoreResult("accuracy", 95)}

	orchestrator := newTestOrchestrator(DefaultConfig(), security, integrity, accuracy)

	session, err := orchestrator.Execute(context.Background(), models.Artifact{Text: "generated text"}, models.EvaluationContext{})

	require.NoError(t, err)
	assert.True(t, session.Terminated)
	assert.Equal(t, models.StageSecurity, session.TerminatedAt)

	// Later stages never run below the catastrophic floor.
	assert.Equal(t, 1, security.calls)
	assert.Equal(t, 0, integrity.calls)
	assert.Equal(t, 0, accuracy.calls)

	require.NotNil(t, session.AggregatedScore)
	assert.Equal(t, 6, *session.AggregatedScore)
	assert.Equal(t, models.ReportStatusFail, session.Report.Status)
	assert.True(t, session.Report.TerminatedEarly)

	require.NotEmpty(t, session.Report.Recommendations)
	assert.Contains(t, session.Report.Recommendations[0], "terminated early")
}

func TestExecuteStageErrorFailsSession(t *testing.T) {
	security := &stubAgent{id: "security", err: errors.New("analyzer crashed")}
	integrity := &stubAgent{id: "integrity", result: scoreResult("integrity", 85)}
	accuracy := &stubAgent{id: "accuracy", result: scoreResult("accuracy", 95)}

	orchestrator := newTestOrchestrator(DefaultConfig(), security, integrity, accuracy)

	session, err := orchestrator.Execute(context.Background(), models.Artifact{Text: "generated text"}, models.EvaluationContext{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyzer crashed")
	assert.Equal(t, models.SessionStatusFailed, session.Status)
	require.NotNil(t, session.EndTime)
	assert.Equal(t, 0, integrity.calls)
}

func TestExecuteStageTimeout(t *testing.T) {
	config := DefaultConfig()
	config.StageTimeout = 20 * time.Millisecond

	security := &stubAgent{id: "security", result: scoreResult("security", 90), delay: 500 * time.Millisecond}
	integrity := &stubAgent{id: "integrity", result: scoreResult("integrity", 85)}
	accuracy := &stubAgent{id: "accuracy", result: scoreResult("accuracy", 95)}

	orchestrator := newTestOrchestrator(config, security, integrity, accuracy)

	session, err := orchestrator.Execute(context.Background(), models.Artifact{Text: "generated text"}, models.EvaluationContext{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not return")
	assert.Equal(t, models.SessionStatusFailed, session.Status)
}

func TestExecutePassesPriorResultsDownstream(t *testing.T) {
	security := &stubAgent{id: "security", result: scoreResult("security", 90)}
	integrity := &stubAgent{id: "integrity", result: scoreResult("integrity", 85)}
	accuracy := &stubAgent{id: "accuracy", result: scoreResult("accuracy", 95)}

	orchestrator := newTestOrchestrator(DefaultConfig(), security, integrity, accuracy)

	artifact := models.Artifact{Text: "generated text", Metadata: map[string]any{"origin": "test"}}

	_, err := orchestrator.Execute(context.Background(), artifact, models.EvaluationContext{})
	require.NoError(t, err)

	assert.Nil(t, security.lastMeta["security_result"])
	assert.Equal(t, security.result, integrity.lastMeta["security_result"])
	assert.Equal(t, integrity.result, accuracy.lastMeta["integrity_result"])
	assert.Equal(t, "test", accuracy.lastMeta["origin"])

	// The caller's artifact is never mutated.
	assert.Len(t, artifact.Metadata, 1)
}

func TestAggregateScorePartialStages(t *testing.T) {
	orchestrator := newTestOrchestrator(DefaultConfig(), &stubAgent{}, &stubAgent{}, &stubAgent{})

	session := &models.PipelineSession{
		Results: map[models.Stage]*models.AnalysisResult{
			models.StageSecurity: scoreResult("security", 90),
		},
	}

	// Missing stages contribute nothing; weights stay fixed.
	assert.Equal(t, 36, orchestrator.AggregateScore(session))
}

func TestStatusThresholds(t *testing.T) {
	orchestrator := newTestOrchestrator(DefaultConfig(), &stubAgent{}, &stubAgent{}, &stubAgent{})

	assert.Equal(t, models.ReportStatusPass, orchestrator.statusFor(80))
	assert.Equal(t, models.ReportStatusWarning, orchestrator.statusFor(79))
	assert.Equal(t, models.ReportStatusWarning, orchestrator.statusFor(60))
	assert.Equal(t, models.ReportStatusFail, orchestrator.statusFor(59))
}
