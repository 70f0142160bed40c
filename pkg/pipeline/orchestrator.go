// Package pipeline runs the staged evaluation: Security, then Integrity,
// then Accuracy, each stage receiving the earlier results as context, with
// early termination below the catastrophic floor and weighted aggregation
// into a single report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/otelhelper"
	"github.com/arbiterhq/arbiter/pkg/protocol"
)

// Orchestrator owns its sessions: a session is mutated only by the
// orchestrator run that created it. Persistence is the caller's concern so
// pipeline logic stays replayable without storage.
type Orchestrator struct {
	config Config
	agents map[models.Stage]protocol.Agent
	logger *slog.Logger
	tracer trace.Tracer

	mu     sync.Mutex
	active map[string]*models.PipelineSession
}

func NewOrchestrator(config Config, agents map[models.Stage]protocol.Agent, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		config: config,
		agents: agents,
		logger: logger.With("module", "pipeline"),
		active: make(map[string]*models.PipelineSession),
	}
}

// WithTracer enables span emission around stages.
func (o *Orchestrator) WithTracer(tracer trace.Tracer) *Orchestrator {
	o.tracer = tracer

	return o
}

// ActiveSession returns an in-flight session by id.
func (o *Orchestrator) ActiveSession(id string) (*models.PipelineSession, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	session, ok := o.active[id]

	return session, ok
}

// Execute runs the pipeline over the artifact and returns the completed
// session with its report. A stage error fails the session before the error
// propagates, so status is always queryable.
func (o *Orchestrator) Execute(ctx context.Context, artifact models.Artifact, evalCtx models.EvaluationContext) (*models.PipelineSession, error) {
	session := &models.PipelineSession{
		ID:        "sess-" + uuid.New().String()[:8],
		StartTime: time.Now().UTC(),
		Status:    models.SessionStatusProcessing,
		Context:   evalCtx,
		Results:   make(map[models.Stage]*models.AnalysisResult),
	}

	o.mu.Lock()
	o.active[session.ID] = session
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		delete(o.active, session.ID)
		o.mu.Unlock()
	}()

	logger := o.logger.With("session_id", session.ID, "vertical", evalCtx.Vertical)
	logger.InfoContext(ctx, "Starting evaluation pipeline")

	if o.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, o.tracer, "pipeline.execute",
			attribute.String(otelhelper.SessionIDKey, session.ID))
		defer span.End()
	}

	priorResults := make(map[string]any)

	for _, stage := range models.PipelineStages {
		result, err := o.runStage(ctx, stage, artifact, priorResults)
		if err != nil {
			now := time.Now().UTC()
			session.Status = models.SessionStatusFailed
			session.EndTime = &now

			logger.ErrorContext(ctx, "Stage failed", "stage", stage, "error", err)

			return session, fmt.Errorf("stage %s failed: %w", stage, err)
		}

		session.Results[stage] = result
		logger.InfoContext(ctx, "Stage completed", "stage", stage, "score", result.Score)

		if result.Score < o.config.CatastrophicFloor {
			// Downstream stages assume the artifact is not fundamentally
			// compromised; below the floor that assumption does not hold.
			session.Terminated = true
			session.TerminatedAt = stage

			logger.WarnContext(ctx, "Catastrophic stage score, terminating pipeline",
				"stage", stage, "score", result.Score, "floor", o.config.CatastrophicFloor)

			break
		}

		// Later stages receive earlier results as read-only context.
		priorResults[string(stage)+"_result"] = result
	}

	score := o.AggregateScore(session)
	session.AggregatedScore = &score
	session.Report = o.BuildReport(session)

	now := time.Now().UTC()
	session.EndTime = &now
	session.Status = models.SessionStatusCompleted

	logger.InfoContext(ctx, "Evaluation pipeline completed",
		"overall_score", score, "status", session.Report.Status, "terminated_early", session.Terminated)

	return session, nil
}

// runStage invokes one agent, racing it against the stage timeout. A
// timeout is a stage failure, never a hang.
func (o *Orchestrator) runStage(ctx context.Context, stage models.Stage, artifact models.Artifact, prior map[string]any) (*models.AnalysisResult, error) {
	agent, ok := o.agents[stage]
	if !ok {
		return nil, fmt.Errorf("no agent bound for stage %s", stage)
	}

	if o.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, o.tracer, "pipeline.stage",
			attribute.String(otelhelper.StageKey, string(stage)),
			attribute.String(otelhelper.AgentIDKey, agent.ID()))
		defer span.End()
	}

	stageCtx, cancel := context.WithTimeout(ctx, o.config.StageTimeout)
	defer cancel()

	type agentOutcome struct {
		result *models.AnalysisResult
		err    error
	}

	outcomeCh := make(chan agentOutcome, 1)

	go func() {
		result, err := agent.Analyze(stageCtx, artifact.WithMetadata(prior))
		outcomeCh <- agentOutcome{result: result, err: err}
	}()

	select {
	case <-stageCtx.Done():
		return nil, fmt.Errorf("agent %s did not return within %s: %w", agent.ID(), o.config.StageTimeout, stageCtx.Err())
	case outcome := <-outcomeCh:
		if outcome.err != nil {
			return nil, fmt.Errorf("agent %s: %w", agent.ID(), outcome.err)
		}

		return outcome.result, nil
	}
}

// AggregateScore computes round(Σ weight_i × score_i) over the stages that
// ran. Deterministic given stage scores and weights.
func (o *Orchestrator) AggregateScore(session *models.PipelineSession) int {
	var sum float64

	for stage, result := range session.Results {
		sum += o.config.Weights[stage] * float64(result.Score)
	}

	return int(math.Round(sum))
}

func (o *Orchestrator) statusFor(score int) models.ReportStatus {
	switch {
	case score >= o.config.PassThreshold:
		return models.ReportStatusPass
	case score >= o.config.WarningThreshold:
		return models.ReportStatusWarning
	default:
		return models.ReportStatusFail
	}
}
