// Package engine executes declarative multi-step workflows: conditions,
// retries with capped exponential backoff, timeouts, fallback rerouting,
// human-approval gates, escalation and cooperative cancellation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/arbiterhq/arbiter/pkg/eventbus"
	"github.com/arbiterhq/arbiter/pkg/events"
	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/otelhelper"
	"github.com/arbiterhq/arbiter/pkg/persistence"
	"github.com/arbiterhq/arbiter/pkg/protocol"
	"github.com/arbiterhq/arbiter/pkg/registry"
)

// ErrApprovalRejected is returned when a human-approval gate is rejected.
var ErrApprovalRejected = errors.New("step approval rejected")

type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	gate        protocol.ApprovalGate
	bus         eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
	index       *activeIndex
}

func NewEngine(store persistence.Persistence, reg *registry.Registry, gate protocol.ApprovalGate, logger *slog.Logger) *Engine {
	return &Engine{
		persistence: store,
		registry:    reg,
		gate:        gate,
		logger:      logger.With("module", "engine"),
		index:       newActiveIndex(),
	}
}

// WithEventBus enables step/execution event broadcasting.
func (e *Engine) WithEventBus(bus eventbus.EventPublisher) *Engine {
	e.bus = bus

	return e
}

// WithTracer enables span emission around steps.
func (e *Engine) WithTracer(tracer trace.Tracer) *Engine {
	e.tracer = tracer

	return e
}

// Cancel marks an in-flight execution for cooperative cancellation. The
// check happens between steps; an in-flight step call runs to completion
// and its result is discarded.
func (e *Engine) Cancel(executionID string) bool {
	return e.index.cancel(executionID)
}

// ActiveExecution returns the in-memory state of an in-flight execution.
func (e *Engine) ActiveExecution(executionID string) (*models.WorkflowExecution, bool) {
	entry, ok := e.index.get(executionID)
	if !ok {
		return nil, false
	}

	return entry.execution, true
}

// Execute runs one workflow to a terminal status. The execution record is
// persisted at every status transition so a crash mid-run leaves an
// inspectable partial record; terminal failures update the status before
// the error propagates.
func (e *Engine) Execute(ctx context.Context, workflowID string, input, metadata map[string]any) (*models.WorkflowExecution, error) {
	workflow, execution, entry, err := e.prepare(ctx, workflowID, input, metadata)
	if err != nil {
		return nil, err
	}

	return e.run(ctx, workflow, execution, entry)
}

// Start kicks off an execution and returns its pending record immediately.
// The run continues in the background past the caller's deadline; Cancel
// works as soon as Start returns.
func (e *Engine) Start(ctx context.Context, workflowID string, input, metadata map[string]any) (*models.WorkflowExecution, error) {
	workflow, execution, entry, err := e.prepare(ctx, workflowID, input, metadata)
	if err != nil {
		return nil, err
	}

	snapshot := *execution

	go func() {
		// Terminal errors are persisted and logged inside run.
		_, _ = e.run(context.WithoutCancel(ctx), workflow, execution, entry)
	}()

	return &snapshot, nil
}

// prepare fetches and validates the workflow, builds the pending execution
// record and registers it in the active index.
func (e *Engine) prepare(ctx context.Context, workflowID string, input, metadata map[string]any) (*models.Workflow, *models.WorkflowExecution, *activeExecution, error) {
	workflow, err := e.persistence.Workflows().GetByID(ctx, workflowID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to fetch workflow %s: %w", workflowID, err)
	}

	if err := e.registry.ValidateWorkflow(workflow); err != nil {
		return nil, nil, nil, fmt.Errorf("workflow %s failed validation: %w", workflowID, err)
	}

	execution := newExecution(workflow, input, metadata)

	if err := e.persistence.Executions().Save(ctx, execution); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to persist execution %s: %w", execution.ID, err)
	}

	return workflow, execution, e.index.add(execution), nil
}

func (e *Engine) run(ctx context.Context, workflow *models.Workflow, execution *models.WorkflowExecution, entry *activeExecution) (*models.WorkflowExecution, error) {
	defer e.index.remove(execution.ID)

	logger := e.logger.With("workflow_id", workflow.ID, "execution_id", execution.ID)
	logger.InfoContext(ctx, "Starting workflow execution", "steps", len(workflow.Steps))

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "engine.execute",
			attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
			attribute.String(otelhelper.ExecutionIDKey, execution.ID))
		defer span.End()
	}

	execution.Status = models.ExecutionStatusRunning
	e.saveExecution(ctx, logger, execution)

	e.publish(ctx, workflow.ID, events.ExecutionStarted{
		BaseEvent:  events.NewBaseEvent(events.ExecutionStartedEvent, execution.ID),
		WorkflowID: workflow.ID,
	})

	cur := 0

	for cur < len(workflow.Steps) {
		if entry.cancelled.Load() {
			markSkippedFrom(execution, cur)

			return e.finish(ctx, logger, execution, models.ExecutionStatusCancelled, nil)
		}

		step := workflow.Steps[cur]
		execution.CurrentStep = step.ID

		outcome := e.runStep(ctx, logger, workflow, execution, cur)

		stepExec := &execution.Steps[cur]

		switch outcome.Kind {
		case OutcomeSkipped:
			stepExec.Status = models.StepStatusSkipped
			e.saveExecution(ctx, logger, execution)

			cur++

		case OutcomeSuccess:
			execution.Context.StepResults[step.ID] = outcome.Data
			e.collectFlags(execution, outcome.Data)

			stepExec.Status = models.StepStatusCompleted
			stepExec.Result = outcome.Data
			e.saveExecution(ctx, logger, execution)

			if outcome.SkipRemaining {
				markSkippedFrom(execution, cur+1)

				return e.finish(ctx, logger, execution, models.ExecutionStatusCompleted, nil)
			}

			if outcome.NextStep != "" {
				next, err := e.jump(execution, workflow, cur, outcome.NextStep)
				if err != nil {
					return e.finish(ctx, logger, execution, models.ExecutionStatusFailed, err)
				}

				cur = next

				continue
			}

			cur++

		case OutcomeFailure:
			execution.Metrics.ErrorCount++

			stepExec.Status = models.StepStatusFailed
			stepExec.Error = outcome.Err.Error()
			e.saveExecution(ctx, logger, execution)

			if outcome.FallbackTo != "" {
				logger.WarnContext(ctx, "Step failed, rerouting to fallback",
					"step_id", step.ID, "fallback", outcome.FallbackTo, "error", outcome.Err)

				next, err := e.jump(execution, workflow, cur, outcome.FallbackTo)
				if err != nil {
					return e.finish(ctx, logger, execution, models.ExecutionStatusFailed, err)
				}

				cur = next

				continue
			}

			return e.finish(ctx, logger, execution, models.ExecutionStatusFailed,
				fmt.Errorf("step %s failed: %w", step.ID, outcome.Err))
		}
	}

	return e.finish(ctx, logger, execution, models.ExecutionStatusCompleted, nil)
}

func newExecution(workflow *models.Workflow, input, metadata map[string]any) *models.WorkflowExecution {
	steps := make([]models.StepExecution, len(workflow.Steps))
	for i, step := range workflow.Steps {
		steps[i] = models.StepExecution{StepID: step.ID, Status: models.StepStatusPending}
	}

	if input == nil {
		input = make(map[string]any)
	}

	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &models.WorkflowExecution{
		ID:         "exec-" + uuid.New().String()[:8],
		WorkflowID: workflow.ID,
		Status:     models.ExecutionStatusPending,
		Steps:      steps,
		Context: models.ExecutionContext{
			Input:       input,
			Variables:   workflow.Variables,
			StepResults: make(map[string]any),
			Metadata:    metadata,
		},
		Metrics: models.ExecutionMetrics{
			StepDurations: make(map[string]time.Duration),
		},
		StartedAt: time.Now().UTC(),
	}
}

// runStep executes one step to a StepOutcome. Condition and binding errors
// are step failures routed through the same disposition as action errors,
// minus the pointless retries.
func (e *Engine) runStep(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, execution *models.WorkflowExecution, index int) StepOutcome {
	step := workflow.Steps[index]
	stepExec := &execution.Steps[index]

	logger = logger.With("step_id", step.ID, "step_type", step.Type)

	ok, err := EvaluateConditions(step.Conditions, execution.Context)
	if err != nil {
		return e.disposeFailure(ctx, logger, workflow, execution, step, fmt.Errorf("condition evaluation failed: %w", err))
	}

	if !ok {
		logger.InfoContext(ctx, "Step conditions not met, skipping")

		return skippedOutcome()
	}

	started := time.Now().UTC()
	stepExec.Status = models.StepStatusRunning
	stepExec.StartedAt = &started

	defer func() {
		finished := time.Now().UTC()
		stepExec.FinishedAt = &finished
		stepExec.Duration = finished.Sub(started)
		// Recorded exactly once per executed step, success or failure.
		execution.Metrics.StepDurations[step.ID] = stepExec.Duration
	}()

	if step.HumanApprovalRequired {
		if err := e.awaitApproval(ctx, logger, workflow, execution, step); err != nil {
			return e.disposeFailure(ctx, logger, workflow, execution, step, err)
		}
	}

	action, err := e.registry.ResolveService(step.Service, step.Action)
	if err != nil {
		return e.disposeFailure(ctx, logger, workflow, execution, step, err)
	}

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "engine.step",
			attribute.String(otelhelper.StepIDKey, step.ID),
			attribute.String(otelhelper.ExecutionIDKey, execution.ID))
		defer span.End()
	}

	var maxRetries int
	if step.ErrorHandling != nil && step.ErrorHandling.Retry != nil {
		maxRetries = step.ErrorHandling.Retry.Attempts
	}

	var lastErr error

	for attempt := 0; ; attempt++ {
		e.publish(ctx, workflow.ID, events.StepStarted{
			BaseEvent:  events.NewBaseEvent(events.StepStartedEvent, execution.ID),
			WorkflowID: workflow.ID,
			StepID:     step.ID,
			Attempt:    attempt + 1,
		})

		result, err := e.invokeAction(ctx, action, execution.Context, step)
		if err == nil {
			e.publish(ctx, workflow.ID, events.StepCompleted{
				BaseEvent:  events.NewBaseEvent(events.StepCompletedEvent, execution.ID),
				WorkflowID: workflow.ID,
				StepID:     step.ID,
				Status:     string(models.StepStatusCompleted),
				Duration:   time.Since(started),
			})

			return successFromResult(result)
		}

		lastErr = err

		if attempt >= maxRetries {
			break
		}

		// Each retry is a distinct attempt against the execution metrics.
		execution.Metrics.RetryCount++

		delay := RetryDelay(*step.ErrorHandling.Retry, attempt+1)
		logger.WarnContext(ctx, "Step attempt failed, retrying",
			"attempt", attempt+1, "max_retries", maxRetries, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return failureOutcome(fmt.Errorf("retry backoff interrupted: %w", ctx.Err()))
		case <-time.After(delay):
		}
	}

	e.publish(ctx, workflow.ID, events.StepFailed{
		BaseEvent:  events.NewBaseEvent(events.StepFailedEvent, execution.ID),
		WorkflowID: workflow.ID,
		StepID:     step.ID,
		Error:      lastErr.Error(),
		Duration:   time.Since(started),
	})

	return e.disposeFailure(ctx, logger, workflow, execution, step, lastErr)
}

// successFromResult turns an action return value into an outcome, honoring
// *models.StepResult steering requests.
func successFromResult(result any) StepOutcome {
	if steered, ok := result.(*models.StepResult); ok {
		outcome := successOutcome(steered.Data)
		outcome.NextStep = steered.NextStep
		outcome.SkipRemaining = steered.SkipRemainingSteps

		return outcome
	}

	return successOutcome(result)
}

// invokeAction races the service call against the step's hard timeout. A
// timed-out call keeps running but its result is discarded.
func (e *Engine) invokeAction(ctx context.Context, action protocol.ServiceAction, execCtx models.ExecutionContext, step models.WorkflowStep) (any, error) {
	if step.TimeoutMs <= 0 {
		return action(ctx, execCtx, step.Parameters)
	}

	timeout := time.Duration(step.TimeoutMs) * time.Millisecond

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type callResult struct {
		value any
		err   error
	}

	resultCh := make(chan callResult, 1)

	go func() {
		value, err := action(callCtx, execCtx, step.Parameters)
		resultCh <- callResult{value: value, err: err}
	}()

	select {
	case <-callCtx.Done():
		return nil, fmt.Errorf("step %s timed out after %s: %w", step.ID, timeout, callCtx.Err())
	case r := <-resultCh:
		return r.value, r.err
	}
}

func (e *Engine) awaitApproval(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, execution *models.WorkflowExecution, step models.WorkflowStep) error {
	approval := &models.Approval{
		ID:          "appr-" + uuid.New().String()[:8],
		ExecutionID: execution.ID,
		WorkflowID:  workflow.ID,
		StepID:      step.ID,
		Status:      models.ApprovalStatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := e.persistence.Approvals().Save(ctx, approval); err != nil {
		return fmt.Errorf("failed to create approval record: %w", err)
	}

	logger.InfoContext(ctx, "Awaiting human approval", "approval_id", approval.ID)

	decided, err := e.gate.Await(ctx, approval)
	if err != nil {
		return fmt.Errorf("approval gate failed: %w", err)
	}

	if err := e.persistence.Approvals().Save(ctx, decided); err != nil {
		logger.ErrorContext(ctx, "Failed to persist approval decision", "error", err)
	}

	if decided.Status != models.ApprovalStatusApproved {
		return fmt.Errorf("%w: step %s rejected by %s", ErrApprovalRejected, step.ID, decided.DecidedBy)
	}

	return nil
}

// disposeFailure applies the step's error handling once recovery inside the
// step is exhausted: escalation and notification fire when configured, and
// a fallback target turns the failure into a reroute.
func (e *Engine) disposeFailure(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, execution *models.WorkflowExecution, step models.WorkflowStep, stepErr error) StepOutcome {
	handling := step.ErrorHandling

	if handling != nil && handling.Escalate {
		escalation := &models.Escalation{
			ID:           "esc-" + uuid.New().String()[:8],
			ExecutionID:  execution.ID,
			WorkflowID:   workflow.ID,
			StepID:       step.ID,
			Error:        stepErr.Error(),
			Notification: handling.Notification,
			CreatedAt:    time.Now().UTC(),
		}

		if err := e.persistence.Escalations().Save(ctx, escalation); err != nil {
			logger.ErrorContext(ctx, "Failed to persist escalation", "error", err)
		}

		e.publish(ctx, workflow.ID, events.EscalationRaised{
			BaseEvent:    events.NewBaseEvent(events.EscalationRaisedEvent, execution.ID),
			WorkflowID:   workflow.ID,
			StepID:       step.ID,
			EscalationID: escalation.ID,
			Error:        stepErr.Error(),
		})
	}

	if handling != nil && handling.Notification != nil {
		e.publish(ctx, workflow.ID, events.NotificationRequested{
			BaseEvent:  events.NewBaseEvent(events.NotificationRequestedEvent, execution.ID),
			WorkflowID: workflow.ID,
			StepID:     step.ID,
			Channel:    handling.Notification.Channel,
			Message:    handling.Notification.Message,
		})
	}

	outcome := failureOutcome(stepErr)
	if handling != nil {
		outcome.FallbackTo = handling.Fallback
	}

	return outcome
}

// jump moves execution to the named step. Steps jumped over are explicitly
// marked skipped so the history never contains holes.
func (e *Engine) jump(execution *models.WorkflowExecution, workflow *models.Workflow, from int, targetID string) (int, error) {
	target := workflow.StepIndex(targetID)
	if target < 0 {
		return 0, fmt.Errorf("jump target step '%s' not found in workflow %s", targetID, workflow.ID)
	}

	for i := from + 1; i < target; i++ {
		if execution.Steps[i].Status == models.StepStatusPending {
			execution.Steps[i].Status = models.StepStatusSkipped
		}
	}

	return target, nil
}

func markSkippedFrom(execution *models.WorkflowExecution, from int) {
	for i := from; i < len(execution.Steps); i++ {
		if execution.Steps[i].Status == models.StepStatusPending {
			execution.Steps[i].Status = models.StepStatusSkipped
		}
	}
}

func (e *Engine) collectFlags(execution *models.WorkflowExecution, data any) {
	result, ok := data.(*models.AnalysisResult)
	if !ok {
		return
	}

	execution.Flags = append(execution.Flags, result.Flags...)
	execution.Metrics.FlagCount += len(result.Flags)
}

func (e *Engine) finish(ctx context.Context, logger *slog.Logger, execution *models.WorkflowExecution, status models.ExecutionStatus, cause error) (*models.WorkflowExecution, error) {
	now := time.Now().UTC()
	execution.Status = status
	execution.FinishedAt = &now
	execution.CurrentStep = ""
	execution.Metrics.TotalDuration = now.Sub(execution.StartedAt)

	e.saveExecution(ctx, logger, execution)

	switch status {
	case models.ExecutionStatusCompleted:
		logger.InfoContext(ctx, "Workflow execution completed", "duration", execution.Metrics.TotalDuration)

		e.publish(ctx, execution.WorkflowID, events.ExecutionCompleted{
			BaseEvent: events.NewBaseEvent(events.ExecutionCompletedEvent, execution.ID),
			Status:    string(status),
			Duration:  execution.Metrics.TotalDuration,
		})
	case models.ExecutionStatusCancelled:
		logger.InfoContext(ctx, "Workflow execution cancelled")
	case models.ExecutionStatusFailed:
		logger.ErrorContext(ctx, "Workflow execution failed", "error", cause)

		e.publish(ctx, execution.WorkflowID, events.ExecutionError{
			BaseEvent: events.NewBaseEvent(events.ExecutionErrorEvent, execution.ID),
			Error:     cause.Error(),
		})
	}

	return execution, cause
}

func (e *Engine) saveExecution(ctx context.Context, logger *slog.Logger, execution *models.WorkflowExecution) {
	if err := e.persistence.Executions().Save(ctx, execution); err != nil {
		logger.ErrorContext(ctx, "Failed to persist execution record", "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
