package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/arbiterhq/arbiter/pkg/eventbus"
	"github.com/arbiterhq/arbiter/pkg/events"
	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/otelhelper"
	"github.com/arbiterhq/arbiter/pkg/persistence"
	"github.com/arbiterhq/arbiter/pkg/registry"
)

// Executor fans one batch out to its agents under a bounded worker pool.
// Agent failures are isolated: one agent panicking or erroring never takes
// down its siblings, and the batch settles with whatever succeeded.
type Executor struct {
	registry    *registry.Registry
	persistence persistence.Persistence
	bus         eventbus.EventPublisher
	logger      *slog.Logger
	tracer      trace.Tracer
	concurrency int
}

func NewExecutor(reg *registry.Registry, store persistence.Persistence, logger *slog.Logger, concurrency int) *Executor {
	if concurrency <= 0 {
		concurrency = DefaultConfig().Concurrency
	}

	return &Executor{
		registry:    reg,
		persistence: store,
		logger:      logger.With("module", "batch"),
		concurrency: concurrency,
	}
}

func (e *Executor) WithEventBus(bus eventbus.EventPublisher) *Executor {
	e.bus = bus

	return e
}

func (e *Executor) WithTracer(tracer trace.Tracer) *Executor {
	e.tracer = tracer

	return e
}

type agentSettlement struct {
	agentID string
	result  *models.AnalysisResult
	err     error
}

// ProcessExecution runs every agent of the batch against its artifact and
// settles the batch record. The returned error is non-nil only when no
// agent produced a result.
func (e *Executor) ProcessExecution(ctx context.Context, batch *models.BatchExecution) error {
	if len(batch.AgentIDs) == 0 {
		batch.AgentIDs = e.registry.AgentIDs()
	}

	logger := e.logger.With("batch_id", batch.ID, "agents", len(batch.AgentIDs))

	if e.tracer != nil {
		var span trace.Span

		ctx, span = otelhelper.StartSpan(ctx, e.tracer, "batch.process",
			attribute.String(otelhelper.BatchIDKey, batch.ID),
			attribute.Int("arbiter.agent_count", len(batch.AgentIDs)))
		defer span.End()
	}

	started := time.Now().UTC()
	batch.Status = models.BatchStatusRunning
	batch.StartedAt = &started
	batch.Attempts++

	if batch.Results == nil {
		batch.Results = make(map[string]*models.AnalysisResult, len(batch.AgentIDs))
	}

	e.saveBatch(ctx, logger, batch)

	e.publish(ctx, batch.ID, events.ExecutionStarted{
		BaseEvent: events.NewBaseEvent(events.ExecutionStartedEvent, batch.ID),
		AgentIDs:  batch.AgentIDs,
	})

	logger.InfoContext(ctx, "Starting batch evaluation", "concurrency", e.concurrency)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		settled int
	)

	semaphore := make(chan struct{}, e.concurrency)
	total := len(batch.AgentIDs)

	for _, agentID := range batch.AgentIDs {
		wg.Add(1)

		go func(agentID string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			settlement := e.runAgent(ctx, batch, agentID)

			mu.Lock()
			defer mu.Unlock()

			if settlement.err != nil {
				batch.Failures = append(batch.Failures, models.AgentFailure{
					AgentID: agentID,
					Error:   settlement.err.Error(),
				})
			} else {
				batch.Results[agentID] = settlement.result
			}

			settled++
			batch.Progress = settled * 100 / total

			e.saveBatch(ctx, logger, batch)

			e.publish(ctx, batch.ID, events.ExecutionProgress{
				BaseEvent: events.NewBaseEvent(events.ExecutionProgressEvent, batch.ID),
				Progress:  batch.Progress,
			})
		}(agentID)
	}

	wg.Wait()

	sort.Slice(batch.Failures, func(i, j int) bool {
		return batch.Failures[i].AgentID < batch.Failures[j].AgentID
	})

	finished := time.Now().UTC()
	batch.FinishedAt = &finished
	batch.Progress = 100
	batch.Status = models.DeriveBatchStatus(len(batch.Results), len(batch.Failures))

	e.saveBatch(ctx, logger, batch)

	if batch.Status == models.BatchStatusFailed {
		err := fmt.Errorf("all %d agents failed for batch %s", len(batch.Failures), batch.ID)

		logger.ErrorContext(ctx, "Batch evaluation failed", "error", err)

		e.publish(ctx, batch.ID, events.ExecutionError{
			BaseEvent: events.NewBaseEvent(events.ExecutionErrorEvent, batch.ID),
			Error:     err.Error(),
		})

		return err
	}

	logger.InfoContext(ctx, "Batch evaluation settled",
		"status", batch.Status, "succeeded", len(batch.Results), "failed", len(batch.Failures))

	e.publish(ctx, batch.ID, events.ExecutionCompleted{
		BaseEvent: events.NewBaseEvent(events.ExecutionCompletedEvent, batch.ID),
		Status:    string(batch.Status),
		Duration:  finished.Sub(started),
	})

	return nil
}

func (e *Executor) runAgent(ctx context.Context, batch *models.BatchExecution, agentID string) (settlement agentSettlement) {
	settlement.agentID = agentID

	defer func() {
		if r := recover(); r != nil {
			settlement.err = fmt.Errorf("agent %s panicked: %v", agentID, r)
			settlement.result = nil

			e.publishAgentError(ctx, batch.ID, agentID, settlement.err)
		}
	}()

	e.publish(ctx, batch.ID, events.AgentStatus{
		BaseEvent: events.NewBaseEvent(events.AgentStatusEvent, batch.ID),
		AgentID:   agentID,
		Status:    events.AgentStatusRunning,
	})

	agent, err := e.registry.CreateAgent(agentID, nil)
	if err != nil {
		settlement.err = err

		e.publishAgentError(ctx, batch.ID, agentID, err)

		return settlement
	}

	result, err := agent.Analyze(ctx, batch.Artifact)
	if err != nil {
		settlement.err = fmt.Errorf("agent %s failed: %w", agentID, err)

		e.publishAgentError(ctx, batch.ID, agentID, settlement.err)

		return settlement
	}

	settlement.result = result

	e.publish(ctx, batch.ID, events.AgentResult{
		BaseEvent: events.NewBaseEvent(events.AgentResultEvent, batch.ID),
		AgentID:   agentID,
		Result:    result,
	})

	return settlement
}

func (e *Executor) publishAgentError(ctx context.Context, batchID, agentID string, cause error) {
	e.publish(ctx, batchID, events.AgentStatus{
		BaseEvent: events.NewBaseEvent(events.AgentStatusEvent, batchID),
		AgentID:   agentID,
		Status:    events.AgentStatusError,
		Error:     cause.Error(),
	})
}

func (e *Executor) saveBatch(ctx context.Context, logger *slog.Logger, batch *models.BatchExecution) {
	if err := e.persistence.Batches().Save(ctx, batch); err != nil {
		logger.ErrorContext(ctx, "Failed to persist batch record", "error", err)
	}
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.bus == nil {
		return
	}

	if err := e.bus.Publish(ctx, key, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}
