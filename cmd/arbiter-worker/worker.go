// Package main provides the Arbiter batch worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/arbiterhq/arbiter/pkg/batch"
	"github.com/arbiterhq/arbiter/pkg/eventbus"
	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence"
	"github.com/arbiterhq/arbiter/pkg/registry"
	"github.com/arbiterhq/arbiter/pkg/schedule"
)

type WorkerManager struct {
	id            string
	logger        *slog.Logger
	persistence   persistence.Persistence
	registry      *registry.Registry
	eventBus      eventbus.EventBus
	queue         *batch.Queue
	concurrency   int
	schedulesFile string
}

func NewWorkerManager(
	id string,
	store persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	reg *registry.Registry,
	queue *batch.Queue,
	concurrency int,
	schedulesFile string,
) *WorkerManager {
	return &WorkerManager{
		id:            id,
		logger:        logger.With("module", "arbiter-worker"),
		persistence:   store,
		registry:      reg,
		eventBus:      eventBus,
		queue:         queue,
		concurrency:   concurrency,
		schedulesFile: schedulesFile,
	}
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "concurrency", w.concurrency)

	if err := w.persistence.HealthCheck(ctx); err != nil {
		return fmt.Errorf("persistence unavailable: %w", err)
	}

	if err := w.queue.HealthCheck(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	executor := batch.NewExecutor(w.registry, w.persistence, w.logger, w.concurrency).
		WithEventBus(w.eventBus)

	scheduler, err := w.startSchedules(runCtx)
	if err != nil {
		return err
	}

	consumeErr := make(chan error, 1)

	go func() {
		consumeErr <- w.queue.Consume(runCtx, executor.ProcessExecution)
	}()

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
		w.logger.InfoContext(ctx, "Shutting down worker...")
		cancel()
		<-consumeErr
	case err := <-consumeErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("queue consumer stopped: %w", err)
		}
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	return nil
}

// startSchedules loads recurring batch schedules from the schedules file
// and starts the cron manager. No file means no recurring work.
func (w *WorkerManager) startSchedules(ctx context.Context) (*schedule.Manager, error) {
	if w.schedulesFile == "" {
		return nil, nil
	}

	data, err := os.ReadFile(w.schedulesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read schedules file: %w", err)
	}

	var schedules []models.Schedule
	if err := json.Unmarshal(data, &schedules); err != nil {
		return nil, fmt.Errorf("failed to parse schedules file: %w", err)
	}

	manager := schedule.NewManager(w.queue, w.logger)

	for _, entry := range schedules {
		if err := manager.Add(entry); err != nil {
			return nil, err
		}
	}

	manager.Start()

	w.logger.InfoContext(ctx, "Schedules registered", "count", len(schedules))

	return manager, nil
}
