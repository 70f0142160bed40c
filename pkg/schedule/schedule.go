// Package schedule enqueues recurring batch evaluations on cron
// expressions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/arbiterhq/arbiter/pkg/models"
)

// Submitter enqueues one batch request. Satisfied by *batch.Queue.
type Submitter interface {
	Submit(ctx context.Context, request models.BatchRequest) (*models.BatchExecution, error)
}

// Manager runs registered schedules against the batch queue. Entries are
// in-memory; callers rehydrate them from persistence on startup.
type Manager struct {
	cron      *cron.Cron
	submitter Submitter
	logger    *slog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func NewManager(submitter Submitter, logger *slog.Logger) *Manager {
	return &Manager{
		cron:      cron.New(),
		submitter: submitter,
		logger:    logger.With("module", "schedule"),
		entries:   make(map[string]cron.EntryID),
	}
}

// Validate checks a cron expression without registering it.
func Validate(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron expression '%s': %w", expr, err)
	}

	return nil
}

// Add registers a schedule. Disabled schedules are accepted but never
// fire; enabling requires re-adding.
func (m *Manager) Add(schedule models.Schedule) error {
	if err := Validate(schedule.CronExpr); err != nil {
		return err
	}

	if !schedule.Enabled {
		m.logger.Info("Skipping disabled schedule", "schedule_id", schedule.ID)

		return nil
	}

	entryID, err := m.cron.AddFunc(schedule.CronExpr, func() {
		m.fire(schedule)
	})
	if err != nil {
		return fmt.Errorf("failed to register schedule %s: %w", schedule.ID, err)
	}

	m.mu.Lock()
	m.entries[schedule.ID] = entryID
	m.mu.Unlock()

	m.logger.Info("Registered schedule",
		"schedule_id", schedule.ID, "name", schedule.Name, "cron", schedule.CronExpr)

	return nil
}

// Remove unregisters a schedule. Removing an unknown id is a no-op.
func (m *Manager) Remove(scheduleID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entryID, ok := m.entries[scheduleID]
	if !ok {
		return
	}

	m.cron.Remove(entryID)
	delete(m.entries, scheduleID)
}

func (m *Manager) fire(schedule models.Schedule) {
	ctx := context.Background()

	request := schedule.Request
	// Each firing gets its own batch id.
	request.ID = ""

	batch, err := m.submitter.Submit(ctx, request)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to enqueue scheduled batch",
			"schedule_id", schedule.ID, "error", err)

		return
	}

	m.logger.InfoContext(ctx, "Enqueued scheduled batch",
		"schedule_id", schedule.ID, "batch_id", batch.ID)
}

func (m *Manager) Start() {
	m.cron.Start()
}

// Stop halts scheduling and waits for in-flight firings.
func (m *Manager) Stop() {
	<-m.cron.Stop().Done()
}
