package schedule

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/models"
)

type captureSubmitter struct {
	mu       sync.Mutex
	requests []models.BatchRequest
}

func (s *captureSubmitter) Submit(_ context.Context, request models.BatchRequest) (*models.BatchExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, request)

	return &models.BatchExecution{ID: "batch-fired", Status: models.BatchStatusQueued}, nil
}

func newTestManager() (*Manager, *captureSubmitter) {
	submitter := &captureSubmitter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewManager(submitter, logger), submitter
}

func TestValidateCronExpression(t *testing.T) {
	assert.NoError(t, Validate("*/5 * * * *"))
	assert.NoError(t, Validate("@hourly"))
	assert.Error(t, Validate("not a cron"))
	assert.Error(t, Validate("* * *"))
}

func TestAddRejectsInvalidCron(t *testing.T) {
	manager, _ := newTestManager()

	err := manager.Add(models.Schedule{
		ID:       "sched-bad",
		Name:     "broken",
		CronExpr: "61 * * * *",
		Enabled:  true,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cron expression")
}

func TestAddDisabledScheduleNeverRegisters(t *testing.T) {
	manager, _ := newTestManager()

	err := manager.Add(models.Schedule{
		ID:       "sched-off",
		Name:     "disabled",
		CronExpr: "* * * * *",
		Enabled:  false,
	})

	require.NoError(t, err)
	assert.Empty(t, manager.entries)
}

func TestAddAndRemove(t *testing.T) {
	manager, _ := newTestManager()

	require.NoError(t, manager.Add(models.Schedule{
		ID:       "sched-on",
		Name:     "enabled",
		CronExpr: "@daily",
		Enabled:  true,
	}))
	assert.Len(t, manager.entries, 1)

	manager.Remove("sched-on")
	assert.Empty(t, manager.entries)

	// Removing twice is a no-op.
	manager.Remove("sched-on")
}

func TestFireSubmitsFreshBatch(t *testing.T) {
	manager, submitter := newTestManager()

	schedule := models.Schedule{
		ID:       "sched-fire",
		Name:     "hourly check",
		CronExpr: "@hourly",
		Enabled:  true,
		Request: models.BatchRequest{
			ID:       "batch-template",
			AgentIDs: []string{"security"},
			Artifact: models.Artifact{Text: "generated text"},
		},
		CreatedAt: time.Now().UTC(),
	}

	manager.fire(schedule)
	manager.fire(schedule)

	require.Len(t, submitter.requests, 2)

	for _, request := range submitter.requests {
		// Each firing gets its own batch id downstream.
		assert.Empty(t, request.ID)
		assert.Equal(t, []string{"security"}, request.AgentIDs)
	}
}
