package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence"
	"github.com/arbiterhq/arbiter/pkg/persistence/file"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecideApprovesPendingGate(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	service := NewApprovalService(store, testLogger())

	require.NoError(t, store.Approvals().Save(ctx, &models.Approval{
		ID:     "appr-gate",
		Status: models.ApprovalStatusPending,
	}))

	decided, err := service.Decide(ctx, "appr-gate", true, "reviewer", "looks fine")

	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, decided.Status)
	assert.Equal(t, "reviewer", decided.DecidedBy)
	require.NotNil(t, decided.DecidedAt)

	persisted, err := store.Approvals().GetByID(ctx, "appr-gate")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusApproved, persisted.Status)
}

func TestDecideRejectsPendingGate(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	service := NewApprovalService(store, testLogger())

	require.NoError(t, store.Approvals().Save(ctx, &models.Approval{
		ID:     "appr-gate",
		Status: models.ApprovalStatusPending,
	}))

	decided, err := service.Decide(ctx, "appr-gate", false, "reviewer", "")

	require.NoError(t, err)
	assert.Equal(t, models.ApprovalStatusRejected, decided.Status)
}

func TestDecideTwiceRejected(t *testing.T) {
	ctx := context.Background()
	store := file.NewPersistence(t.TempDir())
	service := NewApprovalService(store, testLogger())

	require.NoError(t, store.Approvals().Save(ctx, &models.Approval{
		ID:     "appr-gate",
		Status: models.ApprovalStatusPending,
	}))

	_, err := service.Decide(ctx, "appr-gate", true, "first", "")
	require.NoError(t, err)

	_, err = service.Decide(ctx, "appr-gate", false, "second", "")

	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "already decided")
}

func TestDecideUnknownApproval(t *testing.T) {
	store := file.NewPersistence(t.TempDir())
	service := NewApprovalService(store, testLogger())

	_, err := service.Decide(context.Background(), "appr-ghost", true, "reviewer", "")

	assert.ErrorIs(t, err, persistence.ErrApprovalNotFound)
}
