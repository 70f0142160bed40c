package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/arbiterhq/arbiter/pkg/models"
	"github.com/arbiterhq/arbiter/pkg/persistence"
)

// Queue is the durable batch work queue over a redis stream with a
// consumer group. Submissions survive worker restarts; failed deliveries
// are re-enqueued with capped exponential delay up to MaxAttempts.
type Queue struct {
	client      *redis.Client
	persistence persistence.Persistence
	logger      *slog.Logger
	config      Config
}

func NewQueue(client *redis.Client, store persistence.Persistence, logger *slog.Logger, config Config) *Queue {
	return &Queue{
		client:      client,
		persistence: store,
		logger:      logger.With("module", "batch-queue"),
		config:      config,
	}
}

// Submit records the batch as queued and enqueues it for a worker.
func (q *Queue) Submit(ctx context.Context, request models.BatchRequest) (*models.BatchExecution, error) {
	id := request.ID
	if id == "" {
		id = "batch-" + uuid.New().String()[:8]
	}

	batch := &models.BatchExecution{
		ID:        id,
		AgentIDs:  request.AgentIDs,
		Artifact:  request.Artifact,
		Priority:  request.Priority,
		Status:    models.BatchStatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	if err := q.persistence.Batches().Save(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to persist batch %s: %w", id, err)
	}

	if err := q.enqueue(ctx, id, 1); err != nil {
		return nil, err
	}

	q.logger.InfoContext(ctx, "Batch queued", "batch_id", id, "agents", len(request.AgentIDs))

	return batch, nil
}

func (q *Queue) enqueue(ctx context.Context, batchID string, attempt int) error {
	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.config.Stream,
		Values: map[string]any{
			"batch_id": batchID,
			"attempt":  strconv.Itoa(attempt),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to enqueue batch %s: %w", batchID, err)
	}

	return nil
}

// Consume pulls batches off the stream and hands them to the handler until
// the context ends. Each worker process calls this once.
func (q *Queue) Consume(ctx context.Context, handler func(ctx context.Context, batch *models.BatchExecution) error) error {
	if err := q.ensureGroup(ctx); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		q.claimStale(ctx, handler)

		streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    q.config.ConsumerGroup,
			Consumer: q.config.ConsumerName,
			Streams:  []string{q.config.Stream, ">"},
			Count:    1,
			Block:    q.config.BlockTimeout,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}

			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}

			q.logger.ErrorContext(ctx, "Failed to read from batch stream", "error", err)

			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				q.handleMessage(ctx, message, handler)
			}
		}
	}
}

// claimStale takes over entries another consumer read but never acked,
// typically left behind by a crashed worker.
func (q *Queue) claimStale(ctx context.Context, handler func(ctx context.Context, batch *models.BatchExecution) error) {
	if q.config.ClaimMinIdle <= 0 {
		return
	}

	messages, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.config.Stream,
		Group:    q.config.ConsumerGroup,
		Consumer: q.config.ConsumerName,
		MinIdle:  q.config.ClaimMinIdle,
		Start:    "0-0",
		Count:    1,
	}).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			q.logger.ErrorContext(ctx, "Failed to claim stale entries", "error", err)
		}

		return
	}

	for _, message := range messages {
		q.logger.WarnContext(ctx, "Claimed stale batch entry", "message_id", message.ID)
		q.handleMessage(ctx, message, handler)
	}
}

func (q *Queue) ensureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.config.Stream, q.config.ConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %s: %w", q.config.ConsumerGroup, err)
	}

	return nil
}

func (q *Queue) handleMessage(ctx context.Context, message redis.XMessage, handler func(ctx context.Context, batch *models.BatchExecution) error) {
	defer func() {
		if err := q.client.XAck(ctx, q.config.Stream, q.config.ConsumerGroup, message.ID).Err(); err != nil {
			q.logger.ErrorContext(ctx, "Failed to ack message", "message_id", message.ID, "error", err)
		}
	}()

	batchID, _ := message.Values["batch_id"].(string)
	if batchID == "" {
		q.logger.WarnContext(ctx, "Dropping malformed queue message", "message_id", message.ID)

		return
	}

	attempt := 1
	if raw, ok := message.Values["attempt"].(string); ok {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			attempt = parsed
		}
	}

	logger := q.logger.With("batch_id", batchID, "attempt", attempt)

	batch, err := q.persistence.Batches().GetByID(ctx, batchID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to load queued batch", "error", err)

		return
	}

	if batch.Status == models.BatchStatusCancelled {
		logger.InfoContext(ctx, "Skipping cancelled batch")

		return
	}

	if err := handler(ctx, batch); err != nil {
		q.redeliver(ctx, logger, batch, attempt, err)
	}
}

// redeliver re-enqueues a failed batch with capped exponential delay, or
// marks it failed once attempts are exhausted.
func (q *Queue) redeliver(ctx context.Context, logger *slog.Logger, batch *models.BatchExecution, attempt int, cause error) {
	if attempt >= q.config.MaxAttempts {
		logger.ErrorContext(ctx, "Batch failed after final attempt", "error", cause)

		batch.Status = models.BatchStatusFailed
		if err := q.persistence.Batches().Save(ctx, batch); err != nil {
			logger.ErrorContext(ctx, "Failed to persist exhausted batch", "error", err)
		}

		return
	}

	delay := q.config.RedeliveryDelay(attempt)

	logger.WarnContext(ctx, "Re-enqueueing failed batch", "delay", delay, "error", cause)

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if err := q.enqueue(ctx, batch.ID, attempt+1); err != nil {
			logger.ErrorContext(ctx, "Failed to re-enqueue batch", "error", err)
		}
	}()
}

// CancelPending removes a queued batch from the stream and marks it
// cancelled. A batch already picked up by a worker is not interrupted.
func (q *Queue) CancelPending(ctx context.Context, batchID string) (bool, error) {
	entries, err := q.client.XRange(ctx, q.config.Stream, "-", "+").Result()
	if err != nil {
		return false, fmt.Errorf("failed to scan batch stream: %w", err)
	}

	removed := false

	for _, entry := range entries {
		if id, _ := entry.Values["batch_id"].(string); id != batchID {
			continue
		}

		if err := q.client.XDel(ctx, q.config.Stream, entry.ID).Err(); err != nil {
			return false, fmt.Errorf("failed to remove queued batch %s: %w", batchID, err)
		}

		removed = true
	}

	if !removed {
		return false, nil
	}

	batch, err := q.persistence.Batches().GetByID(ctx, batchID)
	if err != nil {
		return true, err
	}

	batch.Status = models.BatchStatusCancelled

	if err := q.persistence.Batches().Save(ctx, batch); err != nil {
		return true, fmt.Errorf("failed to persist cancelled batch %s: %w", batchID, err)
	}

	q.logger.InfoContext(ctx, "Cancelled queued batch", "batch_id", batchID)

	return true, nil
}

func (q *Queue) HealthCheck(ctx context.Context) error {
	if err := q.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("batch queue redis unreachable: %w", err)
	}

	return nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}
