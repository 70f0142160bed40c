// Package batch runs queue-backed parallel evaluations: one artifact
// fanned out to a bounded pool of analysis agents with per-agent failure
// isolation and progress broadcasting.
package batch

import "time"

type Config struct {
	// Concurrency bounds how many agents analyze simultaneously.
	Concurrency int

	// Redis stream settings for the work queue.
	Stream        string
	ConsumerGroup string
	ConsumerName  string
	BlockTimeout  time.Duration

	// ClaimMinIdle is how long a delivered entry may sit unacked before
	// another consumer claims it, typically after a worker crash.
	ClaimMinIdle time.Duration

	// Redelivery policy for batches whose processing failed outright.
	MaxAttempts   int
	RetryDelay    time.Duration
	RetryMaxDelay time.Duration
}

// RedeliveryDelay is the wait before re-enqueueing delivery n, doubling
// per attempt and capped at RetryMaxDelay.
func (c Config) RedeliveryDelay(attempt int) time.Duration {
	delay := c.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	if c.RetryMaxDelay > 0 && delay > c.RetryMaxDelay {
		delay = c.RetryMaxDelay
	}

	return delay
}

func DefaultConfig() Config {
	return Config{
		Concurrency:   5,
		Stream:        "arbiter:batches",
		ConsumerGroup: "arbiter-workers",
		ConsumerName:  "worker",
		BlockTimeout:  5 * time.Second,
		ClaimMinIdle:  time.Minute,
		MaxAttempts:   3,
		RetryDelay:    time.Second,
		RetryMaxDelay: 30 * time.Second,
	}
}
