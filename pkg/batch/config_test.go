package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRedeliveryDelayCappedExponential(t *testing.T) {
	config := Config{
		RetryDelay:    time.Second,
		RetryMaxDelay: 30 * time.Second,
	}

	expected := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}

	for i, want := range expected {
		assert.Equal(t, want, config.RedeliveryDelay(i+1), "attempt %d", i+1)
	}
}

func TestRedeliveryDelayUncappedWhenMaxUnset(t *testing.T) {
	config := Config{RetryDelay: time.Second}

	assert.Equal(t, 32*time.Second, config.RedeliveryDelay(6))
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 5, config.Concurrency)
	assert.Equal(t, "arbiter:batches", config.Stream)
	assert.Equal(t, 3, config.MaxAttempts)
	assert.Positive(t, config.ClaimMinIdle)
}
