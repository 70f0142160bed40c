package engine

import (
	"math"
	"time"

	"github.com/arbiterhq/arbiter/pkg/models"
)

// RetryDelay returns the backoff before retry attempt n (1-based):
// min(delay × multiplier^(n-1), maxDelay). A multiplier below 1 is treated
// as 1 and a zero max as uncapped.
func RetryDelay(policy models.RetryPolicy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	multiplier := policy.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}

	delayMs := float64(policy.DelayMs) * math.Pow(multiplier, float64(attempt-1))

	if policy.MaxDelayMs > 0 && delayMs > float64(policy.MaxDelayMs) {
		delayMs = float64(policy.MaxDelayMs)
	}

	return time.Duration(delayMs) * time.Millisecond
}
