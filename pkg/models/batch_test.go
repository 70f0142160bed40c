package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveBatchStatus(t *testing.T) {
	assert.Equal(t, BatchStatusCompleted, DeriveBatchStatus(3, 0))
	assert.Equal(t, BatchStatusPartial, DeriveBatchStatus(2, 1))
	assert.Equal(t, BatchStatusFailed, DeriveBatchStatus(0, 3))

	// Empty batches complete vacuously.
	assert.Equal(t, BatchStatusCompleted, DeriveBatchStatus(0, 0))
}
