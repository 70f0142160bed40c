package integrity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/models"
)

func TestAnalyzeCleanText(t *testing.T) {
	agent := NewAgent(nil)

	result, err := agent.Analyze(context.Background(), models.Artifact{
		Text: "The migration finished without incident. All services report healthy.",
	})

	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.Empty(t, result.Flags)
}

func TestAnalyzeFlagsTruncationAndPlaceholders(t *testing.T) {
	agent := NewAgent(nil)

	result, err := agent.Analyze(context.Background(), models.Artifact{
		Text: "Fill in [TODO: add numbers] before sending. The summary continues but then it just stops mid",
	})

	require.NoError(t, err)
	assert.Equal(t, 65, result.Score)
	require.Len(t, result.Flags, 2)
	assert.Equal(t, "truncation", result.Flags[0].Type)
	assert.Equal(t, "placeholder", result.Flags[1].Type)
}

func TestAnalyzeFlagsDegenerateRepetition(t *testing.T) {
	agent := NewAgent(nil)

	text := strings.Repeat("The same sentence again.\n", 10)

	result, err := agent.Analyze(context.Background(), models.Artifact{Text: text})

	require.NoError(t, err)
	assert.Equal(t, 70, result.Score)
	require.Len(t, result.Flags, 1)
	assert.Equal(t, "degenerate_repetition", result.Flags[0].Type)
	assert.Equal(t, models.SeverityCritical, result.Flags[0].Severity)
}

func TestRepetitionRatio(t *testing.T) {
	assert.Zero(t, repetitionRatio(""))
	assert.Zero(t, repetitionRatio("one.\ntwo.\nthree."))
	assert.InDelta(t, 0.5, repetitionRatio("same.\nsame.\nother.\nother."), 0.001)
}
