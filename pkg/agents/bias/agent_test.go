package bias

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/models"
)

func TestAnalyzeCleanText(t *testing.T) {
	agent := NewAgent(nil)

	result, err := agent.Analyze(context.Background(), models.Artifact{
		Text: "The survey reached a broad range of respondents across all regions.",
	})

	require.NoError(t, err)
	assert.Equal(t, 100, result.Score)
	assert.Empty(t, result.Flags)
}

func TestAnalyzeFlagsStereotypingAndLoadedTerms(t *testing.T) {
	agent := NewAgent(nil)

	result, err := agent.Analyze(context.Background(), models.Artifact{
		Text: "All women are worse at negotiation, and everyone knows the numbers back this up.",
	})

	require.NoError(t, err)
	assert.Equal(t, 70, result.Score)
	require.Len(t, result.Flags, 2)
	assert.Equal(t, "stereotyping", result.Flags[0].Type)
	assert.Equal(t, models.SeverityHigh, result.Flags[0].Severity)
	assert.Equal(t, "loaded_terms", result.Flags[1].Type)
}
