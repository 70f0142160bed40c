package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityRankOrdering(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())

	// Unknown severities rank below every real one.
	assert.Less(t, Severity("bogus").Rank(), SeverityLow.Rank())
}

func TestFlagsAtLeast(t *testing.T) {
	result := AnalysisResult{
		Flags: []Flag{
			{ID: "a", Severity: SeverityLow},
			{ID: "b", Severity: SeverityMedium},
			{ID: "c", Severity: SeverityHigh},
			{ID: "d", Severity: SeverityCritical},
		},
	}

	high := result.FlagsAtLeast(SeverityHigh)
	assert.Len(t, high, 2)
	assert.Equal(t, "c", high[0].ID)
	assert.Equal(t, "d", high[1].ID)

	assert.Len(t, result.FlagsAtLeast(SeverityLow), 4)

	empty := AnalysisResult{}
	assert.Empty(t, empty.FlagsAtLeast(SeverityLow))
}
