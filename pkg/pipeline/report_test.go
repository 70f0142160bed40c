package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/models"
)

func flaggedSession() *models.PipelineSession {
	return &models.PipelineSession{
		ID:      "sess-report",
		Context: models.EvaluationContext{Vertical: "healthcare"},
		Results: map[models.Stage]*models.AnalysisResult{
			models.StageSecurity: {
				AgentID: "security",
				Score:   55,
				Flags: []models.Flag{
					{ID: "security-0", Severity: models.SeverityHigh, Type: "prompt_injection", Message: "injection pattern"},
					{ID: "security-1", Severity: models.SeverityCritical, Type: "secret_exposure", Message: "api key"},
					{ID: "security-2", Severity: models.SeverityLow, Type: "suspicious_url", Message: "shortened url"},
				},
			},
			models.StageIntegrity: {
				AgentID: "integrity",
				Score:   70,
				Flags: []models.Flag{
					{ID: "integrity-0", Severity: models.SeverityMedium, Type: "placeholder", Message: "TODO marker"},
				},
			},
			models.StageAccuracy: {
				AgentID: "accuracy",
				Score:   82,
				Flags: []models.Flag{
					{ID: "accuracy-0", Severity: models.SeverityHigh, Type: "fabricated_citation", Message: "unverifiable source"},
				},
			},
		},
	}
}

func TestBuildReportCriticalIssuesSortedBySeverity(t *testing.T) {
	orchestrator := newTestOrchestrator(DefaultConfig(), &stubAgent{}, &stubAgent{}, &stubAgent{})

	report := orchestrator.BuildReport(flaggedSession())

	require.Len(t, report.CriticalIssues, 3)
	assert.Equal(t, "security-1", report.CriticalIssues[0].ID)
	assert.Equal(t, models.SeverityCritical, report.CriticalIssues[0].Severity)

	// High-severity ties keep stable id order.
	assert.Equal(t, "accuracy-0", report.CriticalIssues[1].ID)
	assert.Equal(t, "security-0", report.CriticalIssues[2].ID)

	assert.NotEmpty(t, report.CriticalIssues[0].Recommendation)
}

func TestBuildReportSummaryCountsAllSeverities(t *testing.T) {
	orchestrator := newTestOrchestrator(DefaultConfig(), &stubAgent{}, &stubAgent{}, &stubAgent{})

	report := orchestrator.BuildReport(flaggedSession())

	assert.Equal(t, 1, report.Summary[models.SeverityLow])
	assert.Equal(t, 1, report.Summary[models.SeverityMedium])
	assert.Equal(t, 2, report.Summary[models.SeverityHigh])
	assert.Equal(t, 1, report.Summary[models.SeverityCritical])
}

func TestBuildReportScoresAndStatus(t *testing.T) {
	orchestrator := newTestOrchestrator(DefaultConfig(), &stubAgent{}, &stubAgent{}, &stubAgent{})

	report := orchestrator.BuildReport(flaggedSession())

	// 0.4*55 + 0.3*70 + 0.3*82 = 67.6 -> 68
	assert.Equal(t, 68, report.OverallScore)
	assert.Equal(t, models.ReportStatusWarning, report.Status)
	assert.Equal(t, 55, report.Scores[models.StageSecurity])
	assert.Equal(t, 70, report.Scores[models.StageIntegrity])
	assert.Equal(t, 82, report.Scores[models.StageAccuracy])
}

func TestBuildReportRecommendationsIncludeVerticalAdvice(t *testing.T) {
	orchestrator := newTestOrchestrator(DefaultConfig(), &stubAgent{}, &stubAgent{}, &stubAgent{})

	report := orchestrator.BuildReport(flaggedSession())

	require.NotEmpty(t, report.Recommendations)
	assert.Contains(t, report.Recommendations, verticalAdvice["healthcare"])

	// Security scored below the warning threshold.
	assert.Contains(t, report.Recommendations[0], "below the warning threshold")
}

func TestBuildReportDefaultRecommendation(t *testing.T) {
	orchestrator := newTestOrchestrator(DefaultConfig(), &stubAgent{}, &stubAgent{}, &stubAgent{})

	session := &models.PipelineSession{
		ID: "sess-clean",
		Results: map[models.Stage]*models.AnalysisResult{
			models.StageSecurity:  scoreResult("security", 95),
			models.StageIntegrity: scoreResult("integrity", 92),
			models.StageAccuracy:  scoreResult("accuracy", 97),
		},
	}

	report := orchestrator.BuildReport(session)

	require.Len(t, report.Recommendations, 1)
	assert.Contains(t, report.Recommendations[0], "no blocking findings")
}

func TestBuildReportIdempotentExceptTimestamp(t *testing.T) {
	orchestrator := newTestOrchestrator(DefaultConfig(), &stubAgent{}, &stubAgent{}, &stubAgent{})
	session := flaggedSession()

	first := orchestrator.BuildReport(session)
	second := orchestrator.BuildReport(session)

	second.GeneratedAt = first.GeneratedAt
	assert.Equal(t, first, second)
}
