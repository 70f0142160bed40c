package pipeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/arbiterhq/arbiter/pkg/models"
)

// recommendationsByFlagType maps a flag type to remediation advice attached
// to each critical issue.
var recommendationsByFlagType = map[string]string{
	"secret_exposure":        "rotate the exposed credential and strip secrets from the generation context",
	"prompt_injection":       "sanitize upstream inputs and re-run the generation with injection filters enabled",
	"pii_exposure":           "redact personal data before the output leaves the trust boundary",
	"unsafe_instruction":     "block the output; it instructs disabling a safety control",
	"contradiction":          "regenerate the section; the output disagrees with itself",
	"truncation":             "regenerate with a larger output budget; the artifact is cut off",
	"degenerate_repetition":  "regenerate; the artifact collapsed into repetition",
	"refusal_fragment":       "strip refusal boilerplate or regenerate the answer",
	"placeholder":            "fill or remove template placeholders before publishing",
	"fabricated_citation":    "verify every citation against the source of record",
	"invented_statistic":     "require a source for each statistic or remove it",
	"overconfident_claim":    "soften absolute claims or back them with evidence",
	"stale_reference":        "refresh the claim against current data",
	"stereotyping":           "rewrite the generalization about groups of people",
	"exclusionary_language":  "replace exclusionary phrasing with neutral wording",
	"loaded_terms":           "replace loaded terms with neutral wording",
}

var verticalAdvice = map[string]string{
	"healthcare": "healthcare outputs require clinical review before patient-facing use",
	"finance":    "financial outputs must be reviewed for regulatory compliance (e.g. marketing rules) before distribution",
	"legal":      "legal outputs are not a substitute for advice of counsel; route through legal review",
}

// BuildReport assembles the structured report for a session. It is
// deterministic for an unchanged session apart from the fresh GeneratedAt
// timestamp, so rebuilding a report never changes the verdict.
func (o *Orchestrator) BuildReport(session *models.PipelineSession) *models.Report {
	score := o.AggregateScore(session)

	report := &models.Report{
		SessionID:       session.ID,
		OverallScore:    score,
		Status:          o.statusFor(score),
		Scores:          make(map[models.Stage]int, len(session.Results)),
		CriticalIssues:  collectCriticalIssues(session),
		Summary:         summarizeFlags(session),
		StageResults:    session.Results,
		TerminatedEarly: session.Terminated,
		GeneratedAt:     time.Now().UTC(),
	}

	for stage, result := range session.Results {
		report.Scores[stage] = result.Score
	}

	report.Recommendations = o.buildRecommendations(session, report)

	return report
}

func collectCriticalIssues(session *models.PipelineSession) []models.CriticalIssue {
	issues := make([]models.CriticalIssue, 0)

	for _, stage := range session.RanStages() {
		result := session.Results[stage]
		for _, flag := range result.FlagsAtLeast(models.SeverityHigh) {
			issues = append(issues, models.CriticalIssue{
				Flag:           flag,
				Stage:          stage,
				Recommendation: recommendationsByFlagType[flag.Type],
			})
		}
	}

	// Severity-sorted, worst first; ties keep stage order then flag id so
	// rebuilding a report is stable.
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity.Rank() != issues[j].Severity.Rank() {
			return issues[i].Severity.Rank() > issues[j].Severity.Rank()
		}

		return issues[i].ID < issues[j].ID
	})

	return issues
}

func summarizeFlags(session *models.PipelineSession) map[models.Severity]int {
	summary := map[models.Severity]int{
		models.SeverityLow:      0,
		models.SeverityMedium:   0,
		models.SeverityHigh:     0,
		models.SeverityCritical: 0,
	}

	for _, result := range session.Results {
		for _, flag := range result.Flags {
			summary[flag.Severity]++
		}
	}

	return summary
}

func (o *Orchestrator) buildRecommendations(session *models.PipelineSession, report *models.Report) []string {
	recommendations := make([]string, 0)

	if session.Terminated {
		recommendations = append(recommendations, fmt.Sprintf(
			"evaluation terminated early: %s stage scored %d, below the catastrophic floor of %d; remaining stages were not run",
			session.TerminatedAt, session.Results[session.TerminatedAt].Score, o.config.CatastrophicFloor))
	}

	for _, stage := range session.RanStages() {
		result := session.Results[stage]
		if result.Score < o.config.WarningThreshold {
			recommendations = append(recommendations, fmt.Sprintf(
				"%s score %d is below the warning threshold; address the flagged findings before release", stage, result.Score))
		}
	}

	seen := make(map[string]bool)

	for _, issue := range report.CriticalIssues {
		if issue.Recommendation == "" || seen[issue.Recommendation] {
			continue
		}

		seen[issue.Recommendation] = true

		recommendations = append(recommendations, issue.Recommendation)
	}

	if advice, ok := verticalAdvice[session.Context.Vertical]; ok {
		recommendations = append(recommendations, advice)
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "no blocking findings; artifact is acceptable for release")
	}

	return recommendations
}
