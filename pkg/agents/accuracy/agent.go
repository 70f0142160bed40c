// Package accuracy scores an artifact for unverifiable claims, fabricated
// citations and overconfident absolutes.
package accuracy

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/arbiterhq/arbiter/pkg/models"
)

type rule struct {
	flagType string
	severity models.Severity
	penalty  int
	message  string
	pattern  *regexp.Regexp
}

var rules = []rule{
	{
		flagType: "fabricated_citation",
		severity: models.SeverityHigh,
		penalty:  25,
		message:  "output cites a source in a format commonly fabricated",
		pattern:  regexp.MustCompile(`(?i)\((?:see )?[A-Z][a-z]+ et al\.?,? \d{4}\)|doi:10\.\d{4,}/[a-z0-9.]+`),
	},
	{
		flagType: "overconfident_claim",
		severity: models.SeverityMedium,
		penalty:  10,
		message:  "output states an absolute that is rarely verifiable",
		pattern:  regexp.MustCompile(`(?i)\b(always|never|guaranteed|100% (safe|accurate|certain)|proven beyond doubt)\b`),
	},
	{
		flagType: "stale_reference",
		severity: models.SeverityMedium,
		penalty:  10,
		message:  "output anchors a claim to an outdated knowledge cutoff",
		pattern:  regexp.MustCompile(`(?i)as of (my (last|knowledge) (update|cutoff)|20(1\d|2[0-3]))`),
	},
	{
		flagType: "invented_statistic",
		severity: models.SeverityHigh,
		penalty:  20,
		message:  "output quotes a suspiciously precise unsourced statistic",
		pattern:  regexp.MustCompile(`\b\d{2}\.\d{1,2}% of (people|users|cases|patients)\b`),
	},
}

type Agent struct {
	id string
}

func NewAgent(_ map[string]any) *Agent {
	return &Agent{id: "accuracy"}
}

func (a *Agent) ID() string {
	return a.id
}

func (a *Agent) Analyze(ctx context.Context, artifact models.Artifact) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()

	score := 100
	flags := make([]models.Flag, 0)

	for i, r := range rules {
		matches := r.pattern.FindAllString(artifact.Text, -1)
		if len(matches) == 0 {
			continue
		}

		// Repeated offenses of the same kind compound, capped per rule.
		penalty := r.penalty * len(matches)
		if penalty > r.penalty*2 {
			penalty = r.penalty * 2
		}

		score -= penalty

		flags = append(flags, models.Flag{
			ID:       fmt.Sprintf("%s-%d", a.id, i),
			Severity: r.severity,
			Type:     r.flagType,
			Message:  r.message,
			Details:  map[string]any{"matches": len(matches)},
		})
	}

	if score < 0 {
		score = 0
	}

	return &models.AnalysisResult{
		AgentID:        a.id,
		Score:          score,
		Confidence:     0.75,
		Flags:          flags,
		Metadata:       map[string]any{"rules_evaluated": len(rules)},
		ProcessingTime: time.Since(started),
	}, nil
}
