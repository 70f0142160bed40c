// Package integrity scores an artifact for structural soundness: truncated
// output, self-contradiction, degenerate repetition and refusal fragments.
package integrity

import (
	"context"
	"fmt"
	"regexp"
	"strings"
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
		flagType: "contradiction",
		severity: models.SeverityHigh,
		penalty:  25,
		message:  "output contradicts itself within a single answer",
		pattern:  regexp.MustCompile(`(?i)(however, the opposite|contrary to what (I|we) (said|stated) (above|earlier))`),
	},
	{
		flagType: "truncation",
		severity: models.SeverityHigh,
		penalty:  20,
		message:  "output appears cut off mid-sentence",
		pattern:  regexp.MustCompile(`[a-z,]\s*$`),
	},
	{
		flagType: "refusal_fragment",
		severity: models.SeverityMedium,
		penalty:  15,
		message:  "output mixes an answer with a refusal fragment",
		pattern:  regexp.MustCompile(`(?i)as an AI (language )?model,? I (cannot|can't|am unable)`),
	},
	{
		flagType: "placeholder",
		severity: models.SeverityMedium,
		penalty:  15,
		message:  "output contains unfilled template placeholders",
		pattern:  regexp.MustCompile(`\[(INSERT|TODO|PLACEHOLDER)[^\]]*\]|\{\{[^}]+\}\}`),
	},
	{
		flagType: "hedging",
		severity: models.SeverityLow,
		penalty:  5,
		message:  "output hedges heavily instead of answering",
		pattern:  regexp.MustCompile(`(?i)(it is (hard|difficult|impossible) to say|I (am|'m) not (sure|certain)).*(it is (hard|difficult|impossible) to say|I (am|'m) not (sure|certain))`),
	},
}

type Agent struct {
	id string
}

func NewAgent(_ map[string]any) *Agent {
	return &Agent{id: "integrity"}
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
		if !r.pattern.MatchString(artifact.Text) {
			continue
		}

		score -= r.penalty

		flags = append(flags, models.Flag{
			ID:       fmt.Sprintf("%s-%d", a.id, i),
			Severity: r.severity,
			Type:     r.flagType,
			Message:  r.message,
		})
	}

	if ratio := repetitionRatio(artifact.Text); ratio > 0.5 {
		score -= 30

		flags = append(flags, models.Flag{
			ID:       fmt.Sprintf("%s-repetition", a.id),
			Severity: models.SeverityCritical,
			Type:     "degenerate_repetition",
			Message:  "output repeats the same lines",
			Details:  map[string]any{"repetition_ratio": ratio},
		})
	}

	if score < 0 {
		score = 0
	}

	return &models.AnalysisResult{
		AgentID:        a.id,
		Score:          score,
		Confidence:     0.85,
		Flags:          flags,
		Metadata:       map[string]any{"rules_evaluated": len(rules) + 1},
		ProcessingTime: time.Since(started),
	}, nil
}

// repetitionRatio is the share of non-empty lines that are duplicates.
func repetitionRatio(text string) float64 {
	lines := strings.Split(text, "\n")
	seen := make(map[string]bool)

	total := 0
	duplicates := 0

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		total++

		if seen[line] {
			duplicates++
		}

		seen[line] = true
	}

	if total == 0 {
		return 0
	}

	return float64(duplicates) / float64(total)
}
