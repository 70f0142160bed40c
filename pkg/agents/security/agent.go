// Package security scores an artifact for leaked secrets, prompt-injection
// markers and exposed personal data. The pattern set is arbitrary business
// logic behind the agent contract; swap it freely.
package security

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
		flagType: "secret_exposure",
		severity: models.SeverityCritical,
		penalty:  40,
		message:  "output appears to contain a private key or credential block",
		pattern:  regexp.MustCompile(`(?i)-----BEGIN [A-Z ]*PRIVATE KEY-----|aws_secret_access_key`),
	},
	{
		flagType: "secret_exposure",
		severity: models.SeverityHigh,
		penalty:  25,
		message:  "output references an API key or token value",
		pattern:  regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?token|bearer)\s*[:=]\s*\S+`),
	},
	{
		flagType: "prompt_injection",
		severity: models.SeverityHigh,
		penalty:  25,
		message:  "output echoes prompt-injection phrasing",
		pattern:  regexp.MustCompile(`(?i)ignore (all )?(previous|prior) instructions|disregard your guidelines`),
	},
	{
		flagType: "pii_exposure",
		severity: models.SeverityHigh,
		penalty:  20,
		message:  "output contains what looks like a social security number",
		pattern:  regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	},
	{
		flagType: "pii_exposure",
		severity: models.SeverityMedium,
		penalty:  10,
		message:  "output contains an email address",
		pattern:  regexp.MustCompile(`\b[\w.+-]+@[\w-]+\.[\w.]+\b`),
	},
	{
		flagType: "unsafe_instruction",
		severity: models.SeverityMedium,
		penalty:  15,
		message:  "output instructs disabling a safety or security control",
		pattern:  regexp.MustCompile(`(?i)disable (the )?(firewall|antivirus|certificate (check|validation)|tls verification)`),
	},
}

type Agent struct {
	id string
}

func NewAgent(_ map[string]any) *Agent {
	return &Agent{id: "security"}
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

		score -= r.penalty

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

	confidence := 0.9
	if len(artifact.Text) < 80 {
		// Short artifacts give the patterns little to work with.
		confidence = 0.6
	}

	return &models.AnalysisResult{
		AgentID:    a.id,
		Score:      score,
		Confidence: confidence,
		Flags:      flags,
		Metadata: map[string]any{
			"rules_evaluated": len(rules),
			"text_length":     len(artifact.Text),
		},
		ProcessingTime: time.Since(started),
	}, nil
}
