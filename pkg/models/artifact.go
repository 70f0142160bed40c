// Package models defines the core domain models for evaluation orchestration.
package models

// Artifact is a machine-generated text output submitted for evaluation.
// Agents receive it read-only and must not mutate it.
type Artifact struct {
	Text     string         `json:"text"     validate:"required"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// WithMetadata returns a copy of the artifact with extra metadata merged in.
// The original metadata map is left untouched so agents can enrich context
// for downstream stages without mutating their input.
func (a Artifact) WithMetadata(extra map[string]any) Artifact {
	merged := make(map[string]any, len(a.Metadata)+len(extra))
	for k, v := range a.Metadata {
		merged[k] = v
	}

	for k, v := range extra {
		merged[k] = v
	}

	a.Metadata = merged

	return a
}
