package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// workflowSchema is the structural contract workflow definition documents
// must satisfy before the registry even looks at service bindings.
var workflowSchema = map[string]any{
	"type":     "object",
	"required": []any{"name", "steps"},
	"properties": map[string]any{
		"id":          map[string]any{"type": "string"},
		"name":        map[string]any{"type": "string", "minLength": 3},
		"description": map[string]any{"type": "string"},
		"variables":   map[string]any{"type": "object"},
		"metadata":    map[string]any{"type": "object"},
		"steps": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":     "object",
				"required": []any{"id", "name", "type", "service", "action"},
				"properties": map[string]any{
					"id":      map[string]any{"type": "string", "minLength": 1},
					"name":    map[string]any{"type": "string", "minLength": 1},
					"type":    map[string]any{"type": "string", "enum": []any{"detect", "analyze", "decide", "execute", "verify", "report"}},
					"agent":   map[string]any{"type": "string"},
					"service": map[string]any{"type": "string", "minLength": 1},
					"action":  map[string]any{"type": "string", "minLength": 1},
					"parameters": map[string]any{"type": "object"},
					"timeout_ms": map[string]any{"type": "integer", "minimum": 0},
					"human_approval_required": map[string]any{"type": "boolean"},
					"conditions": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type":     "object",
							"required": []any{"field", "operator"},
							"properties": map[string]any{
								"field":        map[string]any{"type": "string", "minLength": 1},
								"operator":     map[string]any{"type": "string", "enum": []any{"=", "!=", ">", "<", "contains", "exists", "in", "not_in"}},
								"combine_with": map[string]any{"type": "string", "enum": []any{"and", "or"}},
							},
						},
					},
					"error_handling": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"fallback": map[string]any{"type": "string"},
							"escalate": map[string]any{"type": "boolean"},
							"retry": map[string]any{
								"type": "object",
								"properties": map[string]any{
									"attempts":           map[string]any{"type": "integer", "minimum": 0},
									"delay_ms":           map[string]any{"type": "integer", "minimum": 0},
									"backoff_multiplier": map[string]any{"type": "number", "minimum": 0},
									"max_delay_ms":       map[string]any{"type": "integer", "minimum": 0},
								},
							},
							"notification": map[string]any{
								"type":     "object",
								"required": []any{"channel"},
								"properties": map[string]any{
									"channel": map[string]any{"type": "string", "minLength": 1},
									"message": map[string]any{"type": "string"},
								},
							},
						},
					},
				},
			},
		},
	},
}

// ValidateWorkflowDocument checks a raw workflow definition document against
// the workflow JSON schema. Malformed definitions fail at load time, never
// mid-run.
func ValidateWorkflowDocument(document map[string]any) error {
	schemaLoader := gojsonschema.NewGoLoader(workflowSchema)
	dataLoader := gojsonschema.NewGoLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate workflow document: %w", err)
	}

	if !result.Valid() {
		descriptions := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			descriptions = append(descriptions, desc.String())
		}

		return fmt.Errorf("invalid workflow definition: %s", strings.Join(descriptions, "; "))
	}

	return nil
}
