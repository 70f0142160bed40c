package registry

import (
	"fmt"

	"github.com/arbiterhq/arbiter/pkg/models"
)

var knownOperators = map[models.ConditionOperator]bool{
	models.OperatorEquals:    true,
	models.OperatorNotEquals: true,
	models.OperatorGreater:   true,
	models.OperatorLess:      true,
	models.OperatorContains:  true,
	models.OperatorExists:    true,
	models.OperatorIn:        true,
	models.OperatorNotIn:     true,
}

// ValidateWorkflow checks a workflow definition against the registry:
// every step's service/action must resolve, referenced agents must exist,
// condition operators must be known, and fallback targets must name steps
// of the same workflow. A definition that passes here cannot fail on a
// missing binding mid-run.
func (r *Registry) ValidateWorkflow(workflow *models.Workflow) error {
	if len(workflow.Steps) == 0 {
		return fmt.Errorf("workflow %s has no steps", workflow.ID)
	}

	seen := make(map[string]bool, len(workflow.Steps))

	for _, step := range workflow.Steps {
		if seen[step.ID] {
			return fmt.Errorf("workflow %s: duplicate step id '%s'", workflow.ID, step.ID)
		}

		seen[step.ID] = true

		if _, err := r.ResolveService(step.Service, step.Action); err != nil {
			return fmt.Errorf("workflow %s step '%s': %w", workflow.ID, step.ID, err)
		}

		if step.Agent != "" && !r.IsAgentRegistered(step.Agent) {
			return fmt.Errorf("workflow %s step '%s': agent '%s' not registered", workflow.ID, step.ID, step.Agent)
		}

		for _, condition := range step.Conditions {
			if !knownOperators[condition.Operator] {
				return fmt.Errorf("workflow %s step '%s': unknown condition operator '%s'", workflow.ID, step.ID, condition.Operator)
			}
		}
	}

	for _, step := range workflow.Steps {
		if step.ErrorHandling == nil || step.ErrorHandling.Fallback == "" {
			continue
		}

		if !seen[step.ErrorHandling.Fallback] {
			return fmt.Errorf("workflow %s step '%s': fallback step '%s' does not exist", workflow.ID, step.ID, step.ErrorHandling.Fallback)
		}
	}

	return nil
}
