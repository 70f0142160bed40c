package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arbiterhq/arbiter/pkg/models"
)

// EvaluateConditions applies a step's conditions to the execution context.
// Evaluation is strictly left to right: each condition's combine_with
// ("and" by default) joins it to the accumulated result of everything
// before it, so a AND b OR c reads ((a AND b) OR c). A malformed condition
// is an error, never a silent pass.
func EvaluateConditions(conditions []models.Condition, execCtx models.ExecutionContext) (bool, error) {
	if len(conditions) == 0 {
		return true, nil
	}

	result, err := evaluateCondition(conditions[0], execCtx)
	if err != nil {
		return false, err
	}

	for _, condition := range conditions[1:] {
		next, err := evaluateCondition(condition, execCtx)
		if err != nil {
			return false, err
		}

		switch strings.ToLower(condition.CombineWith) {
		case "or":
			result = result || next
		case "", "and":
			result = result && next
		default:
			return false, fmt.Errorf("unknown condition combinator '%s'", condition.CombineWith)
		}
	}

	return result, nil
}

func evaluateCondition(condition models.Condition, execCtx models.ExecutionContext) (bool, error) {
	value, found := lookupField(condition.Field, execCtx)

	switch condition.Operator {
	case models.OperatorExists:
		return found, nil
	case models.OperatorEquals:
		return found && equals(value, condition.Value), nil
	case models.OperatorNotEquals:
		return !found || !equals(value, condition.Value), nil
	case models.OperatorGreater:
		return compareNumeric(value, condition.Value, found, func(a, b float64) bool { return a > b })
	case models.OperatorLess:
		return compareNumeric(value, condition.Value, found, func(a, b float64) bool { return a < b })
	case models.OperatorContains:
		return contains(value, condition.Value, found)
	case models.OperatorIn:
		return inList(value, condition.Value, found)
	case models.OperatorNotIn:
		ok, err := inList(value, condition.Value, found)
		if err != nil {
			return false, err
		}

		return !ok, nil
	default:
		return false, fmt.Errorf("unknown condition operator '%s'", condition.Operator)
	}
}

// lookupField resolves a dot path against the execution context. The first
// segment selects the section (input, variables, steps, metadata); the rest
// walk nested maps.
func lookupField(field string, execCtx models.ExecutionContext) (any, bool) {
	segments := strings.Split(field, ".")

	var current any

	switch segments[0] {
	case "input":
		current = execCtx.Input
	case "variables":
		current = execCtx.Variables
	case "steps":
		current = execCtx.StepResults
	case "metadata":
		current = execCtx.Metadata
	default:
		// Unprefixed fields resolve against the input.
		current = execCtx.Input

		segments = append([]string{""}, segments...)
	}

	for _, segment := range segments[1:] {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func equals(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}

	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}

func compareNumeric(value, expected any, found bool, cmp func(a, b float64) bool) (bool, error) {
	if !found {
		return false, nil
	}

	a, aok := toFloat(value)
	b, bok := toFloat(expected)

	if !aok || !bok {
		return false, fmt.Errorf("cannot compare non-numeric values %v and %v", value, expected)
	}

	return cmp(a, b), nil
}

func contains(value, expected any, found bool) (bool, error) {
	if !found {
		return false, nil
	}

	switch v := value.(type) {
	case string:
		return strings.Contains(v, fmt.Sprintf("%v", expected)), nil
	case []any:
		for _, item := range v {
			if equals(item, expected) {
				return true, nil
			}
		}

		return false, nil
	default:
		return false, fmt.Errorf("contains requires a string or list field, got %T", value)
	}
}

func inList(value, expected any, found bool) (bool, error) {
	if !found {
		return false, nil
	}

	list, ok := expected.([]any)
	if !ok {
		return false, fmt.Errorf("in/not_in requires a list value, got %T", expected)
	}

	for _, item := range list {
		if equals(value, item) {
			return true, nil
		}
	}

	return false, nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)

		return f, err == nil
	default:
		return 0, false
	}
}
