package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arbiterhq/arbiter/pkg/models"
)

func testContext() models.ExecutionContext {
	return models.ExecutionContext{
		Input: map[string]any{
			"score":    float64(42),
			"vertical": "healthcare",
			"tags":     []any{"draft", "generated"},
		},
		Variables: map[string]any{"threshold": 50},
		StepResults: map[string]any{
			"detect": map[string]any{"flags": float64(3)},
		},
		Metadata: map[string]any{"source": "api"},
	}
}

func TestEvaluateConditionsEmptyIsTrue(t *testing.T) {
	ok, err := EvaluateConditions(nil, testContext())

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateConditionsOperators(t *testing.T) {
	tests := []struct {
		name      string
		condition models.Condition
		expected  bool
	}{
		{"equals", models.Condition{Field: "input.vertical", Operator: models.OperatorEquals, Value: "healthcare"}, true},
		{"equals numeric string", models.Condition{Field: "input.score", Operator: models.OperatorEquals, Value: "42"}, true},
		{"not equals", models.Condition{Field: "input.vertical", Operator: models.OperatorNotEquals, Value: "finance"}, true},
		{"not equals missing field", models.Condition{Field: "input.absent", Operator: models.OperatorNotEquals, Value: "x"}, true},
		{"greater", models.Condition{Field: "input.score", Operator: models.OperatorGreater, Value: 40}, true},
		{"greater false", models.Condition{Field: "input.score", Operator: models.OperatorGreater, Value: 42}, false},
		{"less", models.Condition{Field: "input.score", Operator: models.OperatorLess, Value: 50}, true},
		{"contains string", models.Condition{Field: "input.vertical", Operator: models.OperatorContains, Value: "health"}, true},
		{"contains list", models.Condition{Field: "input.tags", Operator: models.OperatorContains, Value: "draft"}, true},
		{"exists", models.Condition{Field: "metadata.source", Operator: models.OperatorExists}, true},
		{"exists false", models.Condition{Field: "metadata.absent", Operator: models.OperatorExists}, false},
		{"in", models.Condition{Field: "input.vertical", Operator: models.OperatorIn, Value: []any{"legal", "healthcare"}}, true},
		{"not in", models.Condition{Field: "input.vertical", Operator: models.OperatorNotIn, Value: []any{"legal", "finance"}}, true},
		{"nested step result", models.Condition{Field: "steps.detect.flags", Operator: models.OperatorGreater, Value: 2}, true},
		{"variables section", models.Condition{Field: "variables.threshold", Operator: models.OperatorEquals, Value: 50}, true},
		{"unprefixed resolves against input", models.Condition{Field: "vertical", Operator: models.OperatorEquals, Value: "healthcare"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := EvaluateConditions([]models.Condition{tt.condition}, testContext())

			require.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
		})
	}
}

func TestEvaluateConditionsLeftToRightChaining(t *testing.T) {
	// a AND b OR c reads ((a AND b) OR c).
	conditions := []models.Condition{
		{Field: "input.vertical", Operator: models.OperatorEquals, Value: "finance"},
		{Field: "input.score", Operator: models.OperatorGreater, Value: 40, CombineWith: "and"},
		{Field: "metadata.source", Operator: models.OperatorEquals, Value: "api", CombineWith: "or"},
	}

	ok, err := EvaluateConditions(conditions, testContext())

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvaluateConditionsDefaultCombinatorIsAnd(t *testing.T) {
	conditions := []models.Condition{
		{Field: "input.score", Operator: models.OperatorGreater, Value: 40},
		{Field: "input.vertical", Operator: models.OperatorEquals, Value: "finance"},
	}

	ok, err := EvaluateConditions(conditions, testContext())

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateConditionsErrors(t *testing.T) {
	t.Run("unknown operator", func(t *testing.T) {
		_, err := EvaluateConditions([]models.Condition{
			{Field: "input.score", Operator: "~", Value: 1},
		}, testContext())

		assert.Error(t, err)
	})

	t.Run("unknown combinator", func(t *testing.T) {
		_, err := EvaluateConditions([]models.Condition{
			{Field: "input.score", Operator: models.OperatorExists},
			{Field: "input.score", Operator: models.OperatorExists, CombineWith: "xor"},
		}, testContext())

		assert.Error(t, err)
	})

	t.Run("non-numeric comparison", func(t *testing.T) {
		_, err := EvaluateConditions([]models.Condition{
			{Field: "input.vertical", Operator: models.OperatorGreater, Value: 10},
		}, testContext())

		assert.Error(t, err)
	})

	t.Run("in without a list", func(t *testing.T) {
		_, err := EvaluateConditions([]models.Condition{
			{Field: "input.vertical", Operator: models.OperatorIn, Value: "healthcare"},
		}, testContext())

		assert.Error(t, err)
	})
}
