package hmistyle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeEval_BooleanArithmetic(t *testing.T) {
	val, err := SafeEval("a > 5 and b < 10", map[string]any{"a": 6, "b": 9})
	require.NoError(t, err)
	assert.Equal(t, true, val)
}

func TestSafeEval_Expressions(t *testing.T) {
	vars := map[string]any{"a": 6.0, "b": 9.0, "on": true}
	tests := []struct {
		expr string
		want any
	}{
		{"a + b", 15.0},
		{"a * 2 - b", 3.0},
		{"a == 6 or b == 0", true},
		{"not on", false},
		{"a >= 6 and a <= 6", true},
		{"-a < 0", true},
		{"(a + b) > 14", true},
		{"a != b", true},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			val, err := SafeEval(tt.expr, vars)
			require.NoError(t, err)
			assert.Equal(t, tt.want, val)
		})
	}
}

func TestSafeEval_InvalidSyntax(t *testing.T) {
	val, err := SafeEval("a >", map[string]any{"a": 1})
	assert.Nil(t, val)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid expression syntax")
}

func TestSafeEval_UnknownVariable(t *testing.T) {
	val, err := SafeEval("x + 1", map[string]any{"a": 1})
	assert.Nil(t, val)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "x")
	assert.Contains(t, err.Error(), "Unknown variable")
}

func TestSafeEval_DisallowedConstructs(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		message string
	}{
		{"call", "foo(1)", "Function calls are not allowed"},
		{"sandbox escape", "__import__('os')", "Function calls are not allowed"},
		{"attribute access", "a.b > 1", "Attribute access is not allowed"},
		{"index", "a[1]", "Subscripting is not allowed"},
		{"slice", "a[1:2]", "Subscripting is not allowed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			val, err := SafeEval(tt.expr, map[string]any{"a": 1})
			assert.Nil(t, val)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestSafeEval_DivisionByZero(t *testing.T) {
	val, err := SafeEval("a / b", map[string]any{"a": 1, "b": 0})
	assert.Nil(t, val)
	require.Error(t, err)
}

func TestSafeEval_EmptyExpression(t *testing.T) {
	val, err := SafeEval("", map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, val)
}

func TestSafeEval_CachedExpressionReevaluates(t *testing.T) {
	ev := NewSafeEvaluator()
	val, err := ev.Evaluate("a > 5", map[string]any{"a": 6})
	require.NoError(t, err)
	assert.Equal(t, true, val)

	val, err = ev.Evaluate("a > 5", map[string]any{"a": 3})
	require.NoError(t, err)
	assert.Equal(t, false, val)

	// the cached program still enforces the variable check
	_, err = ev.Evaluate("a > 5", map[string]any{"b": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown variable 'a'")
}

func TestIsConditionTrue(t *testing.T) {
	ev := NewSafeEvaluator()
	ok, err := ev.IsConditionTrue("level > 80", map[string]any{"level": 90})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ev.IsConditionTrue("level", map[string]any{"level": 0})
	require.NoError(t, err)
	assert.False(t, ok)
}
