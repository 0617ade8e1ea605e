package jq

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteEmptyExpressionPassthrough(t *testing.T) {
	e := NewExecutor(0, 0)
	data := map[string]interface{}{"a": 1.0}

	result, err := e.Execute(context.Background(), "", data)
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestExecuteSimpleSelection(t *testing.T) {
	e := NewExecutor(0, 0)
	data := map[string]interface{}{
		"report": map[string]interface{}{"verdict": "approve"},
	}

	result, err := e.Execute(context.Background(), ".report", data)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"verdict": "approve"}, result)
}

func TestExecuteMultipleResultsReturnArray(t *testing.T) {
	e := NewExecutor(0, 0)
	data := map[string]interface{}{
		"findings": []interface{}{"a", "b"},
	}

	result, err := e.Execute(context.Background(), ".findings[]", data)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{"a", "b"}, result)
}

func TestExecuteParseError(t *testing.T) {
	e := NewExecutor(0, 0)

	_, err := e.Execute(context.Background(), ".[broken", map[string]interface{}{})
	assert.Error(t, err)
}

func TestExecuteInputSizeLimit(t *testing.T) {
	e := NewExecutor(time.Second, 8)

	_, err := e.Execute(context.Background(), ".", map[string]interface{}{"key": "a long enough value"})
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	e := NewExecutor(0, 0)

	assert.NoError(t, e.Validate(""))
	assert.NoError(t, e.Validate(".summary"))
	assert.Error(t, e.Validate(".[broken"))
}
