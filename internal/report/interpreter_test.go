// Copyright 2026 The Attune Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attuneai/attune/internal/workflow"
	"github.com/attuneai/attune/pkg/process"
)

func fixedClock() time.Time {
	return time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
}

func newTestInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	return NewInterpreter(workflow.NewRegistry(), nil).WithClock(fixedClock)
}

func okOutcome(stdout string) *process.Outcome {
	code := 0
	return &process.Outcome{ExitCode: &code, Stdout: stdout}
}

func TestInterpretStrictJSON(t *testing.T) {
	i := newTestInterpreter(t)

	payload := map[string]any{
		"summary":       "all clear",
		"findings":      []any{map[string]any{"severity": "low", "title": "X"}},
		"verdict":       "approve",
		"quality_score": 92.0,
		"custom_key":    "kept",
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	r := i.Interpret(context.Background(), "code-review", okOutcome(string(raw)))

	assert.Equal(t, StatusSuccess, r.Status)
	assert.Equal(t, "all clear", r.String(FieldSummary))
	assert.Equal(t, "approve", r.String(FieldVerdict))

	score, ok := r.Number(FieldQualityScore)
	require.True(t, ok)
	assert.Equal(t, 92.0, score)

	findings, ok := r.Fields[FieldFindings].([]any)
	require.True(t, ok)
	assert.Len(t, findings, 1)

	extra, ok := r.Fields[FieldExtra].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "kept", extra["custom_key"])
}

func TestInterpretRoundTripRecognizedKeys(t *testing.T) {
	i := newTestInterpreter(t)

	payload := map[string]any{
		"summary":   "ok",
		"grade":     "A",
		"metrics":   map[string]any{"files": 12.0},
		"checklist": []any{"lint", "vet"},
		"coverage":  83.5,
	}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	r := i.Interpret(context.Background(), "health-check", okOutcome(string(raw)))

	for key, want := range payload {
		got, ok := r.Fields[Field(key)]
		require.True(t, ok, "missing field %s", key)
		assert.Equal(t, want, got)
	}
	assert.False(t, r.Has(FieldExtra))
}

func TestInterpretEmbeddedJSON(t *testing.T) {
	i := newTestInterpreter(t)

	stdout := "Running analysis...\nnote: {\"skip\": true}\n" +
		`{"summary": "embedded payload", "verdict": "approve", "detail": "has {braces} inside"}` +
		"\ndone.\n"

	r := i.Interpret(context.Background(), "security-audit", okOutcome(stdout))

	assert.Equal(t, "embedded payload", r.String(FieldSummary))
	assert.Equal(t, "approve", r.String(FieldVerdict))
}

func TestInterpretPatternExtraction(t *testing.T) {
	i := newTestInterpreter(t)

	r := i.Interpret(context.Background(), "health-check",
		okOutcome("Health Score: 💯 87/100\nGrade: B\n"))

	assert.Equal(t, 87, r.Fields[FieldHealthScore])
	assert.Equal(t, "B", r.Fields[FieldGrade])
	assert.Equal(t, StatusSuccess, r.Status)
}

func TestInterpretPatternTable(t *testing.T) {
	i := newTestInterpreter(t)

	stdout := "Scan complete.\nCost: $1.25\nDuration: 140ms\nCoverage: 83%\n3 issues found\n"
	r := i.Interpret(context.Background(), "cost-estimate", okOutcome(stdout))

	assert.Equal(t, 1.25, r.Fields[FieldCost])
	assert.Equal(t, 140, r.Fields[FieldDuration])
	assert.Equal(t, 83.0, r.Fields[FieldCoverage])
	assert.Equal(t, 3, r.Fields[FieldIssueCount])
}

func TestInterpretRawFallback(t *testing.T) {
	i := newTestInterpreter(t)

	stdout := "nothing structured here at all"
	r := i.Interpret(context.Background(), "cost-estimate", okOutcome(stdout))

	assert.Empty(t, r.Fields)
	assert.Equal(t, stdout, r.RawOutput)
	assert.Equal(t, StatusSuccess, r.Status)
}

func TestInterpretFailureKeepsFields(t *testing.T) {
	i := newTestInterpreter(t)

	code := 2
	outcome := &process.Outcome{
		ExitCode: &code,
		Stdout:   `{"summary": "partial diagnostics"}`,
	}
	r := i.Interpret(context.Background(), "security-audit", outcome)

	assert.Equal(t, StatusFailure, r.Status)
	assert.Equal(t, "partial diagnostics", r.String(FieldSummary))
}

func TestInterpretTimeoutIsFailure(t *testing.T) {
	i := newTestInterpreter(t)

	r := i.Interpret(context.Background(), "security-audit",
		&process.Outcome{TimedOut: true, Stdout: "partial..."})

	assert.Equal(t, StatusFailure, r.Status)
	assert.True(t, r.TimedOut)
}

func TestInterpretRejectsWrongTypes(t *testing.T) {
	i := newTestInterpreter(t)

	// summary must be a string; a numeric summary lands in extra instead.
	r := i.Interpret(context.Background(), "health-check",
		okOutcome(`{"summary": 42, "grade": "A"}`))

	assert.False(t, r.Has(FieldSummary))
	assert.Equal(t, "A", r.String(FieldGrade))

	extra, ok := r.Fields[FieldExtra].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 42.0, extra["summary"])
}

func TestInterpretIdempotent(t *testing.T) {
	i := newTestInterpreter(t)
	outcome := okOutcome("Health Score: 87/100\nGrade: B\nCost: $0.40\n")

	first := i.Interpret(context.Background(), "health-check", outcome)
	second := i.Interpret(context.Background(), "health-check", outcome)

	assert.Equal(t, first, second)
}

func TestInterpretAppliesTransform(t *testing.T) {
	registry := workflow.NewRegistry()
	registry.Merge([]workflow.Definition{{
		ID:        "wrapped-audit",
		Name:      "Wrapped Audit",
		Args:      []string{"audit"},
		Transform: ".result",
	}})
	i := NewInterpreter(registry, nil).WithClock(fixedClock)

	stdout := `{"result": {"summary": "unwrapped", "verdict": "approve"}}`
	r := i.Interpret(context.Background(), "wrapped-audit", okOutcome(stdout))

	assert.Equal(t, "unwrapped", r.String(FieldSummary))
	assert.Equal(t, "approve", r.String(FieldVerdict))
}

func TestBalancedObjectsLargestFirst(t *testing.T) {
	raw := `x {"a":1} y {"b": {"c": 2}, "d": 3} z`
	got := balancedObjects(raw)

	require.Len(t, got, 2)
	assert.Equal(t, `{"b": {"c": 2}, "d": 3}`, got[0])
	assert.Equal(t, `{"a":1}`, got[1])
}
