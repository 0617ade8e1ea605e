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
	"log/slog"
	"strings"
	"time"

	"github.com/attuneai/attune/internal/jq"
	"github.com/attuneai/attune/internal/workflow"
	"github.com/attuneai/attune/pkg/process"
)

// Interpreter converts raw process outcomes into normalized reports using
// a layered strategy: strict JSON, embedded JSON, pattern extraction, raw
// fallback. First success wins; raw text is the guaranteed floor.
type Interpreter struct {
	registry *workflow.Registry
	jq       *jq.Executor
	logger   *slog.Logger
	now      func() time.Time
}

// NewInterpreter creates an interpreter bound to a workflow registry.
func NewInterpreter(registry *workflow.Registry, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{
		registry: registry,
		jq:       jq.NewExecutor(0, 0),
		logger:   logger.With(slog.String("component", "interpreter")),
		now:      time.Now,
	}
}

// WithClock overrides the timestamp source.
func (i *Interpreter) WithClock(now func() time.Time) *Interpreter {
	i.now = now
	return i
}

// Interpret produces a normalized report for one process outcome. Parse
// failures never surface as errors; they degrade tier by tier down to the
// raw-text floor. A non-zero exit or timeout forces failure status, but
// any fields that did parse are kept for diagnostics.
func (i *Interpreter) Interpret(ctx context.Context, workflowID string, outcome *process.Outcome) *Report {
	r := &Report{
		WorkflowID: workflowID,
		Status:     StatusSuccess,
		RawOutput:  outcome.Stdout,
		TimedOut:   outcome.TimedOut,
		Timestamp:  i.now(),
	}
	if !outcome.Success() {
		r.Status = StatusFailure
	}

	doc, ok := i.parseJSON(outcome.Stdout)
	if ok {
		doc = i.applyTransform(ctx, workflowID, doc)
		r.Fields = liftFields(doc)
		return r
	}

	if fields := extractPatternFields(outcome.Stdout); len(fields) > 0 {
		r.Fields = fields
		return r
	}

	// Raw fallback: no structured fields at all.
	r.Fields = Fields{}
	return r
}

// parseJSON attempts the strict parse and then the largest balanced
// object substring (informational prefix/suffix text around a JSON payload
// is common in CLI output).
func (i *Interpreter) parseJSON(raw string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, false
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(trimmed), &doc); err == nil && doc != nil {
		return doc, true
	}

	for _, candidate := range balancedObjects(trimmed) {
		var embedded map[string]any
		if err := json.Unmarshal([]byte(candidate), &embedded); err == nil && embedded != nil {
			return embedded, true
		}
	}
	return nil, false
}

// applyTransform runs the workflow's jq transform, if declared. Transform
// failures are logged and ignored; interpretation continues with the
// untransformed document.
func (i *Interpreter) applyTransform(ctx context.Context, workflowID string, doc map[string]any) map[string]any {
	def, ok := i.registry.Lookup(workflowID)
	if !ok || def.Transform == "" {
		return doc
	}

	result, err := i.jq.Execute(ctx, def.Transform, doc)
	if err != nil {
		i.logger.Warn("report transform failed",
			slog.String("workflow", workflowID),
			slog.Any("error", err))
		return doc
	}
	if transformed, ok := result.(map[string]any); ok {
		return transformed
	}
	i.logger.Warn("report transform did not yield an object",
		slog.String("workflow", workflowID))
	return doc
}

// balancedObjects returns `{...}` substrings of raw with balanced braces,
// largest first. Brace tracking is JSON-string aware so braces inside
// string values do not confuse the scan.
func balancedObjects(raw string) []string {
	var (
		candidates []string
		depth      int
		start      = -1
		inString   bool
		escaped    bool
	)

	for idx, c := range raw {
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				if depth == 0 {
					start = idx
				}
				depth++
			}
		case '}':
			if !inString && depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					candidates = append(candidates, raw[start:idx+1])
					start = -1
				}
			}
		}
	}

	// Largest first: the payload object usually dwarfs incidental ones.
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if len(candidates[j]) > len(candidates[i]) {
				candidates[i], candidates[j] = candidates[j], candidates[i]
			}
		}
	}
	return candidates
}

// liftFields validates and lifts recognized top-level keys into Fields.
// Keys with unexpected types are treated as unrecognized rather than
// half-parsed; unrecognized keys are preserved under FieldExtra.
func liftFields(doc map[string]any) Fields {
	fields := make(Fields)
	extra := make(map[string]any)

	for key, value := range doc {
		if lifted, ok := liftField(key, value); ok {
			fields[lifted.field] = lifted.value
		} else {
			extra[key] = value
		}
	}

	if len(extra) > 0 {
		fields[FieldExtra] = extra
	}
	return fields
}

type liftedField struct {
	field Field
	value any
}

// liftField maps one top-level JSON key onto the closed field set with
// type validation.
func liftField(key string, value any) (liftedField, bool) {
	switch key {
	case "summary":
		if s, ok := value.(string); ok {
			return liftedField{FieldSummary, s}, true
		}
	case "findings":
		if list, ok := value.([]any); ok {
			return liftedField{FieldFindings, list}, true
		}
	case "verdict":
		if s, ok := value.(string); ok {
			return liftedField{FieldVerdict, s}, true
		}
	case "quality_score":
		if n, ok := value.(float64); ok {
			return liftedField{FieldQualityScore, n}, true
		}
	case "metrics":
		if m, ok := value.(map[string]any); ok {
			return liftedField{FieldMetrics, m}, true
		}
	case "checklist":
		switch v := value.(type) {
		case []any:
			return liftedField{FieldChecklist, v}, true
		case map[string]any:
			return liftedField{FieldChecklist, v}, true
		}
	case "health_score", "health":
		if n, ok := value.(float64); ok {
			return liftedField{FieldHealthScore, n}, true
		}
	case "grade":
		if s, ok := value.(string); ok {
			return liftedField{FieldGrade, s}, true
		}
	case "categories":
		if m, ok := value.(map[string]any); ok {
			return liftedField{FieldCategories, m}, true
		}
	case "cost":
		if n, ok := value.(float64); ok {
			return liftedField{FieldCost, n}, true
		}
	case "coverage":
		if n, ok := value.(float64); ok {
			return liftedField{FieldCoverage, n}, true
		}
	case "duration_ms":
		if n, ok := value.(float64); ok {
			return liftedField{FieldDuration, n}, true
		}
	case "issue_count":
		if n, ok := value.(float64); ok {
			return liftedField{FieldIssueCount, n}, true
		}
	case "agents":
		if list, ok := value.([]any); ok {
			return liftedField{FieldAgents, list}, true
		}
	case "blockers":
		if list, ok := value.([]any); ok {
			return liftedField{FieldBlockers, list}, true
		}
	}
	return liftedField{}, false
}
