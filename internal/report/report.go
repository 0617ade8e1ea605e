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

// Package report normalizes heterogeneous workflow output (JSON, free
// text, or partially structured text) into a single report shape.
package report

import "time"

// Status is the overall run verdict attached to a report.
type Status string

const (
	// StatusSuccess marks a clean exit with interpretable output.
	StatusSuccess Status = "success"
	// StatusFailure marks a non-zero exit, timeout, or kill.
	StatusFailure Status = "failure"
)

// Field names the closed set of recognized report values. Anything the
// interpreter cannot place under one of these keys lands in FieldExtra
// rather than being silently misread.
type Field string

const (
	FieldSummary      Field = "summary"
	FieldFindings     Field = "findings"
	FieldVerdict      Field = "verdict"
	FieldQualityScore Field = "quality_score"
	FieldMetrics      Field = "metrics"
	FieldChecklist    Field = "checklist"
	FieldHealthScore  Field = "health_score"
	FieldGrade        Field = "grade"
	FieldCategories   Field = "categories"
	FieldCost         Field = "cost"
	FieldCoverage     Field = "coverage"
	FieldDuration     Field = "duration_ms"
	FieldIssueCount   Field = "issue_count"
	FieldAgents       Field = "agents"
	FieldBlockers     Field = "blockers"

	// FieldExtra buckets unrecognized top-level JSON keys.
	FieldExtra Field = "extra"
)

// Fields maps recognized field names to validated values. A field is
// either present with the expected type or absent entirely.
type Fields map[Field]any

// Report is the normalized result of one workflow run.
type Report struct {
	// WorkflowID identifies the workflow that produced this report.
	WorkflowID string `json:"workflow_id"`

	// Status is success or failure; process failures force failure even
	// when parsing succeeded.
	Status Status `json:"status"`

	// Fields holds the interpreted structured values.
	Fields Fields `json:"fields,omitempty"`

	// RawOutput is the unmodified stdout, always preserved as the floor.
	RawOutput string `json:"raw_output"`

	// TimedOut distinguishes timeout failures from ordinary ones.
	TimedOut bool `json:"timed_out,omitempty"`

	// Timestamp records when interpretation happened.
	Timestamp time.Time `json:"timestamp"`
}

// Has reports whether a recognized field is present.
func (r *Report) Has(f Field) bool {
	_, ok := r.Fields[f]
	return ok
}

// String returns the string value of f, or "" when absent or not a string.
func (r *Report) String(f Field) string {
	if s, ok := r.Fields[f].(string); ok {
		return s
	}
	return ""
}

// Number returns the numeric value of f and whether it is present.
// JSON numbers and regex-extracted integers are both normalized here.
func (r *Report) Number(f Field) (float64, bool) {
	switch v := r.Fields[f].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
