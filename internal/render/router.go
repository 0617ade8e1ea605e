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

// Package render decides which presentation surface a normalized report
// belongs to and prepares full-document reports for the document surface.
package render

import (
	"log/slog"
	"strings"

	"github.com/attuneai/attune/internal/report"
	"github.com/attuneai/attune/internal/workflow"
)

// Target identifies a presentation surface.
type Target string

const (
	// TargetInlinePanel renders inside the side panel.
	TargetInlinePanel Target = "inline_panel"
	// TargetFullDocument opens a generated markdown document.
	TargetFullDocument Target = "full_document"
	// TargetExternalSurface hands the report to the host's own surface.
	TargetExternalSurface Target = "external_surface"
)

// Layout selects the formatter applied on the chosen surface.
type Layout string

const (
	// LayoutGeneric is the default panel formatter.
	LayoutGeneric Layout = "generic"
	// LayoutCrew is the rich-badge layout for multi-agent composite
	// results: verdict badge, quality meter, agent list, findings
	// summary, blockers.
	LayoutCrew Layout = "crew"
	// LayoutDocument is the markdown document formatter.
	LayoutDocument Layout = "document"
)

// Decision is the routing result for one report.
type Decision struct {
	Target Target
	Layout Layout

	// Markdown is populated for full-document decisions.
	Markdown string
}

// Router maps (workflow, report) pairs to presentation decisions. Dispatch
// is classification-driven, not content-driven, with one exception: the
// crew signature always wins.
type Router struct {
	registry *workflow.Registry
	rules    *ruleSet
	logger   *slog.Logger
}

// NewRouter creates a router over the workflow registry.
func NewRouter(registry *workflow.Registry, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry: registry,
		rules:    newRuleSet(nil),
		logger:   logger.With(slog.String("component", "render")),
	}
}

// WithRules installs configured routing rules, evaluated after crew
// detection and before the static classification.
func (r *Router) WithRules(rules []Rule) *Router {
	r.rules = newRuleSet(rules)
	return r
}

// Route decides the presentation surface for rep.
//
// The crew check deliberately matches the raw output substring rather than
// parsed JSON keys: composite multi-agent results carry the signature even
// when the payload arrived wrapped in prose the JSON layers rejected.
func (r *Router) Route(workflowID string, rep *report.Report) Decision {
	if isCrewResult(rep) {
		return Decision{Target: TargetInlinePanel, Layout: LayoutCrew}
	}

	if target, ok := r.rules.evaluate(workflowID, rep, r.logger); ok {
		return r.decisionFor(target, rep)
	}

	switch r.registry.SurfaceFor(workflowID) {
	case workflow.SurfaceDocument:
		return r.decisionFor(TargetFullDocument, rep)
	case workflow.SurfaceExternal:
		return Decision{Target: TargetExternalSurface, Layout: LayoutGeneric}
	default:
		return Decision{Target: TargetInlinePanel, Layout: LayoutGeneric}
	}
}

func (r *Router) decisionFor(target Target, rep *report.Report) Decision {
	d := Decision{Target: target, Layout: LayoutGeneric}
	if target == TargetFullDocument {
		d.Layout = LayoutDocument
		d.Markdown = DocumentMarkdown(rep)
	}
	return d
}

// isCrewResult detects composite multi-agent results by signature.
func isCrewResult(rep *report.Report) bool {
	return strings.Contains(rep.RawOutput, `"verdict"`) ||
		strings.Contains(rep.RawOutput, `"quality_score"`)
}
