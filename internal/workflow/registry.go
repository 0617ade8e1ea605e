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

// Package workflow holds the registry of named analysis workflows: how each
// one is invoked and which presentation surface its reports belong to.
package workflow

import (
	"sort"
	"sync"
	"time"
)

// Surface classifies where a workflow's report is rendered.
type Surface string

const (
	// SurfaceInline renders inside the side panel.
	SurfaceInline Surface = "inline"
	// SurfaceDocument renders as a full markdown document.
	SurfaceDocument Surface = "document"
	// SurfaceExternal hands the report to the host's error surface.
	SurfaceExternal Surface = "external"
)

// JSONOutputFlag is appended to the argv of workflows that declare
// structured output support.
const JSONOutputFlag = "--output-format=json"

// Definition describes one named workflow.
type Definition struct {
	// ID is the stable workflow identifier (e.g., "security-audit").
	ID string `yaml:"id"`

	// Name is the human-readable workflow name.
	Name string `yaml:"name"`

	// Args is the base argument array passed to the analysis binary.
	Args []string `yaml:"args"`

	// Binary overrides the default analysis binary when non-empty.
	Binary string `yaml:"binary,omitempty"`

	// SupportsJSON marks workflows that honor the structured-output flag.
	SupportsJSON bool `yaml:"supports_json"`

	// Surface is the static render classification.
	Surface Surface `yaml:"surface"`

	// Transform is an optional jq expression applied to parsed JSON
	// output before field lifting.
	Transform string `yaml:"transform,omitempty"`

	// Timeout overrides the default run timeout when positive.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Argv returns the full argument array for a run, appending the input
// scope (when present) and the structured-output flag for workflows that
// support it.
func (d *Definition) Argv(input string) []string {
	args := make([]string, 0, len(d.Args)+2)
	args = append(args, d.Args...)
	if input != "" {
		args = append(args, input)
	}
	if d.SupportsJSON {
		args = append(args, JSONOutputFlag)
	}
	return args
}

// Registry resolves workflow IDs to definitions. Built-in definitions can
// be overridden or extended from configuration; user entries win on ID
// collisions.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewRegistry creates a registry seeded with the built-in workflows.
func NewRegistry() *Registry {
	r := &Registry{defs: make(map[string]Definition)}
	for _, d := range builtinDefinitions() {
		r.defs[d.ID] = d
	}
	return r
}

// Merge applies user-provided definitions over the built-ins.
func (r *Registry) Merge(defs []Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range defs {
		if d.ID == "" {
			continue
		}
		if d.Surface == "" {
			d.Surface = SurfaceInline
		}
		r.defs[d.ID] = d
	}
}

// Lookup returns the definition for id and whether it is known.
func (r *Registry) Lookup(id string) (Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[id]
	return d, ok
}

// SurfaceFor returns the render classification for id. Unknown workflows
// default to the inline panel.
func (r *Registry) SurfaceFor(id string) Surface {
	if d, ok := r.Lookup(id); ok {
		return d.Surface
	}
	return SurfaceInline
}

// List returns all definitions sorted by ID.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// builtinDefinitions returns the default workflow set.
func builtinDefinitions() []Definition {
	return []Definition{
		{
			ID:           "security-audit",
			Name:         "Security Audit",
			Args:         []string{"audit", "security"},
			SupportsJSON: true,
			Surface:      SurfaceDocument,
		},
		{
			ID:           "health-check",
			Name:         "Project Health Check",
			Args:         []string{"check", "health"},
			SupportsJSON: true,
			Surface:      SurfaceInline,
		},
		{
			ID:           "code-review",
			Name:         "Code Review",
			Args:         []string{"review"},
			SupportsJSON: true,
			Surface:      SurfaceDocument,
		},
		{
			ID:      "cost-estimate",
			Name:    "Cost Estimate",
			Args:    []string{"cost", "estimate"},
			Surface: SurfaceInline,
		},
		{
			ID:           "crew-review",
			Name:         "Crew Review",
			Args:         []string{"crew", "review"},
			SupportsJSON: true,
			Surface:      SurfaceInline,
		},
	}
}
