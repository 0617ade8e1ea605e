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

package render

import (
	"log/slog"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/attuneai/attune/internal/report"
)

// Rule is a configured routing override. When compiles to a boolean
// expression evaluated against the report context:
//
//	workflow  the workflow ID
//	status    "success" or "failure"
//	fields    the report's field map
//
// Example: `status == "failure" && workflow == "security-audit"`.
type Rule struct {
	// When is the boolean expr condition.
	When string `yaml:"when"`

	// Target names the surface: inline_panel, full_document, external_surface.
	Target Target `yaml:"target"`
}

// ruleSet holds compiled rules; first match wins.
type ruleSet struct {
	rules    []Rule
	programs []*vm.Program
}

func newRuleSet(rules []Rule) *ruleSet {
	rs := &ruleSet{}
	for _, rule := range rules {
		program, err := expr.Compile(rule.When)
		if err != nil {
			// Broken rules are skipped at install time, not at
			// route time.
			slog.Default().Warn("skipping unparsable routing rule",
				slog.String("when", rule.When),
				slog.Any("error", err))
			continue
		}
		rs.rules = append(rs.rules, rule)
		rs.programs = append(rs.programs, program)
	}
	return rs
}

// evaluate runs rules in order against the report. Evaluation errors and
// non-boolean results disqualify the rule for this report only.
func (rs *ruleSet) evaluate(workflowID string, rep *report.Report, logger *slog.Logger) (Target, bool) {
	if len(rs.rules) == 0 {
		return "", false
	}

	fields := make(map[string]any, len(rep.Fields))
	for k, v := range rep.Fields {
		fields[string(k)] = v
	}
	env := map[string]any{
		"workflow": workflowID,
		"status":   string(rep.Status),
		"fields":   fields,
	}

	for i, program := range rs.programs {
		result, err := expr.Run(program, env)
		if err != nil {
			logger.Debug("routing rule evaluation failed",
				slog.String("when", rs.rules[i].When),
				slog.Any("error", err))
			continue
		}
		if matched, ok := result.(bool); ok && matched {
			return rs.rules[i].Target, true
		}
	}
	return "", false
}
