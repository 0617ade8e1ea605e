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
	"fmt"
	"sort"
	"strings"

	"github.com/attuneai/attune/internal/report"
)

// DocumentMarkdown formats a report's fields as a markdown document for
// the full-document surface. Sections are emitted only when their backing
// field is present; a report with no fields degrades to the raw output.
func DocumentMarkdown(rep *report.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", rep.WorkflowID)
	if rep.Status == report.StatusFailure {
		if rep.TimedOut {
			b.WriteString("> Run timed out.\n\n")
		} else {
			b.WriteString("> Run failed.\n\n")
		}
	}

	if s := rep.String(report.FieldSummary); s != "" {
		b.WriteString("## Summary\n\n")
		b.WriteString(s)
		b.WriteString("\n\n")
	}

	if findings, ok := rep.Fields[report.FieldFindings].([]any); ok && len(findings) > 0 {
		b.WriteString("## Findings\n\n")
		for _, f := range findings {
			writeFinding(&b, f)
		}
		b.WriteString("\n")
	}

	if recs := recommendations(rep); len(recs) > 0 {
		b.WriteString("## Recommendations\n\n")
		for _, rec := range recs {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	if metrics, ok := rep.Fields[report.FieldMetrics].(map[string]any); ok && len(metrics) > 0 {
		b.WriteString("## Metrics\n\n")
		b.WriteString("| Metric | Value |\n|---|---|\n")
		keys := make([]string, 0, len(metrics))
		for k := range metrics {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "| %s | %v |\n", k, metrics[k])
		}
		b.WriteString("\n")
	}

	writeChecklist(&b, rep)

	if len(rep.Fields) == 0 && rep.RawOutput != "" {
		b.WriteString("## Output\n\n```\n")
		b.WriteString(strings.TrimRight(rep.RawOutput, "\n"))
		b.WriteString("\n```\n")
	}

	return b.String()
}

// writeFinding renders one findings entry. Structured entries get a
// severity-prefixed bullet; anything else is stringified.
func writeFinding(b *strings.Builder, f any) {
	m, ok := f.(map[string]any)
	if !ok {
		fmt.Fprintf(b, "- %v\n", f)
		return
	}

	title, _ := m["title"].(string)
	if title == "" {
		if desc, ok := m["description"].(string); ok {
			title = desc
		} else {
			title = fmt.Sprintf("%v", m)
		}
	}
	if severity, ok := m["severity"].(string); ok && severity != "" {
		fmt.Fprintf(b, "- **%s**: %s\n", strings.ToUpper(severity), title)
		return
	}
	fmt.Fprintf(b, "- %s\n", title)
}

// recommendations pulls recommendation strings out of the extra bucket;
// tools that emit them do so as a top-level list.
func recommendations(rep *report.Report) []string {
	extra, ok := rep.Fields[report.FieldExtra].(map[string]any)
	if !ok {
		return nil
	}
	list, ok := extra["recommendations"].([]any)
	if !ok {
		return nil
	}

	var recs []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			recs = append(recs, s)
		}
	}
	return recs
}

func writeChecklist(b *strings.Builder, rep *report.Report) {
	switch checklist := rep.Fields[report.FieldChecklist].(type) {
	case []any:
		if len(checklist) == 0 {
			return
		}
		b.WriteString("## Checklist\n\n")
		for _, item := range checklist {
			fmt.Fprintf(b, "- [ ] %v\n", item)
		}
		b.WriteString("\n")
	case map[string]any:
		if len(checklist) == 0 {
			return
		}
		b.WriteString("## Checklist\n\n")
		keys := make([]string, 0, len(checklist))
		for k := range checklist {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			mark := " "
			if done, ok := checklist[k].(bool); ok && done {
				mark = "x"
			}
			fmt.Fprintf(b, "- [%s] %s\n", mark, k)
		}
		b.WriteString("\n")
	}
}
