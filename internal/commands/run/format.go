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

package run

import (
	"fmt"
	"sort"
	"strings"

	"github.com/attuneai/attune/internal/commands/shared"
	"github.com/attuneai/attune/internal/coordinator"
	"github.com/attuneai/attune/internal/render"
	"github.com/attuneai/attune/internal/report"
)

// formatResult renders an interpreted report for the terminal, following
// the layout the router chose.
func formatResult(result *coordinator.Result) string {
	rpt := result.Report
	var b strings.Builder

	switch result.Decision.Layout {
	case render.LayoutCrew:
		formatCrew(&b, rpt)
	case render.LayoutDocument:
		// Documents print as their generated markdown.
		b.WriteString(result.Decision.Markdown)
		if !strings.HasSuffix(result.Decision.Markdown, "\n") {
			b.WriteString("\n")
		}
	default:
		formatGeneric(&b, rpt)
	}
	return b.String()
}

func formatCrew(b *strings.Builder, rpt *report.Report) {
	writeStatusLine(b, rpt)

	if verdict := rpt.String(report.FieldVerdict); verdict != "" {
		b.WriteString(shared.RenderVerdictBadge(verdict))
		b.WriteString("\n")
	}
	if score, ok := rpt.Number(report.FieldQualityScore); ok {
		fmt.Fprintf(b, "%s %s %.1f/10\n",
			shared.Bold.Render("Quality"), shared.RenderQualityMeter(score), score)
	}
	if agents, ok := rpt.Fields[report.FieldAgents].([]any); ok && len(agents) > 0 {
		b.WriteString(shared.Header.Render("Agents") + "\n")
		for _, agent := range agents {
			fmt.Fprintf(b, "  %s %v\n", shared.SymbolInfo, agent)
		}
	}
	if summary := rpt.String(report.FieldSummary); summary != "" {
		b.WriteString(summary + "\n")
	}
	if blockers, ok := rpt.Fields[report.FieldBlockers].([]any); ok && len(blockers) > 0 {
		b.WriteString(shared.StatusError.Render("Blockers") + "\n")
		for _, blocker := range blockers {
			fmt.Fprintf(b, "  %s %v\n", shared.SymbolError, blocker)
		}
	}
}

func formatGeneric(b *strings.Builder, rpt *report.Report) {
	writeStatusLine(b, rpt)

	if len(rpt.Fields) == 0 {
		// Raw floor: nothing was interpretable, show the output as-is.
		if raw := strings.TrimSpace(rpt.RawOutput); raw != "" {
			b.WriteString(raw + "\n")
		}
		return
	}

	if summary := rpt.String(report.FieldSummary); summary != "" {
		b.WriteString(summary + "\n")
	}
	if score, ok := rpt.Number(report.FieldHealthScore); ok {
		fmt.Fprintf(b, "%s %.0f/100", shared.Bold.Render("Health"), score)
		if grade := rpt.String(report.FieldGrade); grade != "" {
			fmt.Fprintf(b, " (%s)", grade)
		}
		b.WriteString("\n")
	}
	if findings, ok := rpt.Fields[report.FieldFindings].([]any); ok && len(findings) > 0 {
		b.WriteString(shared.Header.Render("Findings") + "\n")
		for _, finding := range findings {
			writeFinding(b, finding)
		}
	}
	writeScalars(b, rpt)
}

func writeStatusLine(b *strings.Builder, rpt *report.Report) {
	title := shared.Bold.Render(rpt.WorkflowID)
	switch {
	case rpt.TimedOut:
		fmt.Fprintf(b, "%s %s\n", title, shared.RenderError("timed out"))
	case rpt.Status == report.StatusSuccess:
		fmt.Fprintf(b, "%s %s\n", title, shared.RenderOK("succeeded"))
	default:
		fmt.Fprintf(b, "%s %s\n", title, shared.RenderError("failed"))
	}
}

func writeFinding(b *strings.Builder, finding any) {
	if m, ok := finding.(map[string]any); ok {
		severity, _ := m["severity"].(string)
		message, _ := m["message"].(string)
		if message == "" {
			message, _ = m["title"].(string)
		}
		symbol := shared.SymbolInfo
		switch strings.ToLower(severity) {
		case "critical", "high":
			symbol = shared.StatusError.Render(shared.SymbolError)
		case "medium", "warning":
			symbol = shared.StatusWarn.Render(shared.SymbolWarn)
		}
		fmt.Fprintf(b, "  %s %s\n", symbol, message)
		return
	}
	fmt.Fprintf(b, "  %s %v\n", shared.SymbolInfo, finding)
}

// writeScalars prints the remaining simple numeric fields as a footer.
func writeScalars(b *strings.Builder, rpt *report.Report) {
	var parts []string
	if cost, ok := rpt.Number(report.FieldCost); ok {
		parts = append(parts, fmt.Sprintf("cost $%.2f", cost))
	}
	if coverage, ok := rpt.Number(report.FieldCoverage); ok {
		parts = append(parts, fmt.Sprintf("coverage %.0f%%", coverage))
	}
	if count, ok := rpt.Number(report.FieldIssueCount); ok {
		parts = append(parts, fmt.Sprintf("%.0f issues", count))
	}
	if ms, ok := rpt.Number(report.FieldDuration); ok {
		parts = append(parts, fmt.Sprintf("%.0fms", ms))
	}
	sort.Strings(parts)
	if len(parts) > 0 {
		b.WriteString(shared.Muted.Render(strings.Join(parts, "  ")) + "\n")
	}
}
