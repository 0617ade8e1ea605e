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

package shared

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// CLI style colors using lipgloss
var (
	// StatusOK styles success indicators
	StatusOK = lipgloss.NewStyle().Foreground(lipgloss.Color("42")) // green

	// StatusWarn styles warning indicators
	StatusWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("214")) // orange

	// StatusError styles error indicators
	StatusError = lipgloss.NewStyle().Foreground(lipgloss.Color("196")) // red

	// StatusInfo styles informational text
	StatusInfo = lipgloss.NewStyle().Foreground(lipgloss.Color("39")) // blue

	// Muted styles secondary text
	Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("245")) // gray

	// Bold styles emphasized text
	Bold = lipgloss.NewStyle().Bold(true)

	// Header styles section headers
	Header = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

	// BadgePass styles an approving verdict badge
	BadgePass = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("0")).Background(lipgloss.Color("42")).Padding(0, 1)

	// BadgeFail styles a rejecting verdict badge
	BadgeFail = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("15")).Background(lipgloss.Color("196")).Padding(0, 1)

	// BadgeNeutral styles any other verdict badge
	BadgeNeutral = lipgloss.NewStyle().Bold(true).
			Foreground(lipgloss.Color("0")).Background(lipgloss.Color("214")).Padding(0, 1)
)

// Symbols for status indicators
const (
	SymbolOK    = "✓"
	SymbolWarn  = "⚠"
	SymbolError = "✗"
	SymbolInfo  = "•"
)

// RenderOK renders a success message with a green checkmark.
func RenderOK(msg string) string {
	return StatusOK.Render(SymbolOK) + " " + msg
}

// RenderWarn renders a warning message.
func RenderWarn(msg string) string {
	return StatusWarn.Render(SymbolWarn) + " " + msg
}

// RenderError renders an error message.
func RenderError(msg string) string {
	return StatusError.Render(SymbolError) + " " + msg
}

// RenderStatusLabel renders a run status as a colored label.
func RenderStatusLabel(status string) string {
	if status == "success" {
		return StatusOK.Render("[ok]  ")
	}
	return StatusError.Render("[fail]")
}

// RenderVerdictBadge renders a colored badge for a crew verdict.
func RenderVerdictBadge(verdict string) string {
	label := strings.ToUpper(verdict)
	switch strings.ToLower(verdict) {
	case "approve", "approved", "pass", "passed", "ship":
		return BadgePass.Render(label)
	case "reject", "rejected", "fail", "failed", "block":
		return BadgeFail.Render(label)
	default:
		return BadgeNeutral.Render(label)
	}
}

// RenderQualityMeter renders a ten-segment meter for a 0-10 quality score.
func RenderQualityMeter(score float64) string {
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	filled := int(score + 0.5)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
	style := StatusOK
	switch {
	case score < 4:
		style = StatusError
	case score < 7:
		style = StatusWarn
	}
	return style.Render(bar)
}
