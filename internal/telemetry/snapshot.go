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

// Package telemetry computes rolling cost/savings summaries from the
// analysis tool's usage data, preferring a live CLI query and falling back
// to reading the data file directly.
package telemetry

import "time"

// Window is the rolling aggregation window.
const Window = 7 * 24 * time.Hour

// ProviderStat summarizes usage for one provider inside the window.
type ProviderStat struct {
	Requests int     `json:"requests"`
	Cost     float64 `json:"cost"`
}

// TierStat summarizes usage for one tier inside the window.
type TierStat struct {
	Requests int     `json:"requests"`
	Cost     float64 `json:"cost"`
	Savings  float64 `json:"savings"`
}

// DailyPoint is one day of the daily series, date formatted 2006-01-02.
type DailyPoint struct {
	Date    string  `json:"date"`
	Cost    float64 `json:"cost"`
	Savings float64 `json:"savings"`
}

// Snapshot is a derived value, rebuilt wholesale on every refresh so it can
// never drift from the source data.
type Snapshot struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	TotalCost    float64 `json:"total_cost"`
	TotalSavings float64 `json:"total_savings"`

	// SavingsPercent is round(100*savings/baseline); zero when the
	// baseline is zero.
	SavingsPercent int `json:"savings_percent"`

	ByProvider map[string]ProviderStat `json:"by_provider"`
	ByTier     map[string]TierStat     `json:"by_tier"`

	// DailySeries is sorted ascending by date.
	DailySeries []DailyPoint `json:"daily_series"`
}

// Empty reports whether the snapshot carries no usage at all.
func (s *Snapshot) Empty() bool {
	return s.TotalCost == 0 && s.TotalSavings == 0 && len(s.DailySeries) == 0
}
