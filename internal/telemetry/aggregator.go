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

package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"os"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/attuneai/attune/internal/metrics"
	"github.com/attuneai/attune/pkg/process"
)

const (
	// DefaultCLITimeout bounds the live query so a wedged analysis tool
	// cannot stall a refresh.
	DefaultCLITimeout = 10 * time.Second

	dateLayout = "2006-01-02"
)

// sourceData mirrors the analysis tool's on-disk usage format. Both the CLI
// JSON output and the fallback file decode into it. Entries are kept raw so
// a single malformed record is skipped instead of failing the whole decode.
type sourceData struct {
	DailyTotals map[string]json.RawMessage `json:"daily_totals"`
	Requests    []json.RawMessage          `json:"requests"`
}

type dailyTotal struct {
	ActualCost   float64 `json:"actual_cost"`
	Savings      float64 `json:"savings"`
	BaselineCost float64 `json:"baseline_cost"`
}

type requestEntry struct {
	Timestamp  string  `json:"timestamp"`
	Tier       string  `json:"tier"`
	Provider   string  `json:"provider"`
	ActualCost float64 `json:"actual_cost"`
	Savings    float64 `json:"savings"`
}

// Aggregator turns raw usage data into Snapshots. It holds no derived state
// between refreshes.
type Aggregator struct {
	exec     *process.Executor
	logger   *slog.Logger
	filePath string

	cliBinary  string
	cliArgs    []string
	cliTimeout time.Duration

	now func() time.Time
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCLI enables the live query path. Binary empty disables it, leaving the
// file fallback only.
func WithCLI(binary string, args ...string) Option {
	return func(a *Aggregator) {
		a.cliBinary = binary
		a.cliArgs = args
	}
}

// WithCLITimeout overrides the live query timeout.
func WithCLITimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.cliTimeout = d
		}
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// NewAggregator builds an aggregator reading from filePath when the CLI path
// is unavailable or fails.
func NewAggregator(exec *process.Executor, filePath string, logger *slog.Logger, opts ...Option) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{
		exec:       exec,
		logger:     logger.With("component", "telemetry"),
		filePath:   filePath,
		cliTimeout: DefaultCLITimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Refresh rebuilds a snapshot from scratch. It never returns an error:
// acquisition failures degrade to the next source, and with no source at all
// the result is an empty snapshot over the current window.
func (a *Aggregator) Refresh(ctx context.Context) *Snapshot {
	ctx, span := otel.Tracer("telemetry").Start(ctx, "telemetry.refresh")
	defer span.End()

	started := time.Now()
	data, source := a.acquire(ctx)
	snap := a.fold(data)
	metrics.RecordTelemetryRefresh(source, time.Since(started))
	span.SetAttributes(attribute.String("telemetry.source", source))
	a.logger.Debug("telemetry refreshed",
		"source", source,
		"total_cost", snap.TotalCost,
		"savings_percent", snap.SavingsPercent,
	)
	return snap
}

// acquire tries the CLI first, then the data file. Either failure is logged
// at debug and degrades silently.
func (a *Aggregator) acquire(ctx context.Context) (*sourceData, string) {
	if a.cliBinary != "" && a.exec != nil {
		if data := a.acquireCLI(ctx); data != nil {
			return data, "cli"
		}
	}
	if data := a.acquireFile(); data != nil {
		return data, "file"
	}
	return &sourceData{}, "empty"
}

func (a *Aggregator) acquireCLI(ctx context.Context) *sourceData {
	outcome, err := a.exec.Execute(ctx, process.Spec{
		Binary:  a.cliBinary,
		Args:    a.cliArgs,
		Timeout: a.cliTimeout,
	})
	if err != nil || !outcome.Success() {
		a.logger.Debug("telemetry cli query failed, falling back to file", "binary", a.cliBinary)
		return nil
	}
	var data sourceData
	if err := json.Unmarshal([]byte(outcome.Stdout), &data); err != nil {
		a.logger.Debug("telemetry cli output not valid json", "binary", a.cliBinary)
		return nil
	}
	return &data
}

func (a *Aggregator) acquireFile() *sourceData {
	raw, err := os.ReadFile(a.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			a.logger.Debug("telemetry file unreadable", "path", a.filePath)
		}
		return nil
	}
	var data sourceData
	if err := json.Unmarshal(raw, &data); err != nil {
		a.logger.Warn("telemetry file is not valid json", "path", a.filePath)
		return nil
	}
	return &data
}

// fold recomputes every total from the source data. Entries that fail to
// decode or carry unparseable dates are skipped; everything else inside the
// rolling window contributes.
func (a *Aggregator) fold(data *sourceData) *Snapshot {
	end := a.now()
	start := end.Add(-Window)
	// Both folds align to the calendar day so the daily totals and the
	// per-request breakdowns always cover the same set of days.
	windowFloor := start.Truncate(24 * time.Hour)

	snap := &Snapshot{
		WindowStart: start,
		WindowEnd:   end,
		ByProvider:  make(map[string]ProviderStat),
		ByTier:      make(map[string]TierStat),
	}

	var baseline float64
	for date, raw := range data.DailyTotals {
		day, err := time.Parse(dateLayout, date)
		if err != nil {
			a.logger.Debug("skipping daily total with bad date", "date", date)
			continue
		}
		if day.Before(windowFloor) {
			continue
		}
		var total dailyTotal
		if err := json.Unmarshal(raw, &total); err != nil {
			a.logger.Debug("skipping malformed daily total", "date", date)
			continue
		}
		snap.TotalCost += total.ActualCost
		snap.TotalSavings += total.Savings
		baseline += total.BaselineCost
		snap.DailySeries = append(snap.DailySeries, DailyPoint{
			Date:    date,
			Cost:    total.ActualCost,
			Savings: total.Savings,
		})
	}
	sort.Slice(snap.DailySeries, func(i, j int) bool {
		return snap.DailySeries[i].Date < snap.DailySeries[j].Date
	})

	for _, raw := range data.Requests {
		var req requestEntry
		if err := json.Unmarshal(raw, &req); err != nil {
			a.logger.Debug("skipping malformed request entry")
			continue
		}
		ts, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			a.logger.Debug("skipping request with bad timestamp", "timestamp", req.Timestamp)
			continue
		}
		if ts.Before(windowFloor) {
			continue
		}
		if req.Provider != "" {
			stat := snap.ByProvider[req.Provider]
			stat.Requests++
			stat.Cost += req.ActualCost
			snap.ByProvider[req.Provider] = stat
		}
		if req.Tier != "" {
			stat := snap.ByTier[req.Tier]
			stat.Requests++
			stat.Cost += req.ActualCost
			stat.Savings += req.Savings
			snap.ByTier[req.Tier] = stat
		}
	}

	if baseline > 0 {
		snap.SavingsPercent = int(math.Round(100 * snap.TotalSavings / baseline))
	}
	return snap
}
