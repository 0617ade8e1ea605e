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

// Package metrics holds the Prometheus instrumentation for the engine.
// Collectors register on the default registry; the serve command exposes
// them at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_runs_started_total",
			Help: "Total workflow runs started, by workflow",
		},
		[]string{"workflow"},
	)

	runsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_runs_completed_total",
			Help: "Total workflow runs completed, by workflow and status",
		},
		[]string{"workflow", "status"},
	)

	runsRejectedBusy = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_runs_rejected_busy_total",
			Help: "Total submissions rejected because the workflow was already running",
		},
		[]string{"workflow"},
	)

	staleResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_stale_results_total",
			Help: "Total completed runs discarded because a newer generation superseded them",
		},
		[]string{"workflow"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attune_run_duration_seconds",
			Help:    "Workflow run duration from spawn to interpretation",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"workflow"},
	)

	telemetryRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attune_telemetry_refreshes_total",
			Help: "Total telemetry refreshes, by source (cli, file, empty)",
		},
		[]string{"source"},
	)

	telemetryRefreshDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attune_telemetry_refresh_duration_seconds",
			Help:    "Time taken to rebuild a telemetry snapshot",
			Buckets: prometheus.DefBuckets,
		},
	)

	watcherEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attune_watcher_refreshes_total",
			Help: "Total debounced refreshes triggered by the file watcher",
		},
	)
)

// RecordRunStarted increments the started counter.
func RecordRunStarted(workflow string) {
	runsStarted.WithLabelValues(workflow).Inc()
}

// RecordRunCompleted increments the completed counter and observes duration.
func RecordRunCompleted(workflow, status string, duration time.Duration) {
	runsCompleted.WithLabelValues(workflow, status).Inc()
	runDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}

// RecordBusyRejection increments the busy rejection counter.
func RecordBusyRejection(workflow string) {
	runsRejectedBusy.WithLabelValues(workflow).Inc()
}

// RecordStaleResult increments the superseded result counter.
func RecordStaleResult(workflow string) {
	staleResults.WithLabelValues(workflow).Inc()
}

// RecordTelemetryRefresh records one snapshot rebuild.
func RecordTelemetryRefresh(source string, duration time.Duration) {
	telemetryRefreshes.WithLabelValues(source).Inc()
	telemetryRefreshDuration.Observe(duration.Seconds())
}

// RecordWatcherRefresh increments the watcher refresh counter.
func RecordWatcherRefresh() {
	watcherEvents.Inc()
}
