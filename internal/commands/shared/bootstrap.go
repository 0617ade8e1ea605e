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
	"log/slog"

	"github.com/attuneai/attune/internal/config"
	"github.com/attuneai/attune/internal/coordinator"
	"github.com/attuneai/attune/internal/history"
	"github.com/attuneai/attune/internal/log"
	"github.com/attuneai/attune/internal/render"
	"github.com/attuneai/attune/internal/report"
	"github.com/attuneai/attune/internal/secrets"
	"github.com/attuneai/attune/internal/telemetry"
	"github.com/attuneai/attune/internal/workflow"
	"github.com/attuneai/attune/pkg/process"
)

// Engine bundles the assembled pipeline for the CLI commands.
type Engine struct {
	Config      *config.Config
	Registry    *workflow.Registry
	Coordinator *coordinator.Coordinator
	Telemetry   *telemetry.Aggregator
	History     *history.Store
	Logger      *slog.Logger
}

// BuildEngine assembles the full pipeline from configuration. History store
// failures degrade to running without persistence rather than refusing to
// start.
func BuildEngine(cfg *config.Config, logger *slog.Logger, opts ...coordinator.Option) (*Engine, error) {
	registry := workflow.NewRegistry()
	registry.Merge(cfg.Workflows)

	interp := report.NewInterpreter(registry, logger)
	router := render.NewRouter(registry, logger).WithRules(cfg.RoutingRules)
	exec := process.NewExecutor(logger)

	var store *history.Store
	if path, err := cfg.HistoryPath(); err == nil {
		store, err = history.Open(path)
		if err != nil {
			logger.Warn("history store unavailable, continuing without persistence", log.Error(err))
			store = nil
		}
	} else {
		logger.Warn("could not resolve history path", log.Error(err))
	}

	coordOpts := make([]coordinator.Option, 0, len(opts)+2)
	if store != nil {
		coordOpts = append(coordOpts, coordinator.WithHistory(store))
	}
	coordOpts = append(coordOpts, coordinator.WithEnvProvider(secrets.NewKeychain()))
	coordOpts = append(coordOpts, opts...)

	coord := coordinator.New(registry, exec, interp, router, coordinator.Config{
		DefaultBinary: cfg.Binary,
		WorkDir:       cfg.WorkDir,
	}, logger, coordOpts...)

	var telOpts []telemetry.Option
	if cfg.Telemetry.CLIBinary != "" {
		telOpts = append(telOpts, telemetry.WithCLI(cfg.Telemetry.CLIBinary, cfg.Telemetry.CLIArgs...))
	}
	agg := telemetry.NewAggregator(exec, cfg.Telemetry.DataFile, logger, telOpts...)

	return &Engine{
		Config:      cfg,
		Registry:    registry,
		Coordinator: coord,
		Telemetry:   agg,
		History:     store,
		Logger:      logger,
	}, nil
}

// Close releases engine resources.
func (e *Engine) Close() {
	if e.History != nil {
		e.History.Close()
	}
}
