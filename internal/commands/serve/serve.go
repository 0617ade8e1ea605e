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

// Package serve implements the long-running engine host for IDE side
// panels: a websocket endpoint for the panel protocol, a metrics endpoint,
// and the telemetry file watcher.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/attuneai/attune/internal/commands/shared"
	"github.com/attuneai/attune/internal/config"
	"github.com/attuneai/attune/internal/coordinator"
	"github.com/attuneai/attune/internal/log"
	"github.com/attuneai/attune/internal/render"
	"github.com/attuneai/attune/internal/report"
	"github.com/attuneai/attune/internal/tracing"
	"github.com/attuneai/attune/internal/transport"
	"github.com/attuneai/attune/internal/watcher"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	var configPath string
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the engine for IDE side panels",
		Long: `Run the engine as a local server. Side panels connect over a websocket
at /ws to submit workflows and receive run status, reports, and telemetry
updates. Prometheus metrics are exposed at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, listen)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "config file path (default: XDG config dir)")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath, listen string) error {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Server.Listen = listen
	}

	logger := log.New(log.FromEnv())

	version, _, _ := shared.GetVersion()
	tracer, err := tracing.Setup("attune", version, cfg.Tracing.Enabled)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// The transport server is wired in as the coordinator's emitter so
	// run lifecycle events reach every connected panel.
	var ws *transport.Server
	engine, err := shared.BuildEngine(cfg, logger,
		coordinator.WithTracer(tracer.Tracer("coordinator")),
		coordinator.WithEmitter(emitterFunc(func() *transport.Server { return ws })),
	)
	if err != nil {
		return err
	}
	defer engine.Close()

	ws = transport.NewServer(engine.Coordinator, engine.Registry, engine.Telemetry, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Debounced telemetry refresh on data file changes.
	var fw *watcher.Watcher
	if len(cfg.Watcher.Paths) > 0 || cfg.Telemetry.DataFile != "" {
		paths := cfg.Watcher.Paths
		if len(paths) == 0 {
			paths = []string{cfg.Telemetry.DataFile}
		}
		fw, err = watcher.New(watcher.Config{
			Paths:    paths,
			Include:  cfg.Watcher.Include,
			Exclude:  cfg.Watcher.Exclude,
			Debounce: cfg.Watcher.Debounce,
		}, func() {
			ws.BroadcastTelemetry(engine.Telemetry.Refresh(context.Background()))
		}, logger)
		if err != nil {
			return err
		}
		fw.Start(ctx)
		defer fw.Stop()
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("engine listening", "addr", cfg.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	srv.Shutdown(shutdownCtx)
	engine.Coordinator.Shutdown(shutdownCtx)
	tracer.Shutdown(shutdownCtx)
	return nil
}

// emitterFunc defers emitter resolution so the coordinator can be built
// before the transport server that depends on it.
type emitterFunc func() *transport.Server

func (f emitterFunc) StatusChanged(workflowID, runID string, state coordinator.RunState) {
	if srv := f(); srv != nil {
		srv.StatusChanged(workflowID, runID, state)
	}
}

func (f emitterFunc) ReportReady(workflowID, runID string, rpt *report.Report, decision render.Decision) {
	if srv := f(); srv != nil {
		srv.ReportReady(workflowID, runID, rpt, decision)
	}
}
