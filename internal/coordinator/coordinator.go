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

// Package coordinator serializes workflow runs. Each workflow has at most
// one run in flight; duplicate submissions are rejected with a busy error
// rather than queued. Every accepted submission advances the workflow's
// generation counter, and a run's result is only delivered if its
// generation is still current when it completes.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/attuneai/attune/internal/history"
	"github.com/attuneai/attune/internal/log"
	"github.com/attuneai/attune/internal/metrics"
	"github.com/attuneai/attune/internal/render"
	"github.com/attuneai/attune/internal/report"
	"github.com/attuneai/attune/internal/workflow"
	pkgerrors "github.com/attuneai/attune/pkg/errors"
	"github.com/attuneai/attune/pkg/process"
)

// RunState is the lifecycle state of a workflow's most recent run.
type RunState string

const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateSucceeded RunState = "succeeded"
	StateFailed    RunState = "failed"
)

// Result is delivered on a RunHandle when the run's generation survived to
// completion.
type Result struct {
	RunID    string
	Report   *report.Report
	Decision render.Decision
}

// RunHandle tracks one accepted submission. Done yields the result, or
// closes empty when a newer generation superseded the run.
type RunHandle struct {
	RunID      string
	WorkflowID string
	Generation uint64

	done chan *Result
}

// Done returns the completion channel. It receives at most one result and
// is then closed.
func (h *RunHandle) Done() <-chan *Result {
	return h.done
}

// Status is a point-in-time view of one workflow's run state.
type Status struct {
	WorkflowID string
	State      RunState
	RunID      string
	Generation uint64
}

// Emitter receives lifecycle events for presentation surfaces.
type Emitter interface {
	StatusChanged(workflowID, runID string, state RunState)
	ReportReady(workflowID, runID string, rpt *report.Report, decision render.Decision)
}

// HistoryStore persists inputs and completed runs.
type HistoryStore interface {
	SaveInput(ctx context.Context, workflowID, input string) error
	RecordRun(ctx context.Context, run *history.Run) error
}

// EnvProvider supplies extra environment entries for spawned processes.
type EnvProvider interface {
	TokenEnv() []string
}

// Config holds coordinator settings.
type Config struct {
	// DefaultBinary is the analysis binary used when a workflow
	// definition does not override it.
	DefaultBinary string

	// WorkDir is the working directory for spawned processes.
	WorkDir string
}

type workflowState struct {
	state      RunState
	generation uint64
	runID      string
	cancelRun  context.CancelFunc
}

// Coordinator owns run serialization, process spawning, interpretation and
// routing for all workflows.
type Coordinator struct {
	registry *workflow.Registry
	exec     *process.Executor
	interp   *report.Interpreter
	router   *render.Router
	cfg      Config
	logger   *slog.Logger

	store   HistoryStore
	env     EnvProvider
	emitter Emitter
	tracer  trace.Tracer

	mu     sync.Mutex
	states map[string]*workflowState

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithHistory enables input persistence and run recording.
func WithHistory(store HistoryStore) Option {
	return func(c *Coordinator) { c.store = store }
}

// WithEnvProvider injects extra environment entries into spawned processes.
func WithEnvProvider(env EnvProvider) Option {
	return func(c *Coordinator) { c.env = env }
}

// WithEmitter wires lifecycle events to a presentation surface.
func WithEmitter(emitter Emitter) Option {
	return func(c *Coordinator) { c.emitter = emitter }
}

// WithTracer enables span creation around runs.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Coordinator) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// New builds a coordinator.
func New(registry *workflow.Registry, exec *process.Executor, interp *report.Interpreter, router *render.Router, cfg Config, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	baseCtx, stop := context.WithCancel(context.Background())
	c := &Coordinator{
		registry: registry,
		exec:     exec,
		interp:   interp,
		router:   router,
		cfg:      cfg,
		logger:   log.WithComponent(logger, "coordinator"),
		tracer:   noop.NewTracerProvider().Tracer("coordinator"),
		states:   make(map[string]*workflowState),
		baseCtx:  baseCtx,
		stop:     stop,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit starts a run for workflowID. It returns a BusyError when the
// workflow already has a run in flight and a NotFoundError for unknown
// workflows. The input is persisted before the process spawns so prefill
// survives a crash mid-run.
func (c *Coordinator) Submit(ctx context.Context, workflowID, input string) (*RunHandle, error) {
	def, ok := c.registry.Lookup(workflowID)
	if !ok {
		return nil, &pkgerrors.NotFoundError{Resource: "workflow", ID: workflowID}
	}

	c.mu.Lock()
	st := c.states[workflowID]
	if st == nil {
		st = &workflowState{state: StateIdle}
		c.states[workflowID] = st
	}
	if st.state == StateRunning {
		gen := st.generation
		c.mu.Unlock()
		metrics.RecordBusyRejection(workflowID)
		return nil, &pkgerrors.BusyError{WorkflowID: workflowID, Generation: gen}
	}

	st.generation++
	gen := st.generation
	runID := uuid.NewString()
	runCtx, cancelRun := context.WithCancel(c.baseCtx)
	st.state = StateRunning
	st.runID = runID
	st.cancelRun = cancelRun
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.SaveInput(ctx, workflowID, input); err != nil {
			c.logger.Warn("failed to persist input", log.WorkflowKey, workflowID, log.Error(err))
		}
	}

	metrics.RecordRunStarted(workflowID)
	c.emitStatus(workflowID, runID, StateRunning)

	handle := &RunHandle{
		RunID:      runID,
		WorkflowID: workflowID,
		Generation: gen,
		done:       make(chan *Result, 1),
	}

	c.wg.Add(1)
	go c.run(runCtx, cancelRun, def, input, gen, handle)

	return handle, nil
}

func (c *Coordinator) run(ctx context.Context, cancel context.CancelFunc, def workflow.Definition, input string, gen uint64, handle *RunHandle) {
	defer c.wg.Done()
	defer cancel()

	workflowID := handle.WorkflowID
	runID := handle.RunID
	logger := log.WithRunContext(c.logger, workflowID, runID, gen)

	runCtx, span := c.tracer.Start(ctx, "workflow.run",
		trace.WithAttributes(
			attribute.String("workflow.id", workflowID),
			attribute.String("run.id", runID),
		))
	defer span.End()

	started := time.Now()
	binary := def.Binary
	if binary == "" {
		binary = c.cfg.DefaultBinary
	}
	spec := process.Spec{
		Binary:  binary,
		Args:    def.Argv(input),
		Dir:     c.cfg.WorkDir,
		Timeout: def.Timeout,
	}
	if c.env != nil {
		spec.Env = c.env.TokenEnv()
	}

	logger.Info("run started", "binary", binary)

	outcome, err := c.exec.Execute(runCtx, spec)
	if err != nil {
		// Spawn failure before the process ran. Fold it into a failed
		// outcome so the report pipeline handles it uniformly.
		span.RecordError(err)
		outcome = &process.Outcome{
			Stderr:   err.Error(),
			Duration: time.Since(started),
		}
	}

	rpt := c.interp.Interpret(runCtx, workflowID, outcome)
	decision := c.router.Route(workflowID, rpt)

	c.mu.Lock()
	st := c.states[workflowID]
	if st == nil || st.generation != gen {
		c.mu.Unlock()
		metrics.RecordStaleResult(workflowID)
		logger.Info("discarding superseded result", log.GenerationKey, gen)
		close(handle.done)
		return
	}
	if rpt.Status == report.StatusSuccess {
		st.state = StateSucceeded
	} else {
		st.state = StateFailed
	}
	st.cancelRun = nil
	state := st.state
	c.mu.Unlock()

	metrics.RecordRunCompleted(workflowID, string(rpt.Status), outcome.Duration)
	span.SetAttributes(attribute.String("run.status", string(rpt.Status)))

	if c.store != nil {
		record := &history.Run{
			ID:         runID,
			WorkflowID: workflowID,
			Input:      input,
			Status:     string(rpt.Status),
			Duration:   outcome.Duration,
			StartedAt:  started,
		}
		if err := c.store.RecordRun(context.Background(), record); err != nil {
			logger.Warn("failed to record run", log.Error(err))
		}
	}

	logger.Info("run completed",
		"status", string(rpt.Status),
		log.DurationKey, outcome.Duration.Milliseconds(),
		log.TargetKey, string(decision.Target),
	)

	c.emitStatus(workflowID, runID, state)
	if c.emitter != nil {
		c.emitter.ReportReady(workflowID, runID, rpt, decision)
	}

	handle.done <- &Result{RunID: runID, Report: rpt, Decision: decision}
	close(handle.done)
}

// Cancel aborts the in-flight run for workflowID, if any. The generation
// advances so the aborted run's result is discarded when its process
// terminates. Returns true when a run was cancelled.
func (c *Coordinator) Cancel(workflowID string) bool {
	c.mu.Lock()
	st := c.states[workflowID]
	if st == nil || st.state != StateRunning {
		c.mu.Unlock()
		return false
	}
	st.generation++
	st.state = StateIdle
	runID := st.runID
	st.runID = ""
	cancelRun := st.cancelRun
	st.cancelRun = nil
	c.mu.Unlock()

	if cancelRun != nil {
		cancelRun()
	}
	c.logger.Info("run cancelled", log.WorkflowKey, workflowID, log.RunIDKey, runID)
	c.emitStatus(workflowID, runID, StateIdle)
	return true
}

// Status returns the current state of one workflow.
func (c *Coordinator) Status(workflowID string) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[workflowID]
	if st == nil {
		return Status{WorkflowID: workflowID, State: StateIdle}
	}
	return Status{
		WorkflowID: workflowID,
		State:      st.state,
		RunID:      st.runID,
		Generation: st.generation,
	}
}

// Shutdown cancels all in-flight runs and waits for their goroutines to
// drain, bounded by ctx.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.stop()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) emitStatus(workflowID, runID string, state RunState) {
	if c.emitter != nil {
		c.emitter.StatusChanged(workflowID, runID, state)
	}
}
