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

// Package process runs external analysis tools with bounded output and a
// wall-clock timeout. Commands are always invoked with an explicit argv
// array; nothing here ever passes through a shell.
package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const (
	// DefaultTimeout bounds a run's wall-clock time.
	DefaultTimeout = 2 * time.Minute

	// DefaultMaxOutputBytes caps captured stdout/stderr per stream.
	DefaultMaxOutputBytes = 4 * 1024 * 1024

	// truncationMarker is appended when a stream hits its ceiling.
	truncationMarker = "\n[output truncated]"
)

// Spec describes one subprocess invocation.
type Spec struct {
	// Binary is the path or name of the executable.
	Binary string

	// Args is the explicit argument array. Never shell-interpolated.
	Args []string

	// Dir overrides the working directory when non-empty.
	Dir string

	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string

	// Timeout bounds wall-clock execution time. Zero means DefaultTimeout.
	Timeout time.Duration

	// MaxOutputBytes caps each captured stream. Zero means DefaultMaxOutputBytes.
	MaxOutputBytes int64
}

// Outcome is the single record produced for every spawned process,
// including runs that had to be killed on timeout.
type Outcome struct {
	// ExitCode is nil when the process was killed before exiting normally.
	ExitCode *int

	// Stdout holds captured standard output, possibly truncated.
	Stdout string

	// Stderr holds captured standard error, possibly truncated.
	Stderr string

	// TimedOut is true when the wall-clock timeout forced termination.
	TimedOut bool

	// Truncated is true when either stream hit the output ceiling.
	Truncated bool

	// Duration is the observed wall-clock run time.
	Duration time.Duration
}

// Success reports whether the process exited normally with code zero.
func (o *Outcome) Success() bool {
	return !o.TimedOut && o.ExitCode != nil && *o.ExitCode == 0
}

// Executor spawns subprocesses with SIGTERM-then-SIGKILL termination on
// timeout.
type Executor struct {
	logger    *slog.Logger
	killGrace time.Duration
}

// NewExecutor creates an executor. A nil logger falls back to slog.Default.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		logger:    logger.With(slog.String("component", "process")),
		killGrace: 2 * time.Second,
	}
}

// WithKillGrace overrides the SIGTERM-to-SIGKILL grace period.
func (e *Executor) WithKillGrace(d time.Duration) *Executor {
	e.killGrace = d
	return e
}

// Execute runs the process described by spec and always returns exactly one
// Outcome for a process that started. The returned error covers setup
// failures only (missing binary, pipe creation); a non-zero exit or a
// timeout is reported through the Outcome, not the error.
func (e *Executor) Execute(ctx context.Context, spec Spec) (*Outcome, error) {
	if spec.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBytes := spec.MaxOutputBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxOutputBytes
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, spec.Binary, spec.Args...)
	if spec.Dir != "" {
		cmd.Dir = spec.Dir
	}
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}

	// Ask for a graceful stop first; exec falls back to SIGKILL after
	// WaitDelay if the process ignores it.
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = e.killGrace

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("process: stderr pipe: %w", err)
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("process: start %s: %w", spec.Binary, err)
	}

	var (
		wg               sync.WaitGroup
		stdout, stderr   []byte
		outTrunc, errTrunc bool
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		stdout, outTrunc = readCapped(stdoutPipe, maxBytes)
	}()
	go func() {
		defer wg.Done()
		stderr, errTrunc = readCapped(stderrPipe, maxBytes)
	}()

	// Drain both pipes before Wait: Wait closes them once the process
	// exits, which could discard buffered output the readers had not
	// consumed yet. The readers hit EOF when the child exits, and
	// WaitDelay still breaks a wedged pipe on timeout.
	wg.Wait()
	waitErr := cmd.Wait()

	outcome := &Outcome{
		Stdout:    string(stdout),
		Stderr:    string(stderr),
		Truncated: outTrunc || errTrunc,
		Duration:  time.Since(start),
	}
	if outTrunc {
		outcome.Stdout += truncationMarker
	}
	if errTrunc {
		outcome.Stderr += truncationMarker
	}

	if execCtx.Err() == context.DeadlineExceeded {
		// Timed out: no exit code, forced termination already happened.
		outcome.TimedOut = true
		e.logger.Warn("process timed out",
			slog.String("binary", spec.Binary),
			slog.Duration("timeout", timeout))
		return outcome, nil
	}

	switch err := waitErr.(type) {
	case nil:
		code := 0
		outcome.ExitCode = &code
	case *exec.ExitError:
		code := err.ExitCode()
		if code >= 0 {
			outcome.ExitCode = &code
		}
		// A negative code means the process died on a signal; leave
		// ExitCode nil.
	default:
		return nil, fmt.Errorf("process: wait %s: %w", spec.Binary, waitErr)
	}

	e.logger.Debug("process finished",
		slog.String("binary", spec.Binary),
		slog.Any("exit_code", outcome.ExitCode),
		slog.Int64("duration_ms", outcome.Duration.Milliseconds()))

	return outcome, nil
}

// readCapped drains r, keeping at most maxBytes. The remainder is read and
// discarded so the child never blocks on a full pipe.
func readCapped(r io.Reader, maxBytes int64) ([]byte, bool) {
	var buf bytes.Buffer
	truncated := false
	chunk := make([]byte, 32*1024)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if int64(buf.Len()) < maxBytes {
				keep := maxBytes - int64(buf.Len())
				if int64(n) <= keep {
					buf.Write(chunk[:n])
				} else {
					buf.Write(chunk[:keep])
					truncated = true
				}
			} else {
				truncated = true
			}
		}
		if err != nil {
			return buf.Bytes(), truncated
		}
	}
}
