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

// Package watcher triggers telemetry refreshes when the analysis tool's data
// files change on disk. Bursts of writes collapse into a single refresh via
// a shared trailing-edge debounce, and a rate limiter caps refresh frequency
// even under sustained churn.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/attuneai/attune/internal/metrics"
)

const (
	// DefaultDebounce is how long the watcher waits after the last write
	// before firing a refresh.
	DefaultDebounce = time.Second

	// DefaultMaxRefreshRate caps refreshes under sustained file churn.
	DefaultMaxRefreshRate = rate.Limit(0.5)
)

// Config describes what to watch and how aggressively to refresh.
type Config struct {
	// Paths are files or directories to watch. File paths are watched via
	// their parent directory so editor rename-replace saves are seen.
	Paths []string

	Include []string
	Exclude []string

	Debounce       time.Duration
	MaxRefreshRate rate.Limit
}

// Watcher collapses filesystem events into debounced onChange calls.
// All matching events share one timer: a burst of writes across any number
// of watched files produces exactly one trailing-edge refresh.
type Watcher struct {
	fsw      *fsnotify.Watcher
	matcher  *PatternMatcher
	onChange func()
	logger   *slog.Logger

	debounce time.Duration
	limiter  *rate.Limiter

	mu    sync.Mutex
	timer *time.Timer

	stopCh chan struct{}
	doneCh chan struct{}
}

// New builds a watcher. onChange runs on the debounce timer goroutine and
// must not block for long.
func New(cfg Config, onChange func(), logger *slog.Logger) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("watcher requires an onChange callback")
	}
	if logger == nil {
		logger = slog.Default()
	}

	exclude := cfg.Exclude
	if exclude == nil {
		exclude = DefaultExcludePatterns()
	}
	matcher, err := NewPatternMatcher(cfg.Include, exclude)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	maxRate := cfg.MaxRefreshRate
	if maxRate <= 0 {
		maxRate = DefaultMaxRefreshRate
	}

	w := &Watcher{
		fsw:      fsw,
		matcher:  matcher,
		onChange: onChange,
		logger:   logger.With("component", "watcher"),
		debounce: debounce,
		limiter:  rate.NewLimiter(maxRate, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}

	for _, path := range cfg.Paths {
		if err := w.addPath(path); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// addPath registers a path with fsnotify. Files are watched through their
// parent directory; the pattern matcher filters events back down to the
// files of interest.
func (w *Watcher) addPath(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	target := abs
	if info, err := os.Stat(abs); err != nil || !info.IsDir() {
		target = filepath.Dir(abs)
	}
	if err := w.fsw.Add(target); err != nil {
		return fmt.Errorf("failed to watch %q: %w", target, err)
	}
	w.logger.Debug("watching path", "path", target)
	return nil
}

// Start begins processing events until the context is cancelled or Stop is
// called.
func (w *Watcher) Start(ctx context.Context) {
	go w.eventLoop(ctx)
	w.logger.Info("file watcher started", "debounce", w.debounce)
}

// Stop shuts the watcher down and cancels any pending refresh.
func (w *Watcher) Stop() error {
	select {
	case <-w.stopCh:
		return nil
	default:
		close(w.stopCh)
	}
	<-w.doneCh

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	return w.fsw.Close()
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("file watcher stopped (context cancelled)")
			return
		case <-w.stopCh:
			w.logger.Info("file watcher stopped")
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Chmod-only events carry no content change.
	if event.Op == fsnotify.Chmod {
		return
	}
	if !w.matcher.Match(event.Name) {
		w.logger.Debug("event filtered", "path", event.Name)
		return
	}
	w.logger.Debug("file event", "op", event.Op.String(), "path", event.Name)
	w.bump()
}

// bump resets the shared debounce timer. Every event during a burst lands
// here; only the last one's timer survives to fire.
func (w *Watcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.stopCh:
		return
	default:
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	select {
	case <-w.stopCh:
		return
	default:
	}

	if !w.limiter.Allow() {
		// Over the rate cap. Re-arm so the refresh still happens once
		// the limiter recovers.
		w.logger.Debug("refresh rate limited, deferring")
		w.mu.Lock()
		w.timer = time.AfterFunc(w.debounce, w.fire)
		w.mu.Unlock()
		return
	}

	w.logger.Debug("debounce window elapsed, refreshing")
	metrics.RecordWatcherRefresh()
	w.onChange()
}
