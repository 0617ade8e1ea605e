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

package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestPatternMatcherIncludeExclude(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		path    string
		want    bool
	}{
		{"empty include matches all", nil, nil, "/data/usage.json", true},
		{"include by base name", []string{"usage.json"}, nil, "/data/usage.json", true},
		{"include by glob", []string{"*.json"}, nil, "/data/usage.json", true},
		{"include doublestar path", []string{"/data/**/*.json"}, nil, "/data/sub/usage.json", true},
		{"include misses", []string{"*.yaml"}, nil, "/data/usage.json", false},
		{"exclude wins", []string{"*.json"}, []string{"usage.json"}, "/data/usage.json", false},
		{"exclude swap file", nil, []string{"*.swp"}, "/data/.usage.json.swp", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm, err := NewPatternMatcher(tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pm.Match(tt.path))
		})
	}
}

func TestPatternMatcherRejectsBadGlob(t *testing.T) {
	_, err := NewPatternMatcher([]string{"[unclosed"}, nil)
	require.Error(t, err)

	_, err = NewPatternMatcher(nil, []string{"[unclosed"})
	require.Error(t, err)
}

func TestWatcherDebouncesBurst(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "usage.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))

	var fired atomic.Int32
	w, err := New(Config{
		Paths:          []string{dir},
		Include:        []string{"*.json"},
		Debounce:       100 * time.Millisecond,
		MaxRefreshRate: rate.Inf,
	}, func() { fired.Add(1) }, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer w.Stop()

	w.Start(context.Background())

	// A burst of writes inside one debounce window.
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(target, []byte(`{"n":1}`), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return fired.Load() == 1
	}, 2*time.Second, 20*time.Millisecond)

	// No trailing extra refresh.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestWatcherIgnoresFilteredFiles(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w, err := New(Config{
		Paths:          []string{dir},
		Include:        []string{"*.json"},
		Debounce:       50 * time.Millisecond,
		MaxRefreshRate: rate.Inf,
	}, func() { fired.Add(1) }, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer w.Stop()

	w.Start(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, int32(0), fired.Load())
}

func TestWatcherFilePathWatchesParentDir(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "usage.json")
	require.NoError(t, os.WriteFile(target, []byte("{}"), 0o644))

	var fired atomic.Int32
	w, err := New(Config{
		Paths:          []string{target},
		Include:        []string{"usage.json"},
		Debounce:       50 * time.Millisecond,
		MaxRefreshRate: rate.Inf,
	}, func() { fired.Add(1) }, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer w.Stop()

	w.Start(context.Background())

	// Simulate an editor rename-replace save.
	tmp := filepath.Join(dir, "usage.json.tmp2")
	require.NoError(t, os.WriteFile(tmp, []byte(`{"n":2}`), 0o644))
	require.NoError(t, os.Rename(tmp, target))

	assert.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcherStopCancelsPending(t *testing.T) {
	dir := t.TempDir()

	var fired atomic.Int32
	w, err := New(Config{
		Paths:          []string{dir},
		Debounce:       200 * time.Millisecond,
		MaxRefreshRate: rate.Inf,
	}, func() { fired.Add(1) }, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	w.Start(context.Background())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "usage.json"), []byte("{}"), 0o644))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, w.Stop())
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, int32(0), fired.Load())
}
