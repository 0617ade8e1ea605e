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

package history

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestLastInputRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	input, err := store.LastInput(ctx, "security-audit")
	require.NoError(t, err)
	assert.Empty(t, input)

	require.NoError(t, store.SaveInput(ctx, "security-audit", "src/auth"))

	input, err = store.LastInput(ctx, "security-audit")
	require.NoError(t, err)
	assert.Equal(t, "src/auth", input)

	// Upsert replaces.
	require.NoError(t, store.SaveInput(ctx, "security-audit", "src/api"))
	input, err = store.LastInput(ctx, "security-audit")
	require.NoError(t, err)
	assert.Equal(t, "src/api", input)
}

func TestRecordAndListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, store.RecordRun(ctx, &Run{
			ID:         fmt.Sprintf("run-%d", i),
			WorkflowID: "health-check",
			Input:      ".",
			Status:     "success",
			Duration:   2 * time.Second,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Newest first.
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)
	assert.Equal(t, 2*time.Second, runs[0].Duration)
	assert.Equal(t, base.Add(2*time.Minute), runs[0].StartedAt)
}

func TestRecordRunValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.Error(t, store.RecordRun(ctx, nil))
	require.Error(t, store.RecordRun(ctx, &Run{WorkflowID: "x"}))
	require.Error(t, store.RecordRun(ctx, &Run{ID: "x"}))
}

func TestClear(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveInput(ctx, "code-review", "main.go"))
	require.NoError(t, store.RecordRun(ctx, &Run{
		ID:         "run-1",
		WorkflowID: "code-review",
		Status:     "failure",
		StartedAt:  time.Now(),
	}))

	require.NoError(t, store.Clear(ctx))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)

	input, err := store.LastInput(ctx, "code-review")
	require.NoError(t, err)
	assert.Empty(t, input)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)
}
