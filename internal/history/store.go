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

// Package history persists workflow run records and per-workflow last inputs
// in a local SQLite database, so input prefill survives restarts.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one recorded workflow invocation.
type Run struct {
	ID         string
	WorkflowID string
	Input      string
	Status     string
	Duration   time.Duration
	StartedAt  time.Time
}

// Store is a SQLite-backed history store. Safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and runs migrations.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// WAL mode allows a reader (stats, history listing) alongside the
	// coordinator's writes.
	connStr := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			input TEXT,
			status TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS last_inputs (
			workflow_id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_workflow
			ON runs(workflow_id, started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveInput upserts the most recent input for a workflow. Called before the
// process spawns so the input survives even if the run crashes.
func (s *Store) SaveInput(ctx context.Context, workflowID, input string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO last_inputs (workflow_id, input, updated_at)
		VALUES (?, ?, datetime('now'))
		ON CONFLICT(workflow_id) DO UPDATE SET
			input = excluded.input,
			updated_at = excluded.updated_at`,
		workflowID, input)
	if err != nil {
		return fmt.Errorf("failed to save input: %w", err)
	}
	return nil
}

// LastInput returns the most recent input for a workflow, or empty string
// when none was recorded.
func (s *Store) LastInput(ctx context.Context, workflowID string) (string, error) {
	var input string
	err := s.db.QueryRowContext(ctx,
		`SELECT input FROM last_inputs WHERE workflow_id = ?`, workflowID).Scan(&input)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query last input: %w", err)
	}
	return input, nil
}

// RecordRun appends a completed run to the log.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run == nil {
		return fmt.Errorf("run cannot be nil")
	}
	if run.ID == "" || run.WorkflowID == "" {
		return fmt.Errorf("run id and workflow id are required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, workflow_id, input, status, duration_ms, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.WorkflowID, run.Input, run.Status,
		run.Duration.Milliseconds(), run.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 means a
// default of 50.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_id, input, status, duration_ms, started_at
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var durationMS int64
		var startedAt string
		if err := rows.Scan(&run.ID, &run.WorkflowID, &run.Input, &run.Status, &durationMS, &startedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		if ts, err := time.Parse(time.RFC3339, startedAt); err == nil {
			run.StartedAt = ts
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// Clear removes all run records and saved inputs.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return fmt.Errorf("failed to clear runs: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM last_inputs`); err != nil {
		return fmt.Errorf("failed to clear inputs: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
