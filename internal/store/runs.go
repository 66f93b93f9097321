//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/engine"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
)

// RunStatus is the outcome of one stage execution.
type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// StageRun is one row of the run log.
type StageRun struct {
	RunID      string
	Stage      string
	Dataset    string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time
	RowsIn     int64
	RowsOut    int64
	Detail     string
	Error      string
}

// Duration returns how long the stage ran.
func (r StageRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// createRunLogSQL creates the run log table if it doesn't exist.
const createRunLogSQL = `
CREATE TABLE IF NOT EXISTS %s (
    run_id        TEXT NOT NULL,
    stage         TEXT NOT NULL,
    dataset       TEXT NOT NULL,
    status        TEXT NOT NULL,
    started_at    TIMESTAMP NOT NULL,
    finished_at   TIMESTAMP NOT NULL,
    rows_in       BIGINT NOT NULL,
    rows_out      BIGINT NOT NULL,
    detail        TEXT,
    error_message TEXT
)`

const runColumns = "run_id, stage, dataset, status, started_at, finished_at, rows_in, rows_out, detail, error_message"

// EnsureRunLog creates the run log table.
func (s *Store) EnsureRunLog(ctx context.Context) error {
	if err := s.eng.Exec(ctx, fmt.Sprintf(createRunLogSQL, catalog.PipelineRuns.Ident())); err != nil {
		return fmt.Errorf("failed to create run log: %w", err)
	}
	return nil
}

// RecordRun appends a stage execution to the run log.
func (s *Store) RecordRun(ctx context.Context, r StageRun) error {
	err := s.eng.Exec(ctx, fmt.Sprintf(`
        INSERT INTO %s (%s)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `, catalog.PipelineRuns.Ident(), runColumns),
		r.RunID, r.Stage, r.Dataset, string(r.Status),
		r.StartedAt.UTC(), r.FinishedAt.UTC(),
		r.RowsIn, r.RowsOut, r.Detail, nullable(r.Error))
	if err != nil {
		return fmt.Errorf("failed to record %s run: %w", r.Stage, err)
	}

	logging.Debug().
		Str("run_id", r.RunID).
		Str("stage", r.Stage).
		Str("dataset", r.Dataset).
		Str("status", string(r.Status)).
		Msg("Recorded stage run")

	return nil
}

// RecentRuns returns the most recent stage executions, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]StageRun, error) {
	rs, err := s.eng.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s
        ORDER BY started_at DESC, run_id, stage, dataset
        LIMIT %d
    `, runColumns, catalog.PipelineRuns.Ident(), limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read run log: %w", err)
	}

	runs := make([]StageRun, 0, rs.Len())
	for _, row := range rs.Rows {
		runs = append(runs, scanRun(row))
	}
	return runs, nil
}

func scanRun(row []any) StageRun {
	str := func(v any) string {
		s, _ := v.(string)
		return s
	}
	ts := func(v any) time.Time {
		t, _ := v.(time.Time)
		return t
	}
	num := func(v any) int64 {
		n, _ := engine.AsInt64(v)
		return n
	}
	return StageRun{
		RunID:      str(row[0]),
		Stage:      str(row[1]),
		Dataset:    str(row[2]),
		Status:     RunStatus(str(row[3])),
		StartedAt:  ts(row[4]),
		FinishedAt: ts(row[5]),
		RowsIn:     num(row[6]),
		RowsOut:    num(row[7]),
		Detail:     str(row[8]),
		Error:      str(row[9]),
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
