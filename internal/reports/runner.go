//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package reports

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-medallion/internal/engine"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
)

// Result is the outcome of one report.
type Result struct {
	Definition Definition
	Rows       *engine.ResultSet
	Duration   time.Duration
	Err        error
}

// Runner executes reports against an engine with a bounded number of
// concurrent queries.
type Runner struct {
	q       engine.Querier
	workers int

	executed        atomic.Int64
	failed          atomic.Int64
	totalDurationNs atomic.Int64
	startTime       time.Time
}

// NewRunner creates a runner. Workers below one run reports serially.
func NewRunner(q engine.Querier, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{q: q, workers: workers}
}

// Run executes defs and returns their results in the same order. A failing
// report does not stop the others; the returned error joins every failure.
func (r *Runner) Run(ctx context.Context, defs []Definition) ([]Result, error) {
	r.startTime = time.Now()
	results := make([]Result, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, def := range defs {
		g.Go(func() error {
			results[i] = r.execute(gctx, def)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return results, errors.Join(errs...)
}

func (r *Runner) execute(ctx context.Context, def Definition) Result {
	res := Result{Definition: def}
	start := time.Now()

	st, err := def.Build()
	if err != nil {
		res.Err = err
		r.failed.Add(1)
		return res
	}

	rows, err := r.q.Query(ctx, st.SQL, st.Args...)
	elapsed := time.Since(start)
	r.executed.Add(1)
	r.totalDurationNs.Add(elapsed.Nanoseconds())
	res.Duration = elapsed
	if err != nil {
		r.failed.Add(1)
		res.Err = fmt.Errorf("report %s: %w", def.Name, err)
		logging.Debug().Err(err).Str("report", def.Name).Msg("Report failed")
		return res
	}

	res.Rows = rows
	logging.Debug().
		Str("report", def.Name).
		Int("rows", rows.Len()).
		Dur("duration", elapsed).
		Msg("Report complete")
	return res
}

// LogSummary logs aggregate execution metrics.
func (r *Runner) LogSummary() {
	executed := r.executed.Load()
	durationNs := r.totalDurationNs.Load()

	var avgLatencyMs float64
	if executed > 0 {
		avgLatencyMs = float64(durationNs) / float64(executed) / 1e6
	}

	logging.Info().
		Int("workers", r.workers).
		Dur("duration", time.Since(r.startTime)).
		Int64("executed", executed).
		Int64("failed", r.failed.Load()).
		Float64("avg_latency_ms", avgLatencyMs).
		Msg("Report summary")
}
