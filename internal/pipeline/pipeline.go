//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package pipeline runs the bronze, silver and gold stages. Each stage is a
// transformation between named catalog tables; the two datasets of a stage
// are independent and may be written concurrently.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/config"
	"github.com/pgEdge/pgedge-medallion/internal/ingest"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
	"github.com/pgEdge/pgedge-medallion/internal/store"
)

// Stage names as written to the run log.
const (
	StageBronze = "bronze"
	StageSilver = "silver"
	StageGold   = "gold"
)

// Options configures a pipeline.
type Options struct {
	// Sources maps each dataset to its CSV path.
	Sources map[catalog.Dataset]string

	Ingest ingest.Options

	// Layout hints for the silver and gold tables.
	TransactionPartitionColumn string
	CustomerBucketColumn       string
	CustomerBuckets            int

	// Parallel lets a stage write its two datasets concurrently.
	Parallel bool

	// RecordRuns writes every stage outcome to the run log.
	RecordRuns bool
}

// OptionsFromConfig builds pipeline options from the loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Sources: map[catalog.Dataset]string{
			catalog.Customers:    cfg.Sources.Customers,
			catalog.Transactions: cfg.Sources.Transactions,
		},
		Ingest: ingest.Options{
			Delimiter:  delimiter(cfg.Ingest.Delimiter),
			SampleRows: cfg.Ingest.SampleRows,
			TrimSpace:  cfg.Ingest.TrimSpace,
			KeyColumn:  catalog.ColCustomerID,
		},
		TransactionPartitionColumn: cfg.Layout.TransactionPartitionColumn,
		CustomerBucketColumn:       cfg.Layout.CustomerBucketColumn,
		CustomerBuckets:            cfg.Layout.CustomerBuckets,
		Parallel:                   cfg.Pipeline.Parallel,
		RecordRuns:                 cfg.Pipeline.RecordRuns,
	}
}

func delimiter(s string) rune {
	for _, r := range s {
		return r
	}
	return ','
}

// StoreOptions builds store options from the loaded configuration.
func StoreOptions(cfg *config.Config) store.Options {
	return store.Options{
		ApplyLayout:   cfg.Layout.Apply,
		MaxPartitions: cfg.Layout.MaxPartitions,
		BatchSize:     cfg.Ingest.BatchSize,
	}
}

// StageResult describes one table written by the silver or gold stage.
type StageResult struct {
	Dataset       catalog.Dataset
	Table         catalog.TableRef
	RowsIn        int64
	RowsOut       int64
	Layout        catalog.Layout
	LayoutApplied bool
	LayoutNote    string
}

// Dropped returns the rows the stage removed.
func (r StageResult) Dropped() int64 {
	return r.RowsIn - r.RowsOut
}

// GoldResult describes the aggregation stage output.
type GoldResult struct {
	Fact StageResult
	View catalog.TableRef
}

// Summary is the outcome of a full run.
type Summary struct {
	RunID          string
	Bronze         []ingest.Result
	Silver         []StageResult
	Gold           GoldResult
	Reconciliation *Reconciliation
	Duration       time.Duration
}

// Pipeline executes stages against a store. One Pipeline is one run: its
// run id tags the logs and run log rows of every stage it executes.
type Pipeline struct {
	store *store.Store
	opts  Options
	runID string
	log   zerolog.Logger

	mu       sync.Mutex
	profiles map[catalog.Dataset]ingest.Profile
}

// New returns a pipeline with a fresh run id.
func New(st *store.Store, opts Options) *Pipeline {
	runID := uuid.NewString()
	return &Pipeline{
		store:    st,
		opts:     opts,
		runID:    runID,
		log:      logging.WithRun(runID),
		profiles: make(map[catalog.Dataset]ingest.Profile),
	}
}

// RunID returns the id shared by every stage of this run.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Store returns the store the pipeline writes to.
func (p *Pipeline) Store() *store.Store {
	return p.store
}

// Prepare creates the layer schemas and the run log.
func (p *Pipeline) Prepare(ctx context.Context) error {
	if err := p.store.EnsureLayers(ctx); err != nil {
		return err
	}
	if p.opts.RecordRuns {
		return p.store.EnsureRunLog(ctx)
	}
	return nil
}

// Run executes bronze, silver and gold in order, then reconciles the
// layers. The first failing stage aborts the rest.
func (p *Pipeline) Run(ctx context.Context) (*Summary, error) {
	start := time.Now()
	p.log.Info().Msg("Starting pipeline run")

	if err := p.Prepare(ctx); err != nil {
		return nil, err
	}

	sum := &Summary{RunID: p.runID}
	var err error

	if sum.Bronze, err = p.Bronze(ctx); err != nil {
		return sum, err
	}
	if sum.Silver, err = p.Silver(ctx); err != nil {
		return sum, err
	}
	if sum.Gold, err = p.Gold(ctx); err != nil {
		return sum, err
	}
	if sum.Reconciliation, err = p.Reconcile(ctx); err != nil {
		return sum, err
	}

	sum.Duration = time.Since(start)
	p.log.Info().
		Dur("duration", sum.Duration).
		Bool("reconciled", sum.Reconciliation.OK()).
		Msg("Pipeline run complete")

	return sum, nil
}

// forEachDataset runs fn for both datasets, concurrently when allowed.
func (p *Pipeline) forEachDataset(ctx context.Context, fn func(ctx context.Context, i int, d catalog.Dataset) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if !p.opts.Parallel || !p.store.Dialect().ConcurrentWrites {
		g.SetLimit(1)
	}
	for i, d := range catalog.Datasets {
		g.Go(func() error {
			return fn(gctx, i, d)
		})
	}
	return g.Wait()
}

// record writes a run log row. Failures to record are logged, not returned,
// so bookkeeping never masks the stage outcome.
func (p *Pipeline) record(ctx context.Context, run store.StageRun) {
	if !p.opts.RecordRuns {
		return
	}
	run.RunID = p.runID
	run.FinishedAt = time.Now()
	if err := p.store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		p.log.Warn().Err(err).Str("stage", run.Stage).Msg("Failed to record stage run")
	}
}

func (p *Pipeline) fail(ctx context.Context, run store.StageRun, err error) error {
	run.Status = store.RunFailed
	run.Error = err.Error()
	p.record(ctx, run)
	p.log.Error().
		Err(err).
		Str("stage", run.Stage).
		Str("dataset", run.Dataset).
		Msg("Stage failed")
	return err
}

// profile returns the ingest profile captured by this run, if any.
func (p *Pipeline) profile(d catalog.Dataset) (ingest.Profile, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prof, ok := p.profiles[d]
	return prof, ok
}

func (p *Pipeline) setProfile(d catalog.Dataset, prof ingest.Profile) {
	p.mu.Lock()
	p.profiles[d] = prof
	p.mu.Unlock()
}

func (p *Pipeline) source(d catalog.Dataset) (string, error) {
	path := p.opts.Sources[d]
	if path == "" {
		return "", fmt.Errorf("no source configured for %s", d)
	}
	return path, nil
}
