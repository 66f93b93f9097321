//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package store is the explicit catalog handle the pipeline stages share.
// Every write replaces a relation by name inside one engine transaction.
package store

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/engine"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
	"github.com/pgEdge/pgedge-medallion/internal/sqlq"
)

// Options tunes how the store writes tables.
type Options struct {
	// ApplyLayout applies layout hints on engines that support them.
	ApplyLayout bool

	// MaxPartitions caps list partitions per table; above it the table is
	// written unpartitioned.
	MaxPartitions int

	// BatchSize is the number of rows per bulk-load call.
	BatchSize int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{ApplyLayout: true, MaxPartitions: 1000, BatchSize: 1000}
}

// Store wraps an engine with catalog-level operations.
type Store struct {
	eng  engine.Engine
	opts Options
}

// New returns a store over eng.
func New(eng engine.Engine, opts Options) *Store {
	if opts.BatchSize < 1 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.MaxPartitions < 1 {
		opts.MaxPartitions = DefaultOptions().MaxPartitions
	}
	return &Store{eng: eng, opts: opts}
}

// Engine returns the underlying engine.
func (s *Store) Engine() engine.Engine {
	return s.eng
}

// Dialect returns the engine dialect.
func (s *Store) Dialect() engine.Dialect {
	return s.eng.Dialect()
}

// EnsureLayers creates the layer schemas if they do not exist.
func (s *Store) EnsureLayers(ctx context.Context) error {
	for _, layer := range []catalog.Layer{catalog.Bronze, catalog.Silver, catalog.Gold, catalog.Meta} {
		if err := s.eng.Exec(ctx, sqlq.CreateSchema(layer)); err != nil {
			return fmt.Errorf("failed to create schema %s: %w", layer, err)
		}
	}
	logging.Debug().Msg("Catalog layers ready")
	return nil
}

// LoadTable replaces ref with a table of the given columns holding rows.
func (s *Store) LoadTable(ctx context.Context, ref catalog.TableRef, cols []catalog.Column, rows [][]any) (int64, error) {
	d := s.Dialect()
	defs := make([]sqlq.ColumnDef, len(cols))
	for i, c := range cols {
		defs[i] = sqlq.ColumnDef{Name: c.Name, Type: d.ColumnType(c.Type)}
	}
	create, err := sqlq.CreateTable(ref, defs, "")
	if err != nil {
		return 0, err
	}
	names := catalog.ColumnNames(cols)

	var loaded int64
	err = s.eng.InTx(ctx, func(q engine.Querier) error {
		if err := q.Exec(ctx, d.DropTable(ref)); err != nil {
			return fmt.Errorf("drop %s: %w", ref, err)
		}
		if err := q.Exec(ctx, create); err != nil {
			return fmt.Errorf("create %s: %w", ref, err)
		}
		for start := 0; start < len(rows); start += s.opts.BatchSize {
			end := min(start+s.opts.BatchSize, len(rows))
			n, err := q.CopyRows(ctx, ref, names, rows[start:end])
			if err != nil {
				return fmt.Errorf("load %s: %w", ref, err)
			}
			loaded += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logging.Debug().
		Str("table", ref.String()).
		Int64("rows", loaded).
		Msg("Loaded table")

	return loaded, nil
}

// Materialized describes the outcome of Materialize.
type Materialized struct {
	Table         catalog.TableRef
	Rows          int64
	Layout        catalog.Layout
	LayoutApplied bool

	// LayoutNote explains why a hint was only recorded.
	LayoutNote string
}

// Materialize replaces ref with the result of q, attaching layout to the
// write. The hint is applied physically when the engine supports it and
// the store is configured to; otherwise it is recorded as advisory.
func (s *Store) Materialize(ctx context.Context, ref catalog.TableRef, q *sqlq.Query, layout catalog.Layout) (Materialized, error) {
	if err := layout.Validate(); err != nil {
		return Materialized{}, fmt.Errorf("%s: %w", ref, err)
	}

	res := Materialized{Table: ref, Layout: layout}
	switch {
	case layout.IsZero():
	case !s.opts.ApplyLayout:
		res.LayoutNote = "layout application disabled"
	case !s.Dialect().Partitioning:
		res.LayoutNote = "advisory on " + s.Dialect().Name
	}

	err := s.eng.InTx(ctx, func(tx engine.Querier) error {
		if err := tx.Exec(ctx, s.Dialect().DropTable(ref)); err != nil {
			return fmt.Errorf("drop %s: %w", ref, err)
		}

		if layout.IsZero() || res.LayoutNote != "" {
			if err := s.createAs(ctx, tx, ref, q); err != nil {
				return err
			}
		} else {
			applied, note, err := s.createPartitioned(ctx, tx, ref, q, layout)
			if err != nil {
				return err
			}
			res.LayoutApplied = applied
			res.LayoutNote = note
		}

		n, err := engine.ScalarInt(ctx, tx, "SELECT COUNT(*) FROM "+ref.Ident())
		if err != nil {
			return fmt.Errorf("count %s: %w", ref, err)
		}
		res.Rows = n
		return nil
	})
	if err != nil {
		return Materialized{}, err
	}

	logging.Debug().
		Str("table", ref.String()).
		Int64("rows", res.Rows).
		Str("layout", layout.String()).
		Bool("layout_applied", res.LayoutApplied).
		Msg("Materialized table")

	return res, nil
}

func (s *Store) createAs(ctx context.Context, tx engine.Querier, ref catalog.TableRef, q *sqlq.Query) error {
	ctas, err := sqlq.CreateTableAs(ref, q)
	if err != nil {
		return err
	}
	if err := tx.Exec(ctx, ctas); err != nil {
		return fmt.Errorf("create %s: %w", ref, err)
	}
	return nil
}

// CreateView replaces ref with a view over q.
func (s *Store) CreateView(ctx context.Context, ref catalog.TableRef, q *sqlq.Query) error {
	create, err := sqlq.CreateView(ref, q)
	if err != nil {
		return err
	}
	return s.eng.InTx(ctx, func(tx engine.Querier) error {
		if err := tx.Exec(ctx, s.Dialect().DropView(ref)); err != nil {
			return fmt.Errorf("drop view %s: %w", ref, err)
		}
		if err := tx.Exec(ctx, create); err != nil {
			return fmt.Errorf("create view %s: %w", ref, err)
		}
		return nil
	})
}

// Count returns the number of rows in a table or view.
func (s *Store) Count(ctx context.Context, ref catalog.TableRef) (int64, error) {
	n, err := engine.ScalarInt(ctx, s.eng, "SELECT COUNT(*) FROM "+ref.Ident())
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", ref, err)
	}
	return n, nil
}

// Exists reports whether a table or view named ref is present.
func (s *Store) Exists(ctx context.Context, ref catalog.TableRef) (bool, error) {
	n, err := engine.ScalarInt(ctx, s.eng,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = $1 AND table_name = $2",
		string(ref.Layer), ref.Name)
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", ref, err)
	}
	return n > 0, nil
}

// Columns returns the column names and engine types of ref in order.
func (s *Store) Columns(ctx context.Context, ref catalog.TableRef) ([]sqlq.ColumnDef, error) {
	return columns(ctx, s.eng, ref)
}

func columns(ctx context.Context, q engine.Querier, ref catalog.TableRef) ([]sqlq.ColumnDef, error) {
	rs, err := q.Query(ctx, `SELECT column_name, data_type FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2 ORDER BY ordinal_position`,
		string(ref.Layer), ref.Name)
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", ref, err)
	}
	if rs.Len() == 0 {
		return nil, fmt.Errorf("describe %s: table not found", ref)
	}
	defs := make([]sqlq.ColumnDef, rs.Len())
	for i, row := range rs.Rows {
		name, _ := row[0].(string)
		typ, _ := row[1].(string)
		defs[i] = sqlq.ColumnDef{Name: name, Type: typ}
	}
	return defs, nil
}
