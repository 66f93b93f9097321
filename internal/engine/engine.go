//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package engine abstracts the SQL engine the pipeline runs on. Query
// execution, storage and the engine's own parallelism stay behind this
// interface; callers only submit statements and bulk rows.
package engine

import (
	"context"
	"fmt"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/config"
)

// Querier executes statements. Positional parameters use $1..$n.
type Querier interface {
	// Exec runs a statement that returns no rows.
	Exec(ctx context.Context, sql string, args ...any) error

	// Query runs a statement and materializes every row. Values are
	// normalized to nil, int64, float64, bool, string or time.Time.
	Query(ctx context.Context, sql string, args ...any) (*ResultSet, error)

	// CopyRows bulk-loads rows into an existing table.
	CopyRows(ctx context.Context, ref catalog.TableRef, columns []string, rows [][]any) (int64, error)
}

// Engine is a connected SQL engine.
type Engine interface {
	Querier

	// Dialect describes the engine's SQL differences and capabilities.
	Dialect() Dialect

	// InTx runs fn inside a single transaction, committing when fn returns
	// nil and rolling back otherwise.
	InTx(ctx context.Context, fn func(q Querier) error) error

	Close()
}

// ResultSet is a fully materialized query result.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Len returns the number of rows.
func (r *ResultSet) Len() int {
	return len(r.Rows)
}

// Index returns the position of a column, or -1.
func (r *ResultSet) Index(name string) int {
	for i, c := range r.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns every value of the named column.
func (r *ResultSet) Column(name string) ([]any, error) {
	idx := r.Index(name)
	if idx < 0 {
		return nil, fmt.Errorf("result has no column %q", name)
	}
	out := make([]any, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row[idx]
	}
	return out, nil
}

// Open connects to the engine named in the configuration.
func Open(ctx context.Context, cfg *config.Config) (Engine, error) {
	switch cfg.Engine {
	case config.EnginePostgres:
		return OpenPostgres(ctx, cfg.Connection)
	case config.EngineDuckDB:
		return OpenDuckDB(ctx, cfg.Connection)
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

// ScalarInt runs a query expected to return a single integer.
func ScalarInt(ctx context.Context, q Querier, sql string, args ...any) (int64, error) {
	rs, err := q.Query(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	if len(rs.Rows) != 1 || len(rs.Rows[0]) != 1 {
		return 0, fmt.Errorf("expected a single value, got %d rows", len(rs.Rows))
	}
	n, ok := AsInt64(rs.Rows[0][0])
	if !ok {
		return 0, fmt.Errorf("expected an integer, got %T", rs.Rows[0][0])
	}
	return n, nil
}
