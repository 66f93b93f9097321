// Package enginetest provides a recording engine for unit tests that do not
// need a real database.
package enginetest

import (
	"context"
	"strings"
	"sync"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/engine"
)

// Transaction markers written to the statement log.
const (
	Begin    = "BEGIN"
	Commit   = "COMMIT"
	Rollback = "ROLLBACK"
)

// Copy records one CopyRows call.
type Copy struct {
	Table   catalog.TableRef
	Columns []string
	Rows    int
}

// Fake records every statement and answers queries from QueryFunc.
type Fake struct {
	D engine.Dialect

	// QueryFunc answers Query calls; nil returns an empty result.
	QueryFunc func(sql string, args []any) (*engine.ResultSet, error)

	// ExecFunc can fail Exec calls; nil accepts everything.
	ExecFunc func(sql string) error

	mu         sync.Mutex
	statements []string
	copies     []Copy
	closed     bool
}

// New returns a fake using the given dialect.
func New(d engine.Dialect) *Fake {
	return &Fake{D: d}
}

var _ engine.Engine = (*Fake)(nil)

func (f *Fake) record(s string) {
	f.mu.Lock()
	f.statements = append(f.statements, s)
	f.mu.Unlock()
}

// Exec implements engine.Querier.
func (f *Fake) Exec(_ context.Context, sql string, _ ...any) error {
	f.record(sql)
	if f.ExecFunc != nil {
		return f.ExecFunc(sql)
	}
	return nil
}

// Query implements engine.Querier.
func (f *Fake) Query(_ context.Context, sql string, args ...any) (*engine.ResultSet, error) {
	f.record(sql)
	if f.QueryFunc != nil {
		return f.QueryFunc(sql, args)
	}
	return &engine.ResultSet{}, nil
}

// CopyRows implements engine.Querier.
func (f *Fake) CopyRows(_ context.Context, ref catalog.TableRef, columns []string, rows [][]any) (int64, error) {
	f.mu.Lock()
	f.copies = append(f.copies, Copy{Table: ref, Columns: columns, Rows: len(rows)})
	f.statements = append(f.statements, "COPY "+ref.String())
	f.mu.Unlock()
	return int64(len(rows)), nil
}

// Dialect implements engine.Engine.
func (f *Fake) Dialect() engine.Dialect {
	return f.D
}

// InTx implements engine.Engine.
func (f *Fake) InTx(_ context.Context, fn func(q engine.Querier) error) error {
	f.record(Begin)
	if err := fn(f); err != nil {
		f.record(Rollback)
		return err
	}
	f.record(Commit)
	return nil
}

// Close implements engine.Engine.
func (f *Fake) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

// Closed reports whether Close was called.
func (f *Fake) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// Statements returns a copy of the statement log.
func (f *Fake) Statements() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.statements...)
}

// Copies returns a copy of the bulk-load log.
func (f *Fake) Copies() []Copy {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Copy(nil), f.copies...)
}

// Matching returns logged statements that start with prefix.
func (f *Fake) Matching(prefix string) []string {
	var out []string
	for _, s := range f.Statements() {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	return out
}
