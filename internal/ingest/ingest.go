//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package ingest reads a raw CSV dataset into typed rows ready for a bronze
// table, inferring a schema and profiling the rows cleaning will drop.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
)

// ErrNoHeader is returned for an input without a header row.
var ErrNoHeader = errors.New("csv has no header row")

// Options controls CSV reading.
type Options struct {
	// Delimiter separates fields (default ',').
	Delimiter rune

	// SampleRows limits the rows used for type inference; 0 uses all rows.
	SampleRows int

	// TrimSpace trims surrounding whitespace from every field.
	TrimSpace bool

	// KeyColumn is the column profiled for NULLs (default customer_id).
	KeyColumn string
}

// Table is a parsed dataset.
type Table struct {
	Columns []catalog.Column
	Rows    [][]any

	// Coerced counts values that did not fit the inferred type and were
	// loaded as NULL. Only possible when inference sampled the file.
	Coerced int64

	Profile Profile
}

// ReadFile parses the CSV file at path.
func ReadFile(ctx context.Context, path string, opts Options) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. A record whose field count differs from the
// header fails the whole read.
func Read(ctx context.Context, r io.Reader, opts Options) (*Table, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.KeyColumn == "" {
		opts.KeyColumn = catalog.ColCustomerID
	}

	cr := csv.NewReader(r)
	cr.Comma = opts.Delimiter
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	names := uniqueNames(header)

	key := -1
	for i, n := range names {
		if n == opts.KeyColumn {
			key = i
			break
		}
	}
	if key < 0 {
		return nil, fmt.Errorf("key column %q not found in header", opts.KeyColumn)
	}

	var raw [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if opts.TrimSpace {
			for i := range rec {
				rec[i] = strings.TrimSpace(rec[i])
			}
		}
		raw = append(raw, rec)
		if len(raw)%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	sample := raw
	if opts.SampleRows > 0 && opts.SampleRows < len(raw) {
		sample = raw[:opts.SampleRows]
	}

	t := &Table{Columns: make([]catalog.Column, len(names))}
	column := make([]string, len(sample))
	for i, name := range names {
		for j, rec := range sample {
			column[j] = rec[i]
		}
		t.Columns[i] = catalog.Column{Name: name, Type: inferType(column)}
	}

	prof := newProfiler(key)
	t.Rows = make([][]any, len(raw))
	for j, rec := range raw {
		row := make([]any, len(rec))
		for i, field := range rec {
			if strings.TrimSpace(field) == "" {
				continue
			}
			v, ok := parseValue(field, t.Columns[i].Type)
			if !ok {
				t.Coerced++
				continue
			}
			row[i] = v
		}
		t.Rows[j] = row
		prof.add(row)
	}
	t.Profile = prof.profile

	return t, nil
}

// Result summarizes one dataset load.
type Result struct {
	Dataset    catalog.Dataset
	Table      catalog.TableRef
	Columns    []catalog.Column
	Rows       int64
	NullKeys   int64
	Duplicates int64
	Coerced    int64
}

// Profile returns the cleaning profile captured at load time.
func (r Result) Profile() Profile {
	return Profile{Rows: r.Rows, NullKeys: r.NullKeys, Duplicates: r.Duplicates}
}
