package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/duckdb/duckdb-go/v2"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
)

// sqlConn is the subset of database/sql shared by *sql.DB and *sql.Tx.
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type sqlQuerier struct {
	conn sqlConn
}

func (q sqlQuerier) Exec(ctx context.Context, query string, args ...any) error {
	_, err := q.conn.ExecContext(ctx, query, args...)
	return err
}

func (q sqlQuerier) Query(ctx context.Context, query string, args ...any) (*ResultSet, error) {
	rows, err := q.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	rs := &ResultSet{Columns: columns}

	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i := range values {
			values[i] = normalize(values[i])
		}
		rs.Rows = append(rs.Rows, values)
	}

	return rs, rows.Err()
}

// CopyRows inserts rows through one prepared statement.
func (q sqlQuerier) CopyRows(ctx context.Context, ref catalog.TableRef, columns []string, rows [][]any) (int64, error) {
	quoted := make([]string, len(columns))
	params := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = catalog.QuoteIdent(c)
		params[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ref.Ident(), strings.Join(quoted, ", "), strings.Join(params, ", "))

	stmt, err := q.conn.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert into %s: %w", ref, err)
	}
	defer stmt.Close()

	var n int64
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return n, fmt.Errorf("insert row %d into %s: %w", n+1, ref, err)
		}
		n++
	}
	return n, nil
}

// DuckDB is an Engine backed by an embedded DuckDB database.
type DuckDB struct {
	sqlQuerier
	connector *duckdb.Connector
	db        *sql.DB
}

// OpenDuckDB opens the database file at path; an empty path opens a private
// in-memory database shared by every connection of the returned engine.
func OpenDuckDB(ctx context.Context, path string) (*DuckDB, error) {
	connector, err := duckdb.NewConnector(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		connector.Close()
		return nil, fmt.Errorf("failed to open DuckDB database: %w", err)
	}

	location := path
	if location == "" {
		location = ":memory:"
	}
	logging.Info().Str("path", location).Msg("Opened DuckDB database")

	return &DuckDB{sqlQuerier: sqlQuerier{conn: db}, connector: connector, db: db}, nil
}

// Dialect implements Engine.
func (d *DuckDB) Dialect() Dialect {
	return DuckDBDialect
}

// CopyRows loads rows inside their own transaction when called outside InTx.
func (d *DuckDB) CopyRows(ctx context.Context, ref catalog.TableRef, columns []string, rows [][]any) (int64, error) {
	var n int64
	err := d.InTx(ctx, func(q Querier) error {
		var err error
		n, err = q.CopyRows(ctx, ref, columns, rows)
		return err
	})
	return n, err
}

// InTx implements Engine.
func (d *DuckDB) InTx(ctx context.Context, fn func(q Querier) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(sqlQuerier{conn: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logging.Warn().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}
	return tx.Commit()
}

// Close closes the database.
func (d *DuckDB) Close() {
	if err := d.db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close DuckDB database")
	}
	if err := d.connector.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close DuckDB connector")
	}
}
