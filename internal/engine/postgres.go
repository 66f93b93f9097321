//-------------------------------------------------------------------------
//
// pgEdge Medallion Pipeline
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pgEdge/pgedge-medallion/internal/catalog"
	"github.com/pgEdge/pgedge-medallion/internal/logging"
)

// DefaultPoolConfig returns default connection pool configuration. The
// pipeline holds at most a handful of connections: two stage writers and
// the report workers.
func DefaultPoolConfig() *pgxpool.Config {
	config, _ := pgxpool.ParseConfig("")

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	return config
}

// pgxConn is the subset of pgx shared by pools and transactions.
type pgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

type pgxQuerier struct {
	conn pgxConn
}

func (q pgxQuerier) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := q.conn.Exec(ctx, sql, args...)
	return err
}

func (q pgxQuerier) Query(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	rows, err := q.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	rs := &ResultSet{Columns: make([]string, len(fields))}
	for i, f := range fields {
		rs.Columns[i] = f.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		for i := range values {
			values[i] = normalize(values[i])
		}
		rs.Rows = append(rs.Rows, values)
	}

	return rs, rows.Err()
}

// CopyRows streams rows through the COPY protocol.
func (q pgxQuerier) CopyRows(ctx context.Context, ref catalog.TableRef, columns []string, rows [][]any) (int64, error) {
	return q.conn.CopyFrom(
		ctx,
		pgx.Identifier{string(ref.Layer), ref.Name},
		columns,
		pgx.CopyFromRows(rows),
	)
}

// Postgres is an Engine backed by a pgx connection pool.
type Postgres struct {
	pgxQuerier
	pool *pgxpool.Pool
}

// OpenPostgres establishes a connection pool to the PostgreSQL database.
func OpenPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	defaults := DefaultPoolConfig()
	config.MaxConns = defaults.MaxConns
	config.MinConns = defaults.MinConns
	config.MaxConnLifetime = defaults.MaxConnLifetime
	config.MaxConnIdleTime = defaults.MaxConnIdleTime
	config.HealthCheckPeriod = defaults.HealthCheckPeriod

	logging.Debug().
		Str("host", config.ConnConfig.Host).
		Uint16("port", config.ConnConfig.Port).
		Str("database", config.ConnConfig.Database).
		Msg("Connecting to database")

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logging.Info().
		Str("host", config.ConnConfig.Host).
		Str("database", config.ConnConfig.Database).
		Msg("Connected to database")

	return &Postgres{pgxQuerier: pgxQuerier{conn: pool}, pool: pool}, nil
}

// Dialect implements Engine.
func (p *Postgres) Dialect() Dialect {
	return PostgresDialect
}

// InTx implements Engine.
func (p *Postgres) InTx(ctx context.Context, fn func(q Querier) error) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		return fn(pgxQuerier{conn: tx})
	})
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
