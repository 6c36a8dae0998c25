// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package relational

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/logging"
)

// Postgres is the server-backed relational sink.
type Postgres struct {
	pool    *pgxpool.Pool
	schemas schemas
	timeout time.Duration
}

// NewPostgres creates a connection pool from cfg.PostgresDSN and verifies it.
func NewPostgres(ctx context.Context, cfg *config.RelationalConfig) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres DSN: %w", err)
	}
	if cfg.PostgresMaxConns > 0 {
		poolCfg.MaxConns = cfg.PostgresMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	logging.Info().
		Str("host", poolCfg.ConnConfig.Host).
		Str("database", poolCfg.ConnConfig.Database).
		Int32("max_conns", poolCfg.MaxConns).
		Msg("Postgres relational sink opened")

	return &Postgres{
		pool:    pool,
		schemas: newSchemas(cfg),
		timeout: cfg.Timeout,
	}, nil
}

// Driver returns "postgres".
func (p *Postgres) Driver() string {
	return config.DriverPostgres
}

// EnsureSchema creates the layer schemas and tables.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	for _, s := range p.schemas.all() {
		if _, err := p.pool.Exec(ctx, createSchemaSQL(s)); err != nil {
			return fmt.Errorf("create schema %s: %w", s, err)
		}
	}
	for _, spec := range catalog.Specs() {
		schema := p.schemas.forLayer(spec.Layer)
		if _, err := p.pool.Exec(ctx, createTableSQL(schema, spec, true)); err != nil {
			return fmt.Errorf("create table %s.%s: %w", schema, spec.Name, err)
		}
	}
	return nil
}

// Replace drops, recreates and COPY-loads the table in one transaction.
func (p *Postgres) Replace(ctx context.Context, spec catalog.Spec, rows [][]any) (err error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	schema := p.schemas.forLayer(spec.Layer)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", spec.Name, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if _, err = tx.Exec(ctx, dropTableSQL(schema, spec)); err != nil {
		return fmt.Errorf("drop %s.%s: %w", schema, spec.Name, err)
	}
	if _, err = tx.Exec(ctx, createTableSQL(schema, spec, false)); err != nil {
		return fmt.Errorf("create %s.%s: %w", schema, spec.Name, err)
	}

	if len(rows) > 0 {
		n, copyErr := tx.CopyFrom(ctx,
			pgx.Identifier{schema, spec.Name},
			spec.ColumnNames(),
			pgx.CopyFromRows(rows),
		)
		if copyErr != nil {
			err = fmt.Errorf("copy into %s.%s: %w", schema, spec.Name, copyErr)
			return err
		}
		if n != int64(len(rows)) {
			err = fmt.Errorf("copy into %s.%s: loaded %d of %d rows", schema, spec.Name, n, len(rows))
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace %s: %w", spec.Name, err)
	}
	return nil
}

// Count returns the row count of the table for spec.
func (p *Postgres) Count(ctx context.Context, spec catalog.Spec) (int64, error) {
	var n int64
	err := p.pool.QueryRow(ctx, countSQL(p.schemas.forLayer(spec.Layer), spec)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", spec.Name, err)
	}
	return n, nil
}

// Ping checks the pool.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

var _ Sink = (*Postgres)(nil)
