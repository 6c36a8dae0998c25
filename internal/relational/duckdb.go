// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/logging"
)

// DuckDB is the embedded relational sink.
type DuckDB struct {
	conn    *sql.DB
	schemas schemas
	timeout time.Duration
}

// NewDuckDB opens (or creates) the database file at cfg.DuckDBPath.
func NewDuckDB(cfg *config.RelationalConfig) (*DuckDB, error) {
	threads := cfg.DuckDBThreads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	path := cfg.DuckDBPath
	if path != "" && path != ":memory:" {
		dir := filepath.Dir(path)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	params := []string{
		fmt.Sprintf("threads=%d", threads),
		"autoinstall_known_extensions=false",
		"autoload_known_extensions=false",
	}
	if cfg.DuckDBMaxMemory != "" {
		params = append(params, "max_memory="+cfg.DuckDBMaxMemory)
	}
	if path != ":memory:" {
		params = append(params, "access_mode=read_write")
	}
	connStr := path + "?" + strings.Join(params, "&")

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	d := &DuckDB{
		conn:    conn,
		schemas: newSchemas(cfg),
		timeout: cfg.Timeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to connect to duckdb: %w", err)
	}

	logging.Info().Str("path", path).Int("threads", threads).Msg("DuckDB relational sink opened")
	return d, nil
}

// Driver returns "duckdb".
func (d *DuckDB) Driver() string {
	return config.DriverDuckDB
}

// EnsureSchema creates the layer schemas and tables.
func (d *DuckDB) EnsureSchema(ctx context.Context) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	for _, s := range d.schemas.all() {
		if _, err := d.conn.ExecContext(ctx, createSchemaSQL(s)); err != nil {
			return fmt.Errorf("create schema %s: %w", s, err)
		}
	}
	for _, spec := range catalog.Specs() {
		schema := d.schemas.forLayer(spec.Layer)
		if _, err := d.conn.ExecContext(ctx, createTableSQL(schema, spec, true)); err != nil {
			return fmt.Errorf("create table %s.%s: %w", schema, spec.Name, err)
		}
	}
	return nil
}

// Replace drops, recreates and reloads the table in one transaction.
func (d *DuckDB) Replace(ctx context.Context, spec catalog.Spec, rows [][]any) (err error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	schema := d.schemas.forLayer(spec.Layer)

	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s: %w", spec.Name, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, dropTableSQL(schema, spec)); err != nil {
		return fmt.Errorf("drop %s.%s: %w", schema, spec.Name, err)
	}
	if _, err = tx.ExecContext(ctx, createTableSQL(schema, spec, false)); err != nil {
		return fmt.Errorf("create %s.%s: %w", schema, spec.Name, err)
	}
	if err = d.insertRows(ctx, tx, schema, spec, rows); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace %s: %w", spec.Name, err)
	}
	return nil
}

func (d *DuckDB) insertRows(ctx context.Context, tx *sql.Tx, schema string, spec catalog.Spec, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}

	cols := make([]string, len(spec.Columns))
	marks := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		qualified(schema, spec.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("prepare insert %s: %w", spec.Name, err)
	}
	defer closeQuietly(stmt)

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert %s row %d: %w", spec.Name, i, err)
		}
	}
	return nil
}

// Count returns the row count of the table for spec.
func (d *DuckDB) Count(ctx context.Context, spec catalog.Spec) (int64, error) {
	var n int64
	err := d.conn.QueryRowContext(ctx, countSQL(d.schemas.forLayer(spec.Layer), spec)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", spec.Name, err)
	}
	return n, nil
}

// Query runs an arbitrary read query. It exists for inspection and tests.
func (d *DuckDB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.conn.QueryContext(ctx, query, args...)
}

// Ping checks the connection.
func (d *DuckDB) Ping(ctx context.Context) error {
	if d.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return d.conn.PingContext(ctx)
}

// Close checkpoints the WAL and closes the database.
func (d *DuckDB) Close() error {
	if d.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if _, err := d.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()
	return d.conn.Close()
}

func (d *DuckDB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d.timeout)
}

// closeQuietly closes a resource and ignores the error. Used on error paths
// where Close failures are not actionable.
func closeQuietly(closer interface{ Close() error }) {
	if closer != nil {
		_ = closer.Close()
	}
}

var _ Sink = (*DuckDB)(nil)
