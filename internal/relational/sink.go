// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package relational

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/logging"
)

// Sink is a relational mirror of the materializations.
type Sink interface {
	// EnsureSchema creates the layer schemas and every table if absent.
	EnsureSchema(ctx context.Context) error

	// Replace drops and recreates the table for spec and loads rows, in one
	// transaction.
	Replace(ctx context.Context, spec catalog.Spec, rows [][]any) error

	// Count returns the number of rows in the table for spec.
	Count(ctx context.Context, spec catalog.Spec) (int64, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Driver names the backend.
	Driver() string

	io.Closer
}

// Open connects to the backend selected by cfg.Driver. It returns a nil Sink
// and nil error for the "none" driver.
func Open(ctx context.Context, cfg *config.RelationalConfig) (Sink, error) {
	switch cfg.Driver {
	case config.DriverDuckDB:
		return NewDuckDB(cfg)
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg)
	case config.DriverNone, "":
		logging.Info().Msg("Relational sink disabled")
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown relational driver %q", cfg.Driver)
	}
}

// schemas maps layers to schema names.
type schemas struct {
	silver string
	gold   string
}

func newSchemas(cfg *config.RelationalConfig) schemas {
	return schemas{silver: cfg.SilverSchema, gold: cfg.GoldSchema}
}

func (s schemas) forLayer(l catalog.Layer) string {
	if l == catalog.LayerSilver {
		return s.silver
	}
	return s.gold
}

func (s schemas) all() []string {
	return []string{s.silver, s.gold}
}

// quoteIdent quotes a SQL identifier. Both backends use standard double-quote
// quoting.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func qualified(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}

func createSchemaSQL(schema string) string {
	return "CREATE SCHEMA IF NOT EXISTS " + quoteIdent(schema)
}

func dropTableSQL(schema string, spec catalog.Spec) string {
	return "DROP TABLE IF EXISTS " + qualified(schema, spec.Name)
}

// createTableSQL renders the DDL for spec. ifNotExists selects bootstrap
// (true) or replace (false) form.
func createTableSQL(schema string, spec catalog.Spec, ifNotExists bool) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if ifNotExists {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(qualified(schema, spec.Name))
	b.WriteString(" (\n")
	for _, c := range spec.Columns {
		fmt.Fprintf(&b, "\t%s %s,\n", quoteIdent(c.Name), c.Type)
	}
	keys := make([]string, len(spec.KeyColumns))
	for i, k := range spec.KeyColumns {
		keys[i] = quoteIdent(k)
	}
	fmt.Fprintf(&b, "\tUNIQUE (%s)\n)", strings.Join(keys, ", "))
	return b.String()
}

func countSQL(schema string, spec catalog.Spec) string {
	return "SELECT COUNT(*) FROM " + qualified(schema, spec.Name)
}
