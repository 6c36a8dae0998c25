// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package relational mirrors materializations into a SQL database.

The relational sink is a derived cache of the blob store. Every commit drops
and recreates the target table inside one transaction and bulk-loads the full
row set, so readers see either the previous or the new table and never a mix.
Nothing is migrated in place.

Backends:

  - duckdb: embedded DuckDB file through database/sql (duckdb-go/v2)
  - postgres: PostgreSQL through a pgx connection pool, loaded with COPY

Tables live in two schemas, one per medallion layer (silver and gold by
default). Natural keys are declared UNIQUE rather than PRIMARY KEY because key
columns may be NULL when the upstream omitted them.
*/
package relational
