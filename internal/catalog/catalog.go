// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package catalog

import (
	"fmt"
)

// Layer is the medallion layer a materialization belongs to.
type Layer string

const (
	LayerSilver Layer = "silver"
	LayerGold   Layer = "gold"
)

// ColumnType is the logical type of a column. Values match the SQL type names
// used when creating relational tables.
type ColumnType string

const (
	TypeTimestamp ColumnType = "TIMESTAMP"
	TypeVarchar   ColumnType = "VARCHAR"
	TypeInteger   ColumnType = "INTEGER"
	TypeBoolean   ColumnType = "BOOLEAN"
	TypeDate      ColumnType = "DATE"
)

// Column is one column of a materialization.
type Column struct {
	Name string
	Type ColumnType
}

// Spec describes a materialization independently of its row type.
type Spec struct {
	Name       string
	Layer      Layer
	BlobKey    string
	Columns    []Column
	KeyColumns []string
}

// ColumnNames returns the column names in declaration order.
func (s Spec) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// Table binds a Spec to a concrete row type.
type Table[R any] struct {
	Spec

	// Key returns the encoded natural key of a row.
	Key func(R) string

	// Values returns the row as positional column values.
	Values func(R) []any

	// Scan builds a row from positional column values produced by DecodeCSV.
	Scan func([]any) (R, error)
}

// Rows converts rows to positional column values.
func (t Table[R]) Rows(rows []R) [][]any {
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = t.Values(r)
	}
	return out
}

// Specs returns every materialization in build order.
func Specs() []Spec {
	return []Spec{
		Cleaned.Spec,
		DimArtist.Spec,
		DimAlbum.Spec,
		DimTrack.Spec,
		Fact.Spec,
	}
}

// Lookup returns the spec with the given name.
func Lookup(name string) (Spec, bool) {
	for _, s := range Specs() {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}

// checkArity guards Scan implementations against a column count mismatch.
func checkArity(spec Spec, values []any) error {
	if len(values) != len(spec.Columns) {
		return fmt.Errorf("%s: expected %d values, got %d", spec.Name, len(spec.Columns), len(values))
	}
	return nil
}
