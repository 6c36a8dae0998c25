// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package pipeline

import (
	"context"

	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/merge"
	"github.com/tomtom215/backbeat/internal/sink"
)

// Build is a merged materialization that has not been committed yet.
type Build[R any] struct {
	Table  catalog.Table[R]
	Result merge.Result[R]

	// Existed reports whether the materialization was already committed
	// before this merge.
	Existed bool
}

// Name returns the materialization name.
func (b Build[R]) Name() string {
	return b.Table.Name
}

// Values returns the final rows as positional column values.
func (b Build[R]) Values() [][]any {
	return b.Table.Rows(b.Result.Final)
}

// mergeInto loads the committed state of table and merges candidates into it.
func mergeInto[R any](ctx context.Context, w *sink.Writer, table catalog.Table[R], candidates []R) (Build[R], error) {
	existing, err := sink.Load(ctx, w, table)
	if err != nil {
		return Build[R]{}, err
	}
	return Build[R]{
		Table:   table,
		Result:  merge.Merge(candidates, existing, table.Key),
		Existed: existing.Present,
	}, nil
}
