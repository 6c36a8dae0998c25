// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Package sink commits materializations to the blob store and the relational
// mirror.
//
// The blob store is the source of truth: every merge reads its existing rows
// from the blob copy, and a commit writes the blob first. The relational
// table is replaced afterwards. The two writes are independent; when the
// relational write fails the blob is not rolled back, and the caller records
// the table as out of sync so a later run can replace it again.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/backbeat/internal/blobstore"
	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/merge"
	"github.com/tomtom215/backbeat/internal/metrics"
	"github.com/tomtom215/backbeat/internal/models"
	"github.com/tomtom215/backbeat/internal/relational"
)

// Writer is the dual-sink writer. The relational sink may be nil, in which
// case only the blob store is written.
type Writer struct {
	blob blobstore.Store
	rel  relational.Sink
}

// NewWriter creates a Writer.
func NewWriter(blob blobstore.Store, rel relational.Sink) *Writer {
	return &Writer{blob: blob, rel: rel}
}

// HasRelational reports whether a relational sink is configured.
func (w *Writer) HasRelational() bool {
	return w.rel != nil
}

// Commit writes rows as the complete new state of the materialization: a full
// overwrite of the blob file, then a drop-and-replace of the relational table.
//
// A blob failure returns a *SinkError for the blob sink and leaves the
// relational table untouched. A relational failure returns a *SinkError for
// the relational sink after the blob has been written. Both match
// models.ErrSinkWriteFailure.
func (w *Writer) Commit(ctx context.Context, spec catalog.Spec, rows [][]any) error {
	data, err := catalog.EncodeCSV(spec, rows)
	if err != nil {
		return &models.SinkError{Sink: models.SinkBlob, Materialization: spec.Name, Err: err}
	}
	start := time.Now()
	err = w.blob.Put(ctx, spec.BlobKey, data)
	metrics.RecordSinkWrite(models.SinkBlob, spec.Name, time.Since(start), err)
	if err != nil {
		return &models.SinkError{Sink: models.SinkBlob, Materialization: spec.Name, Err: err}
	}

	logging.Ctx(ctx).Debug().
		Str("key", spec.BlobKey).
		Int("rows", len(rows)).
		Int("bytes", len(data)).
		Msg("Blob materialization written")

	return w.ReplaceRelational(ctx, spec, rows)
}

// ReplaceRelational replaces only the relational table. It is used to bring
// a table back in sync with its blob after an earlier relational failure.
func (w *Writer) ReplaceRelational(ctx context.Context, spec catalog.Spec, rows [][]any) error {
	if w.rel == nil {
		return nil
	}
	start := time.Now()
	err := w.rel.Replace(ctx, spec, rows)
	metrics.RecordSinkWrite(models.SinkRelational, spec.Name, time.Since(start), err)
	if err != nil {
		return &models.SinkError{Sink: models.SinkRelational, Materialization: spec.Name, Err: err}
	}

	logging.Ctx(ctx).Debug().
		Str("driver", w.rel.Driver()).
		Int("rows", len(rows)).
		Msg("Relational table replaced")
	return nil
}

// EnsureSchema bootstraps the relational schema. It is a no-op without a
// relational sink.
func (w *Writer) EnsureSchema(ctx context.Context) error {
	if w.rel == nil {
		return nil
	}
	if err := w.rel.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure %s schema: %w", w.rel.Driver(), err)
	}
	return nil
}

// Load reads the current state of a materialization from the blob store.
// A missing blob is an absent materialization. An unreadable blob fails with
// models.ErrCorruptMaterialization.
func Load[R any](ctx context.Context, w *Writer, table catalog.Table[R]) (merge.Existing[R], error) {
	data, err := blobstore.ReadAll(ctx, w.blob, table.BlobKey)
	if blobstore.IsNotFound(err) {
		return merge.Absent[R](), nil
	}
	if err != nil {
		return merge.Existing[R]{}, fmt.Errorf("load %s: %w", table.Name, err)
	}

	rows, err := catalog.DecodeRows(table, bytes.NewReader(data))
	if err != nil {
		return merge.Existing[R]{}, fmt.Errorf("load %s: %w", table.Name, err)
	}
	return merge.Current(rows), nil
}
