// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package snapshot

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/backbeat/internal/blobstore"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/models"
)

const (
	partitionLayout = "2006-01-02"
	fileTimeLayout  = "20060102T150405"

	// maxCollisions bounds the suffix search for captures within one second.
	maxCollisions = 1000
)

// Writer persists raw batches as immutable snapshots.
type Writer struct {
	store  blobstore.Store
	prefix string
}

// NewWriter creates a writer that stores snapshots below prefix.
func NewWriter(store blobstore.Store, prefix string) *Writer {
	return &Writer{store: store, prefix: strings.Trim(prefix, "/")}
}

// Persist stores batch under a key derived from its capture time and returns
// a handle to it. The upstream body is written verbatim when present;
// otherwise the parsed items are re-encoded.
func (w *Writer) Persist(ctx context.Context, batch models.RawBatch) (*models.SnapshotHandle, error) {
	captured := batch.FetchedAt
	if captured.IsZero() {
		captured = time.Now()
	}
	captured = captured.UTC()

	body := batch.Body
	if len(body) == 0 {
		var err error
		body, err = json.Marshal(document{Items: batch.Items})
		if err != nil {
			return nil, fmt.Errorf("encode snapshot: %w", err)
		}
	}

	key, err := w.freeKey(ctx, captured)
	if err != nil {
		return nil, err
	}
	if err := w.store.Put(ctx, key, body); err != nil {
		return nil, fmt.Errorf("write snapshot %s: %w", key, err)
	}

	handle := &models.SnapshotHandle{
		Key:        key,
		CapturedAt: captured,
		Events:     len(batch.Items),
		Bytes:      len(body),
	}
	logging.Ctx(ctx).Info().
		Str("key", key).
		Int("events", handle.Events).
		Int("bytes", handle.Bytes).
		Msg("Persisted raw snapshot")
	return handle, nil
}

// Key returns the snapshot key for a capture time, without collision handling.
func (w *Writer) Key(captured time.Time) string {
	return w.keyWithSuffix(captured.UTC(), 0)
}

func (w *Writer) keyWithSuffix(captured time.Time, n int) string {
	name := filePrefix + captured.Format(fileTimeLayout)
	if n > 0 {
		name = fmt.Sprintf("%s_%03d", name, n)
	}
	name += fileSuffix
	return path.Join(w.prefix, "extraction_date="+captured.Format(partitionLayout), name)
}

func (w *Writer) freeKey(ctx context.Context, captured time.Time) (string, error) {
	for n := 0; n < maxCollisions; n++ {
		key := w.keyWithSuffix(captured, n)
		exists, err := w.store.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("check snapshot %s: %w", key, err)
		}
		if !exists {
			return key, nil
		}
	}
	return "", fmt.Errorf("no free snapshot key for %s after %d attempts",
		captured.Format(fileTimeLayout), maxCollisions)
}
