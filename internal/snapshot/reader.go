// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/backbeat/internal/blobstore"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/models"
)

const (
	filePrefix = "recently_played_"
	fileSuffix = ".json"
)

// document is the container shape of a snapshot. A missing items field is
// an empty batch.
type document struct {
	Items []models.RawEvent `json:"items"`
}

// Reader enumerates snapshots below a partition prefix.
type Reader struct {
	store  blobstore.Store
	prefix string
}

// NewReader creates a reader over store rooted at prefix.
func NewReader(store blobstore.Store, prefix string) *Reader {
	return &Reader{store: store, prefix: strings.Trim(prefix, "/")}
}

// Keys returns every snapshot key below the prefix in lexical order, which is
// capture order for the key layout the Writer produces. Objects that are not
// named like snapshots are ignored.
func (r *Reader) Keys(ctx context.Context) ([]string, error) {
	all, err := r.store.List(ctx, r.prefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots under %s: %w", r.prefix, err)
	}
	keys := make([]string, 0, len(all))
	for _, k := range all {
		if IsSnapshotKey(k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Each calls fn for every event of every snapshot, in key order and then
// source order within a snapshot. Snapshots are loaded one at a time. It stops
// at the first error from the store, the decoder or fn.
func (r *Reader) Each(ctx context.Context, fn func(models.RawEvent) error) error {
	keys, err := r.Keys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		events, err := r.Read(ctx, key)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if err := fn(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReadAll returns the concatenated events of every snapshot. An empty or
// missing prefix yields no events.
func (r *Reader) ReadAll(ctx context.Context) ([]models.RawEvent, error) {
	var events []models.RawEvent
	err := r.Each(ctx, func(ev models.RawEvent) error {
		events = append(events, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Debug().
		Str("prefix", r.prefix).
		Int("events", len(events)).
		Msg("Read raw snapshots")
	return events, nil
}

// Read parses a single snapshot.
func (r *Reader) Read(ctx context.Context, key string) ([]models.RawEvent, error) {
	data, err := blobstore.ReadAll(ctx, r.store, key)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	return Decode(key, data)
}

// Decode parses snapshot content. key is recorded on each event for
// provenance and in error messages.
func Decode(key string, data []byte) ([]models.RawEvent, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: %s: not a JSON object", models.ErrCorruptSnapshot, key)
	}

	var doc document
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrCorruptSnapshot, key, err)
	}

	for i := range doc.Items {
		doc.Items[i].Snapshot = key
		doc.Items[i].Position = i
	}
	return doc.Items, nil
}

// IsSnapshotKey reports whether key names a raw snapshot.
func IsSnapshotKey(key string) bool {
	base := path.Base(key)
	return strings.HasPrefix(base, filePrefix) && strings.HasSuffix(base, fileSuffix)
}
