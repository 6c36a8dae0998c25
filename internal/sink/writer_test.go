// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package sink

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/backbeat/internal/blobstore"
	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/models"
)

// failingStore wraps a store and fails every Put.
type failingStore struct {
	blobstore.Store
}

func (failingStore) Put(context.Context, string, []byte) error {
	return errors.New("disk full")
}

// recordingSink is a relational sink that records replaced tables.
type recordingSink struct {
	tables map[string][][]any
	fail   error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{tables: map[string][][]any{}}
}

func (r *recordingSink) EnsureSchema(context.Context) error { return nil }
func (r *recordingSink) Replace(_ context.Context, spec catalog.Spec, rows [][]any) error {
	if r.fail != nil {
		return r.fail
	}
	r.tables[spec.Name] = rows
	return nil
}
func (r *recordingSink) Count(_ context.Context, spec catalog.Spec) (int64, error) {
	return int64(len(r.tables[spec.Name])), nil
}
func (r *recordingSink) Ping(context.Context) error { return nil }
func (r *recordingSink) Driver() string             { return "recording" }
func (r *recordingSink) Close() error               { return nil }

func str(s string) *string { return &s }

func newFSStore(t *testing.T) *blobstore.FSStore {
	t.Helper()
	s, err := blobstore.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

var artists = []models.ArtistRow{
	{ArtistID: str("a1"), ArtistName: str("One")},
	{ArtistID: str("a2"), ArtistName: nil},
}

func TestCommit_BothSinks(t *testing.T) {
	ctx := context.Background()
	blob := newFSStore(t)
	rel := newRecordingSink()
	w := NewWriter(blob, rel)

	if err := w.Commit(ctx, catalog.DimArtist.Spec, catalog.DimArtist.Rows(artists)); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	existing, err := Load(ctx, w, catalog.DimArtist)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !existing.Present || len(existing.Rows) != 2 {
		t.Fatalf("Load() = %+v, want 2 present rows", existing)
	}
	if *existing.Rows[0].ArtistName != "One" || existing.Rows[1].ArtistName != nil {
		t.Errorf("round trip lost values: %+v", existing.Rows)
	}
	if len(rel.tables[catalog.NameDimArtist]) != 2 {
		t.Errorf("relational rows = %d, want 2", len(rel.tables[catalog.NameDimArtist]))
	}
}

func TestCommit_BlobFailureSkipsRelational(t *testing.T) {
	rel := newRecordingSink()
	w := NewWriter(failingStore{newFSStore(t)}, rel)

	err := w.Commit(context.Background(), catalog.DimArtist.Spec, catalog.DimArtist.Rows(artists))

	var se *models.SinkError
	if !errors.As(err, &se) || se.Sink != models.SinkBlob {
		t.Fatalf("Commit() error = %v, want blob SinkError", err)
	}
	if !errors.Is(err, models.ErrSinkWriteFailure) {
		t.Error("blob failure should match ErrSinkWriteFailure")
	}
	if _, ok := rel.tables[catalog.NameDimArtist]; ok {
		t.Error("relational sink written after blob failure")
	}
}

func TestCommit_RelationalFailureKeepsBlob(t *testing.T) {
	ctx := context.Background()
	rel := newRecordingSink()
	rel.fail = errors.New("connection refused")
	w := NewWriter(newFSStore(t), rel)

	err := w.Commit(ctx, catalog.DimArtist.Spec, catalog.DimArtist.Rows(artists))

	var se *models.SinkError
	if !errors.As(err, &se) || !se.IsRelational() {
		t.Fatalf("Commit() error = %v, want relational SinkError", err)
	}
	if se.Materialization != catalog.NameDimArtist {
		t.Errorf("Materialization = %q", se.Materialization)
	}

	existing, err := Load(ctx, w, catalog.DimArtist)
	if err != nil || len(existing.Rows) != 2 {
		t.Errorf("blob should hold the committed rows: %+v, %v", existing, err)
	}
}

func TestCommit_NoRelational(t *testing.T) {
	w := NewWriter(newFSStore(t), nil)
	if w.HasRelational() {
		t.Error("HasRelational() = true")
	}
	if err := w.Commit(context.Background(), catalog.DimArtist.Spec, catalog.DimArtist.Rows(artists)); err != nil {
		t.Errorf("Commit() error = %v", err)
	}
}

func TestLoad_Absent(t *testing.T) {
	w := NewWriter(newFSStore(t), nil)
	existing, err := Load(context.Background(), w, catalog.Fact)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if existing.Present {
		t.Error("Load() of missing blob should be absent")
	}
}

func TestLoad_EmptyButPresent(t *testing.T) {
	ctx := context.Background()
	w := NewWriter(newFSStore(t), nil)
	if err := w.Commit(ctx, catalog.Fact.Spec, nil); err != nil {
		t.Fatal(err)
	}
	existing, err := Load(ctx, w, catalog.Fact)
	if err != nil {
		t.Fatal(err)
	}
	if !existing.Present || len(existing.Rows) != 0 {
		t.Errorf("Load() = %+v, want present and empty", existing)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	ctx := context.Background()
	blob := newFSStore(t)
	if err := blob.Put(ctx, catalog.DimTrack.BlobKey, []byte("garbage,header\n")); err != nil {
		t.Fatal(err)
	}
	_, err := Load(ctx, NewWriter(blob, nil), catalog.DimTrack)
	if !errors.Is(err, models.ErrCorruptMaterialization) {
		t.Errorf("Load() error = %v, want ErrCorruptMaterialization", err)
	}
}

func TestReplaceRelational(t *testing.T) {
	rel := newRecordingSink()
	w := NewWriter(newFSStore(t), rel)
	if err := w.ReplaceRelational(context.Background(), catalog.DimArtist.Spec, catalog.DimArtist.Rows(artists[:1])); err != nil {
		t.Fatal(err)
	}
	if len(rel.tables[catalog.NameDimArtist]) != 1 {
		t.Error("ReplaceRelational() did not write")
	}
	if ok, _ := w.blob.Exists(context.Background(), catalog.DimArtist.BlobKey); ok {
		t.Error("ReplaceRelational() must not touch the blob store")
	}
}

func TestCommit_LogsMaterializationOnce(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.ContextWithLogger(context.Background(), zerolog.New(&buf).Level(zerolog.DebugLevel))
	ctx = logging.ContextWithMaterialization(ctx, catalog.NameDimArtist)

	w := NewWriter(newFSStore(t), newRecordingSink())
	if err := w.Commit(ctx, catalog.DimArtist.Spec, catalog.DimArtist.Rows(artists)); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want 2: %s", len(lines), buf.String())
	}
	for _, line := range lines {
		if n := strings.Count(line, `"materialization":`); n != 1 {
			t.Errorf("materialization field appears %d times in %s", n, line)
		}
	}
}
