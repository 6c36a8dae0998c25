// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/backbeat/internal/blobstore"
	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/models"
	"github.com/tomtom215/backbeat/internal/runstate"
)

const testPrefix = "raw/spotify/recently_played"

var testNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

// event describes one play in a test snapshot.
type event struct {
	playedAt   string
	trackID    string
	trackName  string
	albumID    string
	albumName  string
	artistID   string
	artistName string
	popularity int
}

func (e event) json() string {
	var album, artists string
	if e.albumID != "" {
		album = fmt.Sprintf(`,"album":{"id":%q,"name":%q,"release_date":"2021-03-04"}`, e.albumID, e.albumName)
	}
	if e.artistID != "" {
		artists = fmt.Sprintf(`,"artists":[{"id":%q,"name":%q},{"id":"feat","name":"Featured"}]`, e.artistID, e.artistName)
	}
	return fmt.Sprintf(`{"played_at":%q,"track":{"id":%q,"name":%q,"duration_ms":180000,"popularity":%d,"explicit":false%s%s}}`,
		e.playedAt, e.trackID, e.trackName, e.popularity, album, artists)
}

func play(playedAt, trackID string) event {
	return event{
		playedAt:   playedAt,
		trackID:    trackID,
		trackName:  "Song " + trackID,
		albumID:    "album-" + trackID,
		albumName:  "Album " + trackID,
		artistID:   "artist-" + trackID,
		artistName: "Artist " + trackID,
		popularity: 50,
	}
}

func newStore(t *testing.T) *blobstore.FSStore {
	t.Helper()
	s, err := blobstore.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// putSnapshot writes a snapshot named after stamp (YYYYMMDDTHHMMSS).
func putSnapshot(t *testing.T, s blobstore.Store, stamp string, events ...event) {
	t.Helper()
	items := make([]string, len(events))
	for i, e := range events {
		items[i] = e.json()
	}
	key := fmt.Sprintf("%s/extraction_date=%s-%s-%s/recently_played_%s.json",
		testPrefix, stamp[0:4], stamp[4:6], stamp[6:8], stamp)
	body := `{"items":[` + strings.Join(items, ",") + `]}`
	if err := s.Put(context.Background(), key, []byte(body)); err != nil {
		t.Fatal(err)
	}
}

func loadRows[R any](t *testing.T, s blobstore.Store, table catalog.Table[R]) []R {
	t.Helper()
	data, err := blobstore.ReadAll(context.Background(), s, table.BlobKey)
	if err != nil {
		t.Fatalf("read %s: %v", table.Name, err)
	}
	rows, err := catalog.DecodeRows(table, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode %s: %v", table.Name, err)
	}
	return rows
}

func blobExists(t *testing.T, s blobstore.Store, key string) bool {
	t.Helper()
	ok, err := s.Exists(context.Background(), key)
	if err != nil {
		t.Fatal(err)
	}
	return ok
}

// fakeSink is an in-memory relational sink that can be told to fail.
type fakeSink struct {
	mu       sync.Mutex
	tables   map[string][][]any
	replaces map[string]int
	failOn   map[string]bool
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		tables:   map[string][][]any{},
		replaces: map[string]int{},
		failOn:   map[string]bool{},
	}
}

func (f *fakeSink) setFail(name string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[name] = fail
}

func (f *fakeSink) EnsureSchema(context.Context) error { return nil }

func (f *fakeSink) Replace(_ context.Context, spec catalog.Spec, rows [][]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn[spec.Name] {
		return errors.New("connection reset")
	}
	f.tables[spec.Name] = rows
	f.replaces[spec.Name]++
	return nil
}

func (f *fakeSink) Count(_ context.Context, spec catalog.Spec) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.tables[spec.Name])), nil
}

func (f *fakeSink) Ping(context.Context) error { return nil }
func (f *fakeSink) Driver() string             { return "fake" }
func (f *fakeSink) Close() error               { return nil }

func (f *fakeSink) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[name])
}

func (f *fakeSink) replaceCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.replaces[name]
}

type harness struct {
	store   *blobstore.FSStore
	rel     *fakeSink
	journal *runstate.InMemory
	runner  *Runner
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		store:   newStore(t),
		rel:     newFakeSink(),
		journal: runstate.NewInMemory(),
	}
	opts = append([]Option{WithClock(func() time.Time { return testNow })}, opts...)
	h.runner = New(Deps{
		Store:      h.store,
		Relational: h.rel,
		Journal:    h.journal,
		Prefix:     testPrefix,
	}, opts...)
	return h
}

func (h *harness) mustRun(t *testing.T) *models.RunReport {
	t.Helper()
	report, err := h.runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Status != models.RunSucceeded {
		t.Fatalf("Run() status = %s", report.Status)
	}
	return report
}

func materialization(t *testing.T, report *models.RunReport, name string) models.MaterializationReport {
	t.Helper()
	m := report.Materialization(name)
	if m == nil {
		t.Fatalf("report has no materialization %s", name)
	}
	return *m
}
