// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package snapshot

import (
	"reflect"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/backbeat/internal/blobstore"
	"github.com/tomtom215/backbeat/internal/models"
)

const prefix = "raw/spotify/recently_played"

func newStore(t *testing.T) blobstore.Store {
	t.Helper()
	s, err := blobstore.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func put(t *testing.T, s blobstore.Store, key, body string) {
	t.Helper()
	if err := s.Put(context.Background(), key, []byte(body)); err != nil {
		t.Fatal(err)
	}
}

func item(playedAt, trackID string) string {
	return `{"played_at":"` + playedAt + `","track":{"id":"` + trackID + `","name":"Song ` + trackID + `"}}`
}

func TestReader_EmptyPrefix(t *testing.T) {
	r := NewReader(newStore(t), prefix)
	events, err := r.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(events) != 0 {
		t.Errorf("ReadAll() returned %d events, want 0", len(events))
	}
}

func TestReader_OrderAcrossSnapshots(t *testing.T) {
	s := newStore(t)
	put(t, s, prefix+"/extraction_date=2024-01-02/recently_played_20240102T000000.json",
		`{"items":[`+item("2024-01-01T23:00:00Z", "t3")+`]}`)
	put(t, s, prefix+"/extraction_date=2024-01-01/recently_played_20240101T120000.json",
		`{"items":[`+item("2024-01-01T11:00:00Z", "t1")+`,`+item("2024-01-01T10:00:00Z", "t2")+`]}`)
	// Non-snapshot objects under the prefix are ignored.
	put(t, s, prefix+"/extraction_date=2024-01-01/notes.txt", "not json")
	put(t, s, prefix+"/extraction_date=2024-01-01/top_artists_20240101T120000.json", "{")

	r := NewReader(s, prefix)
	events, err := r.ReadAll(context.Background())
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}

	want := []string{"t1", "t2", "t3"}
	if len(events) != len(want) {
		t.Fatalf("ReadAll() returned %d events, want %d", len(events), len(want))
	}
	for i, id := range want {
		if got := *events[i].Track.ID; got != id {
			t.Errorf("events[%d].Track.ID = %q, want %q", i, got, id)
		}
	}
	if events[1].Position != 1 {
		t.Errorf("events[1].Position = %d, want 1", events[1].Position)
	}
	if !strings.HasSuffix(events[2].Snapshot, "recently_played_20240102T000000.json") {
		t.Errorf("events[2].Snapshot = %q", events[2].Snapshot)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		events  int
		corrupt bool
	}{
		{name: "items", body: `{"items":[` + item("2024-01-01T00:00:00Z", "a") + `]}`, events: 1},
		{name: "empty items", body: `{"items":[]}`, events: 0},
		{name: "missing items", body: `{"cursors":null}`, events: 0},
		{name: "nested nulls", body: `{"items":[{"played_at":null,"track":{"album":null,"artists":null}}]}`, events: 1},
		{name: "empty file", body: "", corrupt: true},
		{name: "whitespace", body: "  \n", corrupt: true},
		{name: "null", body: "null", corrupt: true},
		{name: "array", body: "[]", corrupt: true},
		{name: "truncated", body: `{"items":[{"played_at":`, corrupt: true},
		{name: "items not array", body: `{"items":{}}`, corrupt: true},
		{name: "wrong field type", body: `{"items":[{"played_at":123}]}`, corrupt: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := Decode("k.json", []byte(tt.body))
			if tt.corrupt {
				if !errors.Is(err, models.ErrCorruptSnapshot) {
					t.Errorf("Decode() error = %v, want ErrCorruptSnapshot", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if len(events) != tt.events {
				t.Errorf("Decode() returned %d events, want %d", len(events), tt.events)
			}
		})
	}
}

func TestReader_CorruptFailsWholeRead(t *testing.T) {
	s := newStore(t)
	put(t, s, prefix+"/extraction_date=2024-01-01/recently_played_20240101T000000.json",
		`{"items":[`+item("2024-01-01T00:00:00Z", "a")+`]}`)
	put(t, s, prefix+"/extraction_date=2024-01-02/recently_played_20240102T000000.json", `{"items":[`)

	events, err := NewReader(s, prefix).ReadAll(context.Background())
	if !errors.Is(err, models.ErrCorruptSnapshot) {
		t.Fatalf("ReadAll() error = %v, want ErrCorruptSnapshot", err)
	}
	if events != nil {
		t.Errorf("ReadAll() returned %d events alongside error", len(events))
	}
}

func TestReader_EachStopsOnCallbackError(t *testing.T) {
	s := newStore(t)
	put(t, s, prefix+"/extraction_date=2024-01-01/recently_played_20240101T000000.json",
		`{"items":[`+item("2024-01-01T00:00:00Z", "a")+`,`+item("2024-01-01T00:01:00Z", "b")+`]}`)

	stop := errors.New("stop")
	calls := 0
	err := NewReader(s, prefix).Each(context.Background(), func(models.RawEvent) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Each() error = %v, want stop", err)
	}
	if calls != 1 {
		t.Errorf("callback called %d times, want 1", calls)
	}
}

func TestWriter_Persist(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	w := NewWriter(s, prefix+"/")

	captured := time.Date(2024, 3, 1, 9, 15, 0, 0, time.FixedZone("CET", 3600))
	body := []byte(`{"items":[` + item("2024-03-01T08:00:00Z", "x") + `]}`)

	h, err := w.Persist(ctx, models.RawBatch{
		Items:     []models.RawEvent{{}},
		Body:      body,
		FetchedAt: captured,
	})
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}

	wantKey := prefix + "/extraction_date=2024-03-01/recently_played_20240301T081500.json"
	if h.Key != wantKey {
		t.Errorf("Key = %q, want %q", h.Key, wantKey)
	}
	if h.Events != 1 || h.Bytes != len(body) {
		t.Errorf("handle = %+v", h)
	}
	if !h.CapturedAt.Equal(captured) || h.CapturedAt.Location() != time.UTC {
		t.Errorf("CapturedAt = %v, want %v in UTC", h.CapturedAt, captured)
	}

	got, err := blobstore.ReadAll(ctx, s, h.Key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(body) {
		t.Error("snapshot body was not stored verbatim")
	}
}

func TestWriter_NeverOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	w := NewWriter(s, prefix)
	captured := time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC)

	first, err := w.Persist(ctx, models.RawBatch{Body: []byte(`{"items":[]}`), FetchedAt: captured})
	if err != nil {
		t.Fatal(err)
	}
	second, err := w.Persist(ctx, models.RawBatch{Body: []byte(`{"items":[{}]}`), FetchedAt: captured})
	if err != nil {
		t.Fatal(err)
	}

	if first.Key == second.Key {
		t.Fatalf("second Persist() reused key %q", first.Key)
	}
	if !strings.HasSuffix(second.Key, "recently_played_20240301T081500_001.json") {
		t.Errorf("second key = %q, want _001 suffix", second.Key)
	}

	keys, err := NewReader(s, prefix).Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(keys) != 2 || keys[0] != first.Key {
		t.Errorf("Keys() = %v, want original snapshot first", keys)
	}
}

func TestWriter_CollisionKeysKeepCaptureOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	w := NewWriter(s, prefix)
	captured := time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC)

	var persisted []string
	for i := 0; i < 12; i++ {
		h, err := w.Persist(ctx, models.RawBatch{Body: []byte(`{"items":[]}`), FetchedAt: captured})
		if err != nil {
			t.Fatalf("Persist() #%d error = %v", i, err)
		}
		persisted = append(persisted, h.Key)
	}

	keys, err := NewReader(s, prefix).Keys(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(keys, persisted) {
		t.Errorf("Keys() = %v\nwant persist order %v", keys, persisted)
	}
}

func TestWriter_EncodesItemsWithoutBody(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	w := NewWriter(s, prefix)

	played := "2024-03-01T08:00:00Z"
	id := "t1"
	h, err := w.Persist(ctx, models.RawBatch{
		Items:     []models.RawEvent{{PlayedAt: &played, Track: &models.RawTrack{ID: &id}}},
		FetchedAt: time.Date(2024, 3, 1, 8, 15, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}

	events, err := NewReader(s, prefix).Read(ctx, h.Key)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(events) != 1 || *events[0].Track.ID != "t1" || *events[0].PlayedAt != played {
		t.Errorf("Read() = %+v", events)
	}
}

func TestIsSnapshotKey(t *testing.T) {
	tests := map[string]bool{
		"raw/extraction_date=2024-01-01/recently_played_20240101T000000.json":   true,
		"raw/extraction_date=2024-01-01/recently_played_20240101T000000_3.json": true,
		"recently_played_x.json":   true,
		"raw/top_artists_1.json":   false,
		"raw/recently_played_1.js": false,
		"raw/recently_played.json": false,
	}
	for key, want := range tests {
		if got := IsSnapshotKey(key); got != want {
			t.Errorf("IsSnapshotKey(%q) = %v, want %v", key, got, want)
		}
	}
}
