// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package blobstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/tomtom215/backbeat/internal/config"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	s, err := NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFSStore() error = %v", err)
	}
	return s
}

func TestFSStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Put(ctx, "silver/recently_played.csv", []byte("a,b\n")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := ReadAll(ctx, s, "silver/recently_played.csv")
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(got) != "a,b\n" {
		t.Errorf("ReadAll() = %q, want %q", got, "a,b\n")
	}

	// Overwrite replaces the whole object.
	if err := s.Put(ctx, "silver/recently_played.csv", []byte("c\n")); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}
	got, _ = ReadAll(ctx, s, "silver/recently_played.csv")
	if string(got) != "c\n" {
		t.Errorf("after overwrite = %q, want %q", got, "c\n")
	}
}

func TestFSStore_GetMissing(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "gold/dim_artist.csv")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Get() error = %v, want os.ErrNotExist match", err)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound() = false, want true")
	}
}

func TestFSStore_Exists(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ok, err := s.Exists(ctx, "x/y.json")
	if err != nil || ok {
		t.Fatalf("Exists() before put = %v, %v; want false, nil", ok, err)
	}
	if err := s.Put(ctx, "x/y.json", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	ok, err = s.Exists(ctx, "x/y.json")
	if err != nil || !ok {
		t.Errorf("Exists() after put = %v, %v; want true, nil", ok, err)
	}
	// A directory is not an object.
	ok, _ = s.Exists(ctx, "x")
	if ok {
		t.Error("Exists() on directory = true, want false")
	}
}

func TestFSStore_List(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	keys := []string{
		"raw/extraction_date=2024-01-02/recently_played_20240102T000000.json",
		"raw/extraction_date=2024-01-01/recently_played_20240101T120000.json",
		"raw/extraction_date=2024-01-01/recently_played_20240101T080000.json",
		"silver/recently_played.csv",
	}
	for _, k := range keys {
		if err := s.Put(ctx, k, []byte("{}")); err != nil {
			t.Fatal(err)
		}
	}
	// Leftover temp files from an interrupted write are ignored.
	tmp := filepath.Join(s.Root(), "raw", "extraction_date=2024-01-01", ".tmp-partial-123")
	if err := os.WriteFile(tmp, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := s.List(ctx, "raw")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{
		"raw/extraction_date=2024-01-01/recently_played_20240101T080000.json",
		"raw/extraction_date=2024-01-01/recently_played_20240101T120000.json",
		"raw/extraction_date=2024-01-02/recently_played_20240102T000000.json",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("List(\"\") returned %d keys, want 4", len(all))
	}
}

func TestFSStore_ListMissingPrefix(t *testing.T) {
	s := newTestStore(t)
	got, err := s.List(context.Background(), "raw/never/written")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}

func TestFSStore_InvalidKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, key := range []string{"", "/abs/path", "../escape", "a/../../b", "a//b", "./a"} {
		t.Run(key, func(t *testing.T) {
			if err := s.Put(ctx, key, []byte("x")); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Put(%q) error = %v, want ErrInvalidKey", key, err)
			}
		})
	}
}

func TestFSStore_CanceledContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Put(ctx, "a.json", []byte("x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Put() error = %v, want context.Canceled", err)
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), &config.BlobConfig{Backend: config.BlobBackendFS, Root: dir})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*FSStore); !ok {
		t.Errorf("Open() returned %T, want *FSStore", s)
	}

	if _, err := Open(context.Background(), &config.BlobConfig{Backend: "gcs"}); err == nil {
		t.Error("Open() with unknown backend: expected error")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"a/b.json": "application/json",
		"a/b.csv":  "text/csv",
		"a/b":      "application/octet-stream",
	}
	for key, want := range tests {
		if got := contentType(key); got != want {
			t.Errorf("contentType(%q) = %q, want %q", key, got, want)
		}
	}
}
