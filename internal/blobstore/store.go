// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Package blobstore provides the key/value object storage that holds raw
// snapshots and the flat-file materializations.
//
// Two backends are available: a local filesystem tree and S3 (or any
// S3-compatible API such as MinIO). Keys are slash-separated relative paths.
// A missing key is reported as ErrNotFound, which also matches os.ErrNotExist.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"

	"github.com/tomtom215/backbeat/internal/config"
)

// ErrNotFound is returned by Get for a missing key. It wraps fs.ErrNotExist
// so callers may test with either.
var ErrNotFound = fmt.Errorf("blob not found: %w", fs.ErrNotExist)

// ErrInvalidKey is returned for keys that are absolute or escape the root.
var ErrInvalidKey = errors.New("invalid blob key")

// Store is a flat key/value object store.
type Store interface {
	// Get opens the object at key. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Put writes data at key, replacing any existing object. Readers never
	// observe a partially written object.
	Put(ctx context.Context, key string, data []byte) error

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns every key below prefix in lexical order. A prefix with no
	// objects yields an empty slice, not an error.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// Open constructs the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg *config.BlobConfig) (Store, error) {
	switch cfg.Backend {
	case config.BlobBackendFS, "":
		return NewFSStore(cfg.Root)
	case config.BlobBackendS3:
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.Bucket,
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			UsePathStyle:    cfg.UsePathStyle,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}

// ReadAll reads the object at key into memory.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, error) {
	rc, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// IsNotFound reports whether err means the key does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// cleanKey validates a key and strips redundant slashes.
func cleanKey(key string) (string, error) {
	trimmed := strings.Trim(key, "/")
	if trimmed == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(trimmed, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return trimmed, nil
}

// cleanPrefix is cleanKey for List prefixes, which may be empty.
func cleanPrefix(prefix string) (string, error) {
	if strings.Trim(prefix, "/") == "" {
		return "", nil
	}
	p, err := cleanKey(prefix)
	if err != nil {
		return "", err
	}
	return p + "/", nil
}
