// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package spotify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/backbeat/internal/logging"
)

// RefreshMargin is how close to expiry a token is refreshed.
const RefreshMargin = 60 * time.Second

// ErrNoToken is returned when no token has been stored yet. Run the
// authorize command first.
var ErrNoToken = errors.New("spotify: no token stored, run authorize first")

// TokenStore persists a Token as a JSON file.
type TokenStore struct {
	path string
}

// NewTokenStore creates a store backed by path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the token file location.
func (s *TokenStore) Path() string {
	return s.path
}

// Load reads the stored token. It returns ErrNoToken when the file does not
// exist.
func (s *TokenStore) Load() (*Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var tok Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token file %s: %w", s.path, err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token file %s has no access_token", s.path)
	}
	return &tok, nil
}

// Save writes tok atomically with owner-only permissions.
func (s *TokenStore) Save(tok *Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// refresher renews a token. Implemented by *OAuth.
type refresher interface {
	Refresh(ctx context.Context, tok *Token) (*Token, error)
}

// TokenSource hands out a valid access token, refreshing and saving it when
// it is about to expire. Safe for concurrent use.
type TokenSource struct {
	mu     sync.Mutex
	oauth  refresher
	store  *TokenStore
	cached *Token
	now    func() time.Time
}

// NewTokenSource creates a TokenSource.
func NewTokenSource(oauth *OAuth, store *TokenStore) *TokenSource {
	return &TokenSource{oauth: oauth, store: store, now: time.Now}
}

// Save persists tok and makes it the cached token, replacing whatever an
// earlier authorization left behind.
func (ts *TokenSource) Save(tok *Token) error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if err := ts.store.Save(tok); err != nil {
		return err
	}
	ts.cached = tok
	return nil
}

// AccessToken returns a bearer token valid for at least RefreshMargin.
func (ts *TokenSource) AccessToken(ctx context.Context) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.cached == nil {
		tok, err := ts.store.Load()
		if err != nil {
			return "", err
		}
		ts.cached = tok
	}

	if !ts.cached.ExpiresWithin(ts.now(), RefreshMargin) {
		return ts.cached.AccessToken, nil
	}

	fresh, err := ts.oauth.Refresh(ctx, ts.cached)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if err := ts.store.Save(fresh); err != nil {
		return "", err
	}
	ts.cached = fresh

	logging.Ctx(ctx).Info().Time("expiry", fresh.Expiry).Msg("Spotify access token refreshed")
	return fresh.AccessToken, nil
}
