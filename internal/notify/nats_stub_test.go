// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

//go:build !nats

package notify

import (
	"errors"
	"testing"

	"github.com/tomtom215/backbeat/internal/config"
)

func TestOpen_NATSUnavailable(t *testing.T) {
	t.Parallel()

	pub, err := Open(&config.NATSConfig{Enabled: true, URL: "nats://127.0.0.1:4222"})
	if !errors.Is(err, ErrNATSUnavailable) {
		t.Fatalf("Open() error = %v, want ErrNATSUnavailable", err)
	}
	if pub != nil {
		t.Errorf("Open() publisher = %v, want nil", pub)
	}
}
