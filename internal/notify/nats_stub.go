// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

//go:build !nats

package notify

import (
	"context"
	"errors"

	"github.com/tomtom215/backbeat/internal/models"
)

// ErrNATSUnavailable is returned when the binary was built without NATS.
var ErrNATSUnavailable = errors.New("NATS publisher not available: build with -tags=nats")

// NATSPublisher is a stub when NATS dependencies are not compiled in.
type NATSPublisher struct{}

// NewNATSPublisher returns ErrNATSUnavailable.
func NewNATSPublisher(_, _ string) (*NATSPublisher, error) {
	return nil, ErrNATSUnavailable
}

// Publish returns ErrNATSUnavailable.
func (p *NATSPublisher) Publish(context.Context, *models.RunReport) error {
	return ErrNATSUnavailable
}

// Transport implements Publisher.
func (p *NATSPublisher) Transport() string {
	return "nats"
}

// Close is a no-op.
func (p *NATSPublisher) Close() error {
	return nil
}
