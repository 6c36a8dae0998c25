// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/backbeat/internal/logging"
)

// DefaultShutdownTimeout bounds connection draining when none is given.
const DefaultShutdownTimeout = 10 * time.Second

// HTTPServer is satisfied by *http.Server.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService adapts the blocking ListenAndServe to suture.Service.
type HTTPServerService struct {
	server HTTPServer
	drain  time.Duration
	label  string
}

// NewHTTPServerService supervises server. Cancelling Serve's context drains
// connections for at most shutdownTimeout.
func NewHTTPServerService(server HTTPServer, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = DefaultShutdownTimeout
	}
	label := "http-server"
	if hs, ok := server.(*http.Server); ok && hs.Addr != "" {
		label += "@" + hs.Addr
	}
	return &HTTPServerService{server: server, drain: shutdownTimeout, label: label}
}

// Serve returns listener failures so the supervisor restarts the server.
func (s *HTTPServerService) Serve(ctx context.Context) error {
	log := logging.WithComponent("http")
	done := make(chan error, 1)
	go func() {
		err := s.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		done <- err
	}()
	log.Info().Str("service", s.label).Msg("HTTP server listening")

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: listen: %w", s.label, err)
		}
		return nil
	case <-ctx.Done():
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), s.drain)
	defer cancel()
	if err := s.server.Shutdown(drainCtx); err != nil {
		return fmt.Errorf("%s: shutdown: %w", s.label, err)
	}
	if err := <-done; err != nil {
		log.Warn().Err(err).Msg("HTTP server exited with error during shutdown")
	}
	log.Info().Str("service", s.label).Msg("HTTP server stopped")
	return ctx.Err()
}

func (s *HTTPServerService) String() string {
	return s.label
}
