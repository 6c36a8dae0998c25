// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/backbeat/internal/api"
	"github.com/tomtom215/backbeat/internal/blobstore"
	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/notify"
	"github.com/tomtom215/backbeat/internal/pipeline"
	"github.com/tomtom215/backbeat/internal/relational"
	"github.com/tomtom215/backbeat/internal/runstate"
	"github.com/tomtom215/backbeat/internal/spotify"
)

// app holds the wired components shared by the run and serve commands.
type app struct {
	cfg       *config.Config
	store     blobstore.Store
	rel       relational.Sink
	journal   runstate.Journal
	publisher notify.Publisher
	oauth     *spotify.OAuth
	tokens    *spotify.TokenSource
	runner    *pipeline.Runner

	closers []func() error
}

// newApp opens every backend named by cfg. On error, whatever was already
// opened is closed.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	a.store, err = blobstore.Open(ctx, &cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	a.closers = append(a.closers, a.store.Close)

	a.rel, err = relational.Open(ctx, &cfg.Relational)
	if err != nil {
		return nil, fmt.Errorf("open relational sink: %w", err)
	}
	if a.rel != nil {
		a.closers = append(a.closers, a.rel.Close)
	}

	a.journal, err = openJournal(&cfg.RunState)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.journal.Close)

	a.publisher, err = notify.Open(&cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("open notifier: %w", err)
	}
	a.closers = append(a.closers, a.publisher.Close)

	a.oauth = spotify.NewOAuth(&cfg.Spotify)
	a.tokens = spotify.NewTokenSource(a.oauth, spotify.NewTokenStore(cfg.Spotify.TokenFile))

	opts := []pipeline.Option{pipeline.WithRunTimeout(cfg.Schedule.RunTimeout)}
	if cfg.Source.Fetch {
		client := spotify.NewCircuitBreakerClient(&cfg.Spotify)
		opts = append(opts, pipeline.WithFetcher(client, a.tokens, cfg.Spotify.FetchLimit))
	}

	a.runner = pipeline.New(pipeline.Deps{
		Store:      a.store,
		Relational: a.rel,
		Journal:    a.journal,
		Publisher:  a.publisher,
		Prefix:     cfg.Source.Prefix,
	}, opts...)

	logging.Info().
		Str("blob_backend", cfg.Blob.Backend).
		Str("relational_driver", cfg.Relational.Driver).
		Bool("fetch", cfg.Source.Fetch).
		Str("notify", a.publisher.Transport()).
		Bool("durable_runstate", cfg.RunState.Enabled).
		Msg("Pipeline components initialized")

	return a, nil
}

func openJournal(cfg *config.RunStateConfig) (runstate.Journal, error) {
	if !cfg.Enabled {
		logging.Warn().Msg("Run state is in memory; dirty relational tables are forgotten on restart")
		return runstate.NewInMemory(), nil
	}
	j, err := runstate.OpenBadger(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("open run state %s: %w", cfg.Dir, err)
	}
	return j, nil
}

// readinessChecks probes the blob store and, when configured, the
// relational sink.
func (a *app) readinessChecks() map[string]api.Check {
	checks := map[string]api.Check{
		"blob": func(ctx context.Context) error {
			_, err := a.store.List(ctx, a.cfg.Source.Prefix)
			return err
		},
	}
	if a.rel != nil {
		checks["relational"] = a.rel.Ping
	}
	return checks
}

// Close releases resources in reverse order of opening.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		logging.Error().Err(err).Msg("Error closing components")
		return err
	}
	return nil
}
