// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/backbeat/internal/api"
	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/relational"
	"github.com/tomtom215/backbeat/internal/spotify"
	"github.com/tomtom215/backbeat/internal/supervisor"
	"github.com/tomtom215/backbeat/internal/supervisor/services"
)

// cmdRun executes one run. The report is logged by the runner; the returned
// error decides the exit code.
func cmdRun(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Schedule.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Schedule.RunTimeout)
		defer cancel()
	}

	report, err := a.runner.Run(ctx)
	if report != nil {
		logging.Info().
			Str("run_id", report.ID).
			Str("status", string(report.Status)).
			Int("events_read", report.EventsRead).
			Int("inserted", report.Inserted()).
			Dur("duration", report.Duration()).
			Msg("Run finished")
	}
	return err
}

// cmdServe runs the scheduler and the HTTP API under a supervisor tree
// until the process is signalled.
func cmdServe(ctx context.Context, cfg *config.Config) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	if cfg.Schedule.Interval > 0 {
		tree.AddPipelineService(services.NewSchedulerService(a.runner, cfg.Schedule))
		logging.Info().Dur("interval", cfg.Schedule.Interval).Msg("Scheduler service added")
	} else {
		logging.Info().Msg("Scheduler disabled, runs only start through the API")
	}

	if cfg.Server.Enabled {
		srv := api.NewServer(api.Deps{
			Runner:  a.runner,
			Journal: a.journal,
			Checks:  a.readinessChecks(),
			Auth:    a.oauth,
			Tokens:  a.tokens,
		}, &cfg.Server)
		tree.AddAPIService(services.NewHTTPServerService(newHTTPServer(&cfg.Server, srv.Handler()), 10*time.Second))
		logging.Info().Str("addr", cfg.Server.Addr()).Msg("HTTP server service added")
	}

	if cfg.Schedule.Interval <= 0 && !cfg.Server.Enabled {
		return errors.New("serve: nothing to do, both schedule.interval and server.enabled are off")
	}

	errCh := tree.ServeBackground(ctx)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Stopped")
	return nil
}

// cmdAuthorize serves only the OAuth routes and returns once a token has
// been stored.
func cmdAuthorize(ctx context.Context, cfg *config.Config) error {
	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		return errors.New("authorize: spotify.client_id and spotify.client_secret are required")
	}

	oauth := spotify.NewOAuth(&cfg.Spotify)
	saver := &notifyingSaver{
		next: spotify.NewTokenStore(cfg.Spotify.TokenFile),
		done: make(chan struct{}),
	}

	srv := api.NewServer(api.Deps{Auth: oauth, Tokens: saver}, &cfg.Server)
	httpSrv := newHTTPServer(&cfg.Server, srv.Handler())

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	logging.Info().
		Str("login_url", fmt.Sprintf("http://%s/auth/login", cfg.Server.Addr())).
		Str("redirect_uri", cfg.Spotify.RedirectURI).
		Msg("Open the login URL in a browser to authorize backbeat")

	var result error
	select {
	case <-saver.done:
		logging.Info().Str("token_file", cfg.Spotify.TokenFile).Msg("Token stored")
	case err := <-errCh:
		result = fmt.Errorf("authorize server: %w", err)
	case <-ctx.Done():
		result = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	return result
}

// notifyingSaver closes done after the first successful save.
type notifyingSaver struct {
	next api.TokenSaver
	once sync.Once
	done chan struct{}
}

func (s *notifyingSaver) Save(tok *spotify.Token) error {
	if err := s.next.Save(tok); err != nil {
		return err
	}
	s.once.Do(func() { close(s.done) })
	return nil
}

// cmdSchema creates the relational schemas and tables.
func cmdSchema(ctx context.Context, cfg *config.Config) error {
	rel, err := relational.Open(ctx, &cfg.Relational)
	if err != nil {
		return err
	}
	if rel == nil {
		return errors.New("schema: relational.driver is none")
	}
	defer rel.Close()

	if err := rel.EnsureSchema(ctx); err != nil {
		return err
	}
	logging.Info().
		Str("driver", rel.Driver()).
		Str("silver", cfg.Relational.SilverSchema).
		Str("gold", cfg.Relational.GoldSchema).
		Msg("Schema ensured")
	return nil
}

func newHTTPServer(cfg *config.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Timeout,
		WriteTimeout:      cfg.Timeout,
		IdleTimeout:       2 * cfg.Timeout,
	}
}
