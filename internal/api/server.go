// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/middleware"
	"github.com/tomtom215/backbeat/internal/runstate"
	"github.com/tomtom215/backbeat/internal/spotify"
)

// RunTrigger starts pipeline runs. Implemented by *pipeline.Runner.
type RunTrigger interface {
	Start(ctx context.Context) (string, error)
	Running() bool
}

// Authorizer drives the Spotify authorization code flow. Implemented by
// *spotify.OAuth.
type Authorizer interface {
	AuthorizationURL(extra url.Values) string
	Exchange(ctx context.Context, code string) (*spotify.Token, error)
}

// TokenSaver persists a newly authorized token. Implemented by
// *spotify.TokenSource.
type TokenSaver interface {
	Save(tok *spotify.Token) error
}

// Check is a named readiness probe.
type Check func(ctx context.Context) error

// Deps holds the collaborators of the HTTP server. The /api/v1 routes are
// mounted when Runner and Journal are set, the /auth routes when Auth and
// Tokens are set.
type Deps struct {
	Runner  RunTrigger
	Journal runstate.Journal
	Checks  map[string]Check
	Auth    Authorizer
	Tokens  TokenSaver
}

// Server serves the operational API.
type Server struct {
	deps         Deps
	cfg          *config.ServerConfig
	checkTimeout time.Duration
	router       chi.Router
}

// NewServer builds the router.
func NewServer(deps Deps, cfg *config.ServerConfig) *Server {
	s := &Server{
		deps:         deps,
		cfg:          cfg,
		checkTimeout: 5 * time.Second,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.SecurityHeaders)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit())

		if s.deps.Runner != nil && s.deps.Journal != nil {
			r.Route("/api/v1", func(r chi.Router) {
				r.Get("/runs", s.handleListRuns)
				r.Get("/runs/latest", s.handleLatestRun)
				r.Post("/runs", s.handleStartRun)
				r.Get("/materializations/dirty", s.handleDirty)
			})
		}

		if s.deps.Auth != nil && s.deps.Tokens != nil {
			r.Get("/auth/login", s.handleLogin)
			r.Get("/auth/callback", s.handleCallback)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).NotFound("route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewResponseWriter(w, r).Error(http.StatusMethodNotAllowed, ErrCodeBadRequest, "method not allowed")
	})

	return r
}

// rateLimit limits requests per client IP, or passes through when
// RateLimitRequests is zero.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	if s.cfg == nil || s.cfg.RateLimitRequests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	window := s.cfg.RateLimitWindow
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(
		s.cfg.RateLimitRequests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			NewResponseWriter(w, r).Error(http.StatusTooManyRequests, ErrCodeTooManyRequests, "rate limit exceeded")
		}),
	)
}
