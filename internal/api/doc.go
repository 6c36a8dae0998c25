// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package api provides the operational HTTP surface of backbeat.

Routes:

	GET  /healthz                 liveness, always 200 while the process serves
	GET  /readyz                  readiness, 503 when any dependency check fails
	GET  /metrics                 Prometheus metrics
	GET  /api/v1/runs             recent run reports, newest first (?limit=N)
	GET  /api/v1/runs/latest      most recent run report, 404 before the first run
	POST /api/v1/runs             start a run in the background, 409 while one is active
	GET  /api/v1/materializations/dirty   relational tables awaiting resync
	GET  /auth/login              redirect to the Spotify consent page
	GET  /auth/callback           OAuth redirect target, stores the token

The /api/v1 routes are mounted only with a RunTrigger and a Journal, the
/auth routes only with an Authorizer and a TokenSaver.

JSON endpoints use the APIResponse envelope. Requests under /api/v1 and
/auth are rate limited per client IP with go-chi/httprate.

Usage:

	srv := api.NewServer(api.Deps{
	    Runner:  runner,
	    Journal: journal,
	    Checks:  map[string]api.Check{"blob": blobCheck},
	}, &cfg.Server)
	http.ListenAndServe(cfg.Server.Addr(), srv.Handler())
*/
package api
