// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package supervisor provides process supervision for backbeat serve mode
using suture v4.

The tree has two layers so that a failing scheduler and a failing HTTP
listener restart independently:

	backbeat
	├── pipeline-layer
	│   └── SchedulerService (when schedule.interval > 0)
	└── api-layer
	    └── HTTPServerService (when server.enabled)

Supervisor events (service panics, restarts, backoff) are logged through
sutureslog into the zerolog-backed slog logger.

Usage:

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddPipelineService(services.NewSchedulerService(runner, cfg.Schedule))
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))
	err := tree.Serve(ctx)

Serve returns when ctx is canceled, after every service has been given
ShutdownTimeout to stop.
*/
package supervisor
