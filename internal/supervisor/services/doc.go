// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Package services adapts backbeat components to the suture.Service
// interface:
//
//   - HTTPServerService wraps an *http.Server, translating ListenAndServe
//     and Shutdown into Serve(ctx)
//   - SchedulerService triggers pipeline runs on a fixed interval
//
// Each service implements fmt.Stringer so suture can name it in log events.
package services
