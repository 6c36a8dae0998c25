// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Package middleware provides chi-compatible HTTP middleware for the
// backbeat operational server.
//
// Middleware:
//   - RequestID: accepts or generates an X-Request-ID and stores it in the
//     request context for structured logging
//   - PrometheusMetrics: request counts, latency and in-flight gauge,
//     labelled by chi route pattern to keep cardinality bounded
//   - SecurityHeaders: conservative headers for a JSON-only API
//
// All middleware has the signature func(http.Handler) http.Handler and is
// registered with chi's Router.Use.
package middleware
