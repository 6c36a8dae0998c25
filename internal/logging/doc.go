// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Package logging wraps a process-wide zerolog logger.
//
// Init is called once by the CLI from the logging section of the config.
// Output is JSON unless Format is "console". Every event carries
// service=backbeat.
//
// Pipeline code logs through Ctx so that the run, request and
// materialization stored in the context travel with each event:
//
//	ctx = logging.ContextWithRunID(ctx, logging.NewRunID())
//	ctx = logging.ContextWithMaterialization(ctx, "dim_track")
//	logging.Ctx(ctx).Info().Int("inserted", 3).Msg("Materialization processed")
//
// Two adapters route third-party loggers into the same stream: SlogHandler
// for the supervisor tree and WatermillAdapter for the notification
// publishers.
//
// Events are only written once .Msg or .Send is called. Tokens and client
// secrets are never logged.
package logging
