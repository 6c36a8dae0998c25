// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey int

const (
	runIDKey contextKey = iota
	requestIDKey
	materializationKey
	loggerKey
)

// NewRunID returns a fresh pipeline run ID.
func NewRunID() string {
	return uuid.New().String()
}

// ContextWithRunID tags ctx with a pipeline run ID.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext returns the run ID, or "".
func RunIDFromContext(ctx context.Context) string {
	return stringValue(ctx, runIDKey)
}

// ContextWithRequestID tags ctx with an HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// ContextWithMaterialization tags ctx with the materialization being
// built or written.
func ContextWithMaterialization(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, materializationKey, name)
}

// MaterializationFromContext returns the materialization name, or "".
func MaterializationFromContext(ctx context.Context) string {
	return stringValue(ctx, materializationKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	s, _ := ctx.Value(key).(string)
	return s
}

// ContextWithLogger makes Ctx use logger instead of the global logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func ContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns a logger carrying every ID stored in ctx.
//
//	logging.Ctx(ctx).Info().Int("inserted", n).Msg("Committed")
//	// {"level":"info","run_id":"9b2d...","materialization":"dim_track","inserted":3,...}
func Ctx(ctx context.Context) *zerolog.Logger {
	logger := CtxWith(ctx).Logger()
	return &logger
}

// CtxWith is Ctx returning the builder, for adding more fields.
func CtxWith(ctx context.Context) zerolog.Context {
	logger, ok := ctx.Value(loggerKey).(zerolog.Logger)
	if !ok {
		logger = Logger()
	}
	c := logger.With()

	if id := RunIDFromContext(ctx); id != "" {
		c = c.Str("run_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		c = c.Str("request_id", id)
	}
	if name := MaterializationFromContext(ctx); name != "" {
		c = c.Str("materialization", name)
	}
	return c
}

// CtxErr starts an error event with the context fields and err.
func CtxErr(ctx context.Context, err error) *zerolog.Event {
	return Ctx(ctx).Err(err)
}

// WithComponent returns a child of the global logger with a component field.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
