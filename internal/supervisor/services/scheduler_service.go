// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package services

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/backbeat/internal/config"
	"github.com/tomtom215/backbeat/internal/logging"
	"github.com/tomtom215/backbeat/internal/models"
	"github.com/tomtom215/backbeat/internal/pipeline"
)

// RunExecutor runs the pipeline synchronously. Implemented by
// *pipeline.Runner.
type RunExecutor interface {
	Run(ctx context.Context) (*models.RunReport, error)
}

// SchedulerService triggers a pipeline run every Interval.
//
// Run outcomes are logged, never returned: a failed or incomplete run is
// recorded in the journal and retried at the next tick, so it must not make
// the supervisor restart the scheduler. A tick that finds a run already in
// progress (started through the API) is skipped.
type SchedulerService struct {
	runner     RunExecutor
	interval   time.Duration
	runOnStart bool
	runTimeout time.Duration
	name       string
}

// NewSchedulerService creates a scheduler from cfg.
func NewSchedulerService(runner RunExecutor, cfg config.ScheduleConfig) *SchedulerService {
	return &SchedulerService{
		runner:     runner,
		interval:   cfg.Interval,
		runOnStart: cfg.RunOnStart,
		runTimeout: cfg.RunTimeout,
		name:       "pipeline-scheduler",
	}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	logger := logging.WithComponent(s.name)
	logger.Info().Dur("interval", s.interval).Bool("run_on_start", s.runOnStart).Msg("Scheduler started")

	if s.runOnStart {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *SchedulerService) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	runCtx := ctx
	if s.runTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	report, err := s.runner.Run(runCtx)
	switch {
	case errors.Is(err, pipeline.ErrRunInProgress):
		logging.Info().Str("service", s.name).Msg("Scheduled run skipped, another run is in progress")
	case err != nil:
		event := logging.Warn().Str("service", s.name).Err(err)
		if report != nil {
			event = event.Str("run_id", report.ID).Str("status", string(report.Status))
		}
		event.Msg("Scheduled run did not succeed")
	default:
		logging.Info().
			Str("service", s.name).
			Str("run_id", report.ID).
			Int("inserted", report.Inserted()).
			Dur("duration", report.Duration()).
			Msg("Scheduled run completed")
	}
}

// String implements fmt.Stringer.
func (s *SchedulerService) String() string {
	return s.name
}
