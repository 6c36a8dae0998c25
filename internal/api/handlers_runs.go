// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/tomtom215/backbeat/internal/pipeline"
	"github.com/tomtom215/backbeat/internal/runstate"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = runstate.DefaultHistoryLimit
)

// handleListRuns returns recent run reports, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	limit := defaultRunsLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			rw.BadRequest("limit must be an integer between 1 and " + strconv.Itoa(maxRunsLimit))
			return
		}
		limit = n
	}

	runs, err := s.deps.Journal.Runs(r.Context(), limit)
	if err != nil {
		rw.InternalError("failed to read run history", err)
		return
	}
	rw.List(runs, len(runs))
}

// handleLatestRun returns the most recent run report.
func (s *Server) handleLatestRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	report, err := s.deps.Journal.LastRun(r.Context())
	if err != nil {
		rw.InternalError("failed to read last run", err)
		return
	}
	if report == nil {
		rw.NotFound("no run has completed yet")
		return
	}
	rw.Success(report)
}

// handleStartRun starts a run in the background.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, err := s.deps.Runner.Start(r.Context())
	if errors.Is(err, pipeline.ErrRunInProgress) {
		rw.Conflict("a run is already in progress")
		return
	}
	if err != nil {
		rw.InternalError("failed to start run", err)
		return
	}
	rw.Accepted(map[string]string{"run_id": id})
}

// handleDirty lists relational tables waiting for a resync.
func (s *Server) handleDirty(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	marks, err := s.deps.Journal.Dirty(r.Context())
	if err != nil {
		rw.InternalError("failed to read dirty marks", err)
		return
	}
	if marks == nil {
		marks = []runstate.DirtyMark{}
	}
	rw.List(marks, len(marks))
}
