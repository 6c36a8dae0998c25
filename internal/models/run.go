// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package models

import "time"

// RunStatus is the overall outcome of a pipeline run.
type RunStatus string

const (
	// RunSucceeded means every materialization reached both sinks.
	RunSucceeded RunStatus = "succeeded"

	// RunIncomplete means at least one sink write failed. The blob sink may be
	// ahead of the relational sink until the next run.
	RunIncomplete RunStatus = "incomplete"

	// RunFailed means the run aborted (corrupt snapshot, normalization
	// failure, fetch failure, unreadable materialization).
	RunFailed RunStatus = "failed"
)

// MaterializationStatus is the outcome for a single materialization.
type MaterializationStatus string

const (
	MaterializationCommitted  MaterializationStatus = "committed"
	MaterializationNoOp       MaterializationStatus = "noop"
	MaterializationResynced   MaterializationStatus = "resynced"
	MaterializationIncomplete MaterializationStatus = "incomplete"
	MaterializationFailed     MaterializationStatus = "failed"
	MaterializationSkipped    MaterializationStatus = "skipped"
)

// MaterializationReport describes what one run did to one materialization.
type MaterializationReport struct {
	Name            string                `json:"name"`
	Status          MaterializationStatus `json:"status"`
	Candidates      int                   `json:"candidates"`
	Inserted        int                   `json:"inserted"`
	Total           int                   `json:"total"`
	BlobError       string                `json:"blob_error,omitempty"`
	RelationalError string                `json:"relational_error,omitempty"`
}

// RunReport is the record of one pipeline run.
type RunReport struct {
	ID               string                  `json:"id"`
	StartedAt        time.Time               `json:"started_at"`
	FinishedAt       time.Time               `json:"finished_at"`
	Status           RunStatus               `json:"status"`
	Snapshot         *SnapshotHandle         `json:"snapshot,omitempty"`
	EventsRead       int                     `json:"events_read"`
	Materializations []MaterializationReport `json:"materializations"`
	Error            string                  `json:"error,omitempty"`
}

// Duration returns how long the run took.
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Inserted returns the number of rows inserted across all materializations.
func (r *RunReport) Inserted() int {
	n := 0
	for _, m := range r.Materializations {
		n += m.Inserted
	}
	return n
}

// Materialization returns the report for name, or nil.
func (r *RunReport) Materialization(name string) *MaterializationReport {
	for i := range r.Materializations {
		if r.Materializations[i].Name == name {
			return &r.Materializations[i]
		}
	}
	return nil
}
