// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Package runstate persists pipeline run history and relational sync flags.
//
// Two implementations are provided: Badger (durable, one process per
// directory because BadgerDB holds an exclusive directory lock) and InMemory
// (tests and runs with the journal disabled).
//
// A materialization is marked dirty when its blob commit succeeded but the
// relational replace failed. The next run replaces every dirty table from its
// blob copy, even when the merge itself inserts nothing, and clears the mark
// once the replace succeeds.
package runstate

import (
	"context"
	"time"

	"github.com/tomtom215/backbeat/internal/models"
)

// DefaultHistoryLimit is the number of run reports retained.
const DefaultHistoryLimit = 200

// DirtyMark records a relational table that lags its blob copy.
type DirtyMark struct {
	Materialization string    `json:"materialization"`
	Since           time.Time `json:"since"`
	RunID           string    `json:"run_id"`
	Cause           string    `json:"cause"`
}

// Journal stores run reports and dirty marks.
type Journal interface {
	// RecordRun stores report as the latest run and appends it to history.
	RecordRun(ctx context.Context, report *models.RunReport) error

	// LastRun returns the most recent report, or nil when none was recorded.
	LastRun(ctx context.Context) (*models.RunReport, error)

	// Runs returns up to limit reports, newest first.
	Runs(ctx context.Context, limit int) ([]models.RunReport, error)

	// MarkDirty flags a materialization whose relational table is out of
	// sync. An existing mark keeps its original Since time.
	MarkDirty(ctx context.Context, mark DirtyMark) error

	// ClearDirty removes the mark for a materialization. Clearing an unmarked
	// materialization is not an error.
	ClearDirty(ctx context.Context, materialization string) error

	// Dirty returns every mark sorted by materialization name.
	Dirty(ctx context.Context) ([]DirtyMark, error)

	Close() error
}
