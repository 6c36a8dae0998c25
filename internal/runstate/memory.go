// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package runstate

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/backbeat/internal/models"
)

// InMemory is a Journal that lives for the life of the process.
type InMemory struct {
	mu    sync.RWMutex
	runs  []models.RunReport // oldest first
	dirty map[string]DirtyMark
	limit int
}

// NewInMemory creates an empty journal.
func NewInMemory() *InMemory {
	return &InMemory{dirty: map[string]DirtyMark{}, limit: DefaultHistoryLimit}
}

// RecordRun appends a copy of report.
func (m *InMemory) RecordRun(_ context.Context, report *models.RunReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs = append(m.runs, copyReport(report))
	if len(m.runs) > m.limit {
		m.runs = m.runs[len(m.runs)-m.limit:]
	}
	return nil
}

// LastRun returns a copy of the latest report.
func (m *InMemory) LastRun(_ context.Context) (*models.RunReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.runs) == 0 {
		return nil, nil
	}
	r := copyReport(&m.runs[len(m.runs)-1])
	return &r, nil
}

// Runs returns reports newest first.
func (m *InMemory) Runs(_ context.Context, limit int) ([]models.RunReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.runs) {
		limit = len(m.runs)
	}
	out := make([]models.RunReport, 0, limit)
	for i := len(m.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, copyReport(&m.runs[i]))
	}
	return out, nil
}

// MarkDirty records mark unless one exists.
func (m *InMemory) MarkDirty(_ context.Context, mark DirtyMark) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.dirty[mark.Materialization]; !ok {
		m.dirty[mark.Materialization] = mark
	}
	return nil
}

// ClearDirty removes the mark.
func (m *InMemory) ClearDirty(_ context.Context, materialization string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.dirty, materialization)
	return nil
}

// Dirty returns marks sorted by name.
func (m *InMemory) Dirty(_ context.Context) ([]DirtyMark, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]DirtyMark, 0, len(m.dirty))
	for _, mark := range m.dirty {
		out = append(out, mark)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Materialization < out[j].Materialization
	})
	return out, nil
}

// Close is a no-op.
func (m *InMemory) Close() error {
	return nil
}

func copyReport(r *models.RunReport) models.RunReport {
	c := *r
	c.Materializations = append([]models.MaterializationReport(nil), r.Materializations...)
	if r.Snapshot != nil {
		s := *r.Snapshot
		c.Snapshot = &s
	}
	return c
}

var _ Journal = (*InMemory)(nil)
