// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package pipeline

import (
	"context"

	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/models"
	"github.com/tomtom215/backbeat/internal/normalize"
	"github.com/tomtom215/backbeat/internal/sink"
	"github.com/tomtom215/backbeat/internal/snapshot"
)

// CleanedBuild is the cleaned-layer merge plus the number of raw events read.
type CleanedBuild struct {
	Build[models.CleanedRow]
	EventsRead int
}

// CleanedBuilder derives the cleaned layer from every raw snapshot.
type CleanedBuilder struct {
	reader     *snapshot.Reader
	normalizer *normalize.Normalizer
	writer     *sink.Writer
}

// NewCleanedBuilder creates a CleanedBuilder.
func NewCleanedBuilder(reader *snapshot.Reader, normalizer *normalize.Normalizer, writer *sink.Writer) *CleanedBuilder {
	return &CleanedBuilder{reader: reader, normalizer: normalizer, writer: writer}
}

// Build reads all snapshots, normalizes every event and merges the rows into
// the committed cleaned layer. It writes nothing.
//
// Any corrupt snapshot or normalization failure fails the whole build; no
// partial row set is returned.
func (b *CleanedBuilder) Build(ctx context.Context) (CleanedBuild, error) {
	events, err := b.reader.ReadAll(ctx)
	if err != nil {
		return CleanedBuild{}, err
	}

	rows, err := b.normalizer.NormalizeAll(events)
	if err != nil {
		return CleanedBuild{}, err
	}

	build, err := mergeInto(ctx, b.writer, catalog.Cleaned, rows)
	if err != nil {
		return CleanedBuild{}, err
	}
	return CleanedBuild{Build: build, EventsRead: len(events)}, nil
}
