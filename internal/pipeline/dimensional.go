// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package pipeline

import (
	"context"

	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/merge"
	"github.com/tomtom215/backbeat/internal/models"
	"github.com/tomtom215/backbeat/internal/sink"
)

// DimensionalBuilder derives the star schema from the complete cleaned layer.
//
// Dimensions keep the first row seen for a key and never update a committed
// row. Rows whose dimension key is null are not dimension members.
type DimensionalBuilder struct {
	writer *sink.Writer
}

// NewDimensionalBuilder creates a DimensionalBuilder.
func NewDimensionalBuilder(writer *sink.Writer) *DimensionalBuilder {
	return &DimensionalBuilder{writer: writer}
}

// Artists merges the artist dimension.
func (b *DimensionalBuilder) Artists(ctx context.Context, cleaned []models.CleanedRow) (Build[models.ArtistRow], error) {
	return mergeDimension(ctx, b.writer, catalog.DimArtist, cleaned, func(r models.CleanedRow) (models.ArtistRow, bool) {
		return r.Artist(), r.ArtistID != nil
	})
}

// Albums merges the album dimension.
func (b *DimensionalBuilder) Albums(ctx context.Context, cleaned []models.CleanedRow) (Build[models.AlbumRow], error) {
	return mergeDimension(ctx, b.writer, catalog.DimAlbum, cleaned, func(r models.CleanedRow) (models.AlbumRow, bool) {
		return r.Album(), r.AlbumID != nil
	})
}

// Tracks merges the track dimension.
func (b *DimensionalBuilder) Tracks(ctx context.Context, cleaned []models.CleanedRow) (Build[models.TrackRow], error) {
	return mergeDimension(ctx, b.writer, catalog.DimTrack, cleaned, func(r models.CleanedRow) (models.TrackRow, bool) {
		return r.Track(), r.TrackID != nil
	})
}

// Facts merges the fact table. Its key equals the cleaned-layer key, so the
// projection needs no de-duplication of its own.
func (b *DimensionalBuilder) Facts(ctx context.Context, cleaned []models.CleanedRow) (Build[models.FactRow], error) {
	facts := make([]models.FactRow, len(cleaned))
	for i, r := range cleaned {
		facts[i] = r.Fact()
	}
	return mergeInto(ctx, b.writer, catalog.Fact, facts)
}

// mergeDimension projects cleaned onto a dimension, keeps the first row per
// key and merges the result.
func mergeDimension[R any](
	ctx context.Context,
	w *sink.Writer,
	table catalog.Table[R],
	cleaned []models.CleanedRow,
	project func(models.CleanedRow) (R, bool),
) (Build[R], error) {
	rows := make([]R, 0, len(cleaned))
	for _, c := range cleaned {
		if row, ok := project(c); ok {
			rows = append(rows, row)
		}
	}
	rows, _ = merge.DedupFirst(rows, table.Key)
	return mergeInto(ctx, w, table, rows)
}
