// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Package normalize maps raw play events onto the cleaned row shape.
//
// Normalization never performs I/O. Absent nested objects and unparseable
// timestamps degrade to NULL fields; only events whose values would corrupt
// the cleaned layer (negative durations, out-of-range popularity, ids that
// collide with key encoding) are rejected with models.ErrNormalizationFailure.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/backbeat/internal/catalog"
	"github.com/tomtom215/backbeat/internal/models"
	"github.com/tomtom215/backbeat/internal/validation"
)

// playedAtLayouts are tried in order. Layouts without a zone are read as UTC.
var playedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// releaseDateLayouts cover the day, month and year release precisions.
var releaseDateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
}

// checkedFields carries the validation rules applied to a mapped row.
type checkedFields struct {
	TrackID    *string `validate:"omitempty,keysafe"`
	AlbumID    *string `validate:"omitempty,keysafe"`
	ArtistID   *string `validate:"omitempty,keysafe"`
	DurationMS *int64  `validate:"omitempty,gte=0"`
	Popularity *int64  `validate:"omitempty,gte=0,lte=100"`
}

// Normalizer converts RawEvent to CleanedRow.
type Normalizer struct {
	now func() time.Time
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithClock overrides the wall clock used to stamp load_date.
func WithClock(now func() time.Time) Option {
	return func(n *Normalizer) {
		n.now = now
	}
}

// New creates a Normalizer.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{now: time.Now}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize maps one event. The first credited artist is kept; the rest are
// dropped.
func (n *Normalizer) Normalize(ev models.RawEvent) (models.CleanedRow, error) {
	return n.normalize(ev, catalog.LoadDate(n.now()))
}

// NormalizeAll maps every event with a single load_date. It fails on the
// first rejected event; no partial result is returned.
func (n *Normalizer) NormalizeAll(events []models.RawEvent) ([]models.CleanedRow, error) {
	loadDate := catalog.LoadDate(n.now())
	rows := make([]models.CleanedRow, 0, len(events))
	for _, ev := range events {
		row, err := n.normalize(ev, loadDate)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (n *Normalizer) normalize(ev models.RawEvent, loadDate time.Time) (models.CleanedRow, error) {
	row := models.CleanedRow{
		PlayedAt: parsePlayedAt(ev.PlayedAt),
		LoadDate: loadDate,
	}

	mapTrack(&row, ev.Track)

	if err := check(&row); err != nil {
		return models.CleanedRow{}, fmt.Errorf("%w: %s[%d]: %w",
			models.ErrNormalizationFailure, ev.Snapshot, ev.Position, err)
	}
	return row, nil
}

func mapTrack(row *models.CleanedRow, track *models.RawTrack) {
	if track == nil {
		return
	}
	row.TrackID = text(track.ID)
	row.TrackName = text(track.Name)
	row.DurationMS = track.DurationMS
	row.Popularity = track.Popularity
	row.Explicit = track.Explicit

	if album := track.Album; album != nil {
		row.AlbumID = text(album.ID)
		row.AlbumName = text(album.Name)
		row.AlbumReleaseDate = parseReleaseDate(album.ReleaseDate)
	}

	if artist := track.FirstArtist(); artist != nil {
		row.ArtistID = text(artist.ID)
		row.ArtistName = text(artist.Name)
	}
}

func check(row *models.CleanedRow) error {
	return validation.ValidateStruct(&checkedFields{
		TrackID:    row.TrackID,
		AlbumID:    row.AlbumID,
		ArtistID:   row.ArtistID,
		DurationMS: row.DurationMS,
		Popularity: row.Popularity,
	})
}

// text maps empty and whitespace-only strings to NULL.
func text(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := *s
	return &v
}

// parsePlayedAt returns the timestamp in UTC truncated to
// models.TimePrecision, or nil when absent or unparseable.
func parsePlayedAt(s *string) *time.Time {
	v := text(s)
	if v == nil {
		return nil
	}
	for _, layout := range playedAtLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(*v)); err == nil {
			t = t.UTC().Truncate(models.TimePrecision)
			return &t
		}
	}
	return nil
}

// parseReleaseDate returns the release date at UTC midnight, or nil.
// Month and year precision dates resolve to the first day of the period.
func parseReleaseDate(s *string) *time.Time {
	v := text(s)
	if v == nil {
		return nil
	}
	for _, layout := range releaseDateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(*v)); err == nil {
			return &t
		}
	}
	return nil
}
