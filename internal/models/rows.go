// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package models

import "time"

// CleanedRow is the canonical flattened representation of one play event.
//
// Natural key: (PlayedAt, TrackID). LoadDate records when the row was
// materialized and is excluded from identity.
type CleanedRow struct {
	PlayedAt         *time.Time `json:"played_at"`
	TrackID          *string    `json:"track_id"`
	TrackName        *string    `json:"track_name"`
	DurationMS       *int64     `json:"duration_ms"`
	Popularity       *int64     `json:"popularity"`
	Explicit         *bool      `json:"explicit"`
	AlbumID          *string    `json:"album_id"`
	AlbumName        *string    `json:"album_name"`
	AlbumReleaseDate *time.Time `json:"album_release_date"`
	ArtistID         *string    `json:"artist_id"` // first credited artist only
	ArtistName       *string    `json:"artist_name"`
	LoadDate         time.Time  `json:"load_date"`
}

// Key returns the encoded (played_at, track_id) tuple.
func (r CleanedRow) Key() string {
	return JoinKey(TimeKey(r.PlayedAt), StringKey(r.TrackID))
}

// Artist projects the row onto the artist dimension.
func (r CleanedRow) Artist() ArtistRow {
	return ArtistRow{ArtistID: r.ArtistID, ArtistName: r.ArtistName}
}

// Album projects the row onto the album dimension.
func (r CleanedRow) Album() AlbumRow {
	return AlbumRow{
		AlbumID:          r.AlbumID,
		AlbumName:        r.AlbumName,
		AlbumReleaseDate: r.AlbumReleaseDate,
		ArtistID:         r.ArtistID,
	}
}

// Track projects the row onto the track dimension.
func (r CleanedRow) Track() TrackRow {
	return TrackRow{
		TrackID:    r.TrackID,
		TrackName:  r.TrackName,
		Explicit:   r.Explicit,
		Popularity: r.Popularity,
	}
}

// Fact projects the row onto the fact table.
func (r CleanedRow) Fact() FactRow {
	return FactRow{
		PlayedAt:   r.PlayedAt,
		TrackID:    r.TrackID,
		AlbumID:    r.AlbumID,
		DurationMS: r.DurationMS,
	}
}

// ArtistRow is a row of the artist dimension, keyed by ArtistID.
type ArtistRow struct {
	ArtistID   *string `json:"artist_id"`
	ArtistName *string `json:"artist_name"`
}

// Key returns the encoded artist_id.
func (r ArtistRow) Key() string {
	return StringKey(r.ArtistID)
}

// AlbumRow is a row of the album dimension, keyed by AlbumID.
type AlbumRow struct {
	AlbumID          *string    `json:"album_id"`
	AlbumName        *string    `json:"album_name"`
	AlbumReleaseDate *time.Time `json:"album_release_date"`
	ArtistID         *string    `json:"artist_id"`
}

// Key returns the encoded album_id.
func (r AlbumRow) Key() string {
	return StringKey(r.AlbumID)
}

// TrackRow is a row of the track dimension, keyed by TrackID.
type TrackRow struct {
	TrackID    *string `json:"track_id"`
	TrackName  *string `json:"track_name"`
	Explicit   *bool   `json:"explicit"`
	Popularity *int64  `json:"popularity"`
}

// Key returns the encoded track_id.
func (r TrackRow) Key() string {
	return StringKey(r.TrackID)
}

// FactRow is a row of the play fact table. It references TrackRow and
// AlbumRow by key.
type FactRow struct {
	PlayedAt   *time.Time `json:"played_at"`
	TrackID    *string    `json:"track_id"`
	AlbumID    *string    `json:"album_id"`
	DurationMS *int64     `json:"duration_ms"`
}

// Key returns the encoded (played_at, track_id) tuple.
func (r FactRow) Key() string {
	return JoinKey(TimeKey(r.PlayedAt), StringKey(r.TrackID))
}
