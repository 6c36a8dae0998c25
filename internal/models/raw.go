// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package models

import "time"

// RawEvent is one play event as delivered by the recently-played endpoint.
// Fields are pointers because the upstream may omit any of them.
type RawEvent struct {
	PlayedAt *string   `json:"played_at"`
	Track    *RawTrack `json:"track"`

	// Snapshot and Position locate the event inside the snapshot it was read
	// from. They are not part of the upstream payload.
	Snapshot string `json:"-"`
	Position int    `json:"-"`
}

// RawTrack is the nested track object of a RawEvent.
type RawTrack struct {
	ID         *string     `json:"id"`
	Name       *string     `json:"name"`
	DurationMS *int64      `json:"duration_ms"`
	Popularity *int64      `json:"popularity"`
	Explicit   *bool       `json:"explicit"`
	Album      *RawAlbum   `json:"album"`
	Artists    []RawArtist `json:"artists"`
}

// RawAlbum is the nested album object of a RawTrack.
type RawAlbum struct {
	ID          *string `json:"id"`
	Name        *string `json:"name"`
	ReleaseDate *string `json:"release_date"`
}

// RawArtist is one credited artist of a RawTrack.
type RawArtist struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
}

// FirstArtist returns the first credited artist, or nil when none is credited.
func (t *RawTrack) FirstArtist() *RawArtist {
	if t == nil || len(t.Artists) == 0 {
		return nil
	}
	return &t.Artists[0]
}

// RawBatch is one response of the recently-played endpoint.
// Body holds the response verbatim so the raw writer can persist it unchanged.
type RawBatch struct {
	Items     []RawEvent `json:"items"`
	Body      []byte     `json:"-"`
	FetchedAt time.Time  `json:"-"`
}

// SnapshotHandle identifies a persisted raw snapshot.
type SnapshotHandle struct {
	Key        string    `json:"key"`
	CapturedAt time.Time `json:"captured_at"`
	Events     int       `json:"events"`
	Bytes      int       `json:"bytes"`
}
