// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package models defines the data structures shared by every pipeline layer.

Layers:

 1. Raw (bronze): RawEvent, RawTrack, RawAlbum, RawArtist and RawBatch mirror the
    recently-played payload. Every nested level is optional so that absent
    sub-objects are represented explicitly rather than tolerated at lookup time.

 2. Cleaned (silver): CleanedRow is the flattened, typed representation of one
    play. Its natural key is (played_at, track_id).

 3. Dimensional (gold): ArtistRow, AlbumRow and TrackRow are keyed by their own
    identifier; FactRow shares the cleaned layer's natural key.

Keys:

Every row type exposes Key(), a string encoding of its key tuple. Timestamps are
rendered in UTC before encoding so that two instants written with different
offsets compare equal, and NULL components encode to a sentinel that cannot
collide with any real value.

Run reporting:

RunReport and MaterializationReport describe the outcome of one pipeline run and
are persisted by the run journal, served by the HTTP API and published as
run-completed notifications.
*/
package models
