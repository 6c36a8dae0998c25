// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package catalog describes the five materializations produced by the pipeline
and how their rows are serialized.

Each materialization has a Spec (name, layer, blob key, ordered columns and key
columns) and a typed Table binding that converts rows to and from a positional
slice of column values. The same value slice feeds both sinks: EncodeCSV turns
it into the header-first flat file stored in the blob sink, and the relational
sink binds it directly as statement or COPY parameters.

Materializations:

	recently_played       silver/recently_played.csv       key (played_at, track_id)
	dim_artist            gold/dim_artist.csv              key (artist_id)
	dim_album             gold/dim_album.csv               key (album_id)
	dim_track             gold/dim_track.csv               key (track_id)
	fact_recently_played  gold/fact_recently_played.csv    key (played_at, track_id)

Column values are one of nil (NULL), string, int64, bool or time.Time. In the
flat file an empty field is NULL, timestamps are RFC 3339 in UTC and dates are
YYYY-MM-DD.
*/
package catalog
