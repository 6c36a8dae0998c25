// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package catalog

import (
	"time"

	"github.com/tomtom215/backbeat/internal/models"
)

// Materialization names.
const (
	NameCleaned   = "recently_played"
	NameDimArtist = "dim_artist"
	NameDimAlbum  = "dim_album"
	NameDimTrack  = "dim_track"
	NameFact      = "fact_recently_played"
)

var (
	cleanedSpec = Spec{
		Name:    NameCleaned,
		Layer:   LayerSilver,
		BlobKey: "silver/recently_played.csv",
		Columns: []Column{
			{"played_at", TypeTimestamp},
			{"track_id", TypeVarchar},
			{"track_name", TypeVarchar},
			{"duration_ms", TypeInteger},
			{"popularity", TypeInteger},
			{"explicit", TypeBoolean},
			{"album_id", TypeVarchar},
			{"album_name", TypeVarchar},
			{"album_release_date", TypeDate},
			{"artist_id", TypeVarchar},
			{"artist_name", TypeVarchar},
			{"load_date", TypeDate},
		},
		KeyColumns: []string{"played_at", "track_id"},
	}

	artistSpec = Spec{
		Name:    NameDimArtist,
		Layer:   LayerGold,
		BlobKey: "gold/dim_artist.csv",
		Columns: []Column{
			{"artist_id", TypeVarchar},
			{"artist_name", TypeVarchar},
		},
		KeyColumns: []string{"artist_id"},
	}

	albumSpec = Spec{
		Name:    NameDimAlbum,
		Layer:   LayerGold,
		BlobKey: "gold/dim_album.csv",
		Columns: []Column{
			{"album_id", TypeVarchar},
			{"album_name", TypeVarchar},
			{"album_release_date", TypeDate},
			{"artist_id", TypeVarchar},
		},
		KeyColumns: []string{"album_id"},
	}

	trackSpec = Spec{
		Name:    NameDimTrack,
		Layer:   LayerGold,
		BlobKey: "gold/dim_track.csv",
		Columns: []Column{
			{"track_id", TypeVarchar},
			{"track_name", TypeVarchar},
			{"explicit", TypeBoolean},
			{"popularity", TypeInteger},
		},
		KeyColumns: []string{"track_id"},
	}

	factSpec = Spec{
		Name:    NameFact,
		Layer:   LayerGold,
		BlobKey: "gold/fact_recently_played.csv",
		Columns: []Column{
			{"played_at", TypeTimestamp},
			{"track_id", TypeVarchar},
			{"album_id", TypeVarchar},
			{"duration_ms", TypeInteger},
		},
		KeyColumns: []string{"played_at", "track_id"},
	}
)

// Cleaned is the silver-layer flattened play table.
var Cleaned = Table[models.CleanedRow]{
	Spec: cleanedSpec,
	Key:  models.CleanedRow.Key,
	Values: func(r models.CleanedRow) []any {
		return []any{
			timeValue(r.PlayedAt),
			stringValue(r.TrackID),
			stringValue(r.TrackName),
			intValue(r.DurationMS),
			intValue(r.Popularity),
			boolValue(r.Explicit),
			stringValue(r.AlbumID),
			stringValue(r.AlbumName),
			timeValue(r.AlbumReleaseDate),
			stringValue(r.ArtistID),
			stringValue(r.ArtistName),
			r.LoadDate.UTC(),
		}
	},
	Scan: func(values []any) (models.CleanedRow, error) {
		if err := checkArity(cleanedSpec, values); err != nil {
			return models.CleanedRow{}, err
		}
		s := scanner{spec: cleanedSpec, values: values}
		row := models.CleanedRow{
			PlayedAt:         s.time(0),
			TrackID:          s.str(1),
			TrackName:        s.str(2),
			DurationMS:       s.int(3),
			Popularity:       s.int(4),
			Explicit:         s.bool(5),
			AlbumID:          s.str(6),
			AlbumName:        s.str(7),
			AlbumReleaseDate: s.time(8),
			ArtistID:         s.str(9),
			ArtistName:       s.str(10),
		}
		if loadDate := s.time(11); loadDate != nil {
			row.LoadDate = *loadDate
		}
		return row, s.err
	},
}

// DimArtist is the gold-layer artist dimension.
var DimArtist = Table[models.ArtistRow]{
	Spec: artistSpec,
	Key:  models.ArtistRow.Key,
	Values: func(r models.ArtistRow) []any {
		return []any{stringValue(r.ArtistID), stringValue(r.ArtistName)}
	},
	Scan: func(values []any) (models.ArtistRow, error) {
		if err := checkArity(artistSpec, values); err != nil {
			return models.ArtistRow{}, err
		}
		s := scanner{spec: artistSpec, values: values}
		return models.ArtistRow{ArtistID: s.str(0), ArtistName: s.str(1)}, s.err
	},
}

// DimAlbum is the gold-layer album dimension.
var DimAlbum = Table[models.AlbumRow]{
	Spec: albumSpec,
	Key:  models.AlbumRow.Key,
	Values: func(r models.AlbumRow) []any {
		return []any{
			stringValue(r.AlbumID),
			stringValue(r.AlbumName),
			timeValue(r.AlbumReleaseDate),
			stringValue(r.ArtistID),
		}
	},
	Scan: func(values []any) (models.AlbumRow, error) {
		if err := checkArity(albumSpec, values); err != nil {
			return models.AlbumRow{}, err
		}
		s := scanner{spec: albumSpec, values: values}
		return models.AlbumRow{
			AlbumID:          s.str(0),
			AlbumName:        s.str(1),
			AlbumReleaseDate: s.time(2),
			ArtistID:         s.str(3),
		}, s.err
	},
}

// DimTrack is the gold-layer track dimension.
var DimTrack = Table[models.TrackRow]{
	Spec: trackSpec,
	Key:  models.TrackRow.Key,
	Values: func(r models.TrackRow) []any {
		return []any{
			stringValue(r.TrackID),
			stringValue(r.TrackName),
			boolValue(r.Explicit),
			intValue(r.Popularity),
		}
	},
	Scan: func(values []any) (models.TrackRow, error) {
		if err := checkArity(trackSpec, values); err != nil {
			return models.TrackRow{}, err
		}
		s := scanner{spec: trackSpec, values: values}
		return models.TrackRow{
			TrackID:    s.str(0),
			TrackName:  s.str(1),
			Explicit:   s.bool(2),
			Popularity: s.int(3),
		}, s.err
	},
}

// Fact is the gold-layer play fact table.
var Fact = Table[models.FactRow]{
	Spec: factSpec,
	Key:  models.FactRow.Key,
	Values: func(r models.FactRow) []any {
		return []any{
			timeValue(r.PlayedAt),
			stringValue(r.TrackID),
			stringValue(r.AlbumID),
			intValue(r.DurationMS),
		}
	},
	Scan: func(values []any) (models.FactRow, error) {
		if err := checkArity(factSpec, values); err != nil {
			return models.FactRow{}, err
		}
		s := scanner{spec: factSpec, values: values}
		return models.FactRow{
			PlayedAt:   s.time(0),
			TrackID:    s.str(1),
			AlbumID:    s.str(2),
			DurationMS: s.int(3),
		}, s.err
	},
}

// LoadDate truncates t to its calendar date in t's location and returns it as
// UTC midnight, the representation used for DATE columns.
func LoadDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
