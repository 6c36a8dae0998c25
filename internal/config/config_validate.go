// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package config

import (
	"fmt"

	"github.com/tomtom215/backbeat/internal/validation"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}

	if err := c.validateBlob(); err != nil {
		return err
	}

	if err := c.validateRelational(); err != nil {
		return err
	}

	if err := c.validateSpotify(); err != nil {
		return err
	}

	if err := c.validateRunState(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	return c.validateNATS()
}

func (c *Config) validateBlob() error {
	switch c.Blob.Backend {
	case BlobBackendFS:
		if c.Blob.Root == "" {
			return fmt.Errorf("BLOB_ROOT is required when BLOB_BACKEND=fs")
		}
	case BlobBackendS3:
		if c.Blob.Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required when BLOB_BACKEND=s3")
		}
		if (c.Blob.AccessKeyID == "") != (c.Blob.SecretAccessKey == "") {
			return fmt.Errorf("S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
		}
	}
	return nil
}

func (c *Config) validateRelational() error {
	switch c.Relational.Driver {
	case DriverDuckDB:
		if c.Relational.DuckDBPath == "" {
			return fmt.Errorf("DUCKDB_PATH is required when RELATIONAL_DRIVER=duckdb")
		}
	case DriverPostgres:
		if c.Relational.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when RELATIONAL_DRIVER=postgres")
		}
		if err := validatePostgresDSN(c.Relational.PostgresDSN); err != nil {
			return fmt.Errorf("POSTGRES_DSN is invalid: %w", err)
		}
	}
	if c.Relational.SilverSchema == c.Relational.GoldSchema {
		return fmt.Errorf("SILVER_SCHEMA and GOLD_SCHEMA must differ, both are %q", c.Relational.SilverSchema)
	}
	return nil
}

// validateSpotify only requires OAuth credentials when runs fetch upstream.
func (c *Config) validateSpotify() error {
	if !c.Source.Fetch {
		return nil
	}
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required when FETCH_ENABLED=true")
	}
	return nil
}

func (c *Config) validateRunState() error {
	if c.RunState.Enabled && c.RunState.Dir == "" {
		return fmt.Errorf("RUNSTATE_DIR is required when RUNSTATE_ENABLED=true")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.RateLimitRequests > 0 && c.Server.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive when RATE_LIMIT_REQUESTS is set")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true")
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return nil
}
