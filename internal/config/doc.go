// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package config provides centralized configuration management for Backbeat.

# Configuration Sources

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. Defaults: built-in values from defaultConfig()
 2. Config file: optional YAML file found via CONFIG_PATH or DefaultConfigPaths
 3. Environment variables: an explicit allow-list mapped onto config paths

# Configuration Structure

  - SourceConfig: raw snapshot prefix and whether runs fetch from the upstream API
  - BlobConfig: blob store backend (fs or s3) used for snapshots and flat files
  - RelationalConfig: relational sink driver (duckdb, postgres or none) and schemas
  - SpotifyConfig: upstream API and OAuth client settings
  - RunStateConfig: badger directory holding the run journal
  - ScheduleConfig: interval between scheduled runs in serve mode
  - ServerConfig: operational HTTP server
  - NATSConfig: run-completed notifications over NATS JetStream
  - LoggingConfig: zerolog level and format

# Environment Variables

Source:
  - SOURCE_PREFIX: raw snapshot key prefix (default: raw/spotify/recently_played)
  - FETCH_ENABLED: fetch and persist a new snapshot at the start of each run (default: false)

Blob store:
  - BLOB_BACKEND: fs or s3 (default: fs)
  - BLOB_ROOT: root directory for the fs backend (default: /data/backbeat)
  - S3_BUCKET, S3_REGION, S3_ENDPOINT, S3_USE_PATH_STYLE
  - S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY: optional static credentials

Relational sink:
  - RELATIONAL_DRIVER: duckdb, postgres or none (default: duckdb)
  - DUCKDB_PATH, DUCKDB_THREADS, DUCKDB_MAX_MEMORY
  - POSTGRES_DSN, POSTGRES_MAX_CONNS
  - SILVER_SCHEMA, GOLD_SCHEMA (default: silver, gold)

Spotify:
  - SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, SPOTIFY_REDIRECT_URI
  - SPOTIFY_SCOPE, SPOTIFY_TOKEN_FILE, SPOTIFY_FETCH_LIMIT
  - SPOTIFY_API_URL, SPOTIFY_ACCOUNTS_URL, SPOTIFY_TIMEOUT

Run state and scheduling:
  - RUNSTATE_ENABLED, RUNSTATE_DIR
  - SCHEDULE_INTERVAL, RUN_ON_START, RUN_TIMEOUT

HTTP server:
  - HTTP_ENABLED, HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW

NATS:
  - NATS_ENABLED, NATS_URL, NATS_SUBJECT

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Validation

Load validates struct tags through the validation package and then applies
cross-field rules (an s3 backend needs a bucket, postgres needs a DSN, fetching
needs OAuth client credentials).

# Thread Safety

Config is immutable after Load() and safe for concurrent read access.
*/
package config
