// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration loaded from defaults, an optional
// config file and environment variables.
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	store, err := blobstore.Open(ctx, &cfg.Blob)
type Config struct {
	Source     SourceConfig     `koanf:"source"`
	Blob       BlobConfig       `koanf:"blob"`
	Relational RelationalConfig `koanf:"relational"`
	Spotify    SpotifyConfig    `koanf:"spotify"`
	RunState   RunStateConfig   `koanf:"runstate"`
	Schedule   ScheduleConfig   `koanf:"schedule"`
	Server     ServerConfig     `koanf:"server"`
	NATS       NATSConfig       `koanf:"nats"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// SourceConfig locates raw snapshots in the blob store.
type SourceConfig struct {
	// Prefix is the partition root. Snapshots are written below
	// <Prefix>/extraction_date=YYYY-MM-DD/.
	Prefix string `koanf:"prefix" validate:"required,objectkey"`

	// Fetch makes every run pull the recently-played endpoint and persist a
	// new snapshot before transforming. When false, runs only transform
	// snapshots already present.
	Fetch bool `koanf:"fetch"`
}

// Blob store backends.
const (
	BlobBackendFS = "fs"
	BlobBackendS3 = "s3"
)

// BlobConfig selects and configures the blob store that holds raw snapshots
// and the flat-file materializations.
type BlobConfig struct {
	Backend string `koanf:"backend" validate:"oneof=fs s3"`

	// Root is the base directory of the fs backend.
	Root string `koanf:"root"`

	Bucket       string `koanf:"bucket"`
	Region       string `koanf:"region"`
	Endpoint     string `koanf:"endpoint" validate:"omitempty,url"` // S3-compatible APIs (MinIO, R2)
	UsePathStyle bool   `koanf:"use_path_style"`

	// Static credentials. When empty the default AWS credential chain is used.
	AccessKeyID     string `koanf:"access_key_id"`
	SecretAccessKey string `koanf:"secret_access_key"`
}

// Relational sink drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// RelationalConfig configures the relational mirror of the materializations.
type RelationalConfig struct {
	Driver string `koanf:"driver" validate:"oneof=duckdb postgres none"`

	DuckDBPath      string `koanf:"duckdb_path"` // ":memory:" for an in-process database
	DuckDBThreads   int    `koanf:"duckdb_threads" validate:"gte=0"`
	DuckDBMaxMemory string `koanf:"duckdb_max_memory"`

	PostgresDSN      string `koanf:"postgres_dsn"`
	PostgresMaxConns int32  `koanf:"postgres_max_conns" validate:"gte=1"`

	SilverSchema string `koanf:"silver_schema" validate:"required"`
	GoldSchema   string `koanf:"gold_schema" validate:"required"`

	// Timeout bounds a single table replacement.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// SchemaFor returns the schema name configured for a medallion layer.
func (c *RelationalConfig) SchemaFor(layer string) string {
	if layer == "silver" {
		return c.SilverSchema
	}
	return c.GoldSchema
}

// SpotifyConfig holds upstream API and OAuth client settings.
type SpotifyConfig struct {
	APIURL      string `koanf:"api_url" validate:"required,http_url"`
	AccountsURL string `koanf:"accounts_url" validate:"required,http_url"`

	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURI  string `koanf:"redirect_uri" validate:"omitempty,http_url"`
	Scope        string `koanf:"scope"`

	// TokenFile stores the OAuth token between runs.
	TokenFile string `koanf:"token_file" validate:"required"`

	// FetchLimit is the number of events requested per fetch (1-50).
	FetchLimit int `koanf:"fetch_limit" validate:"min=1,max=50"`

	Timeout           time.Duration `koanf:"timeout" validate:"gt=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	MaxRetries        int           `koanf:"max_retries" validate:"gte=0,lte=10"`
}

// RunStateConfig configures the run journal.
type RunStateConfig struct {
	// Enabled persists run history and dirty-sink flags in badger. When false
	// an in-memory journal is used and relational repairs do not survive a
	// restart.
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir"`
}

// ScheduleConfig controls scheduled runs in serve mode.
type ScheduleConfig struct {
	Interval   time.Duration `koanf:"interval" validate:"gte=0"` // 0 disables the scheduler
	RunOnStart bool          `koanf:"run_on_start"`
	RunTimeout time.Duration `koanf:"run_timeout" validate:"gt=0"`
}

// ServerConfig holds operational HTTP server settings.
type ServerConfig struct {
	Enabled bool          `koanf:"enabled"`
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"gte=0"` // 0 disables rate limiting
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NATSConfig configures run-completed notifications. When disabled,
// notifications are delivered on an in-process channel only.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject" validate:"required"`
}

// LoggingConfig holds logging settings for zerolog.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false - include caller file:line (default: false)
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration using the layered Koanf loader.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
