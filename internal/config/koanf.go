// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"backbeat.yaml",
	"backbeat.yml",
	"/etc/backbeat/config.yaml",
	"/etc/backbeat/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Prefix: "raw/spotify/recently_played",
			Fetch:  false,
		},
		Blob: BlobConfig{
			Backend: BlobBackendFS,
			Root:    "/data/backbeat",
			Region:  "us-east-1",
		},
		Relational: RelationalConfig{
			Driver:           DriverDuckDB,
			DuckDBPath:       "/data/backbeat.duckdb",
			DuckDBThreads:    0, // 0 = use runtime.NumCPU()
			DuckDBMaxMemory:  "1GB",
			PostgresMaxConns: 4,
			SilverSchema:     "silver",
			GoldSchema:       "gold",
			Timeout:          2 * time.Minute,
		},
		Spotify: SpotifyConfig{
			APIURL:            "https://api.spotify.com",
			AccountsURL:       "https://accounts.spotify.com",
			RedirectURI:       "http://127.0.0.1:8888/auth/callback",
			Scope:             "user-read-recently-played",
			TokenFile:         "/data/spotify_token.json",
			FetchLimit:        50,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 5,
			MaxRetries:        5,
		},
		RunState: RunStateConfig{
			Enabled: true,
			Dir:     "/data/runstate",
		},
		Schedule: ScheduleConfig{
			Interval:   time.Hour,
			RunOnStart: true,
			RunTimeout: 10 * time.Minute,
		},
		Server: ServerConfig{
			Enabled:           true,
			Host:              "0.0.0.0",
			Port:              8888,
			Timeout:           30 * time.Second,
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://127.0.0.1:4222",
			Subject: "pipeline.run.completed",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in sensible defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
func LoadWithKoanf() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is LoadWithKoanf with an explicit config file path. An empty path
// skips the file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// BLOB_BACKEND -> blob.backend, SPOTIFY_FETCH_LIMIT -> spotify.fetch_limit
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	normalize(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// normalize cleans values that are commonly written inconsistently.
func normalize(cfg *Config) {
	cfg.Source.Prefix = strings.Trim(cfg.Source.Prefix, "/")
	cfg.Blob.Backend = strings.ToLower(cfg.Blob.Backend)
	cfg.Relational.Driver = strings.ToLower(cfg.Relational.Driver)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	cfg.Logging.Format = strings.ToLower(cfg.Logging.Format)
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak in.
var envMappings = map[string]string{
	// Source
	"source_prefix": "source.prefix",
	"fetch_enabled": "source.fetch",

	// Blob store
	"blob_backend":         "blob.backend",
	"blob_root":            "blob.root",
	"s3_bucket":            "blob.bucket",
	"s3_region":            "blob.region",
	"s3_endpoint":          "blob.endpoint",
	"s3_use_path_style":    "blob.use_path_style",
	"s3_access_key_id":     "blob.access_key_id",
	"s3_secret_access_key": "blob.secret_access_key",

	// Relational sink
	"relational_driver":  "relational.driver",
	"duckdb_path":        "relational.duckdb_path",
	"duckdb_threads":     "relational.duckdb_threads",
	"duckdb_max_memory":  "relational.duckdb_max_memory",
	"postgres_dsn":       "relational.postgres_dsn",
	"postgres_max_conns": "relational.postgres_max_conns",
	"silver_schema":      "relational.silver_schema",
	"gold_schema":        "relational.gold_schema",
	"relational_timeout": "relational.timeout",

	// Spotify
	"spotify_api_url":             "spotify.api_url",
	"spotify_accounts_url":        "spotify.accounts_url",
	"spotify_client_id":           "spotify.client_id",
	"spotify_client_secret":       "spotify.client_secret",
	"spotify_redirect_uri":        "spotify.redirect_uri",
	"spotify_scope":               "spotify.scope",
	"spotify_token_file":          "spotify.token_file",
	"spotify_fetch_limit":         "spotify.fetch_limit",
	"spotify_timeout":             "spotify.timeout",
	"spotify_requests_per_second": "spotify.requests_per_second",
	"spotify_max_retries":         "spotify.max_retries",

	// Run state
	"runstate_enabled": "runstate.enabled",
	"runstate_dir":     "runstate.dir",

	// Schedule
	"schedule_interval": "schedule.interval",
	"run_on_start":      "schedule.run_on_start",
	"run_timeout":       "schedule.run_timeout",

	// Server
	"http_enabled":        "server.enabled",
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"rate_limit_requests": "server.rate_limit_requests",
	"rate_limit_window":   "server.rate_limit_window",

	// NATS
	"nats_enabled": "nats.enabled",
	"nats_url":     "nats.url",
	"nats_subject": "nats.subject",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
// For unmapped keys it returns an empty string, which koanf skips.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
