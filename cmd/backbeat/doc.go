// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Command backbeat builds a medallion model of Spotify listening history.
//
// Raw recently-played snapshots are read from a blob store, normalized into
// the silver cleaned table and modelled into gold artist, album and track
// dimensions plus a play-event fact. Every materialization is written to
// the blob store as CSV and mirrored into DuckDB or PostgreSQL.
//
// # Commands
//
//	backbeat run        execute one pipeline run and exit
//	backbeat serve      scheduled runs plus the operational HTTP API
//	backbeat authorize  one-shot OAuth login server that stores a token
//	backbeat schema     create the relational schemas and tables
//	backbeat version    print the build version
//
// Every command accepts -config <file>. Without it, $CONFIG_PATH,
// ./backbeat.yaml and /etc/backbeat/config.yaml are tried in that order.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority
// wins): environment variables, the config file, built-in defaults. Keys map
// to variables by upper-casing and replacing dots with underscores, for
// example SPOTIFY_CLIENT_ID or RELATIONAL_DRIVER.
//
// # Exit Codes
//
//	0  success
//	1  configuration or startup error, or a failed run
//	2  usage error
//	3  incomplete run: the blob store is ahead of the relational store
//
// # Build Tags
//
//	go build -tags nats ./cmd/backbeat   # publish run notifications to NATS
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the running command. In serve mode the
// supervisor stops the scheduler and drains the HTTP server.
package main
