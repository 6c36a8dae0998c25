// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Package testinfra starts throwaway backends for integration tests.
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./internal/relational/... ./internal/blobstore/...
//
// NewPostgresContainer backs the relational sink tests and returns a DSN.
// NewMinIOContainer backs the S3 blob store tests, with the bucket already
// created; point the store at Endpoint with path-style addressing.
//
// Each helper skips its test when Docker is not reachable and removes the
// container when the test ends.
package testinfra
