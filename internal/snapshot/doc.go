// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package snapshot reads and writes raw recently-played snapshots.

A snapshot is one upstream response stored verbatim as JSON under a
date-partitioned key:

	<prefix>/extraction_date=2024-03-01/recently_played_20240301T081500.json

Snapshots are immutable. The Writer never overwrites an existing key; a second
capture in the same second gets a numeric suffix (recently_played_..._001.json).

The Reader enumerates every snapshot below the prefix in key order and
flattens their items arrays into one ordered event sequence. Any snapshot that
cannot be parsed fails the whole read with models.ErrCorruptSnapshot.
*/
package snapshot
