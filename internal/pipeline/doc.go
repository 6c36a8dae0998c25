// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package pipeline builds and commits the silver and gold materializations.

A run proceeds strictly in order:

 1. Ensure the relational schema exists (when a relational sink is configured)
 2. Optionally fetch the recently-played endpoint and persist a raw snapshot
 3. Cleaned layer: read every snapshot, normalize, merge on (played_at, track_id)
 4. Dimensions: artist, album, track, each re-derived from the full cleaned layer
 5. Fact: projected from the full cleaned layer, merged on (played_at, track_id)
 6. Record the run in the journal, publish a notification, update metrics

Every merge reads its existing rows from the blob store, so the blob copy is
the source of truth and a run can always be repeated from the top. A merge
that inserts nothing skips the write. A relational write that fails is
recorded as a dirty mark; the next run replaces the table from the blob rows
even when its merge inserts nothing.

# Failure Handling

Corrupt snapshots, normalization failures and unreadable materializations
abort the run before anything else is written (status "failed"). A blob
write failure stops the run at that materialization (status "incomplete").
A relational write failure is reported and the run continues (status
"incomplete").

# Concurrency

A Runner executes one run at a time. Run and Start return ErrRunInProgress
instead of waiting. Separate processes sharing a state directory are kept
apart by the run journal's directory lock.
*/
package pipeline
