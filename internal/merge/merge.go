// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

// Package merge implements the incremental natural-key merge shared by every
// materialization.
//
// A merge never updates or removes an existing row. Candidates whose key is
// already materialized are discarded (first-write-wins), candidates repeated
// within one batch are collapsed to a single representative first, and the
// final row set is the existing rows followed by the inserted ones.
package merge

// KeyFunc returns the encoded natural key of a row.
type KeyFunc[R any] func(R) string

// Existing is the current state of a materialization. The zero value means the
// materialization has never been written.
type Existing[R any] struct {
	Rows    []R
	Present bool
}

// Absent returns the state of a materialization that does not exist yet.
func Absent[R any]() Existing[R] {
	return Existing[R]{}
}

// Current wraps the rows of a materialization that already exists. An empty
// but present materialization is distinct from an absent one.
func Current[R any](rows []R) Existing[R] {
	return Existing[R]{Rows: rows, Present: true}
}

// Result is the outcome of a merge.
type Result[R any] struct {
	// Final is the complete materialization after the merge.
	Final []R

	// Inserted holds candidates whose key was not already materialized.
	Inserted []R

	// Candidates is the number of candidates after in-batch de-duplication.
	Candidates int

	// Duplicates counts candidates collapsed by in-batch de-duplication.
	Duplicates int

	// Discarded counts candidates dropped because their key already existed.
	Discarded int
}

// NoOp reports whether the merge inserted nothing. Callers skip the write phase.
func (r Result[R]) NoOp() bool {
	return len(r.Inserted) == 0
}

// Merge anti-joins candidates against existing on key.
//
// Candidates are first de-duplicated with DedupLast. When existing is absent
// every remaining candidate is inserted.
func Merge[R any](candidates []R, existing Existing[R], key KeyFunc[R]) Result[R] {
	deduped, dups := DedupLast(candidates, key)

	res := Result[R]{
		Candidates: len(deduped),
		Duplicates: dups,
	}

	if !existing.Present {
		res.Inserted = deduped
		res.Final = deduped
		return res
	}

	seen := make(map[string]struct{}, len(existing.Rows))
	for _, row := range existing.Rows {
		seen[key(row)] = struct{}{}
	}

	inserted := make([]R, 0, len(deduped))
	for _, row := range deduped {
		if _, ok := seen[key(row)]; ok {
			res.Discarded++
			continue
		}
		inserted = append(inserted, row)
	}

	final := make([]R, 0, len(existing.Rows)+len(inserted))
	final = append(final, existing.Rows...)
	final = append(final, inserted...)

	res.Inserted = inserted
	res.Final = final
	return res
}

// DedupLast collapses rows sharing a key. The surviving value is the last one
// seen, placed at the position where the key first appeared. It returns the
// de-duplicated rows and how many were collapsed.
func DedupLast[R any](rows []R, key KeyFunc[R]) ([]R, int) {
	index := make(map[string]int, len(rows))
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		k := key(row)
		if i, ok := index[k]; ok {
			out[i] = row
			continue
		}
		index[k] = len(out)
		out = append(out, row)
	}
	return out, len(rows) - len(out)
}

// DedupFirst collapses rows sharing a key, keeping the first occurrence.
func DedupFirst[R any](rows []R, key KeyFunc[R]) ([]R, int) {
	seen := make(map[string]struct{}, len(rows))
	out := make([]R, 0, len(rows))
	for _, row := range rows {
		k := key(row)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, row)
	}
	return out, len(rows) - len(out)
}
