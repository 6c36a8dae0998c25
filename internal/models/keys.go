// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package models

import (
	"strings"
	"time"
)

const (
	// nullKey encodes a NULL key component. NUL never appears in upstream ids.
	nullKey = "\x00"

	// keySeparator joins key components (ASCII unit separator).
	keySeparator = "\x1f"
)

// TimePrecision is the finest timestamp resolution kept in natural keys. It
// matches TIMESTAMP in DuckDB and PostgreSQL.
const TimePrecision = time.Microsecond

// TimeKey encodes a timestamp key component in UTC at TimePrecision.
func TimeKey(t *time.Time) string {
	if t == nil {
		return nullKey
	}
	return t.UTC().Truncate(TimePrecision).Format(time.RFC3339Nano)
}

// StringKey encodes a string key component.
func StringKey(s *string) string {
	if s == nil {
		return nullKey
	}
	return *s
}

// JoinKey combines encoded components into a single key.
func JoinKey(parts ...string) string {
	return strings.Join(parts, keySeparator)
}
