// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package catalog

import (
	"fmt"
	"time"
)

func stringValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func intValue(n *int64) any {
	if n == nil {
		return nil
	}
	return *n
}

func boolValue(b *bool) any {
	if b == nil {
		return nil
	}
	return *b
}

func timeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func scanString(v any) (*string, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string:
		return &x, nil
	default:
		return nil, fmt.Errorf("expected string, got %T", v)
	}
}

func scanInt(v any) (*int64, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case int64:
		return &x, nil
	default:
		return nil, fmt.Errorf("expected int64, got %T", v)
	}
}

func scanBool(v any) (*bool, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return &x, nil
	default:
		return nil, fmt.Errorf("expected bool, got %T", v)
	}
}

func scanTime(v any) (*time.Time, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		u := x.UTC()
		return &u, nil
	default:
		return nil, fmt.Errorf("expected time.Time, got %T", v)
	}
}

// scanner accumulates the first conversion error so Scan implementations read
// as a flat list of assignments.
type scanner struct {
	spec   Spec
	values []any
	err    error
}

func (s *scanner) column(i int) any {
	return s.values[i]
}

func (s *scanner) fail(i int, err error) {
	if s.err == nil && err != nil {
		s.err = fmt.Errorf("%s.%s: %w", s.spec.Name, s.spec.Columns[i].Name, err)
	}
}

func (s *scanner) str(i int) *string {
	v, err := scanString(s.column(i))
	s.fail(i, err)
	return v
}

func (s *scanner) int(i int) *int64 {
	v, err := scanInt(s.column(i))
	s.fail(i, err)
	return v
}

func (s *scanner) bool(i int) *bool {
	v, err := scanBool(s.column(i))
	s.fail(i, err)
	return v
}

func (s *scanner) time(i int) *time.Time {
	v, err := scanTime(s.column(i))
	s.fail(i, err)
	return v
}
