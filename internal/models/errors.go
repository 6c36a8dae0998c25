// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package models

import (
	"errors"
	"fmt"
)

// ErrCorruptSnapshot is returned when a raw snapshot blob cannot be parsed.
// It is fatal for the run: nothing downstream is written.
var ErrCorruptSnapshot = errors.New("corrupt snapshot")

// ErrNormalizationFailure is returned when an event's shape is malformed
// beyond what null-tolerant normalization can absorb. Fatal for the run.
var ErrNormalizationFailure = errors.New("normalization failure")

// ErrCorruptMaterialization is returned when a committed materialization
// cannot be decoded from the blob sink.
var ErrCorruptMaterialization = errors.New("corrupt materialization")

// ErrSinkWriteFailure matches any *SinkError.
var ErrSinkWriteFailure = errors.New("sink write failure")

// Sink names used in SinkError.
const (
	SinkBlob       = "blob"
	SinkRelational = "relational"
)

// SinkError reports a failed write to one of the two sinks. A blob failure
// leaves the run incomplete; a relational failure is reported and repaired
// on the next run.
type SinkError struct {
	Sink            string
	Materialization string
	Err             error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink write for %s failed: %v", e.Sink, e.Materialization, e.Err)
}

// Unwrap returns the underlying write error.
func (e *SinkError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrSinkWriteFailure.
func (e *SinkError) Is(target error) bool {
	return target == ErrSinkWriteFailure
}

// IsRelational reports whether the failed write was against the relational sink.
func (e *SinkError) IsRelational() bool {
	return e.Sink == SinkRelational
}
