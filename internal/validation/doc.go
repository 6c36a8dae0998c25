// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

/*
Package validation provides struct validation using go-playground/validator v10.

A single validator instance is shared process-wide; it caches struct metadata
and carries the custom tags used by Backbeat:

  - objectkey: a relative, slash-separated blob key or prefix with no "." or
    ".." segments and no leading slash.
  - keysafe: a string free of NUL, ASCII unit separator, CR and LF bytes, which are
    reserved by natural-key encoding.

Configuration sections and normalized play events are validated through
ValidateStruct, which returns a *StructError listing every failing field with
a human-readable message.

Example:

	type SourceConfig struct {
	    Prefix string `validate:"required,objectkey"`
	}

	if err := validation.ValidateStruct(&cfg.Source); err != nil {
	    return fmt.Errorf("source: %w", err)
	}
*/
package validation
