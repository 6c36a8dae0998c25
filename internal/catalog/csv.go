// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package catalog

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/tomtom215/backbeat/internal/models"
)

// DateLayout is the flat-file representation of DATE columns.
const DateLayout = "2006-01-02"

// timestampLayouts are accepted when decoding TIMESTAMP columns. The first
// layout is the one written.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// EncodeCSV serializes rows as a header-first CSV document.
func EncodeCSV(spec Spec, rows [][]any) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(spec.ColumnNames()); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(spec.Columns))
	for i, row := range rows {
		if len(row) != len(spec.Columns) {
			return nil, fmt.Errorf("%s row %d: expected %d values, got %d", spec.Name, i, len(spec.Columns), len(row))
		}
		for j, col := range spec.Columns {
			field, err := formatValue(col.Type, row[j])
			if err != nil {
				return nil, fmt.Errorf("%s row %d column %s: %w", spec.Name, i, col.Name, err)
			}
			record[j] = field
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses a document produced by EncodeCSV. The header must match the
// spec's columns exactly. Failures wrap models.ErrCorruptMaterialization.
func DecodeCSV(spec Spec, r io.Reader) ([][]any, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(spec.Columns)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: missing header", models.ErrCorruptMaterialization, spec.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read header: %w", models.ErrCorruptMaterialization, spec.Name, err)
	}
	for i, name := range spec.ColumnNames() {
		if header[i] != name {
			return nil, fmt.Errorf("%w: %s: header column %d is %q, expected %q",
				models.ErrCorruptMaterialization, spec.Name, i, header[i], name)
		}
	}

	var rows [][]any
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", models.ErrCorruptMaterialization, spec.Name, err)
		}

		row := make([]any, len(spec.Columns))
		for j, col := range spec.Columns {
			v, err := parseValue(col.Type, record[j])
			if err != nil {
				return nil, fmt.Errorf("%w: %s line %d column %s: %w",
					models.ErrCorruptMaterialization, spec.Name, line, col.Name, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DecodeRows decodes a CSV document straight into typed rows.
func DecodeRows[R any](t Table[R], r io.Reader) ([]R, error) {
	values, err := DecodeCSV(t.Spec, r)
	if err != nil {
		return nil, err
	}
	rows := make([]R, 0, len(values))
	for i, v := range values {
		row, err := t.Scan(v)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %w", models.ErrCorruptMaterialization, i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// EncodeRows encodes typed rows as a CSV document.
func EncodeRows[R any](t Table[R], rows []R) ([]byte, error) {
	return EncodeCSV(t.Spec, t.Rows(rows))
}

func formatValue(typ ColumnType, v any) (string, error) {
	if v == nil {
		return "", nil
	}
	switch typ {
	case TypeVarchar:
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("expected string, got %T", v)
		}
		return s, nil
	case TypeInteger:
		n, ok := v.(int64)
		if !ok {
			return "", fmt.Errorf("expected int64, got %T", v)
		}
		return strconv.FormatInt(n, 10), nil
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return "", fmt.Errorf("expected bool, got %T", v)
		}
		return strconv.FormatBool(b), nil
	case TypeTimestamp:
		t, ok := v.(time.Time)
		if !ok {
			return "", fmt.Errorf("expected time.Time, got %T", v)
		}
		return t.UTC().Format(time.RFC3339Nano), nil
	case TypeDate:
		t, ok := v.(time.Time)
		if !ok {
			return "", fmt.Errorf("expected time.Time, got %T", v)
		}
		return t.UTC().Format(DateLayout), nil
	default:
		return "", fmt.Errorf("unknown column type %q", typ)
	}
}

func parseValue(typ ColumnType, field string) (any, error) {
	if field == "" {
		return nil, nil
	}
	switch typ {
	case TypeVarchar:
		return field, nil
	case TypeInteger:
		return strconv.ParseInt(field, 10, 64)
	case TypeBoolean:
		return strconv.ParseBool(field)
	case TypeTimestamp:
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, field); err == nil {
				return t.UTC(), nil
			}
		}
		return nil, fmt.Errorf("invalid timestamp %q", field)
	case TypeDate:
		t, err := time.Parse(DateLayout, field)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q", field)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unknown column type %q", typ)
	}
}
