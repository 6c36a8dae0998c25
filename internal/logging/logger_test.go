// Backbeat - Listening History Medallion Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/backbeat

package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// captureInit points the global logger at a buffer and restores the
// previous logger and level when the test ends.
func captureInit(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	cfg.Output = &buf
	Init(cfg)
	return &buf
}

func TestInit_JSONFields(t *testing.T) {
	buf := captureInit(t, Config{Level: "info", Format: "json"})

	Info().Str("materialization", "dim_track").Msg("committed")

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	want := map[string]interface{}{
		"level":           "info",
		"service":         ServiceName,
		"materialization": "dim_track",
		"message":         "committed",
	}
	for k, v := range want {
		if event[k] != v {
			t.Errorf("%s = %v, want %v", k, event[k], v)
		}
	}
	if _, ok := event["time"]; !ok {
		t.Error("missing time field")
	}
}

func TestInit_Levels(t *testing.T) {
	tests := []struct {
		level     string
		emitDebug bool
		emitInfo  bool
		emitWarn  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"warn", false, false, true},
		{"warning", false, false, true},
		{"error", false, false, false},
		{"bogus", false, true, true},
		{"", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureInit(t, Config{Level: tt.level})

			Debug().Msg("d")
			Info().Msg("i")
			Warn().Msg("w")

			out := buf.String()
			check := func(msg string, want bool) {
				if got := strings.Contains(out, `"message":"`+msg+`"`); got != want {
					t.Errorf("level %q: %s emitted = %v, want %v", tt.level, msg, got, want)
				}
			}
			check("d", tt.emitDebug)
			check("i", tt.emitInfo)
			check("w", tt.emitWarn)
		})
	}
}

func TestInit_Console(t *testing.T) {
	buf := captureInit(t, Config{Level: "info", Format: "console"})

	Info().Msg("console message")

	out := buf.String()
	if !strings.Contains(out, "console message") {
		t.Errorf("output = %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Error("console format should not emit JSON")
	}
}

func TestInit_Caller(t *testing.T) {
	buf := captureInit(t, Config{Level: "info", Caller: true})

	Info().Msg("with caller")

	if !strings.Contains(buf.String(), `"caller":`) {
		t.Errorf("output = %s, want caller field", buf.String())
	}
}

func TestErr(t *testing.T) {
	buf := captureInit(t, Config{Level: "info"})

	Err(errors.New("disk full")).Msg("write failed")

	out := buf.String()
	if !strings.Contains(out, `"level":"error"`) || !strings.Contains(out, "disk full") {
		t.Errorf("output = %s", out)
	}
}

func TestWith(t *testing.T) {
	buf := captureInit(t, Config{Level: "info"})

	child := With().Str("sink", "postgres").Logger()
	child.Info().Msg("replaced")

	if !strings.Contains(buf.String(), `"sink":"postgres"`) {
		t.Errorf("output = %s", buf.String())
	}
}

func TestFromSettings(t *testing.T) {
	t.Parallel()

	cfg := FromSettings("debug", "console", true)
	if cfg.Level != "debug" || cfg.Format != "console" || !cfg.Caller {
		t.Errorf("FromSettings() = %+v", cfg)
	}
	if cfg.Output == nil {
		t.Error("Output should default to stderr")
	}
}

func TestSetLevelString(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	SetLevelString("error")
	if zerolog.GlobalLevel() != zerolog.ErrorLevel {
		t.Errorf("level = %v, want error", zerolog.GlobalLevel())
	}
	SetLevelString("nonsense")
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info fallback", zerolog.GlobalLevel())
	}
}
