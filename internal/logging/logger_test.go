// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"DEBUG", zerolog.DebugLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q): expected %s, got %s", tt.input, tt.want, got)
		}
	}
}

func TestInit_WritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Output: &buf})
	defer Init(DefaultConfig())

	Info().Str("service", "api-1").Msg("window warmed up")

	out := buf.String()
	if !strings.Contains(out, `"service":"api-1"`) {
		t.Errorf("expected structured field in output, got %s", out)
	}
	if !strings.Contains(out, "window warmed up") {
		t.Errorf("expected message in output, got %s", out)
	}
}

func TestNewTestLogger_Captures(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTestLogger(&buf)

	logger.Warn().Str("reason", "cooldown").Msg("alert suppressed")

	if !strings.Contains(buf.String(), `"reason":"cooldown"`) {
		t.Errorf("expected captured output, got %s", buf.String())
	}
}
