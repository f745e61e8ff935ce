// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package stream

import "testing"

func TestSubjectHelpers(t *testing.T) {
	tests := []struct {
		got  string
		want string
	}{
		{TelemetrySubject("api-1"), "telemetry.api-1"},
		{AlertSubject("db-1"), "alerts.db-1"},
		{ActionSubject("cache-1"), "actions.cache-1"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, tt.got)
		}
	}
}

func TestDefaultSubscriberConfig(t *testing.T) {
	cfg := DefaultSubscriberConfig("nats://127.0.0.1:4222", "TELEMETRY", "pulseguard-ingestor")

	if cfg.StreamName != "TELEMETRY" {
		t.Errorf("expected stream TELEMETRY, got %s", cfg.StreamName)
	}
	if cfg.DurableName != "pulseguard-ingestor" {
		t.Errorf("expected durable pulseguard-ingestor, got %s", cfg.DurableName)
	}
	if cfg.QueueGroup != cfg.DurableName {
		t.Error("queue group should default to the durable name")
	}
	if cfg.MaxReconnects != -1 {
		t.Errorf("expected unlimited reconnects, got %d", cfg.MaxReconnects)
	}
}
