// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package orchestrate

import (
	"testing"
	"time"
)

func TestNewActionID_Deterministic(t *testing.T) {
	a := NewActionID("alert-123")
	b := NewActionID("alert-123")
	if a != b {
		t.Errorf("same alert must produce the same action ID: %s != %s", a, b)
	}
	if NewActionID("alert-456") == a {
		t.Error("different alerts must produce different action IDs")
	}
	if a == "alert-123" {
		t.Error("action ID must differ from the alert ID")
	}
}

func TestParseActionType(t *testing.T) {
	valid := []string{"RESTART_SERVICE", "SCALE_UP", "CLEAR_CACHE", "NOTIFY_ONLY"}
	for _, s := range valid {
		if _, err := ParseActionType(s); err != nil {
			t.Errorf("expected %s to parse, got %v", s, err)
		}
	}

	for _, s := range []string{"", "restart_service", "DELETE_EVERYTHING"} {
		if _, err := ParseActionType(s); err == nil {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}

func TestAction_MarshalRoundTrip(t *testing.T) {
	dispatched := time.UnixMilli(1700000000000).UTC()
	completed := dispatched.Add(2 * time.Second)
	action := &Action{
		ActionID:     NewActionID("alert-123"),
		AlertID:      "alert-123",
		ServiceID:    "api-1",
		ActionType:   ActionRestartService,
		Status:       StatusSucceeded,
		Reason:       "RESTART_SERVICE executed for api-1 (mock)",
		DispatchedAt: dispatched,
		CompletedAt:  &completed,
	}

	data, err := MarshalAction(action)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	got, err := UnmarshalAction(data)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.ActionID != action.ActionID || got.AlertID != action.AlertID {
		t.Errorf("identity fields did not survive the round trip: %+v", got)
	}
	if got.Status != StatusSucceeded || got.ActionType != ActionRestartService {
		t.Errorf("lifecycle fields did not survive the round trip: %+v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(completed) {
		t.Errorf("expected completed_at %s, got %v", completed, got.CompletedAt)
	}
}

func TestUnmarshalAction_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{nope"},
		{"missing action_id", `{"alert_id":"a","service_id":"api-1","action_type":"NOTIFY_ONLY","status":"DISPATCHED"}`},
		{"bad action type", `{"action_id":"x","alert_id":"a","service_id":"api-1","action_type":"NUKE","status":"DISPATCHED"}`},
		{"bad status", `{"action_id":"x","alert_id":"a","service_id":"api-1","action_type":"NOTIFY_ONLY","status":"PENDING"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := UnmarshalAction([]byte(tt.data)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestIncidentState_String(t *testing.T) {
	tests := []struct {
		state IncidentState
		want  string
	}{
		{StateHealthy, "healthy"},
		{StateAlerting, "alerting"},
		{StateCooldown, "cooldown"},
		{IncidentState(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("state %d: expected %q, got %q", tt.state, tt.want, got)
		}
	}
}
