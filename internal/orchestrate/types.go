// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

// Package orchestrate turns anomaly alerts into deduplicated, cooled-down
// healing actions. It owns the per-service incident state machine and is
// the only component allowed to mutate it.
package orchestrate

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// ActionType enumerates the recovery effects the rulebook can select.
type ActionType string

const (
	ActionRestartService ActionType = "RESTART_SERVICE"
	ActionScaleUp        ActionType = "SCALE_UP"
	ActionClearCache     ActionType = "CLEAR_CACHE"
	ActionNotifyOnly     ActionType = "NOTIFY_ONLY"
)

// ParseActionType validates a rulebook value.
func ParseActionType(s string) (ActionType, error) {
	switch ActionType(s) {
	case ActionRestartService, ActionScaleUp, ActionClearCache, ActionNotifyOnly:
		return ActionType(s), nil
	default:
		return "", fmt.Errorf("unknown action type %q", s)
	}
}

// ActionStatus tracks an action through its lifecycle. The terminal
// status is written exactly once, from the executor result.
type ActionStatus string

const (
	StatusDispatched ActionStatus = "DISPATCHED"
	StatusSucceeded  ActionStatus = "SUCCEEDED"
	StatusFailed     ActionStatus = "FAILED"
)

// Action is one healing action record. The ID derives deterministically
// from the triggering alert, so a redelivered alert can never mint a
// second action.
type Action struct {
	ActionID     string       `json:"action_id"`
	AlertID      string       `json:"alert_id"`
	ServiceID    string       `json:"service_id"`
	ActionType   ActionType   `json:"action_type"`
	Status       ActionStatus `json:"status"`
	Reason       string       `json:"reason,omitempty"`
	DispatchedAt time.Time    `json:"dispatched_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
}

// NewActionID derives the action identifier from the alert identifier.
func NewActionID(alertID string) string {
	h := sha256.Sum256([]byte("action|" + alertID))
	return hex.EncodeToString(h[:16])
}

// Validate checks the fields the action stream contract requires.
func (a *Action) Validate() error {
	if a.ActionID == "" {
		return fmt.Errorf("action_id is required")
	}
	if a.ServiceID == "" {
		return fmt.Errorf("service_id is required")
	}
	if _, err := ParseActionType(string(a.ActionType)); err != nil {
		return err
	}
	switch a.Status {
	case StatusDispatched, StatusSucceeded, StatusFailed:
	default:
		return fmt.Errorf("invalid status %q", a.Status)
	}
	return nil
}

// MarshalAction encodes an action for the action stream.
func MarshalAction(a *Action) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validate action: %w", err)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal action: %w", err)
	}
	return data, nil
}

// UnmarshalAction decodes an action stream record.
func UnmarshalAction(data []byte) (*Action, error) {
	var a Action
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal action: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validate action: %w", err)
	}
	return &a, nil
}

// Result is the executor's report for one action.
type Result struct {
	Success bool
	Detail  string
}

// Executor performs (or mocks) the recovery effect. Implementations must
// be safe for concurrent use; the orchestrator calls Execute inline from
// its consumer loop.
type Executor interface {
	Execute(ctx context.Context, action *Action) Result
}

// IncidentState is the per-service state machine position.
type IncidentState int

const (
	// StateHealthy accepts new alerts.
	StateHealthy IncidentState = iota
	// StateAlerting is held only inside the dispatch critical section;
	// concurrent alerts for the same incident are suppressed.
	StateAlerting
	// StateCooldown suppresses further alerts until expiry, unless a
	// strictly higher severity escalates.
	StateCooldown
)

// String returns the state name.
func (s IncidentState) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateAlerting:
		return "alerting"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}
