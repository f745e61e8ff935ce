// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package orchestrate

import (
	"fmt"

	"github.com/pulseguard/pulseguard/internal/detect"
)

// Rulebook is the data-driven mapping from anomaly classification to
// recovery action. It is loaded once at startup and read-only afterwards,
// so swapping remediation policy is a config change, not a code change.
type Rulebook struct {
	rules       map[detect.AnomalyType]ActionType
	minSeverity detect.Severity
}

// NewRulebook builds a rulebook from config-level string maps. Unknown
// action type values are a startup error; unmapped anomaly types resolve
// to NOTIFY_ONLY at lookup time.
func NewRulebook(rules map[string]string, minSeverity string) (*Rulebook, error) {
	sev := detect.Severity(minSeverity)
	if sev.Rank() == 0 {
		return nil, fmt.Errorf("rulebook: invalid min severity %q", minSeverity)
	}

	parsed := make(map[detect.AnomalyType]ActionType, len(rules))
	for anomaly, action := range rules {
		at, err := ParseActionType(action)
		if err != nil {
			return nil, fmt.Errorf("rulebook: rule %s: %w", anomaly, err)
		}
		parsed[detect.AnomalyType(anomaly)] = at
	}

	return &Rulebook{rules: parsed, minSeverity: sev}, nil
}

// ActionFor resolves the action for an alert. Anomaly types without a
// rule, and alerts below the minimum severity, map to NOTIFY_ONLY. A
// rule lookup miss is a safe default, never an error.
func (r *Rulebook) ActionFor(alert *detect.Alert) ActionType {
	if alert.Severity.Rank() < r.minSeverity.Rank() {
		return ActionNotifyOnly
	}
	if action, ok := r.rules[alert.AnomalyType]; ok {
		return action
	}
	return ActionNotifyOnly
}

// Len returns the number of configured rules.
func (r *Rulebook) Len() int {
	return len(r.rules)
}
