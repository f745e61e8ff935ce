// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

// Package detect maintains per-service baselines over rolling telemetry
// windows and scores incoming samples against them. No labeled data is
// involved: a sample is anomalous when it deviates far enough from the
// service's own recent history.
package detect

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// AnomalyType classifies which metric drove an alert.
type AnomalyType string

const (
	AnomalyCPUSpike   AnomalyType = "CPU_SPIKE"
	AnomalyMemoryLeak AnomalyType = "MEMORY_LEAK"
	AnomalyLatency    AnomalyType = "LATENCY_DEGRADATION"
	AnomalyErrorBurst AnomalyType = "ERROR_BURST"
	AnomalyUnknown    AnomalyType = "UNKNOWN"
)

// metricAnomalyTypes maps canonical metric names to their anomaly type.
// Metrics outside this map classify as UNKNOWN.
var metricAnomalyTypes = map[string]AnomalyType{
	"cpu":        AnomalyCPUSpike,
	"memory":     AnomalyMemoryLeak,
	"latency":    AnomalyLatency,
	"error_rate": AnomalyErrorBurst,
}

// AnomalyTypeForMetric returns the anomaly type for a metric name.
func AnomalyTypeForMetric(metric string) AnomalyType {
	if t, ok := metricAnomalyTypes[metric]; ok {
		return t
	}
	return AnomalyUnknown
}

// Severity grades an alert. Ordering matters: escalation during cooldown
// requires a strictly higher severity.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Rank returns the severity as an orderable integer. Unknown severities
// rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	default:
		return 0
	}
}

// Alert is one anomaly finding. It is immutable once created; the ID is a
// deterministic hash so redelivered copies collapse downstream.
type Alert struct {
	AlertID        string             `json:"alert_id"`
	ServiceID      string             `json:"service_id"`
	Timestamp      time.Time          `json:"timestamp"`
	Score          float64            `json:"score"`
	AnomalyType    AnomalyType        `json:"anomaly_type"`
	Severity       Severity           `json:"severity"`
	DominantMetric string             `json:"dominant_metric,omitempty"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
}

// NewAlertID derives the deterministic alert identifier from the service,
// the sample timestamp and the classification.
func NewAlertID(serviceID string, ts time.Time, anomalyType AnomalyType) string {
	h := sha256.Sum256([]byte(serviceID + "|" + strconv.FormatInt(ts.UnixMilli(), 10) + "|" + string(anomalyType)))
	return hex.EncodeToString(h[:16])
}

// Validate checks the fields downstream consumers rely on.
func (a *Alert) Validate() error {
	if a.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if a.ServiceID == "" {
		return fmt.Errorf("service_id is required")
	}
	if a.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if a.Severity.Rank() == 0 {
		return fmt.Errorf("invalid severity %q", a.Severity)
	}
	return nil
}

// MarshalAlert encodes an alert for the alert stream.
func MarshalAlert(a *Alert) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validate alert: %w", err)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal alert: %w", err)
	}
	return data, nil
}

// UnmarshalAlert decodes an alert stream record.
func UnmarshalAlert(data []byte) (*Alert, error) {
	var a Alert
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("unmarshal alert: %w", err)
	}
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("validate alert: %w", err)
	}
	return &a, nil
}
