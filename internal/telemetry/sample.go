// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

// Package telemetry defines the telemetry wire record and the ingestor
// that feeds the detection engine from the telemetry stream.
package telemetry

import (
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"
)

// Sample is one telemetry record as produced by the external generator:
// a service identity, an epoch-millisecond timestamp and a vector of
// named numeric readings (cpu, memory, latency, error_rate, ...).
// Samples are immutable once created.
type Sample struct {
	ServiceID string             `json:"service_id"`
	Timestamp int64              `json:"timestamp"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Time returns the sample timestamp as a time.Time.
func (s *Sample) Time() time.Time {
	return time.UnixMilli(s.Timestamp)
}

// Validate rejects records the detection engine cannot use.
func (s *Sample) Validate() error {
	if s.ServiceID == "" {
		return fmt.Errorf("service_id is required")
	}
	if s.Timestamp <= 0 {
		return fmt.Errorf("timestamp must be positive epoch millis, got %d", s.Timestamp)
	}
	if len(s.Metrics) == 0 {
		return fmt.Errorf("metrics must not be empty")
	}
	for name, v := range s.Metrics {
		if name == "" {
			return fmt.Errorf("metric name must not be empty")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("metric %s has non-finite value", name)
		}
	}
	return nil
}

// MarshalSample encodes a sample for the telemetry stream.
func MarshalSample(s *Sample) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate sample: %w", err)
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal sample: %w", err)
	}
	return data, nil
}

// UnmarshalSample decodes and validates a telemetry stream record.
func UnmarshalSample(data []byte) (*Sample, error) {
	var s Sample
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal sample: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("validate sample: %w", err)
	}
	return &s, nil
}
