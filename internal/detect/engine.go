// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package detect

import (
	"sync"
	"time"

	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/metrics"
)

// Config holds the scoring tunables.
type Config struct {
	// WindowSize is the per-service ring buffer capacity.
	WindowSize int

	// WarmupSamples gates alerting: a service emits nothing until its
	// window holds this many samples.
	WarmupSamples int

	// RefitInterval is the number of appends between baseline refits. The
	// previous baseline is reused between refits.
	RefitInterval int

	// ScoreThreshold is the minimum score that raises an alert.
	ScoreThreshold float64

	// SeverityMedium and SeverityHigh split scores into LOW/MEDIUM/HIGH.
	SeverityMedium float64
	SeverityHigh   float64
}

// DefaultConfig returns the tuning the pipeline ships with.
func DefaultConfig() Config {
	return Config{
		WindowSize:     50,
		WarmupSamples:  20,
		RefitInterval:  20,
		ScoreThreshold: 3.0,
		SeverityMedium: 4.5,
		SeverityHigh:   6.0,
	}
}

// serviceState is one service's shard: window, model and refit counter.
// All fields are guarded by mu; each service has exactly one writer at a
// time, so shards never contend with each other.
type serviceState struct {
	mu           sync.Mutex
	window       *Window
	model        Model
	sinceLastFit int
}

// Engine scores telemetry samples per service. Safe for concurrent use;
// samples for different services take disjoint locks.
type Engine struct {
	cfg Config

	mu       sync.RWMutex
	services map[string]*serviceState
}

// NewEngine creates a detection engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg:      cfg,
		services: make(map[string]*serviceState),
	}
}

// Observe appends one sample to the service's window and scores it.
// Returns the alert and true when the sample is anomalous; (nil, false)
// during warm-up, on fit failure (treated as a cold cycle) and for normal
// samples.
func (e *Engine) Observe(serviceID string, ts time.Time, sample map[string]float64) (*Alert, bool) {
	st := e.state(serviceID)

	st.mu.Lock()
	defer st.mu.Unlock()

	st.window.Append(sample)
	st.sinceLastFit++

	// Cold-start gate: an under-filled window produces no alerts, only
	// baseline data.
	if st.window.Len() < e.cfg.WarmupSamples {
		return nil, false
	}

	if !st.model.Fitted() || st.sinceLastFit >= e.cfg.RefitInterval {
		if err := st.model.Fit(st.window); err != nil {
			// Numerical failure suppresses alerting for this cycle only.
			logging.Warn().Err(err).Str("service", serviceID).Msg("model fit failed, staying cold")
			return nil, false
		}
		st.sinceLastFit = 0
		metrics.ModelRefits.WithLabelValues(serviceID).Inc()
	}

	score, dominant := st.model.Score(sample)
	metrics.AnomalyScore.Observe(score)
	if score < e.cfg.ScoreThreshold {
		return nil, false
	}

	anomalyType := AnomalyUnknown
	if dominant != "" {
		anomalyType = AnomalyTypeForMetric(dominant)
	}
	severity := e.severityFor(score)

	alert := &Alert{
		AlertID:        NewAlertID(serviceID, ts, anomalyType),
		ServiceID:      serviceID,
		Timestamp:      ts,
		Score:          score,
		AnomalyType:    anomalyType,
		Severity:       severity,
		DominantMetric: dominant,
		Metrics:        sample,
	}

	metrics.AlertsEmitted.WithLabelValues(string(anomalyType), string(severity)).Inc()
	logging.Info().
		Str("service", serviceID).
		Str("alert_id", alert.AlertID).
		Str("anomaly_type", string(anomalyType)).
		Str("severity", string(severity)).
		Float64("score", score).
		Msg("anomaly detected")

	return alert, true
}

// severityFor maps a score into the two-band severity scale.
func (e *Engine) severityFor(score float64) Severity {
	switch {
	case score >= e.cfg.SeverityHigh:
		return SeverityHigh
	case score >= e.cfg.SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// state returns the shard for a service, creating it on first sight.
func (e *Engine) state(serviceID string) *serviceState {
	e.mu.RLock()
	st, ok := e.services[serviceID]
	e.mu.RUnlock()
	if ok {
		return st
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok = e.services[serviceID]; ok {
		return st
	}
	st = &serviceState{window: NewWindow(e.cfg.WindowSize)}
	e.services[serviceID] = st
	metrics.ServicesTracked.Set(float64(len(e.services)))
	return st
}

// ServiceCount returns the number of tracked services.
func (e *Engine) ServiceCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.services)
}
