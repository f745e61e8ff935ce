// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

// Package config loads and validates PulseGuard configuration from layered
// sources: struct defaults, an optional YAML file, and PULSE_-prefixed
// environment variables (highest priority).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the pipeline.
type Config struct {
	NATS         NATSConfig         `koanf:"nats"`
	Detection    DetectionConfig    `koanf:"detection"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Executor     ExecutorConfig     `koanf:"executor"`
	Ops          OpsConfig          `koanf:"ops"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// NATSConfig holds broker and stream settings.
type NATSConfig struct {
	// URL is the NATS server connection target. Ignored when Embedded is true.
	URL string `koanf:"url"`

	// Embedded runs an in-process NATS server with JetStream enabled.
	Embedded bool `koanf:"embedded"`

	// Host and Port bind the embedded server.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// StoreDir is the JetStream storage directory for the embedded server.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory and MaxStore bound embedded JetStream usage in bytes.
	MaxMemory int64 `koanf:"max_memory"`
	MaxStore  int64 `koanf:"max_store"`

	// RetentionAge is how long stream records are kept.
	RetentionAge time.Duration `koanf:"retention_age"`

	// DuplicateWindow is the JetStream publish dedup window.
	DuplicateWindow time.Duration `koanf:"duplicate_window"`

	// TelemetryStream, AlertStream and ActionStream name the three streams.
	TelemetryStream string `koanf:"telemetry_stream"`
	AlertStream     string `koanf:"alert_stream"`
	ActionStream    string `koanf:"action_stream"`

	// IngestorDurable and OrchestratorDurable name the persistent cursors.
	IngestorDurable     string `koanf:"ingestor_durable"`
	OrchestratorDurable string `koanf:"orchestrator_durable"`

	// AckWait is how long JetStream waits for an ack before redelivery.
	AckWait time.Duration `koanf:"ack_wait"`

	// MaxAckPending bounds in-flight unacked messages per consumer.
	MaxAckPending int `koanf:"max_ack_pending"`

	// MaxDeliver bounds redelivery attempts per message.
	MaxDeliver int `koanf:"max_deliver"`

	// ReconnectWait is the client reconnect backoff.
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// DetectionConfig holds the anomaly scoring tunables.
type DetectionConfig struct {
	// WindowSize is the per-service ring buffer capacity N.
	WindowSize int `koanf:"window_size"`

	// WarmupSamples is the minimum window fill before any alert is emitted.
	WarmupSamples int `koanf:"warmup_samples"`

	// RefitInterval is the number of appends between model refits (K).
	RefitInterval int `koanf:"refit_interval"`

	// ScoreThreshold is the minimum anomaly score that raises an alert.
	ScoreThreshold float64 `koanf:"score_threshold"`

	// SeverityMedium and SeverityHigh are the two severity band cut points.
	// score in [threshold, medium) => LOW, [medium, high) => MEDIUM,
	// [high, ...] => HIGH.
	SeverityMedium float64 `koanf:"severity_medium"`
	SeverityHigh   float64 `koanf:"severity_high"`
}

// OrchestratorConfig holds incident handling tunables.
type OrchestratorConfig struct {
	// Cooldown is how long a service is suppressed after an action.
	Cooldown time.Duration `koanf:"cooldown"`

	// SweepInterval is the cadence of the background cooldown-expiry sweep.
	SweepInterval time.Duration `koanf:"sweep_interval"`

	// DedupCapacity and DedupTTL bound the dispatched-alert LRU used for
	// duplicate alert delivery.
	DedupCapacity int           `koanf:"dedup_capacity"`
	DedupTTL      time.Duration `koanf:"dedup_ttl"`

	// Dependencies maps a service to its upstream dependency. An alert for a
	// service whose upstream had an anomaly within DependencyWindow is
	// suppressed as a downstream symptom. Empty map disables the check.
	Dependencies map[string]string `koanf:"dependencies"`

	// DependencyWindow is how long an upstream anomaly is considered active.
	DependencyWindow time.Duration `koanf:"dependency_window"`

	// Rules maps anomaly types to action types. Unmapped types resolve to
	// NOTIFY_ONLY.
	Rules map[string]string `koanf:"rules"`

	// MinSeverity is the lowest alert severity that may trigger a non-notify
	// action: LOW, MEDIUM or HIGH.
	MinSeverity string `koanf:"min_severity"`
}

// ExecutorConfig selects the action effect implementation.
type ExecutorConfig struct {
	// Mode is the executor backend. Only "mock" is shipped; the mock logs
	// the action and reports success.
	Mode string `koanf:"mode"`
}

// OpsConfig binds the operational HTTP server (health + metrics).
type OpsConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns a Config with production defaults. Window and warm-up
// defaults follow the sizes the pipeline was tuned with (50-sample window,
// 20-sample warm-up).
func Default() *Config {
	return &Config{
		NATS: NATSConfig{
			URL:                 "nats://127.0.0.1:4222",
			Embedded:            true,
			Host:                "127.0.0.1",
			Port:                4222,
			StoreDir:            "/data/pulseguard/jetstream",
			MaxMemory:           1 << 30,  // 1GB
			MaxStore:            10 << 30, // 10GB
			RetentionAge:        7 * 24 * time.Hour,
			DuplicateWindow:     2 * time.Minute,
			TelemetryStream:     "TELEMETRY",
			AlertStream:         "ALERTS",
			ActionStream:        "ACTIONS",
			IngestorDurable:     "pulseguard-ingestor",
			OrchestratorDurable: "pulseguard-orchestrator",
			AckWait:             30 * time.Second,
			MaxAckPending:       1000,
			MaxDeliver:          5,
			ReconnectWait:       2 * time.Second,
		},
		Detection: DetectionConfig{
			WindowSize:     50,
			WarmupSamples:  20,
			RefitInterval:  20,
			ScoreThreshold: 3.0,
			SeverityMedium: 4.5,
			SeverityHigh:   6.0,
		},
		Orchestrator: OrchestratorConfig{
			Cooldown:         60 * time.Second,
			SweepInterval:    5 * time.Second,
			DedupCapacity:    10000,
			DedupTTL:         10 * time.Minute,
			Dependencies:     map[string]string{},
			DependencyWindow: 5 * time.Second,
			Rules: map[string]string{
				"CPU_SPIKE":           "RESTART_SERVICE",
				"MEMORY_LEAK":         "SCALE_UP",
				"LATENCY_DEGRADATION": "CLEAR_CACHE",
				"ERROR_BURST":         "RESTART_SERVICE",
			},
			MinSeverity: "LOW",
		},
		Executor: ExecutorConfig{
			Mode: "mock",
		},
		Ops: OpsConfig{
			Host: "0.0.0.0",
			Port: 9190,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.NATS.URL == "" && !c.NATS.Embedded {
		return fmt.Errorf("nats: url required when embedded server is disabled")
	}
	if c.NATS.TelemetryStream == "" || c.NATS.AlertStream == "" || c.NATS.ActionStream == "" {
		return fmt.Errorf("nats: stream names must not be empty")
	}
	if c.NATS.MaxAckPending <= 0 {
		return fmt.Errorf("nats: max_ack_pending must be positive, got %d", c.NATS.MaxAckPending)
	}

	if c.Detection.WindowSize <= 1 {
		return fmt.Errorf("detection: window_size must be greater than 1, got %d", c.Detection.WindowSize)
	}
	if c.Detection.WarmupSamples < 2 {
		return fmt.Errorf("detection: warmup_samples must be at least 2, got %d", c.Detection.WarmupSamples)
	}
	if c.Detection.WarmupSamples > c.Detection.WindowSize {
		return fmt.Errorf("detection: warmup_samples (%d) exceeds window_size (%d)",
			c.Detection.WarmupSamples, c.Detection.WindowSize)
	}
	if c.Detection.RefitInterval <= 0 {
		return fmt.Errorf("detection: refit_interval must be positive, got %d", c.Detection.RefitInterval)
	}
	if c.Detection.ScoreThreshold <= 0 {
		return fmt.Errorf("detection: score_threshold must be positive, got %g", c.Detection.ScoreThreshold)
	}
	if c.Detection.SeverityMedium < c.Detection.ScoreThreshold {
		return fmt.Errorf("detection: severity_medium (%g) below score_threshold (%g)",
			c.Detection.SeverityMedium, c.Detection.ScoreThreshold)
	}
	if c.Detection.SeverityHigh < c.Detection.SeverityMedium {
		return fmt.Errorf("detection: severity_high (%g) below severity_medium (%g)",
			c.Detection.SeverityHigh, c.Detection.SeverityMedium)
	}

	if c.Orchestrator.Cooldown <= 0 {
		return fmt.Errorf("orchestrator: cooldown must be positive, got %s", c.Orchestrator.Cooldown)
	}
	if c.Orchestrator.SweepInterval <= 0 {
		return fmt.Errorf("orchestrator: sweep_interval must be positive, got %s", c.Orchestrator.SweepInterval)
	}
	if c.Orchestrator.DedupCapacity <= 0 {
		return fmt.Errorf("orchestrator: dedup_capacity must be positive, got %d", c.Orchestrator.DedupCapacity)
	}
	if c.Orchestrator.DedupTTL <= 0 {
		return fmt.Errorf("orchestrator: dedup_ttl must be positive, got %s", c.Orchestrator.DedupTTL)
	}
	if c.Orchestrator.DependencyWindow <= 0 {
		return fmt.Errorf("orchestrator: dependency_window must be positive, got %s", c.Orchestrator.DependencyWindow)
	}
	switch c.Orchestrator.MinSeverity {
	case "LOW", "MEDIUM", "HIGH":
	default:
		return fmt.Errorf("orchestrator: min_severity must be LOW, MEDIUM or HIGH, got %q", c.Orchestrator.MinSeverity)
	}

	if c.Executor.Mode != "mock" {
		return fmt.Errorf("executor: unknown mode %q", c.Executor.Mode)
	}

	if c.Ops.Port <= 0 || c.Ops.Port > 65535 {
		return fmt.Errorf("ops: invalid port %d", c.Ops.Port)
	}

	return nil
}
