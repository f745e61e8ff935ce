// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package config

import (
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("default configuration must validate: %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no url and no embedded server", func(c *Config) { c.NATS.URL = ""; c.NATS.Embedded = false }},
		{"empty stream name", func(c *Config) { c.NATS.AlertStream = "" }},
		{"non-positive max_ack_pending", func(c *Config) { c.NATS.MaxAckPending = 0 }},
		{"window too small", func(c *Config) { c.Detection.WindowSize = 1 }},
		{"warmup below minimum", func(c *Config) { c.Detection.WarmupSamples = 1 }},
		{"warmup exceeds window", func(c *Config) { c.Detection.WarmupSamples = 60 }},
		{"non-positive refit interval", func(c *Config) { c.Detection.RefitInterval = 0 }},
		{"non-positive threshold", func(c *Config) { c.Detection.ScoreThreshold = 0 }},
		{"medium band below threshold", func(c *Config) { c.Detection.SeverityMedium = 1.0 }},
		{"inverted severity bands", func(c *Config) { c.Detection.SeverityHigh = 4.0 }},
		{"non-positive cooldown", func(c *Config) { c.Orchestrator.Cooldown = 0 }},
		{"non-positive sweep interval", func(c *Config) { c.Orchestrator.SweepInterval = 0 }},
		{"non-positive dedup capacity", func(c *Config) { c.Orchestrator.DedupCapacity = 0 }},
		{"non-positive dedup ttl", func(c *Config) { c.Orchestrator.DedupTTL = 0 }},
		{"non-positive dependency window", func(c *Config) { c.Orchestrator.DependencyWindow = -time.Second }},
		{"bad min severity", func(c *Config) { c.Orchestrator.MinSeverity = "SEVERE" }},
		{"unknown executor mode", func(c *Config) { c.Executor.Mode = "kubernetes" }},
		{"invalid ops port", func(c *Config) { c.Ops.Port = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Detection.WindowSize != 50 {
		t.Errorf("expected default window_size 50, got %d", cfg.Detection.WindowSize)
	}
	if cfg.Orchestrator.Cooldown != 60*time.Second {
		t.Errorf("expected default cooldown 60s, got %s", cfg.Orchestrator.Cooldown)
	}
	if cfg.NATS.IngestorDurable != "pulseguard-ingestor" {
		t.Errorf("unexpected default ingestor durable %q", cfg.NATS.IngestorDurable)
	}
	if got := cfg.Orchestrator.Rules["CPU_SPIKE"]; got != "RESTART_SERVICE" {
		t.Errorf("expected default CPU_SPIKE rule RESTART_SERVICE, got %q", got)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("PULSE_DETECTION__WINDOW_SIZE", "80")
	t.Setenv("PULSE_DETECTION__WARMUP_SAMPLES", "30")
	t.Setenv("PULSE_ORCHESTRATOR__COOLDOWN", "90s")
	t.Setenv("PULSE_LOGGING__LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Detection.WindowSize != 80 {
		t.Errorf("expected window_size 80 from env, got %d", cfg.Detection.WindowSize)
	}
	if cfg.Detection.WarmupSamples != 30 {
		t.Errorf("expected warmup_samples 30 from env, got %d", cfg.Detection.WarmupSamples)
	}
	if cfg.Orchestrator.Cooldown != 90*time.Second {
		t.Errorf("expected cooldown 90s from env, got %s", cfg.Orchestrator.Cooldown)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected logging level debug from env, got %q", cfg.Logging.Level)
	}

	// Untouched keys keep their defaults.
	if cfg.Detection.RefitInterval != 20 {
		t.Errorf("expected refit_interval to stay 20, got %d", cfg.Detection.RefitInterval)
	}
}

func TestLoad_InvalidEnvFailsValidation(t *testing.T) {
	t.Setenv("PULSE_DETECTION__WARMUP_SAMPLES", "500")

	if _, err := Load(); err == nil {
		t.Error("warmup above window size must fail validation at load time")
	}
}
