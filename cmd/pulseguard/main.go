// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

// Package main is the entry point for the PulseGuard pipeline.
//
// PulseGuard consumes service telemetry from a JetStream log, scores each
// sample against a per-service statistical baseline and drives deduplicated,
// cooled-down recovery actions for the anomalies it finds. Alerts and action
// records are appended to their own streams so external consumers can replay
// the full incident history.
//
// # Application Architecture
//
// The process initializes components in the following order:
//
//  1. Configuration: layered loading via Koanf v2 (defaults, config.yaml,
//     PULSE_-prefixed environment variables)
//  2. Logging: global zerolog logger
//  3. Transport: embedded or external NATS server, stream provisioning,
//     publishers with circuit breakers, durable subscribers
//  4. Detection engine, rulebook and action executor
//  5. Supervisor tree: ingestor and orchestrator consumer loops under the
//     pipeline layer, the health/metrics HTTP server under the ops layer
//
// # Configuration
//
// Environment variables use the PULSE_ prefix with double underscores
// separating nesting levels:
//
//	export PULSE_NATS__EMBEDDED=true
//	export PULSE_NATS__STORE_DIR=/data/pulseguard/jetstream
//	export PULSE_DETECTION__SCORE_THRESHOLD=3.0
//	export PULSE_ORCHESTRATOR__COOLDOWN=60s
//	./pulseguard
//
// A config file can be placed at ./config.yaml or /etc/pulseguard/config.yaml,
// or pointed to with PULSE_CONFIG.
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: consumer loops stop at the
// next message boundary (un-acked messages redeliver on restart), the ops
// server drains, and the transport closes last.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pulseguard/pulseguard/internal/action"
	"github.com/pulseguard/pulseguard/internal/config"
	"github.com/pulseguard/pulseguard/internal/detect"
	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/ops"
	"github.com/pulseguard/pulseguard/internal/orchestrate"
	"github.com/pulseguard/pulseguard/internal/supervisor"
	"github.com/pulseguard/pulseguard/internal/telemetry"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	logging.Info().
		Bool("embedded_nats", cfg.NATS.Embedded).
		Int("window_size", cfg.Detection.WindowSize).
		Dur("cooldown", cfg.Orchestrator.Cooldown).
		Msg("starting pulseguard")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Transport: broker, streams, publishers, durable subscribers.
	nats, err := InitNATS(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to initialize NATS transport")
	}
	defer nats.Shutdown(context.Background())

	// Detection and orchestration cores.
	engine := detect.NewEngine(detect.Config{
		WindowSize:     cfg.Detection.WindowSize,
		WarmupSamples:  cfg.Detection.WarmupSamples,
		RefitInterval:  cfg.Detection.RefitInterval,
		ScoreThreshold: cfg.Detection.ScoreThreshold,
		SeverityMedium: cfg.Detection.SeverityMedium,
		SeverityHigh:   cfg.Detection.SeverityHigh,
	})

	rulebook, err := orchestrate.NewRulebook(cfg.Orchestrator.Rules, cfg.Orchestrator.MinSeverity)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build rulebook")
	}

	executor := action.NewMockExecutor()

	ingestor := telemetry.NewIngestor(nats.telemetrySubscriber, nats.alertPublisher, engine)
	orchestrator := orchestrate.New(orchestrate.Config{
		Cooldown:         cfg.Orchestrator.Cooldown,
		SweepInterval:    cfg.Orchestrator.SweepInterval,
		DedupCapacity:    cfg.Orchestrator.DedupCapacity,
		DedupTTL:         cfg.Orchestrator.DedupTTL,
		Dependencies:     cfg.Orchestrator.Dependencies,
		DependencyWindow: cfg.Orchestrator.DependencyWindow,
	}, rulebook, executor, nats.alertSubscriber, nats.actionPublisher)

	opsServer := ops.NewServer(cfg.Ops.Host, cfg.Ops.Port,
		ops.ReadyCheck{Name: "nats", Check: nats.Connected},
	)

	// Supervisor tree: consumer loop crashes become supervised restarts.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}
	tree.AddPipelineService(ingestor)
	tree.AddPipelineService(orchestrator)
	tree.AddOpsService(opsServer)

	logging.Info().Msg("pulseguard started")

	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("supervisor tree exited")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("service did not stop within timeout")
		}
	}

	logging.Info().Msg("pulseguard stopped")
}
