// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package stream

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Manager handles JetStream stream lifecycle for the three pipeline
// streams: telemetry in, alerts and actions out.
type Manager struct {
	js jetstream.JetStream
	nc *nats.Conn
}

// NewManager creates a stream manager on an established connection.
func NewManager(nc *nats.Conn) (*Manager, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	return &Manager{js: js, nc: nc}, nil
}

// EnsureStream creates or updates one stream. Streams are file-backed,
// append-only logs with age-based retention; the duplicate window lets
// publishers use deterministic record IDs for at-least-once dedup.
func (m *Manager) EnsureStream(ctx context.Context, cfg StreamConfig) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:       cfg.Name,
		Subjects:   cfg.Subjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.MaxAge,
		Duplicates: cfg.DuplicateWindow,
		Storage:    jetstream.FileStorage,
		// AllowDirect enables direct gets for read-only consumers (dashboard).
		AllowDirect: true,
		Discard:     jetstream.DiscardOld,
	}

	if _, err := m.js.Stream(ctx, cfg.Name); err == nil {
		stream, err := m.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", cfg.Name, err)
		}
		return stream, nil
	}

	stream, err := m.js.CreateStream(ctx, streamCfg)
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", cfg.Name, err)
	}

	return stream, nil
}

// EnsurePipelineStreams provisions the telemetry, alert and action streams.
func (m *Manager) EnsurePipelineStreams(ctx context.Context, telemetry, alerts, actions StreamConfig) error {
	for _, cfg := range []StreamConfig{telemetry, alerts, actions} {
		if _, err := m.EnsureStream(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

// StreamInfo returns current state of a named stream.
func (m *Manager) StreamInfo(ctx context.Context, name string) (*jetstream.StreamInfo, error) {
	stream, err := m.js.Stream(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("get stream %s: %w", name, err)
	}
	return stream.Info(ctx)
}
