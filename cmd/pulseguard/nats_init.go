// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/pulseguard/pulseguard/internal/config"
	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/stream"
)

// NATSComponents holds the broker-side components for lifecycle management:
// the optional embedded server, the connection used for stream provisioning,
// the two publishers and the two durable subscribers.
type NATSComponents struct {
	server  *stream.EmbeddedServer
	conn    *natsgo.Conn
	manager *stream.Manager

	alertPublisher  *stream.Publisher
	actionPublisher *stream.Publisher

	telemetrySubscriber *stream.Subscriber
	alertSubscriber     *stream.Subscriber

	mu       sync.Mutex
	shutdown bool
}

// InitNATS brings up the transport: embedded or external server, the three
// pipeline streams, publishers with circuit breakers and the durable
// subscribers. On any failure it tears down what it already started.
func InitNATS(cfg *config.Config) (*NATSComponents, error) {
	components := &NATSComponents{}

	var natsURL string
	if cfg.NATS.Embedded {
		serverCfg := stream.ServerConfig{
			Host:              cfg.NATS.Host,
			Port:              cfg.NATS.Port,
			StoreDir:          cfg.NATS.StoreDir,
			JetStreamMaxMem:   cfg.NATS.MaxMemory,
			JetStreamMaxStore: cfg.NATS.MaxStore,
		}

		server, err := stream.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, err
		}
		components.server = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("embedded NATS server started")
	} else {
		natsURL = cfg.NATS.URL
		logging.Info().Str("url", natsURL).Msg("using external NATS server")
	}

	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(cfg.NATS.ReconnectWait),
	)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	components.conn = nc

	manager, err := stream.NewManager(nc)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create stream manager: %w", err)
	}
	components.manager = manager

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err = manager.EnsurePipelineStreams(ctx,
		stream.StreamConfig{
			Name:            cfg.NATS.TelemetryStream,
			Subjects:        []string{stream.TelemetrySubjectPrefix + ".>"},
			MaxAge:          cfg.NATS.RetentionAge,
			DuplicateWindow: cfg.NATS.DuplicateWindow,
		},
		stream.StreamConfig{
			Name:            cfg.NATS.AlertStream,
			Subjects:        []string{stream.AlertSubjectPrefix + ".>"},
			MaxAge:          cfg.NATS.RetentionAge,
			DuplicateWindow: cfg.NATS.DuplicateWindow,
		},
		stream.StreamConfig{
			Name:            cfg.NATS.ActionStream,
			Subjects:        []string{stream.ActionSubjectPrefix + ".>"},
			MaxAge:          cfg.NATS.RetentionAge,
			DuplicateWindow: cfg.NATS.DuplicateWindow,
		},
	)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("provision pipeline streams: %w", err)
	}
	logging.Info().
		Str("telemetry", cfg.NATS.TelemetryStream).
		Str("alerts", cfg.NATS.AlertStream).
		Str("actions", cfg.NATS.ActionStream).
		Msg("JetStream streams ready")

	wmLogger := stream.NewWatermillLogger()

	publisherCfg := stream.DefaultPublisherConfig(natsURL)
	publisherCfg.ReconnectWait = cfg.NATS.ReconnectWait

	alertPub, err := stream.NewPublisher(publisherCfg, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create alert publisher: %w", err)
	}
	alertPub.SetCircuitBreaker(stream.NewBreaker(stream.DefaultBreakerConfig("alert-publisher")))
	components.alertPublisher = alertPub

	actionPub, err := stream.NewPublisher(publisherCfg, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create action publisher: %w", err)
	}
	actionPub.SetCircuitBreaker(stream.NewBreaker(stream.DefaultBreakerConfig("action-publisher")))
	components.actionPublisher = actionPub

	telemetrySubCfg := stream.DefaultSubscriberConfig(natsURL, cfg.NATS.TelemetryStream, cfg.NATS.IngestorDurable)
	telemetrySubCfg.AckWaitTimeout = cfg.NATS.AckWait
	telemetrySubCfg.MaxAckPending = cfg.NATS.MaxAckPending
	telemetrySubCfg.MaxDeliver = cfg.NATS.MaxDeliver
	telemetrySubCfg.ReconnectWait = cfg.NATS.ReconnectWait

	telemetrySub, err := stream.NewSubscriber(&telemetrySubCfg, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create telemetry subscriber: %w", err)
	}
	components.telemetrySubscriber = telemetrySub

	alertSubCfg := stream.DefaultSubscriberConfig(natsURL, cfg.NATS.AlertStream, cfg.NATS.OrchestratorDurable)
	alertSubCfg.AckWaitTimeout = cfg.NATS.AckWait
	alertSubCfg.MaxAckPending = cfg.NATS.MaxAckPending
	alertSubCfg.MaxDeliver = cfg.NATS.MaxDeliver
	alertSubCfg.ReconnectWait = cfg.NATS.ReconnectWait

	alertSub, err := stream.NewSubscriber(&alertSubCfg, wmLogger)
	if err != nil {
		components.Shutdown(context.Background())
		return nil, fmt.Errorf("create alert subscriber: %w", err)
	}
	components.alertSubscriber = alertSub

	return components, nil
}

// Connected reports whether the provisioning connection is up. Used as the
// readiness check.
func (c *NATSComponents) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.shutdown && c.conn != nil && c.conn.IsConnected()
}

// Shutdown tears the transport down in reverse order of initialization.
// Safe to call multiple times and on partially initialized components.
func (c *NATSComponents) Shutdown(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.shutdown {
		return
	}
	c.shutdown = true

	if c.telemetrySubscriber != nil {
		if err := c.telemetrySubscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing telemetry subscriber")
		}
	}
	if c.alertSubscriber != nil {
		if err := c.alertSubscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing alert subscriber")
		}
	}
	if c.alertPublisher != nil {
		if err := c.alertPublisher.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing alert publisher")
		}
	}
	if c.actionPublisher != nil {
		if err := c.actionPublisher.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing action publisher")
		}
	}
	if c.conn != nil {
		c.conn.Close()
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("error shutting down embedded NATS server")
		}
	}
}
