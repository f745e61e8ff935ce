// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package telemetry

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/pulseguard/pulseguard/internal/detect"
	"github.com/pulseguard/pulseguard/internal/logging"
	"github.com/pulseguard/pulseguard/internal/metrics"
	"github.com/pulseguard/pulseguard/internal/stream"
)

// AlertPublisher appends alert records to the alert stream.
type AlertPublisher interface {
	Publish(ctx context.Context, topic string, msg *message.Message) error
}

// Ingestor is the telemetry consumer loop: it reads the telemetry stream
// from its durable cursor, feeds the detection engine and publishes any
// resulting alerts before acking. A message is acked only after the alert
// hand-off succeeded (commit-after-process), so a crash mid-item costs a
// redelivery, never a loss.
//
// Malformed records are counted, logged and acked; they never stop the
// loop.
type Ingestor struct {
	subscriber *stream.Subscriber
	publisher  AlertPublisher
	engine     *detect.Engine
	logger     zerolog.Logger
}

// NewIngestor wires a telemetry ingestor.
func NewIngestor(sub *stream.Subscriber, pub AlertPublisher, engine *detect.Engine) *Ingestor {
	return &Ingestor{
		subscriber: sub,
		publisher:  pub,
		engine:     engine,
		logger:     logging.With().Str("component", "ingestor").Logger(),
	}
}

// Serve consumes telemetry until context cancellation. It implements the
// suture service contract: transport-level failures return an error and
// the supervisor restarts the loop with backoff.
func (i *Ingestor) Serve(ctx context.Context) error {
	i.logger.Info().Msg("telemetry ingestor started")

	err := i.subscriber.NewHandler(stream.TelemetrySubjectPrefix + ".>").
		Handle(i.handleMessage).
		Run(ctx)

	i.logger.Info().Msg("telemetry ingestor stopped")
	return err
}

// handleMessage processes one telemetry record. Returning nil acks the
// message; returning an error nacks it for redelivery.
func (i *Ingestor) handleMessage(ctx context.Context, msg *message.Message) error {
	sample, err := UnmarshalSample(msg.Payload)
	if err != nil {
		// Skip-and-count policy: a bad record is not worth a redelivery.
		metrics.MalformedRecords.Inc()
		i.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("skipping malformed telemetry record")
		return nil
	}

	alert, anomalous := i.engine.Observe(sample.ServiceID, sample.Time(), sample.Metrics)
	metrics.SamplesProcessed.WithLabelValues(sample.ServiceID).Inc()

	if !anomalous {
		return nil
	}

	data, err := detect.MarshalAlert(alert)
	if err != nil {
		return fmt.Errorf("marshal alert %s: %w", alert.AlertID, err)
	}

	// The alert ID is the message UUID, so a redelivered sample that
	// re-scores to the same alert dedups inside the stream's duplicate
	// window.
	out := message.NewMessage(alert.AlertID, data)
	out.Metadata.Set("service_id", alert.ServiceID)
	out.Metadata.Set("severity", string(alert.Severity))

	if err := i.publisher.Publish(ctx, stream.AlertSubject(alert.ServiceID), out); err != nil {
		return fmt.Errorf("publish alert %s: %w", alert.AlertID, err)
	}

	return nil
}
