// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

// Package metrics provides Prometheus instrumentation for the pipeline:
// ingestion throughput, detection outcomes, orchestration decisions and
// stream publish activity. All collectors register on the default registry
// and are served by the ops server at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	SamplesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseguard_samples_processed_total",
			Help: "Total telemetry samples handed to the detection engine",
		},
		[]string{"service"},
	)

	MalformedRecords = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pulseguard_malformed_records_total",
			Help: "Total telemetry records skipped because they failed to decode or validate",
		},
	)

	// Detection metrics
	AlertsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseguard_alerts_emitted_total",
			Help: "Total anomaly alerts emitted by the detection engine",
		},
		[]string{"anomaly_type", "severity"},
	)

	ModelRefits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseguard_model_refits_total",
			Help: "Total baseline model refits",
		},
		[]string{"service"},
	)

	ServicesTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pulseguard_services_tracked",
			Help: "Number of services with an active detection window",
		},
	)

	AnomalyScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pulseguard_anomaly_score",
			Help:    "Distribution of anomaly scores for warmed-up samples",
			Buckets: []float64{0.5, 1, 1.5, 2, 2.5, 3, 4, 5, 6, 8, 10},
		},
	)

	// Orchestration metrics
	AlertsSuppressed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseguard_alerts_suppressed_total",
			Help: "Total alerts suppressed without dispatching an action",
		},
		[]string{"reason"}, // duplicate, cooldown, alerting, dependency
	)

	ActionsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseguard_actions_dispatched_total",
			Help: "Total healing actions dispatched",
		},
		[]string{"action_type"},
	)

	ActionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseguard_action_results_total",
			Help: "Total executor results by terminal status",
		},
		[]string{"status"},
	)

	IncidentState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pulseguard_incident_state",
			Help: "Current incident state per service (0=healthy, 1=alerting, 2=cooldown)",
		},
		[]string{"service"},
	)

	// Transport metrics
	StreamPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseguard_stream_publishes_total",
			Help: "Total records appended to output streams",
		},
		[]string{"stream"},
	)

	StreamPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pulseguard_stream_publish_errors_total",
			Help: "Total failed publish attempts",
		},
		[]string{"stream"},
	)
)
