// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package stream

import (
	"time"
)

// Subject prefixes for the three streams. Records are keyed per service:
// telemetry.db-1, alerts.db-1, actions.db-1.
const (
	TelemetrySubjectPrefix = "telemetry"
	AlertSubjectPrefix     = "alerts"
	ActionSubjectPrefix    = "actions"
)

// TelemetrySubject returns the telemetry subject for a service.
func TelemetrySubject(serviceID string) string {
	return TelemetrySubjectPrefix + "." + serviceID
}

// AlertSubject returns the alert subject for a service.
func AlertSubject(serviceID string) string {
	return AlertSubjectPrefix + "." + serviceID
}

// ActionSubject returns the action subject for a service.
func ActionSubject(serviceID string) string {
	return ActionSubjectPrefix + "." + serviceID
}

// ServerConfig holds embedded NATS server settings.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/pulseguard/jetstream",
		JetStreamMaxMem:   1 << 30,  // 1GB
		JetStreamMaxStore: 10 << 30, // 10GB
	}
}

// StreamConfig defines one JetStream stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	DuplicateWindow time.Duration
}

// PublisherConfig holds publisher settings.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
}

// DefaultPublisherConfig returns production defaults for a publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		MaxReconnects:   -1, // Unlimited
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024, // 8MB
	}
}

// SubscriberConfig holds durable consumer settings.
type SubscriberConfig struct {
	URL            string
	StreamName     string
	DurableName    string
	QueueGroup     string
	AckWaitTimeout time.Duration
	MaxDeliver     int
	MaxAckPending  int
	CloseTimeout   time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// DefaultSubscriberConfig returns production defaults for a durable
// subscriber bound to the named stream.
func DefaultSubscriberConfig(url, streamName, durable string) SubscriberConfig {
	return SubscriberConfig{
		URL:            url,
		StreamName:     streamName,
		DurableName:    durable,
		QueueGroup:     durable,
		AckWaitTimeout: 30 * time.Second,
		MaxDeliver:     5,
		MaxAckPending:  1000,
		CloseTimeout:   30 * time.Second,
		MaxReconnects:  -1,
		ReconnectWait:  2 * time.Second,
	}
}

// BreakerConfig holds circuit breaker settings for publish paths.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultBreakerConfig returns production defaults.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
