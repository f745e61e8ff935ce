// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/pulseguard/pulseguard/internal/detect"
)

type capturedAlert struct {
	topic string
	alert *detect.Alert
}

type fakeAlertPublisher struct {
	mu      sync.Mutex
	records []capturedAlert
	err     error
}

func (f *fakeAlertPublisher) Publish(_ context.Context, topic string, msg *message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	alert, err := detect.UnmarshalAlert(msg.Payload)
	if err != nil {
		return err
	}
	f.records = append(f.records, capturedAlert{topic: topic, alert: alert})
	return nil
}

func (f *fakeAlertPublisher) alerts() []capturedAlert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedAlert(nil), f.records...)
}

func sampleMessage(t *testing.T, service string, ts time.Time, metrics map[string]float64) *message.Message {
	t.Helper()
	data, err := MarshalSample(&Sample{ServiceID: service, Timestamp: ts.UnixMilli(), Metrics: metrics})
	if err != nil {
		t.Fatalf("marshal sample: %v", err)
	}
	return message.NewMessage(service+"-"+ts.Format(time.RFC3339Nano), data)
}

func TestIngestor_MalformedRecordIsSkipped(t *testing.T) {
	pub := &fakeAlertPublisher{}
	ing := NewIngestor(nil, pub, detect.NewEngine(detect.DefaultConfig()))

	for _, payload := range []string{"{not json", `{"service_id":"","timestamp":0,"metrics":{}}`} {
		msg := message.NewMessage("bad", []byte(payload))
		if err := ing.handleMessage(context.Background(), msg); err != nil {
			t.Errorf("malformed record must be acked, not retried: %v", err)
		}
	}
	if len(pub.alerts()) != 0 {
		t.Error("malformed records must not produce alerts")
	}
}

func TestIngestor_PublishesAlertOnAnomaly(t *testing.T) {
	pub := &fakeAlertPublisher{}
	engine := detect.NewEngine(detect.DefaultConfig())
	ing := NewIngestor(nil, pub, engine)
	base := time.UnixMilli(1700000000000)

	// Warm the service on steady readings.
	for i := 0; i < 30; i++ {
		jitter := float64(i%5) - 2
		msg := sampleMessage(t, "api-1", base.Add(time.Duration(i)*time.Second), map[string]float64{
			"cpu":    50 + jitter,
			"memory": 60 + jitter,
		})
		if err := ing.handleMessage(context.Background(), msg); err != nil {
			t.Fatalf("steady sample %d: %v", i, err)
		}
	}
	if len(pub.alerts()) != 0 {
		t.Fatalf("steady traffic published %d alerts", len(pub.alerts()))
	}

	// One spike produces exactly one alert on the service's subject.
	spike := sampleMessage(t, "api-1", base.Add(31*time.Second), map[string]float64{
		"cpu":    95,
		"memory": 60,
	})
	if err := ing.handleMessage(context.Background(), spike); err != nil {
		t.Fatalf("spike sample: %v", err)
	}

	alerts := pub.alerts()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	if alerts[0].topic != "alerts.api-1" {
		t.Errorf("expected topic alerts.api-1, got %s", alerts[0].topic)
	}
	if alerts[0].alert.AnomalyType != detect.AnomalyCPUSpike {
		t.Errorf("expected CPU_SPIKE, got %s", alerts[0].alert.AnomalyType)
	}
	if alerts[0].alert.ServiceID != "api-1" {
		t.Errorf("expected service api-1, got %s", alerts[0].alert.ServiceID)
	}
}

func TestIngestor_PublishFailureNacks(t *testing.T) {
	pub := &fakeAlertPublisher{}
	engine := detect.NewEngine(detect.DefaultConfig())
	ing := NewIngestor(nil, pub, engine)
	base := time.UnixMilli(1700000000000)

	for i := 0; i < 30; i++ {
		jitter := float64(i%5) - 2
		msg := sampleMessage(t, "api-1", base.Add(time.Duration(i)*time.Second), map[string]float64{"cpu": 50 + jitter})
		if err := ing.handleMessage(context.Background(), msg); err != nil {
			t.Fatalf("steady sample %d: %v", i, err)
		}
	}

	pub.err = errors.New("stream unavailable")
	spike := sampleMessage(t, "api-1", base.Add(31*time.Second), map[string]float64{"cpu": 95})
	if err := ing.handleMessage(context.Background(), spike); err == nil {
		t.Fatal("publish failure must surface so the sample is redelivered")
	}
}
