// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package detect

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// steadySample returns a normal operating point with a little deterministic
// variation so the baseline has non-zero variance.
func steadySample(i int) map[string]float64 {
	jitter := []float64{-2, -1, 0, 1, 2}[i%5]
	return map[string]float64{
		"cpu":        50 + jitter,
		"memory":     60 + jitter,
		"latency":    100 + 2*jitter,
		"error_rate": 0.5,
	}
}

func feedSteady(e *Engine, service string, base time.Time, n int) {
	for i := 0; i < n; i++ {
		e.Observe(service, base.Add(time.Duration(i)*time.Second), steadySample(i))
	}
}

func TestEngine_ColdStartEmitsNothing(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)
	base := time.UnixMilli(1700000000000)

	// Even wildly deviant samples cannot alert before warm-up: there is no
	// baseline to deviate from.
	for i := 0; i < cfg.WarmupSamples-1; i++ {
		sample := map[string]float64{"cpu": float64(i * 37 % 100)}
		if alert, ok := e.Observe("api-1", base.Add(time.Duration(i)*time.Second), sample); ok {
			t.Fatalf("cold service emitted alert %s at sample %d", alert.AlertID, i)
		}
	}
}

func TestEngine_SteadyStateEmitsNoAlerts(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := time.UnixMilli(1700000000000)

	for i := 0; i < 200; i++ {
		if alert, ok := e.Observe("api-1", base.Add(time.Duration(i)*time.Second), steadySample(i)); ok {
			t.Fatalf("steady traffic produced alert %s (score %.2f) at sample %d",
				alert.AlertID, alert.Score, i)
		}
	}
}

func TestEngine_CPUSpikeAlerts(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := time.UnixMilli(1700000000000)

	feedSteady(e, "api-1", base, 30)

	spike := steadySample(30)
	spike["cpu"] = 95
	ts := base.Add(31 * time.Second)

	alert, ok := e.Observe("api-1", ts, spike)
	if !ok {
		t.Fatal("expected an alert for the cpu spike")
	}
	if alert.AnomalyType != AnomalyCPUSpike {
		t.Errorf("expected CPU_SPIKE, got %s", alert.AnomalyType)
	}
	if alert.Severity != SeverityHigh {
		t.Errorf("expected HIGH severity for a clamped score, got %s", alert.Severity)
	}
	if alert.DominantMetric != "cpu" {
		t.Errorf("expected dominant metric cpu, got %q", alert.DominantMetric)
	}
	if alert.ServiceID != "api-1" {
		t.Errorf("expected service api-1, got %q", alert.ServiceID)
	}
	if alert.AlertID != NewAlertID("api-1", ts, AnomalyCPUSpike) {
		t.Error("alert ID must derive deterministically from service, timestamp and type")
	}

	// Back to normal: the very next steady sample scores clean.
	if a, ok := e.Observe("api-1", base.Add(32*time.Second), steadySample(31)); ok {
		t.Fatalf("steady sample after spike produced alert %s", a.AlertID)
	}
}

func TestEngine_ClassificationPerMetric(t *testing.T) {
	tests := []struct {
		metric string
		want   AnomalyType
	}{
		{"cpu", AnomalyCPUSpike},
		{"memory", AnomalyMemoryLeak},
		{"latency", AnomalyLatency},
		{"error_rate", AnomalyErrorBurst},
	}

	for _, tt := range tests {
		t.Run(tt.metric, func(t *testing.T) {
			e := NewEngine(DefaultConfig())
			base := time.UnixMilli(1700000000000)
			feedSteady(e, "svc", base, 30)

			spike := steadySample(30)
			spike[tt.metric] = spike[tt.metric] * 20

			alert, ok := e.Observe("svc", base.Add(31*time.Second), spike)
			if !ok {
				t.Fatalf("expected alert for %s deviation", tt.metric)
			}
			if alert.AnomalyType != tt.want {
				t.Errorf("expected %s, got %s", tt.want, alert.AnomalyType)
			}
		})
	}
}

func TestEngine_UnmappedDominantMetricIsUnknown(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := time.UnixMilli(1700000000000)

	for i := 0; i < 30; i++ {
		sample := steadySample(i)
		sample["queue_depth"] = 10 + float64(i%3)
		e.Observe("worker-1", base.Add(time.Duration(i)*time.Second), sample)
	}

	spike := steadySample(30)
	spike["queue_depth"] = 5000

	alert, ok := e.Observe("worker-1", base.Add(31*time.Second), spike)
	if !ok {
		t.Fatal("expected alert for queue_depth deviation")
	}
	if alert.AnomalyType != AnomalyUnknown {
		t.Errorf("expected UNKNOWN for unmapped metric, got %s", alert.AnomalyType)
	}
}

func TestEngine_SeverityBands(t *testing.T) {
	e := NewEngine(DefaultConfig())

	tests := []struct {
		score float64
		want  Severity
	}{
		{3.0, SeverityLow},
		{4.4, SeverityLow},
		{4.5, SeverityMedium},
		{5.9, SeverityMedium},
		{6.0, SeverityHigh},
		{MaxScore, SeverityHigh},
	}

	for _, tt := range tests {
		if got := e.severityFor(tt.score); got != tt.want {
			t.Errorf("severityFor(%g): expected %s, got %s", tt.score, tt.want, got)
		}
	}
}

func TestEngine_ServicesAreIndependent(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := time.UnixMilli(1700000000000)

	feedSteady(e, "api-1", base, 30)

	// db-1 is still cold; the same spike that would alert on api-1 must
	// pass silently for db-1.
	spike := steadySample(0)
	spike["cpu"] = 95

	if _, ok := e.Observe("db-1", base, spike); ok {
		t.Error("cold service must not inherit another service's baseline")
	}
	if _, ok := e.Observe("api-1", base.Add(31*time.Second), spike); !ok {
		t.Error("warm service should alert on the spike")
	}
}

func TestEngine_ConcurrentObserve(t *testing.T) {
	e := NewEngine(DefaultConfig())
	base := time.UnixMilli(1700000000000)

	var wg sync.WaitGroup
	for s := 0; s < 8; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			service := fmt.Sprintf("svc-%d", s)
			for i := 0; i < 100; i++ {
				e.Observe(service, base.Add(time.Duration(i)*time.Second), steadySample(i))
			}
		}(s)
	}
	wg.Wait()

	if e.ServiceCount() != 8 {
		t.Errorf("expected 8 tracked services, got %d", e.ServiceCount())
	}
}
