// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package detect

import (
	"math"
	"testing"
)

func TestWindow_CapacityBound(t *testing.T) {
	w := NewWindow(50)

	for i := 0; i < 120; i++ {
		w.Append(map[string]float64{"cpu": float64(i)})
	}

	if w.Len() != 50 {
		t.Errorf("expected window length 50 after 120 appends, got %d", w.Len())
	}
	if w.Capacity() != 50 {
		t.Errorf("expected capacity 50, got %d", w.Capacity())
	}
}

func TestWindow_EvictsOldest(t *testing.T) {
	w := NewWindow(3)

	// 1 is evicted; the window holds {2, 3, 4}.
	for _, v := range []float64{1, 2, 3, 4} {
		w.Append(map[string]float64{"cpu": v})
	}

	stats := w.Stats()
	cpu, ok := stats["cpu"]
	if !ok {
		t.Fatal("expected cpu stats")
	}
	if cpu.Count != 3 {
		t.Errorf("expected count 3, got %d", cpu.Count)
	}
	if cpu.Mean != 3.0 {
		t.Errorf("expected mean 3.0 over {2,3,4}, got %g", cpu.Mean)
	}
}

func TestWindow_Stats(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		wantMean   float64
		wantStdDev float64
	}{
		{
			name:       "constant values",
			values:     []float64{5, 5, 5, 5},
			wantMean:   5,
			wantStdDev: 0,
		},
		{
			name:       "symmetric spread",
			values:     []float64{2, 4, 4, 4, 5, 5, 7, 9},
			wantMean:   5,
			wantStdDev: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow(len(tt.values))
			for _, v := range tt.values {
				w.Append(map[string]float64{"latency": v})
			}

			s := w.Stats()["latency"]
			if math.Abs(s.Mean-tt.wantMean) > 1e-9 {
				t.Errorf("expected mean %g, got %g", tt.wantMean, s.Mean)
			}
			if math.Abs(s.StdDev-tt.wantStdDev) > 1e-9 {
				t.Errorf("expected stddev %g, got %g", tt.wantStdDev, s.StdDev)
			}
		})
	}
}

func TestWindow_SparseMetrics(t *testing.T) {
	w := NewWindow(4)
	w.Append(map[string]float64{"cpu": 10, "memory": 60})
	w.Append(map[string]float64{"cpu": 20})
	w.Append(map[string]float64{"cpu": 30, "memory": 62})

	stats := w.Stats()
	if stats["cpu"].Count != 3 {
		t.Errorf("expected cpu count 3, got %d", stats["cpu"].Count)
	}
	if stats["memory"].Count != 2 {
		t.Errorf("expected memory count 2, got %d", stats["memory"].Count)
	}
	if stats["memory"].Mean != 61 {
		t.Errorf("expected memory mean 61, got %g", stats["memory"].Mean)
	}
}
