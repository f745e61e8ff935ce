// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package detect

import "math"

// MetricStats holds the summary statistics for one metric over a window.
type MetricStats struct {
	Mean   float64
	StdDev float64
	Count  int
}

// Window is a fixed-capacity ring buffer of metric vectors for one
// service. The oldest sample is evicted on overflow. A Window is owned by
// exactly one service shard and is not safe for concurrent use on its own.
type Window struct {
	capacity int
	samples  []map[string]float64
	next     int
	count    int
}

// NewWindow creates a window with the given capacity.
func NewWindow(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{
		capacity: capacity,
		samples:  make([]map[string]float64, capacity),
	}
}

// Append adds a metric vector, evicting the oldest when full.
func (w *Window) Append(metrics map[string]float64) {
	w.samples[w.next] = metrics
	w.next = (w.next + 1) % w.capacity
	if w.count < w.capacity {
		w.count++
	}
}

// Len returns the number of stored samples.
func (w *Window) Len() int {
	return w.count
}

// Capacity returns the fixed capacity.
func (w *Window) Capacity() int {
	return w.capacity
}

// Stats computes mean and population standard deviation per metric over
// the current contents. Metrics missing from a sample simply do not
// contribute to that metric's statistics.
func (w *Window) Stats() map[string]MetricStats {
	sums := make(map[string]float64)
	counts := make(map[string]int)

	w.each(func(m map[string]float64) {
		for name, v := range m {
			sums[name] += v
			counts[name]++
		}
	})

	means := make(map[string]float64, len(sums))
	for name, sum := range sums {
		means[name] = sum / float64(counts[name])
	}

	sqDiffs := make(map[string]float64, len(sums))
	w.each(func(m map[string]float64) {
		for name, v := range m {
			d := v - means[name]
			sqDiffs[name] += d * d
		}
	})

	stats := make(map[string]MetricStats, len(sums))
	for name := range sums {
		n := counts[name]
		stats[name] = MetricStats{
			Mean:   means[name],
			StdDev: math.Sqrt(sqDiffs[name] / float64(n)),
			Count:  n,
		}
	}
	return stats
}

// each visits stored samples in insertion order.
func (w *Window) each(fn func(map[string]float64)) {
	start := 0
	if w.count == w.capacity {
		start = w.next
	}
	for i := 0; i < w.count; i++ {
		fn(w.samples[(start+i)%w.capacity])
	}
}
