// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package detect

import (
	"fmt"
	"math"
)

// MaxScore bounds the anomaly score. A z-score past this point carries no
// additional signal and an unbounded score would leak NaN/Inf onto the
// wire for degenerate baselines.
const MaxScore = 10.0

// dominanceRatio decides whether one metric clearly drove an anomaly. If
// the runner-up deviation is within this fraction of the top deviation,
// no single metric dominates and the alert classifies as UNKNOWN.
const dominanceRatio = 0.9

// Model is a frozen per-metric baseline fitted from a window snapshot.
// Scoring compares a sample against the baseline without mutating it, so
// the model stays cheap to apply between refits.
type Model struct {
	baseline map[string]MetricStats
	fitted   bool
}

// Fitted reports whether the model has a usable baseline.
func (m *Model) Fitted() bool {
	return m.fitted
}

// Fit rebuilds the baseline from the window's current contents. A window
// with no numeric metrics is a fit failure and leaves any previous
// baseline in place.
func (m *Model) Fit(w *Window) error {
	stats := w.Stats()
	if len(stats) == 0 {
		return fmt.Errorf("fit: window has no metrics")
	}
	for name, s := range stats {
		if math.IsNaN(s.Mean) || math.IsInf(s.Mean, 0) {
			return fmt.Errorf("fit: metric %s has a degenerate mean", name)
		}
	}

	m.baseline = stats
	m.fitted = true
	return nil
}

// Score rates a metric vector against the baseline. The score is the
// largest per-metric |z| clamped to [0, MaxScore]; higher means more
// anomalous. The returned metric is the dominant one, or "" when no
// single metric dominates.
//
// A zero-variance baseline metric scores 0 while the value holds and
// MaxScore the moment it moves, so a perfectly flat history still
// catches a step change.
func (m *Model) Score(metrics map[string]float64) (float64, string) {
	if !m.fitted {
		return 0, ""
	}

	var top, second float64
	var topMetric string

	for name, v := range metrics {
		s, ok := m.baseline[name]
		if !ok {
			// Metric never seen during fit; nothing to compare against.
			continue
		}

		var z float64
		switch {
		case s.StdDev > 0:
			z = math.Abs(v-s.Mean) / s.StdDev
		case v != s.Mean:
			z = MaxScore
		}
		if z > MaxScore {
			z = MaxScore
		}

		if z > top {
			second = top
			top = z
			topMetric = name
		} else if z > second {
			second = z
		}
	}

	if topMetric != "" && second >= top*dominanceRatio {
		topMetric = ""
	}
	return top, topMetric
}
