// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

package cache

import (
	"fmt"
	"testing"
	"time"
)

func TestLRU_AddGet(t *testing.T) {
	c := NewLRU(10, time.Minute)

	c.Add("alert-1", "action-1")

	v, ok := c.Get("alert-1")
	if !ok || v != "action-1" {
		t.Errorf("expected action-1, got %q (found=%v)", v, ok)
	}
	if _, ok := c.Get("alert-2"); ok {
		t.Error("unexpected hit for missing key")
	}
	if !c.Contains("alert-1") {
		t.Error("Contains must report live entries")
	}
}

func TestLRU_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU(3, time.Minute)

	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be present")
	}

	c.Add("d", "4")

	if c.Contains("b") {
		t.Error("expected b to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if !c.Contains(key) {
			t.Errorf("expected %s to survive eviction", key)
		}
	}
	if c.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", c.Len())
	}
}

func TestLRU_TTLExpiry(t *testing.T) {
	c := NewLRU(10, 20*time.Millisecond)

	c.Add("alert-1", "action-1")
	if !c.Contains("alert-1") {
		t.Fatal("entry should be live immediately after Add")
	}

	time.Sleep(40 * time.Millisecond)

	if c.Contains("alert-1") {
		t.Error("entry should have expired")
	}
	if _, ok := c.Get("alert-1"); ok {
		t.Error("Get must not return expired entries")
	}
}

func TestLRU_AddRefreshesExisting(t *testing.T) {
	c := NewLRU(2, time.Minute)

	c.Add("a", "1")
	c.Add("a", "updated")

	if c.Len() != 1 {
		t.Errorf("re-adding a key must not grow the cache, got %d entries", c.Len())
	}
	if v, _ := c.Get("a"); v != "updated" {
		t.Errorf("expected updated value, got %q", v)
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU(10, time.Minute)
	c.Add("a", "1")

	c.Get("a")
	c.Get("missing")

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}
}

func TestLRU_CapacityHeld(t *testing.T) {
	c := NewLRU(100, time.Minute)
	for i := 0; i < 500; i++ {
		c.Add(fmt.Sprintf("alert-%d", i), "x")
	}
	if c.Len() != 100 {
		t.Errorf("expected length pinned at capacity 100, got %d", c.Len())
	}
}
