// PulseGuard - Streaming Telemetry Anomaly Detection and Self-Healing
// Copyright 2026 PulseGuard Contributors
// SPDX-License-Identifier: Apache-2.0
// https://github.com/pulseguard/pulseguard

// Package cache provides the bounded deduplication structure used by the
// orchestrator to make alert handling idempotent under at-least-once
// delivery.
package cache

import (
	"sync"
	"time"
)

// entry is a node in the LRU's doubly-linked list.
type entry struct {
	key       string
	value     string
	prev      *entry
	next      *entry
	expiresAt time.Time
}

// LRU is a thread-safe least-recently-used cache with TTL support. Get,
// Add and eviction are all O(1): a hashmap provides lookup and a
// sentinel-node doubly-linked list provides ordering.
//
// Expiration is lazy: entries past their TTL are dropped when touched.
type LRU struct {
	mu sync.RWMutex

	capacity int
	ttl      time.Duration

	items map[string]*entry

	// head.next is the most recently used, tail.prev the least.
	head *entry
	tail *entry

	hits   int64
	misses int64
}

// NewLRU creates an LRU with the given capacity and TTL. Non-positive
// arguments fall back to 10000 entries and 10 minutes.
func NewLRU(capacity int, ttl time.Duration) *LRU {
	if capacity <= 0 {
		capacity = 10000
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}

	c := &LRU{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*entry, capacity),
		head:     &entry{},
		tail:     &entry{},
	}
	c.head.next = c.tail
	c.tail.prev = c.head
	return c
}

// Get retrieves a value. Found entries move to the front.
func (c *LRU) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		return "", false
	}
	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		c.misses++
		return "", false
	}

	c.moveToFront(e)
	c.hits++
	return e.value, true
}

// Contains reports whether a live entry exists without updating order.
func (c *LRU) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if e, ok := c.items[key]; ok {
		return !time.Now().After(e.expiresAt)
	}
	return false
}

// Add inserts or refreshes an entry, evicting the least recently used
// entry when at capacity.
func (c *LRU) Add(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()

	if e, ok := c.items[key]; ok {
		e.value = value
		e.expiresAt = now.Add(c.ttl)
		c.moveToFront(e)
		return
	}

	if len(c.items) >= c.capacity {
		c.removeEntry(c.tail.prev)
	}

	e := &entry{
		key:       key,
		value:     value,
		expiresAt: now.Add(c.ttl),
	}
	c.items[key] = e
	c.pushFront(e)
}

// Len returns the number of entries, including any not yet lazily expired.
func (c *LRU) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Stats returns hit and miss counters.
func (c *LRU) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

func (c *LRU) pushFront(e *entry) {
	e.prev = c.head
	e.next = c.head.next
	c.head.next.prev = e
	c.head.next = e
}

func (c *LRU) moveToFront(e *entry) {
	e.prev.next = e.next
	e.next.prev = e.prev
	c.pushFront(e)
}

func (c *LRU) removeEntry(e *entry) {
	if e == c.head || e == c.tail {
		return
	}
	e.prev.next = e.next
	e.next.prev = e.prev
	delete(c.items, e.key)
}
