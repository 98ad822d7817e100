// SAGE - Secure Agent Guarantee Engine
// Copyright (C) 2025 SAGE-X-project
//
// This file is part of SAGE.
//
// SAGE is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// SAGE is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with SAGE. If not, see <https://www.gnu.org/licenses/>.

package chat

import (
	"container/list"
	"sync"
	"time"

	"github.com/onera-app/onera-core/internal/metrics"
	"github.com/onera-app/onera-core/pkg/core/crypto"
)

// DefaultCacheSize and DefaultCacheTTL are spec.md §4.7/§5's defaults.
const (
	DefaultCacheSize = 100
	DefaultCacheTTL  = 10 * time.Minute
)

type cacheEntry struct {
	chatID  string
	key     []byte
	expires time.Time
}

// KeyCache is a bounded LRU-by-insertion-order cache of unwrapped chat
// keys, with a per-entry TTL. Grounded on the teacher's
// pkg/agent/session.NonceCache (a mutex/map plus a background
// time.Ticker GC loop), generalized here to store defensive copies of
// key material, zeroize on every removal path, and evict on overflow by
// removing expired entries first and then the least-recently-inserted
// (spec.md §4.7) rather than NonceCache's per-keyid nonce bucketing.
type KeyCache struct {
	mu       sync.Mutex
	size     int
	ttl      time.Duration
	order    *list.List // front = oldest inserted, back = newest
	elements map[string]*list.Element

	tick *time.Ticker
	stop chan struct{}
}

// NewKeyCache creates a cache bounded to size entries, each valid for
// ttl after insertion.
func NewKeyCache(size int, ttl time.Duration) *KeyCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &KeyCache{
		size:     size,
		ttl:      ttl,
		order:    list.New(),
		elements: make(map[string]*list.Element),
		tick:     time.NewTicker(time.Minute),
		stop:     make(chan struct{}),
	}
	go c.gcLoop()
	return c
}

// Get returns a defensive copy of the cached key for chatID, or
// (nil, false) on miss or expiry. An expired entry found on access is
// evicted immediately.
func (c *KeyCache) Get(chatID string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.elements[chatID]
	if !ok {
		metrics.ChatCacheMisses.Inc()
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if time.Now().After(entry.expires) {
		c.removeElementLocked(el, "expired")
		metrics.ChatCacheMisses.Inc()
		return nil, false
	}

	metrics.ChatCacheHits.Inc()
	cp := make([]byte, len(entry.key))
	copy(cp, entry.key)
	return cp, true
}

// Put stores a defensive copy of key under chatID, evicting expired
// entries and then the least-recently-inserted entry if the cache is
// full.
func (c *KeyCache) Put(chatID string, key []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.elements[chatID]; ok {
		c.removeElementLocked(el, "replaced")
	}

	c.evictToFitLocked()

	cp := make([]byte, len(key))
	copy(cp, key)
	entry := &cacheEntry{chatID: chatID, key: cp, expires: time.Now().Add(c.ttl)}
	el := c.order.PushBack(entry)
	c.elements[chatID] = el
}

// Remove deletes chatID's entry if present, zeroizing the stored copy.
func (c *KeyCache) Remove(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.elements[chatID]; ok {
		c.removeElementLocked(el, "removed")
	}
}

// Clear zeroizes and removes every entry. Wired to fire whenever
// SecureSession transitions to Locked (spec.md §4.7).
func (c *KeyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	count := len(c.elements)
	for id, el := range c.elements {
		entry := el.Value.(*cacheEntry)
		crypto.Zeroize(entry.key)
		delete(c.elements, id)
	}
	c.order.Init()
	metrics.ChatCacheEvictions.WithLabelValues("cleared").Add(float64(count))
}

// Close stops the background expiry sweep. Call once, typically from
// the owning CoreContext's teardown.
func (c *KeyCache) Close() {
	close(c.stop)
	c.tick.Stop()
}

func (c *KeyCache) evictToFitLocked() {
	now := time.Now()
	for c.order.Len() > 0 {
		front := c.order.Front()
		entry := front.Value.(*cacheEntry)
		if now.After(entry.expires) {
			c.removeElementLocked(front, "expired")
			continue
		}
		break
	}
	for c.order.Len() >= c.size {
		c.removeElementLocked(c.order.Front(), "capacity")
	}
}

func (c *KeyCache) removeElementLocked(el *list.Element, reason string) {
	entry := el.Value.(*cacheEntry)
	crypto.Zeroize(entry.key)
	delete(c.elements, entry.chatID)
	c.order.Remove(el)
	if reason != "replaced" {
		metrics.ChatCacheEvictions.WithLabelValues(reason).Inc()
	}
}

func (c *KeyCache) gcLoop() {
	for {
		select {
		case <-c.tick.C:
			c.mu.Lock()
			now := time.Now()
			var next *list.Element
			for el := c.order.Front(); el != nil; el = next {
				next = el.Next()
				if now.After(el.Value.(*cacheEntry).expires) {
					c.removeElementLocked(el, "expired")
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}
