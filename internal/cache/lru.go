// Tastematch - Media Library Taste-Profile Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tastematch

package cache

import (
	"container/list"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Default sizing used when NewLRU is given non-positive values.
const (
	DefaultCapacity = 10000
	DefaultTTL      = 5 * time.Minute
)

type item[V any] struct {
	key      string
	value    V
	deadline time.Time
}

// LRU is a thread-safe least-recently-used cache with a per-entry TTL.
// Expiry is lazy: stale entries are dropped when touched or by
// CleanupExpired. The front of order is the most recently used entry.
type LRU[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	order *list.List
	index map[string]*list.Element
	stats Stats

	loads singleflight.Group
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Expired   int64 `json:"expired"`
}

// NewLRU creates a cache holding at most capacity entries for ttl each.
func NewLRU[V any](capacity int, ttl time.Duration) *LRU[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &LRU[V]{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		order:    list.New(),
		index:    make(map[string]*list.Element, min(capacity, 1024)),
	}
}

// Get returns the live value for key and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.stats.Misses++
		var zero V
		return zero, false
	}
	it := el.Value.(*item[V])
	if c.expired(it) {
		c.drop(el)
		c.stats.Misses++
		c.stats.Expired++
		var zero V
		return zero, false
	}
	c.order.MoveToFront(el)
	c.stats.Hits++
	return it.value, true
}

// Contains reports whether key holds a live value. Recency is unchanged.
func (c *LRU[V]) Contains(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	return ok && !c.expired(el.Value.(*item[V]))
}

// Add stores value under key with a fresh TTL, evicting from the back of
// the recency order while over capacity.
func (c *LRU[V]) Add(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := c.now().Add(c.ttl)
	if el, ok := c.index[key]; ok {
		it := el.Value.(*item[V])
		it.value, it.deadline = value, deadline
		c.order.MoveToFront(el)
		return
	}

	c.index[key] = c.order.PushFront(&item[V]{key: key, value: value, deadline: deadline})
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
		c.stats.Evictions++
	}
}

// GetOrLoad returns the cached value for key, reporting hit=true, or runs
// load and caches a successful result. Concurrent misses on one key share
// a single load call.
func (c *LRU[V]) GetOrLoad(key string, load func() (V, error)) (V, bool, error) {
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}

	res, err, _ := c.loads.Do(key, func() (interface{}, error) {
		v, err := load()
		if err != nil {
			return v, err
		}
		c.Add(key, v)
		return v, nil
	})
	v, _ := res.(V)
	return v, false, err
}

// Remove deletes key and reports whether it was present.
func (c *LRU[V]) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if ok {
		c.drop(el)
	}
	return ok
}

// Len counts stored entries, expired ones included until collected.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear empties the cache. Counters are kept.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	clear(c.index)
}

// CleanupExpired drops every expired entry and returns the count.
func (c *LRU[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*item[V])) {
			c.drop(el)
			n++
		}
		el = prev
	}
	c.stats.Expired += int64(n)
	return n
}

// Stats returns a snapshot of the counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// expired and drop require c.mu.

func (c *LRU[V]) expired(it *item[V]) bool {
	return c.now().After(it.deadline)
}

func (c *LRU[V]) drop(el *list.Element) {
	c.order.Remove(el)
	delete(c.index, el.Value.(*item[V]).key)
}
