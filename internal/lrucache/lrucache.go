// Package lrucache is a bounded least-recently-used cache whose entries also
// expire after a fixed time-to-live. Expiry is checked lazily when an entry is
// read. The whole cache can be dumped to, and restored from, a JSON-friendly
// list so it survives restarts.
package lrucache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/pkg/errors"
)

// Every entry counts as one unit towards Options.Max.
const entrySize = 1

type Options struct {
	// Max is the maximum number of live entries.
	Max int
	// TTL is how long an entry lives after it was last set. Zero disables expiry.
	TTL time.Duration
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

type item[V any] struct {
	value V
	start time.Time
	ttl   time.Duration
}

func (it *item[V]) expired(now time.Time) bool {
	return it.ttl > 0 && !now.Before(it.start.Add(it.ttl))
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, *item[V]]
	ttl time.Duration
	now func() time.Time
}

func New[V any](opts Options) (*Cache[V], error) {
	if opts.Max <= 0 {
		return nil, errors.Errorf("lrucache: max must be positive, got %d", opts.Max)
	}
	lru, err := simplelru.NewLRU[string, *item[V]](opts.Max, nil)
	if err != nil {
		return nil, errors.Wrap(err, "lrucache: failed to create lru")
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Cache[V]{lru: lru, ttl: opts.TTL, now: now}, nil
}

// Get returns the live value for key and marks it most recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, ok := c.lru.Get(key)
	if !ok {
		return zero, false
	}
	if it.expired(c.now()) {
		c.lru.Remove(key)
		return zero, false
	}
	return it.value, true
}

// Peek returns the live value for key without touching its recency.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, ok := c.lru.Peek(key)
	if !ok || it.expired(c.now()) {
		return zero, false
	}
	return it.value, true
}

// Set stores value under key, restarts its TTL and marks it most recently
// used. The least recently used entry is evicted when the cache is full.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, &item[V]{value: value, start: c.now(), ttl: c.ttl})
}

// Delete removes key and reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lru.Remove(key)
}

func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()
	return c.lru.Len()
}

// Keys returns live keys, most recently used first.
func (c *Cache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()
	keys := c.lru.Keys()
	reverse(keys)
	return keys
}

// Values returns live values, most recently used first.
func (c *Cache[V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()
	keys := c.lru.Keys()
	out := make([]V, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		it, _ := c.lru.Peek(keys[i])
		out = append(out, it.value)
	}
	return out
}

// Dump returns every live entry, least recently used first, so that Load
// restores the same recency order.
func (c *Cache[V]) Dump() []DumpEntry[V] {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.purgeExpired()
	keys := c.lru.Keys()
	out := make([]DumpEntry[V], 0, len(keys))
	for _, k := range keys {
		it, _ := c.lru.Peek(k)
		out = append(out, DumpEntry[V]{
			Key:   k,
			Value: it.value,
			TTL:   it.ttl.Milliseconds(),
			Size:  entrySize,
			Start: it.start.UnixMilli(),
		})
	}
	return out
}

// Load replaces the cache contents with entries. Entries carrying a start
// time keep their original expiry and are skipped if already expired; the
// rest start a fresh TTL. A zero TTL falls back to the cache default.
func (c *Cache[V]) Load(entries []DumpEntry[V]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
	now := c.now()
	for _, e := range entries {
		it := &item[V]{value: e.Value, start: now, ttl: c.ttl}
		if e.TTL > 0 {
			it.ttl = time.Duration(e.TTL) * time.Millisecond
		}
		if e.Start > 0 {
			it.start = time.UnixMilli(e.Start)
		}
		if it.expired(now) {
			continue
		}
		c.lru.Add(e.Key, it)
	}
}

// PurgeExpired drops every expired entry and reports how many were removed.
func (c *Cache[V]) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purgeExpired()
}

func (c *Cache[V]) purgeExpired() int {
	now := c.now()
	removed := 0
	for _, k := range c.lru.Keys() {
		if it, ok := c.lru.Peek(k); ok && it.expired(now) {
			c.lru.Remove(k)
			removed++
		}
	}
	return removed
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
