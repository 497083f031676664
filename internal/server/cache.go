package server

import (
	"sync"
	"time"

	"github.com/mj1618/a11y-chain/internal/model"
	"github.com/mj1618/a11y-chain/internal/store"
)

// EventSource is the journal query the cache fronts.
type EventSource interface {
	Recent(q store.Query) ([]store.Entry, error)
}

// EventQuery is a journal query relative to the moment it runs, so repeated
// polls with the same arguments share one cache entry.
type EventQuery struct {
	Type   model.EventType
	Within time.Duration // 0 = no age limit
	Limit  int
}

// at resolves q against now.
func (q EventQuery) at(now time.Time) store.Query {
	sq := store.Query{Type: q.Type, Limit: q.Limit}
	if q.Within > 0 {
		sq.Since = now.Add(-q.Within)
	}
	return sq
}

// cacheEntry holds a cached query result with its timestamp.
type cacheEntry struct {
	entries   []store.Entry
	timestamp time.Time
}

// EventCache provides a TTL-based cache for journal queries. Wire
// InvalidateAll to the journal's insert hook so new rows are never hidden.
type EventCache struct {
	source EventSource

	mu      sync.Mutex
	entries map[EventQuery]cacheEntry
	gen     uint64 // bumped by InvalidateAll
	ttl     time.Duration
}

// NewEventCache creates a new cache. A ttl of 0 disables caching.
func NewEventCache(source EventSource, ttl time.Duration) *EventCache {
	return &EventCache{
		source:  source,
		entries: make(map[EventQuery]cacheEntry),
		ttl:     ttl,
	}
}

// Recent returns cached entries if within TTL, otherwise queries the source.
// A result fetched while the cache was invalidated is returned but not kept.
func (c *EventCache) Recent(q EventQuery) ([]store.Entry, error) {
	if c.ttl == 0 {
		return c.source.Recent(q.at(time.Now()))
	}

	c.mu.Lock()
	if entry, ok := c.entries[q]; ok && time.Since(entry.timestamp) < c.ttl {
		entries := entry.entries
		c.mu.Unlock()
		return entries, nil
	}
	gen := c.gen
	c.mu.Unlock()

	now := time.Now()
	entries, err := c.source.Recent(q.at(now))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gen == gen {
		c.evictLocked(now)
		c.entries[q] = cacheEntry{entries: entries, timestamp: now}
	}
	c.mu.Unlock()

	return entries, nil
}

// evictLocked drops entries older than the TTL.
func (c *EventCache) evictLocked(now time.Time) {
	for q, e := range c.entries {
		if now.Sub(e.timestamp) >= c.ttl {
			delete(c.entries, q)
		}
	}
}

// Len returns the number of cached queries.
func (c *EventCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// InvalidateAll clears the entire cache.
func (c *EventCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries = make(map[EventQuery]cacheEntry)
}
