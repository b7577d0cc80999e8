// Package chatcache holds generated chat responses keyed by conversation fingerprint.
package chatcache

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/schemefinder/internal/domain/chat"
)

// DefaultMaxPerNamespace is used when the configured size is not positive.
const DefaultMaxPerNamespace = 512

// Entry is one value to store. TTL 0 means no expiry.
type Entry = chat.CacheEntry

type item struct {
	value     []byte
	expiresAt time.Time // zero = never
}

// Cache is partitioned by namespace; each namespace is bounded on its own and
// evicts its least recently inserted entry. Expiry is checked on read.
type Cache struct {
	mu        sync.Mutex
	maxPerNS  int
	spaces    map[string]*simplelru.LRU[string, item]
	now       func() time.Time
	requests  *prometheus.CounterVec
	evictions prometheus.Counter
}

// New creates a cache. Metrics may be nil.
func New(maxPerNamespace int, requests *prometheus.CounterVec, evictions prometheus.Counter) *Cache {
	if maxPerNamespace <= 0 {
		maxPerNamespace = DefaultMaxPerNamespace
	}
	return &Cache{
		maxPerNS:  maxPerNamespace,
		spaces:    make(map[string]*simplelru.LRU[string, item]),
		now:       time.Now,
		requests:  requests,
		evictions: evictions,
	}
}

// WithClock replaces the time source, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the live values for keys. Misses and expired entries are
// omitted; expired entries are removed.
func (c *Cache) Get(ns string, keys []string) map[string][]byte {
	out := make(map[string][]byte, len(keys))

	c.mu.Lock()
	defer c.mu.Unlock()

	space := c.spaces[ns]
	now := c.now()
	for _, k := range keys {
		if space == nil {
			c.inc("miss")
			continue
		}
		it, ok := space.Peek(k)
		if !ok {
			c.inc("miss")
			continue
		}
		if !it.expiresAt.IsZero() && !now.Before(it.expiresAt) {
			space.Remove(k)
			c.inc("expired")
			continue
		}
		c.inc("hit")
		out[k] = bytes.Clone(it.value)
	}
	return out
}

// Set stores entries in ns. Setting an existing key counts as a fresh insertion.
func (c *Cache) Set(ns string, entries []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	space, err := c.space(ns)
	if err != nil {
		return err
	}
	now := c.now()
	for _, e := range entries {
		it := item{value: bytes.Clone(e.Value)}
		if e.TTL > 0 {
			it.expiresAt = now.Add(e.TTL)
		}
		space.Remove(e.Key)
		if evicted := space.Add(e.Key, it); evicted && c.evictions != nil {
			c.evictions.Inc()
		}
	}
	return nil
}

// Len reports the number of stored entries in ns, expired ones included until read.
func (c *Cache) Len(ns string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if space := c.spaces[ns]; space != nil {
		return space.Len()
	}
	return 0
}

func (c *Cache) space(ns string) (*simplelru.LRU[string, item], error) {
	if space, ok := c.spaces[ns]; ok {
		return space, nil
	}
	space, err := simplelru.NewLRU[string, item](c.maxPerNS, nil)
	if err != nil {
		return nil, fmt.Errorf("create namespace %s: %w", ns, err)
	}
	c.spaces[ns] = space
	return space, nil
}

func (c *Cache) inc(res string) {
	if c.requests != nil {
		c.requests.WithLabelValues(res).Inc()
	}
}
