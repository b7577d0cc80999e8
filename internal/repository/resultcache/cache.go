// Package resultcache memoizes per-need retrieval fragments in process memory.
package resultcache

import (
	"fmt"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/schemefinder/internal/domain/search/result"
)

// DefaultMaxEntries is used when the configured size is not positive.
const DefaultMaxEntries = 1024

type key struct {
	need    string
	breadth int
}

// Cache maps (need, breadth) to a vector-scored fragment. Entries never
// expire; once full the oldest insertion is evicted. Lookups use Peek so
// reads never reorder entries and the eviction order stays FIFO.
type Cache struct {
	mu        sync.Mutex
	entries   *simplelru.LRU[key, []result.Candidate]
	requests  *prometheus.CounterVec
	evictions prometheus.Counter
}

// New creates a cache bounded to maxEntries. Metrics may be nil.
func New(maxEntries int, requests *prometheus.CounterVec, evictions prometheus.Counter) (*Cache, error) {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries, err := simplelru.NewLRU[key, []result.Candidate](maxEntries, nil)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &Cache{entries: entries, requests: requests, evictions: evictions}, nil
}

// Get returns a copy of the cached fragment.
func (c *Cache) Get(need string, breadth int) ([]result.Candidate, bool) {
	c.mu.Lock()
	v, ok := c.entries.Peek(key{need: need, breadth: breadth})
	c.mu.Unlock()

	if !ok {
		c.inc("miss")
		return nil, false
	}
	c.inc("hit")
	return result.Clone(v), true
}

// Put stores a fragment. Re-putting an existing key keeps the first value
// and its original insertion position.
func (c *Cache) Put(need string, breadth int, v []result.Candidate) {
	k := key{need: need, breadth: breadth}
	cp := result.Clone(v)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries.Contains(k) {
		return
	}
	if evicted := c.entries.Add(k, cp); evicted && c.evictions != nil {
		c.evictions.Inc()
	}
}

// Len reports the number of cached fragments.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (c *Cache) inc(res string) {
	if c.requests != nil {
		c.requests.WithLabelValues(res).Inc()
	}
}
