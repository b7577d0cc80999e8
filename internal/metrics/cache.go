package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cache names used as the "cache" label.
const (
	CacheResult    = "result"
	CacheChat      = "chat"
	CacheEmbedding = "embedding"
)

// Cache Prometheus metrics, shared by every cache layer.
var (
	CacheRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Cache lookups by cache and result",
		},
		[]string{"cache", "result"}, // result: "hit" / "miss" / "expired"
	)

	CacheEvictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Entries evicted by the size bound",
		},
		[]string{"cache"},
	)
)

var cacheMetricsRegistered bool

// RegisterCacheMetrics registers cache metrics. Must be called once from main.
func RegisterCacheMetrics() {
	if cacheMetricsRegistered {
		return
	}
	prometheus.MustRegister(CacheRequestsTotal)
	prometheus.MustRegister(CacheEvictionsTotal)
	cacheMetricsRegistered = true
}

// CacheCounters returns the lookup and eviction counters bound to one cache.
func CacheCounters(cache string) (*prometheus.CounterVec, prometheus.Counter) {
	return CacheRequestsTotal.MustCurryWith(prometheus.Labels{"cache": cache}),
		CacheEvictionsTotal.WithLabelValues(cache)
}
