package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline Prometheus metrics.
var (
	SearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end search duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	SearchNeeds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_needs",
			Help:      "Number of needs a query decomposed into",
			Buckets:   []float64{0, 1, 2, 3, 4, 6, 8},
		},
	)

	SearchResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Ranked results after threshold filtering",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
		},
	)

	RetrievalDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_dropped_total",
			Help:      "Neighbours dropped during retrieval",
		},
		[]string{"reason"}, // "unmapped" / "missing" / "inactive"
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(SearchNeeds)
	prometheus.MustRegister(SearchResults)
	prometheus.MustRegister(RetrievalDroppedTotal)
	searchMetricsRegistered = true
}
