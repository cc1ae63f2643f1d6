package metrics

import "github.com/prometheus/client_golang/prometheus"

// Query pipeline Prometheus metrics.
var (
	QueryCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogq",
			Name:      "query_cache_total",
			Help:      "Result cache operations by outcome",
		},
		[]string{"namespace", "result"}, // hit, miss, expired, evicted, invalidated, stored, stale
	)

	FetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogq",
			Name:      "fetch_total",
			Help:      "Catalog fetches by outcome",
		},
		[]string{"namespace", "status"}, // ok, error, superseded
	)

	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "catalogq",
			Name:      "fetch_duration_seconds",
			Help:      "Catalog fetch duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"namespace"},
	)

	SearchDedupTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "catalogq",
			Name:      "search_dedup_total",
			Help:      "Searches served by a fetch started for another caller",
		},
		[]string{"namespace"},
	)

	CacheEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "catalogq",
			Name:      "query_cache_entries",
			Help:      "Cached result pages per namespace",
		},
		[]string{"namespace"},
	)
)

var queryMetricsRegistered bool

// RegisterQueryMetrics registers the query pipeline metrics. Must be called once from main.
func RegisterQueryMetrics() {
	if queryMetricsRegistered {
		return
	}
	prometheus.MustRegister(QueryCacheTotal)
	prometheus.MustRegister(FetchTotal)
	prometheus.MustRegister(FetchDuration)
	prometheus.MustRegister(SearchDedupTotal)
	prometheus.MustRegister(CacheEntries)
	queryMetricsRegistered = true
}
