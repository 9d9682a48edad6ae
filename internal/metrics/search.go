package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search pipeline metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "giftfinder",
			Name:      "search_requests_total",
			Help:      "Total number of catalog searches",
		},
		[]string{"sort", "status"},
	)

	SearchResultsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "giftfinder",
			Name:      "search_results_returned",
			Help:      "Number of items returned per search after the final cap",
			Buckets:   []float64{0, 1, 2, 3, 4, 5},
		},
	)

	DetailJoinFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "giftfinder",
			Name:      "detail_join_failures_total",
			Help:      "Detail lookups that failed and were swallowed (candidate kept without detail)",
		},
	)

	DialectFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "giftfinder",
			Name:      "search_dialect_fallbacks_total",
			Help:      "KNN queries retried without the DIALECT flag",
		},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers Prometheus search metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchResultsReturned)
	prometheus.MustRegister(DetailJoinFailuresTotal)
	prometheus.MustRegister(DialectFallbacksTotal)
	searchMetricsRegistered = true
}
