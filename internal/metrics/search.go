package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search, duplicate detection and analytics metrics.
var (
	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locadex",
			Name:      "search_requests_total",
			Help:      "Total number of search requests",
		},
		[]string{"mode", "status"},
	)

	SearchRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "locadex",
			Name:      "search_request_duration_seconds",
			Help:      "Search pipeline duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"mode"},
	)

	DuplicateChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locadex",
			Name:      "duplicate_checks_total",
			Help:      "Duplicate checks by outcome",
		},
		[]string{"outcome"}, // "clean" / "warning" / "blocking" / "error"
	)

	DuplicateMatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locadex",
			Name:      "duplicate_matches_total",
			Help:      "Duplicate matches by strategy",
		},
		[]string{"match_type"},
	)

	AnalyticsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locadex",
			Name:      "analytics_events_total",
			Help:      "Analytics events by kind and outcome",
		},
		[]string{"kind", "outcome"}, // outcome: "recorded" / "dropped" / "failed"
	)

	IndexingTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "locadex",
			Name:      "indexing_operations_total",
			Help:      "Vector index writes by operation and status",
		},
		[]string{"op", "status"},
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers search, duplicate, analytics and indexing metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(SearchRequestsTotal)
	prometheus.MustRegister(SearchRequestDuration)
	prometheus.MustRegister(DuplicateChecksTotal)
	prometheus.MustRegister(DuplicateMatchesTotal)
	prometheus.MustRegister(AnalyticsEventsTotal)
	prometheus.MustRegister(IndexingTotal)
	searchMetricsRegistered = true
}
