package metrics

import "github.com/prometheus/client_golang/prometheus"

// Admission control, cache and command pipeline metrics.
var (
	RateLimitDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Name:      "ratelimit_decisions_total",
			Help:      "Rate limit decisions by policy",
		},
		[]string{"policy", "result"}, // "allowed" / "rejected"
	)

	RateLimitersActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docgate",
			Name:      "ratelimit_limiters_active",
			Help:      "Number of live limiters in the registry",
		},
	)

	RateLimitersEvictedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Name:      "ratelimit_limiters_evicted_total",
			Help:      "Limiters evicted from the registry by the LRU bound",
		},
	)

	SearchCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Name:      "search_cache_total",
			Help:      "Search result cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	SearchCacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Name:      "search_cache_evictions_total",
			Help:      "Search responses dropped from the result cache by eviction or clear",
		},
	)

	SearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docgate",
			Name:      "search_duration_seconds",
			Help:      "Search engine query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"status"},
	)

	CommandsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Name:      "commands_published_total",
			Help:      "Commands handed to the queue",
		},
		[]string{"kind", "status"},
	)

	CommandsAppliedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docgate",
			Name:      "commands_applied_total",
			Help:      "Commands applied to the search index by the consumer",
		},
		[]string{"kind", "status"},
	)

	CommandApplyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docgate",
			Name:      "command_apply_duration_seconds",
			Help:      "Time to apply a consumed command to the index",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"kind"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers admission, cache and pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(RateLimitDecisionsTotal)
	prometheus.MustRegister(RateLimitersActive)
	prometheus.MustRegister(RateLimitersEvictedTotal)
	prometheus.MustRegister(SearchCacheTotal)
	prometheus.MustRegister(SearchCacheEvictionsTotal)
	prometheus.MustRegister(SearchDuration)
	prometheus.MustRegister(CommandsPublishedTotal)
	prometheus.MustRegister(CommandsAppliedTotal)
	prometheus.MustRegister(CommandApplyDuration)
	pipelineMetricsRegistered = true
}
