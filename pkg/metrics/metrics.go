package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	ChainEvaluationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_evaluations_total",
			Help: "Total number of chain evaluations by chain and verdict (count)",
		},
		[]string{"chain", "verdict"},
	)

	ChainEvaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chain_evaluation_duration_us",
			Help:    "Chain evaluation duration in microseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"chain"},
	)

	ChainEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chain_entries",
			Help: "Number of rule-action entries per chain (count)",
		},
		[]string{"chain"},
	)

	ChainMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chain_mutations_total",
			Help: "Total number of administrative chain mutations (count)",
		},
		[]string{"chain", "operation"},
	)

	RateLimitDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ratelimit_drops_total",
			Help: "Total number of queries flagged by the per-source rate limiter (count)",
		},
	)

	RateLimitSourcesTracked = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ratelimit_sources_tracked",
			Help: "Number of sources currently tracked by the per-source rate limiter (count)",
		},
	)

	KeyValueLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kv_lookups_total",
			Help: "Total number of key-value store lookups by outcome (count)",
		},
		[]string{"status"},
	)

	AdminRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_requests_total",
			Help: "Total number of administrative API requests (count)",
		},
		[]string{"method", "status"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_ratelimit_requests_total",
			Help: "Total number of admin requests seen by the HTTP rate limiter (count)",
		},
		[]string{"status"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

func RegisterChainMetrics() {
	prometheus.MustRegister(ChainEvaluationsTotal)
	prometheus.MustRegister(ChainEvaluationDuration)
	prometheus.MustRegister(ChainEntries)
	prometheus.MustRegister(ChainMutationsTotal)
}

func RegisterRateLimitMetrics() {
	prometheus.MustRegister(RateLimitDropsTotal)
	prometheus.MustRegister(RateLimitSourcesTracked)
}

func RegisterKeyValueMetrics() {
	prometheus.MustRegister(KeyValueLookupsTotal)
	prometheus.MustRegister(CircuitBreakerState)
}

func RegisterAdminMetrics() {
	prometheus.MustRegister(AdminRequestsTotal)
	prometheus.MustRegister(RateLimitRequestsTotal)
}

func ObserveChainEvaluationDuration(chain string, duration time.Duration) {
	ChainEvaluationDuration.WithLabelValues(chain).Observe(float64(duration.Microseconds()))
}

func IncChainMutation(chain, operation string) {
	ChainMutationsTotal.WithLabelValues(chain, operation).Inc()
}
