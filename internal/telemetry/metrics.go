package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "campus"

var (
	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by cache name and result.",
	}, []string{"cache", "result"})

	cacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_evictions_total",
		Help:      "Cache evictions by cache name and reason.",
	}, []string{"cache", "reason"})

	retryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retry_attempts_total",
		Help:      "Retry attempts by operation and result.",
	}, []string{"operation", "result"})

	fallbackOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fallback_tier_total",
		Help:      "Fallback recoveries by resolving tier.",
	}, []string{"tier"})

	poolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pool_connections",
		Help:      "Pooled handles by state.",
	}, []string{"state"})

	poolExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pool_exhausted_total",
		Help:      "Acquisitions served by the shared handle because the pool was full.",
	})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Monitored operation durations by monitor and status.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"monitor", "status"})

	slowOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operation_slow_total",
		Help:      "Operations slower than their monitor threshold.",
	}, []string{"monitor"})

	trackedErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "errors_tracked_total",
		Help:      "Error events by severity and outcome (recorded or suppressed).",
	}, []string{"severity", "outcome"})

	sessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_transitions_total",
		Help:      "Session state transitions by target phase and triggering operation.",
	}, []string{"phase", "operation"})
)

func CacheLookup(cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(cache, result).Inc()
}

func CacheEvicted(cache, reason string, n int) {
	if n <= 0 {
		return
	}
	cacheEvictions.WithLabelValues(cache, reason).Add(float64(n))
}

func RetryAttempt(operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	retryAttempts.WithLabelValues(operation, result).Inc()
}

func FallbackResolved(tier string) {
	fallbackOutcomes.WithLabelValues(tier).Inc()
}

func PoolSize(active, idle int) {
	poolConnections.WithLabelValues("active").Set(float64(active))
	poolConnections.WithLabelValues("idle").Set(float64(idle))
}

func PoolExhausted() {
	poolExhausted.Inc()
}

func OperationFinished(monitor, status string, d time.Duration, slow bool) {
	operationDuration.WithLabelValues(monitor, status).Observe(d.Seconds())
	if slow {
		slowOperations.WithLabelValues(monitor).Inc()
	}
}

func ErrorTracked(severity string, suppressed bool) {
	outcome := "recorded"
	if suppressed {
		outcome = "suppressed"
	}
	trackedErrors.WithLabelValues(severity, outcome).Inc()
}

func SessionTransition(phase, operation string) {
	sessionTransitions.WithLabelValues(phase, operation).Inc()
}
