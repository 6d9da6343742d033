// Package metrics exposes Prometheus collectors for the donation engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "food_rescue",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "food_rescue",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "path"},
	)

	donationTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "food_rescue",
			Subsystem: "donation",
			Name:      "transitions_total",
			Help:      "Donation status transitions applied.",
		},
		[]string{"from", "to"},
	)

	pointsAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "food_rescue",
			Subsystem: "points",
			Name:      "awarded_total",
			Help:      "Points written to the ledger, by source.",
		},
		[]string{"source"},
	)

	duplicateAwards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "food_rescue",
			Subsystem: "points",
			Name:      "duplicate_awards_total",
			Help:      "Award attempts resolved to an existing ledger entry.",
		},
		[]string{"source"},
	)

	sweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "food_rescue",
			Subsystem: "expiry",
			Name:      "sweep_runs_total",
			Help:      "Expiry sweep runs by outcome.",
		},
		[]string{"outcome"},
	)

	sweepExpired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "food_rescue",
			Subsystem: "expiry",
			Name:      "donations_expired_total",
			Help:      "Donations moved to EXPIRED by the sweeper.",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "food_rescue",
			Subsystem: "expiry",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of expiry sweeps.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		donationTransitions,
		pointsAwarded,
		duplicateAwards,
		sweepRuns,
		sweepExpired,
		sweepDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

func RecordTransition(from, to string) {
	donationTransitions.WithLabelValues(from, to).Inc()
}

func RecordAward(source string, points int) {
	pointsAwarded.WithLabelValues(source).Add(float64(abs(points)))
}

func RecordDuplicateAward(source string) {
	duplicateAwards.WithLabelValues(source).Inc()
}

// RecordSweep tracks one sweeper run. outcome is "completed" or "skipped".
func RecordSweep(outcome string, expired int, duration time.Duration) {
	sweepRuns.WithLabelValues(outcome).Inc()
	sweepExpired.Add(float64(expired))
	if outcome != "skipped" {
		sweepDuration.Observe(duration.Seconds())
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
