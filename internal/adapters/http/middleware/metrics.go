package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// httpRequestsTotal counts total HTTP requests
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledgerhub",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// httpRequestDuration measures request latency
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledgerhub",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// httpRequestsInFlight tracks concurrent requests
	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ledgerhub",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// httpResponseSize measures response body size
	httpResponseSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledgerhub",
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8), // 100B to 10GB
		},
		[]string{"method", "path"},
	)
)

// Business metrics
var (
	// TransfersTotal counts transfers by outcome.
	// status: completed, failed, replayed
	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledgerhub",
			Subsystem: "business",
			Name:      "transfers_total",
			Help:      "Total number of transfer requests",
		},
		[]string{"status"},
	)

	// InterestCalculationsTotal counts interest calculations by result.
	// result: applied, replayed, error
	InterestCalculationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledgerhub",
			Subsystem: "business",
			Name:      "interest_calculations_total",
			Help:      "Total number of daily interest calculations",
		},
		[]string{"result"},
	)

	// WalletsCreatedTotal counts created wallets
	WalletsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledgerhub",
			Subsystem: "business",
			Name:      "wallets_created_total",
			Help:      "Total number of wallets created",
		},
	)

	// OutboxEventsTotal counts outbox events by relay outcome.
	// outcome: published, failed
	OutboxEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ledgerhub",
			Subsystem: "outbox",
			Name:      "events_total",
			Help:      "Total number of outbox events processed by the relay",
		},
		[]string{"outcome"},
	)
)

// Database metrics
var (
	// DBQueryDuration measures database query latency
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ledgerhub",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation", "table"},
	)

	// DBConnectionsTotal tracks database connections
	DBConnectionsTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ledgerhub",
			Subsystem: "db",
			Name:      "connections",
			Help:      "Number of database connections",
		},
		[]string{"state"}, // idle, in_use, max
	)

	// SerializationRetriesTotal counts SERIALIZABLE transaction restarts
	SerializationRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ledgerhub",
			Subsystem: "db",
			Name:      "serialization_retries_total",
			Help:      "Total number of serialization failure retries",
		},
	)
)

// Metrics returns Prometheus metrics middleware
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics endpoint
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		method := c.Request.Method

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		duration := time.Since(start).Seconds()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(c.Writer.Size()))
	}
}

// RecordTransfer records a transfer outcome metric
func RecordTransfer(status string) {
	TransfersTotal.WithLabelValues(status).Inc()
}

// RecordInterestCalculation records an interest calculation outcome metric
func RecordInterestCalculation(result string) {
	InterestCalculationsTotal.WithLabelValues(result).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// UpdateDBConnections updates database connection metrics
func UpdateDBConnections(idle, inUse, max int32) {
	DBConnectionsTotal.WithLabelValues("idle").Set(float64(idle))
	DBConnectionsTotal.WithLabelValues("in_use").Set(float64(inUse))
	DBConnectionsTotal.WithLabelValues("max").Set(float64(max))
}
