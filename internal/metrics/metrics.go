package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     prometheus.CounterVec
	HTTPRequestDuration   prometheus.HistogramVec
	HTTPActiveConnections prometheus.GaugeVec

	// Websocket metrics
	WebsocketConnectionsOpen prometheus.GaugeVec
	WebsocketEventsTotal     prometheus.CounterVec
	WebsocketDeliveriesTotal prometheus.CounterVec
	OnlineUsers              prometheus.Gauge

	// Rate limiting metrics
	RateLimitExceededTotal prometheus.CounterVec

	// Database metrics
	DatabaseQueryDuration prometheus.HistogramVec
	DatabaseQueriesTotal  prometheus.CounterVec

	// Error metrics
	ErrorsTotal prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveConnections: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "http_active_connections",
					Help: "Number of currently active HTTP connections",
				},
				[]string{"method", "path"},
			),

			WebsocketConnectionsOpen: *promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Name: "websocket_connections_open",
					Help: "Number of currently open websocket connections",
				},
				[]string{"kind"},
			),
			WebsocketEventsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_events_total",
					Help: "Total number of websocket events processed",
				},
				[]string{"event", "direction"},
			),
			WebsocketDeliveriesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "websocket_deliveries_total",
					Help: "Total number of targeted websocket deliveries",
				},
				[]string{"event", "outcome"},
			),
			OnlineUsers: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "online_users",
					Help: "Number of users currently registered as online",
				},
			),

			RateLimitExceededTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Total number of rate limited requests",
				},
				[]string{"endpoint"},
			),

			DatabaseQueryDuration: *promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "database_query_duration_seconds",
					Help:    "Database query latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
				},
				[]string{"collection", "operation"},
			),
			DatabaseQueriesTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "database_queries_total",
					Help: "Total number of database queries",
				},
				[]string{"collection", "operation", "status"},
			),

			ErrorsTotal: *promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Total number of application errors",
				},
				[]string{"type", "component"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it if needed
func Get() *Metrics {
	return Initialize()
}

// RecordDatabaseQuery records a database operation's latency and outcome
func RecordDatabaseQuery(collection, operation string, duration time.Duration, err error) {
	m := Get()
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DatabaseQueryDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
	m.DatabaseQueriesTotal.WithLabelValues(collection, operation, status).Inc()
}

// RecordError records an application error by type and component
func RecordError(errType, component string) {
	m := Get()
	m.ErrorsTotal.WithLabelValues(errType, component).Inc()
}
