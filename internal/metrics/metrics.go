package metrics

import (
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pesaflow"

// Metrics holds every collector the service exports. A nil *Metrics is valid and
// records nothing, which keeps unit tests free of registry wiring.
type Metrics struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Payment Metrics
	PaymentsInitiated   *prometheus.CounterVec
	GatewayFallbacks    *prometheus.CounterVec
	CallbacksTotal      *prometheus.CounterVec
	TransactionsSettled *prometheus.CounterVec
	SettledAmount       *prometheus.CounterVec
	Withdrawals         *prometheus.CounterVec
	ObserverOutcomes    *prometheus.CounterVec
	ActiveWatchers      prometheus.Gauge
	EventsPublished     *prometheus.CounterVec

	// Database Metrics
	DBConnectionsInUse prometheus.Gauge
	DBConnectionsIdle  prometheus.Gauge
	DBQueryDuration    *prometheus.HistogramVec
	DBQueriesTotal     *prometheus.CounterVec
	DBConnectionErrors prometheus.Counter

	// System Metrics
	ServiceUptime    prometheus.Gauge
	ServiceVersion   *prometheus.GaugeVec
	Goroutines       prometheus.Gauge
	MemoryUsageBytes *prometheus.GaugeVec

	// Validation Metrics
	ValidationErrors *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		HTTPResponseSizeBytes: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   []float64{100, 1000, 10_000, 100_000, 1_000_000},
			},
			[]string{"method", "path", "status_code"},
		),

		PaymentsInitiated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_initiated_total",
				Help:      "Deposit initiations by gateway mode and status",
			},
			[]string{"mode", "status"},
		),
		GatewayFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_fallbacks_total",
				Help:      "Times the simulation gateway replaced the provider",
			},
			[]string{"reason"},
		),
		CallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "callbacks_total",
				Help:      "Provider callbacks by reconciliation result",
			},
			[]string{"result"},
		),
		TransactionsSettled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_settled_total",
				Help:      "Terminal transitions by direction and status",
			},
			[]string{"direction", "status"},
		),
		SettledAmount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settled_amount_total",
				Help:      "Sum of completed transaction amounts in KES",
			},
			[]string{"direction"},
		),
		Withdrawals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "withdrawals_total",
				Help:      "Withdrawal attempts by status",
			},
			[]string{"status"},
		),
		ObserverOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observer_outcomes_total",
				Help:      "Transaction watch outcomes",
			},
			[]string{"outcome"},
		),
		ActiveWatchers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "observer_active_watchers",
				Help:      "Number of transaction watches in progress",
			},
		),
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transaction_events_published_total",
				Help:      "Outbox events forwarded to the broker",
			},
			[]string{"status"},
		),

		DBConnectionsInUse: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_in_use",
				Help:      "Number of database connections currently in use",
			},
		),
		DBConnectionsIdle: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "db_connections_idle",
				Help:      "Number of idle database connections",
			},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "db_query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation", "table"},
		),
		DBQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table", "status"},
		),
		DBConnectionErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "db_connection_errors_total",
				Help:      "Total number of database connection errors",
			},
		),

		ServiceUptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_uptime_seconds",
				Help:      "Service uptime in seconds",
			},
		),
		ServiceVersion: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "service_version_info",
				Help:      "Service version information (labels: version, commit, build_date)",
			},
			[]string{"version", "commit", "build_date"},
		),
		Goroutines: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "goroutines",
				Help:      "Number of goroutines currently running",
			},
		),
		MemoryUsageBytes: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "memory_usage_bytes",
				Help:      "Memory usage in bytes",
			},
			[]string{"type"},
		),

		ValidationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_errors_total",
				Help:      "Total number of validation errors",
			},
			[]string{"field", "tag"},
		),
	}
}

// --- Recording Methods ---

func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(duration.Seconds())
	m.HTTPResponseSizeBytes.WithLabelValues(method, path, statusCode).Observe(float64(responseSize))
}

func (m *Metrics) RequestStarted() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Inc()
}

func (m *Metrics) RequestFinished() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Dec()
}

func (m *Metrics) RecordPaymentInitiated(mode, status string) {
	if m == nil {
		return
	}
	m.PaymentsInitiated.WithLabelValues(mode, status).Inc()
}

func (m *Metrics) RecordGatewayFallback(reason string) {
	if m == nil {
		return
	}
	m.GatewayFallbacks.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordCallback(result string) {
	if m == nil {
		return
	}
	m.CallbacksTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordSettlement(direction, status string, amount int64) {
	if m == nil {
		return
	}
	m.TransactionsSettled.WithLabelValues(direction, status).Inc()
	if status == "COMPLETED" {
		m.SettledAmount.WithLabelValues(direction).Add(float64(amount))
	}
}

func (m *Metrics) RecordWithdrawal(status string) {
	if m == nil {
		return
	}
	m.Withdrawals.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordObserverOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ObserverOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WatchStarted() {
	if m == nil {
		return
	}
	m.ActiveWatchers.Inc()
}

func (m *Metrics) WatchFinished() {
	if m == nil {
		return
	}
	m.ActiveWatchers.Dec()
}

func (m *Metrics) RecordEventPublished(status string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordDBQuery(operation, table, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

func (m *Metrics) RecordDBConnectionError() {
	if m == nil {
		return
	}
	m.DBConnectionErrors.Inc()
}

func (m *Metrics) UpdateDBConnections(inUse, idle int) {
	if m == nil {
		return
	}
	m.DBConnectionsInUse.Set(float64(inUse))
	m.DBConnectionsIdle.Set(float64(idle))
}

func (m *Metrics) RecordValidationError(field, tag string) {
	if m == nil {
		return
	}
	m.ValidationErrors.WithLabelValues(field, tag).Inc()
}

// UpdateSystemMetrics updates system-level metrics (goroutines, uptime, memory).
func (m *Metrics) UpdateSystemMetrics(uptime time.Duration, memStats *runtime.MemStats) {
	if m == nil {
		return
	}
	m.ServiceUptime.Set(uptime.Seconds())
	m.Goroutines.Set(float64(runtime.NumGoroutine()))

	m.MemoryUsageBytes.WithLabelValues("alloc").Set(float64(memStats.Alloc))
	m.MemoryUsageBytes.WithLabelValues("total_alloc").Set(float64(memStats.TotalAlloc))
	m.MemoryUsageBytes.WithLabelValues("sys").Set(float64(memStats.Sys))
	m.MemoryUsageBytes.WithLabelValues("heap_alloc").Set(float64(memStats.HeapAlloc))
	m.MemoryUsageBytes.WithLabelValues("heap_sys").Set(float64(memStats.HeapSys))
}

// SetServiceVersion sets the service version information (only once per start).
func (m *Metrics) SetServiceVersion(version, commit, buildDate string) {
	if m == nil {
		return
	}
	m.ServiceVersion.WithLabelValues(version, commit, buildDate).Set(1)
}
