package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector the service exports.
// It is built once per registry and passed to the components that record into it.
type Metrics struct {
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthAttemptsCounter prometheus.Counter
	AuthSuccessCounter  prometheus.Counter
	AuthErrorsCounter   *prometheus.CounterVec

	// Database operation metrics
	DbOperationDuration *prometheus.HistogramVec

	// Cache metrics
	CacheLookupsCounter *prometheus.CounterVec

	// Retailer import and assignment metrics
	ImportRowsCounter        *prometheus.CounterVec
	ImportBatchesCounter     *prometheus.CounterVec
	ImportsCounter           *prometheus.CounterVec
	AssignmentChangesCounter *prometheus.CounterVec
	MasterDataOpsCounter     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the service collectors with prefix on reg.
// Pass prometheus.DefaultRegisterer in production and a fresh registry in tests.
func NewMetrics(prefix string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	m := &Metrics{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		AuthAttemptsCounter: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_auth_attempts_total",
				Help: "Total number of login attempts",
			},
		),
		AuthSuccessCounter: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_auth_success_total",
				Help: "Total number of successful logins",
			},
		),
		AuthErrorsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_auth_errors_total",
				Help: "Total number of authentication and authorization failures",
			},
			[]string{"reason"},
		),
		DbOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_db_operation_duration_seconds",
				Help:    "Duration of database operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation_type"},
		),
		CacheLookupsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_cache_lookups_total",
				Help: "Total number of cache lookups by family and result",
			},
			[]string{"family", "result"},
		),
		ImportRowsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_import_rows_total",
				Help: "Total number of CSV rows processed by the retailer import",
			},
			[]string{"result"},
		),
		ImportBatchesCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_import_batches_total",
				Help: "Total number of retailer import batches written",
			},
			[]string{"result"},
		),
		ImportsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_imports_total",
				Help: "Total number of retailer CSV uploads by outcome",
			},
			[]string{"result"},
		),
		AssignmentChangesCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_assignment_changes_total",
				Help: "Total number of retailer assignment rows changed",
			},
			[]string{"operation"},
		),
		MasterDataOpsCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_master_data_operations_total",
				Help: "Total number of master data writes",
			},
			[]string{"entity", "operation"},
		),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}

	return m
}

// TrackDBOperation returns a function that records the duration of a database operation
func (m *Metrics) TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		m.DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordCacheLookup counts a cache hit or miss for a key family
func (m *Metrics) RecordCacheLookup(family string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookupsCounter.WithLabelValues(family, result).Inc()
}

// RecordAuthError counts a rejected request by reason
func (m *Metrics) RecordAuthError(reason string) {
	m.AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// RecordMasterDataOperation counts a create, update or delete on a master data entity
func (m *Metrics) RecordMasterDataOperation(entity, operation string) {
	m.MasterDataOpsCounter.WithLabelValues(entity, operation).Inc()
}

// Middleware records request count and latency labelled by the route pattern
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			method := c.Request().Method
			path := c.Path()

			m.HttpRequestsTotal.WithLabelValues(method, path, status).Inc()
			m.HttpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())

			return err
		}
	}
}

// Handler exposes the registry this Metrics was built on
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
