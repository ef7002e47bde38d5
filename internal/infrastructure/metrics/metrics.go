// Package metrics exposes Prometheus collectors for HTTP traffic and
// storefront business activity.
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

const namespace = "storefront"

// Metrics owns a private registry so tests and multiple servers do not share
// global state.
type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	checkouts     *prometheus.CounterVec
	orderRevenue  *prometheus.CounterVec
	orderStatus   *prometheus.CounterVec
	logins        *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	eventHandlers *prometheus.HistogramVec
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
}

// New creates and registers every collector
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "http",
			Name: "inflight_requests",
			Help: "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http",
			Name: "requests_total",
			Help: "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http",
			Name:    "request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "checkout",
			Name: "attempts_total",
			Help: "Checkout attempts by outcome.",
		}, []string{"result"}),
		orderRevenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders",
			Name: "placed_amount_total",
			Help: "Sum of placed order totals.",
		}, []string{"currency"}),
		orderStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "orders",
			Name: "transitions_total",
			Help: "Order status transitions by target status.",
		}, []string{"status"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "auth",
			Name: "logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"result"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "cache",
			Name: "lookups_total",
			Help: "Catalog cache lookups by result.",
		}, []string{"result"}),
		eventHandlers: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "events",
			Name:    "handler_duration_seconds",
			Help:    "Duration of domain event handlers.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"event_type", "success"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "scheduler",
			Name: "job_runs_total",
			Help: "Scheduled job runs.",
		}, []string{"job", "success"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "scheduler",
			Name:    "job_run_duration_seconds",
			Help:    "Duration of scheduled job runs.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"job"}),
	}

	m.Registry.MustRegister(
		m.httpInFlight, m.httpRequests, m.httpDuration,
		m.checkouts, m.orderRevenue, m.orderStatus,
		m.logins, m.cacheLookups, m.eventHandlers,
		m.jobRuns, m.jobDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// GinMiddleware records request counts and latency. The matched route
// template is used as the label so IDs do not explode cardinality.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Checkout outcomes
const (
	CheckoutPlaced     = "placed"
	CheckoutReplayed   = "replayed"
	CheckoutOutOfStock = "out_of_stock"
	CheckoutFailed     = "failed"
)

// RecordCheckout counts one checkout attempt
func (m *Metrics) RecordCheckout(result string) {
	m.checkouts.WithLabelValues(result).Inc()
}

// RecordOrderPlaced adds a placed order's total to the revenue counter
func (m *Metrics) RecordOrderPlaced(currency string, total float64) {
	m.orderRevenue.WithLabelValues(currency).Add(total)
}

// RecordOrderTransition counts a status change
func (m *Metrics) RecordOrderTransition(status string) {
	m.orderStatus.WithLabelValues(status).Inc()
}

// RecordLogin counts a login attempt (success, invalid, locked)
func (m *Metrics) RecordLogin(result string) {
	m.logins.WithLabelValues(result).Inc()
}

// RecordCacheLookup counts a cache hit or miss
func (m *Metrics) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveEventHandler matches event.DispatchObserver
func (m *Metrics) ObserveEventHandler(eventType string, d time.Duration, err error) {
	m.eventHandlers.WithLabelValues(eventType, strconv.FormatBool(err == nil)).Observe(d.Seconds())
}

// RecordJobRun records one scheduled job execution
func (m *Metrics) RecordJobRun(job string, d time.Duration, err error) {
	m.jobRuns.WithLabelValues(job, strconv.FormatBool(err == nil)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}
