// Package metrics holds the Prometheus collectors of the API: HTTP traffic
// plus a few maintenance counters. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plantmaint"

// Metrics is the collector set registered on its own registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	httpInFlight prometheus.Gauge

	ordersCreated    prometheus.Counter
	statusChanges    *prometheus.CounterVec
	tasksCompleted   prometheus.Counter
	tasksReopened    prometheus.Counter
	exports          prometheus.Counter
	dashboardRefresh prometheus.Histogram
	liveClients      prometheus.Gauge
	authFailures     *prometheus.CounterVec
}

// New builds and registers every collector.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Requests currently being served.",
		}),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_orders_created_total",
			Help:      "Service orders created.",
		}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_order_status_changes_total",
			Help:      "Service order status transitions by target status.",
		}, []string{"status"}),
		tasksCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preventive_tasks_completed_total",
			Help:      "Preventive tasks marked as done.",
		}),
		tasksReopened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preventive_tasks_reopened_total",
			Help:      "Completed preventive tasks returned to pending for their next cycle.",
		}),
		exports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_exports_total",
			Help:      "Dashboard workbooks generated.",
		}),
		dashboardRefresh: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dashboard_refresh_duration_seconds",
			Help:      "Time to fetch and aggregate the dashboard.",
			Buckets:   prometheus.DefBuckets,
		}),
		liveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_feed_clients",
			Help:      "Open live order feed connections.",
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Failed identity operations by error code.",
		}, []string{"code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration, m.httpInFlight,
		m.ordersCreated, m.statusChanges, m.tasksCompleted, m.tasksReopened,
		m.exports, m.dashboardRefresh, m.liveClients, m.authFailures,
	)
	return m
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// InFlight adjusts the in-flight gauge by delta.
func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.httpInFlight.Add(delta)
}

func (m *Metrics) OrderCreated() {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

func (m *Metrics) TaskCompleted() {
	if m == nil {
		return
	}
	m.tasksCompleted.Inc()
}

func (m *Metrics) TaskReopened() {
	if m == nil {
		return
	}
	m.tasksReopened.Inc()
}

func (m *Metrics) Exported() {
	if m == nil {
		return
	}
	m.exports.Inc()
}

// DashboardRefreshed records how long a refresh took.
func (m *Metrics) DashboardRefreshed(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dashboardRefresh.Observe(elapsed.Seconds())
}

// LiveClients adjusts the open live feed gauge by delta.
func (m *Metrics) LiveClients(delta float64) {
	if m == nil {
		return
	}
	m.liveClients.Add(delta)
}

// AuthFailed counts a failed identity operation.
func (m *Metrics) AuthFailed(code string) {
	if m == nil {
		return
	}
	m.authFailures.WithLabelValues(code).Inc()
}
