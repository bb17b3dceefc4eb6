// Package metrics collects Prometheus metrics and serves them on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the service exports. It implements
// service.AuthObserver, service.TodoObserver and session.SweepObserver, and
// is fed by the HTTP metrics middleware.
type Collector struct {
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	authEvents    *prometheus.CounterVec
	todoOps       *prometheus.CounterVec
	sessionsSwept prometheus.Counter
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todo_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_auth_events_total",
			Help: "Authentication attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		todoOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_todo_operations_total",
			Help: "Successful todo operations by kind.",
		}, []string{"op"}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todo_sessions_swept_total",
			Help: "Expired sessions removed by the background sweeper.",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpDuration,
		c.authEvents,
		c.todoOps,
		c.sessionsSwept,
	)
	return c
}

// ObserveRequest records one finished HTTP request. route is the router
// pattern ("/api/todos/{id}"), never the raw path, to keep cardinality bounded.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (c *Collector) AuthEvent(method, outcome string) {
	c.authEvents.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) TodoOperation(op string) {
	c.todoOps.WithLabelValues(op).Inc()
}

func (c *Collector) ObserveSessionsSwept(n int64) {
	c.sessionsSwept.Add(float64(n))
}

// Handler returns the Prometheus scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
