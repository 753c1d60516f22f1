// Package metrics exposes Prometheus counters for sign-in outcomes, contact
// intake, HTTP traffic and background tasks.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the service, middleware and worker layers report into.
type Recorder interface {
	RecordAuthAttempt(method, outcome string)
	RecordContactSubmitted()
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
	RecordTaskProcessed(taskType, outcome string)
	RecordContactsPurged(count int64)
}

type Collector struct {
	authAttempts      *prometheus.CounterVec
	contactsSubmitted prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
	tasksProcessed    *prometheus.CounterVec
	contactsPurged    prometheus.Counter
}

var _ Recorder = (*Collector)(nil)

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_auth_attempts_total",
			Help: "Sign-in and sign-up attempts by method and outcome.",
		}, []string{"method", "outcome"}),
		contactsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site_contacts_submitted_total",
			Help: "Contact form submissions accepted.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "site_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		tasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "site_tasks_processed_total",
			Help: "Background tasks handled by type and outcome.",
		}, []string{"type", "outcome"}),
		contactsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "site_contacts_purged_total",
			Help: "Closed contact submissions removed by retention.",
		}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.contactsSubmitted,
		c.httpRequests,
		c.httpLatency,
		c.tasksProcessed,
		c.contactsPurged,
	)

	return c
}

func (c *Collector) RecordAuthAttempt(method, outcome string) {
	c.authAttempts.WithLabelValues(method, outcome).Inc()
}

func (c *Collector) RecordContactSubmitted() {
	c.contactsSubmitted.Inc()
}

func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *Collector) RecordTaskProcessed(taskType, outcome string) {
	c.tasksProcessed.WithLabelValues(taskType, outcome).Inc()
}

func (c *Collector) RecordContactsPurged(count int64) {
	c.contactsPurged.Add(float64(count))
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAuthAttempt(string, string) {}
func (Nop) RecordContactSubmitted() {}
func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordTaskProcessed(string, string) {}
func (Nop) RecordContactsPurged(int64) {}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
