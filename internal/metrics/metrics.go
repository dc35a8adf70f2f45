// Package metrics defines the Prometheus collectors the server exports at
// /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "briefme"

// Metrics owns a registry so that tests and multiple servers in one process
// do not collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	briefings           *prometheus.CounterVec
	responsesSubmitted  prometheus.Counter
	submissionsRejected prometheus.Counter
	persistenceFailures prometheus.Counter
	logins              *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		briefings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "briefing_changes_total",
			Help:      "Briefings created, updated and deleted.",
		}, []string{"op"}),
		responsesSubmitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "responses_submitted_total",
			Help:      "Responses accepted and persisted.",
		}),
		submissionsRejected: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_rejected_total",
			Help:      "Form submissions rejected by validation.",
		}),
		persistenceFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persistence_failures_total",
			Help:      "Collection saves that returned an error.",
		}),
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_attempts_total",
			Help:      "Signup and login attempts by outcome.",
		}, []string{"kind", "outcome"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Briefing operations.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

func (m *Metrics) BriefingChanged(op string) { m.briefings.WithLabelValues(op).Inc() }
func (m *Metrics) ResponseSubmitted()        { m.responsesSubmitted.Inc() }
func (m *Metrics) SubmissionRejected()       { m.submissionsRejected.Inc() }
func (m *Metrics) PersistenceFailed()        { m.persistenceFailures.Inc() }

// AuthAttempt records a signup or login; kind is "signup" or "login".
func (m *Metrics) AuthAttempt(kind string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.logins.WithLabelValues(kind, outcome).Inc()
}

// ObserveRequest records one finished HTTP request. route is the router
// pattern, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry, for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
