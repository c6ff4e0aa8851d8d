// Package metrics exposes Prometheus collectors for synthesis requests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status values for the synthesis counter.
const (
	StatusDone    = "done"
	StatusError   = "error"   // backend reported a conversion error
	StatusTimeout = "timeout" // still pending at the deadline
	StatusFailed  = "failed"  // validation, lookup or transport failure
)

// Metrics holds the collectors and the registry they are registered on.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration prometheus.Histogram
	polls    prometheus.Histogram
}

// New creates collectors registered on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "respeecher",
			Name:      "synthesis_requests_total",
			Help:      "Synthesis requests by final status.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "respeecher",
			Name:      "synthesis_duration_seconds",
			Help:      "Wall time of a synthesis request, including polling and download.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		}),
		polls: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "respeecher",
			Name:      "conversion_polls",
			Help:      "Status fetches needed before a conversion finished.",
			Buckets:   prometheus.LinearBuckets(1, 2, 10),
		}),
	}
	m.registry.MustRegister(m.requests, m.duration, m.polls)
	return m
}

// Observe records one finished request.
func (m *Metrics) Observe(status string, d time.Duration, polls int) {
	m.requests.WithLabelValues(status).Inc()
	m.duration.Observe(d.Seconds())
	if status == StatusDone && polls > 0 {
		m.polls.Observe(float64(polls))
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
