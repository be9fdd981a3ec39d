// Package metrics records dispatch metrics in a Prometheus registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dispatch outcomes
const (
	OutcomeHandled = "handled"
	OutcomeNoRoute = "no_route"
	OutcomeFailed  = "failed"
)

// Metrics holds all Prometheus metrics for dispatches. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	dispatchesTotal  *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	handlerFailures  *prometheus.CounterVec
	routeMisses      *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics instance with its own registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		dispatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lambo_dispatches_total",
				Help: "Total number of dispatched events by method, status and outcome",
			},
			[]string{"method", "status", "outcome"},
		),

		dispatchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lambo_dispatch_duration_seconds",
				Help:    "Time from normalized request to finished response",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		handlerFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lambo_handler_failures_total",
				Help: "Handler failures converted into error responses",
			},
			[]string{"kind"},
		),

		routeMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lambo_route_misses_total",
				Help: "Requests for which no route matched",
			},
			[]string{"method"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.dispatchesTotal,
		m.dispatchDuration,
		m.handlerFailures,
		m.routeMisses,
	)

	return m
}

// RecordDispatch records one finished dispatch
func (m *Metrics) RecordDispatch(method string, status int, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dispatchesTotal.WithLabelValues(method, strconv.Itoa(status), outcome).Inc()
	m.dispatchDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordHandlerFailure records a failure caught by the executor
func (m *Metrics) RecordHandlerFailure(kind string) {
	if m == nil {
		return
	}
	m.handlerFailures.WithLabelValues(kind).Inc()
}

// RecordRouteMiss records a request no route matched
func (m *Metrics) RecordRouteMiss(method string) {
	if m == nil {
		return
	}
	m.routeMisses.WithLabelValues(method).Inc()
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
