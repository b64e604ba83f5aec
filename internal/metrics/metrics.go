package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/halim/toolgate/pkg/engine"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	registry *prometheus.Registry

	InvocationsTotal   *prometheus.CounterVec
	InvocationDuration *prometheus.HistogramVec
	UpstreamResponses  *prometheus.CounterVec
	RegistrySyncsTotal prometheus.Counter
}

// New creates and registers all metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		InvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_invocations_total",
				Help: "Total number of tool invocations by terminal status",
			},
			[]string{"tool_id", "status"},
		),
		InvocationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_invocation_duration_seconds",
				Help:    "Duration of tool invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_id"},
		),
		UpstreamResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_upstream_responses_total",
				Help: "Upstream HTTP responses by status code",
			},
			[]string{"code"},
		),
		RegistrySyncsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tool_registry_syncs_total",
				Help: "Total number of tool registry syncs",
			},
		),
	}

	registry.MustRegister(
		m.InvocationsTotal,
		m.InvocationDuration,
		m.UpstreamResponses,
		m.RegistrySyncsTotal,
	)

	return m
}

// ObserveInvocation implements engine.Observer.
func (m *Metrics) ObserveInvocation(toolID string, status engine.Status, duration time.Duration) {
	m.InvocationsTotal.WithLabelValues(toolID, string(status)).Inc()
	m.InvocationDuration.WithLabelValues(toolID).Observe(duration.Seconds())
}

// ObserveUpstreamStatus implements engine.Observer.
func (m *Metrics) ObserveUpstreamStatus(statusCode int) {
	m.UpstreamResponses.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// ObserveRegistrySync implements registry.Observer.
func (m *Metrics) ObserveRegistrySync() {
	m.RegistrySyncsTotal.Inc()
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
