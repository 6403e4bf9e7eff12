package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upstream call outcomes used as the "outcome" label.
const (
	OutcomeSuccess       = "success"
	OutcomeUnavailable   = "unavailable"
	OutcomeTimeout       = "timeout"
	OutcomeUpstreamError = "upstream_error"
	OutcomeProtocolError = "protocol_error"
)

// Metrics owns the service collectors and the registry they live in.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal       *prometheus.CounterVec
	HTTPRequestDuration     *prometheus.HistogramVec
	UpstreamRequests        *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
}

func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled by the service.",
			},
			[]string{"path", "method", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of latencies for HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		UpstreamRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_requests_total",
				Help:      "Count of requests to the upstream forecast API by outcome.",
			},
			[]string{"outcome"},
		),
		UpstreamRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "upstream_request_duration_seconds",
				Help:      "Histogram of upstream forecast API request durations.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.UpstreamRequests,
		m.UpstreamRequestDuration,
	)

	return m
}

// RecordHTTPRequest records one served request.
func (m *Metrics) RecordHTTPRequest(path, method, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(path, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(path, method).Observe(durationSeconds)
}

// RecordUpstreamRequest records one outbound call.
func (m *Metrics) RecordUpstreamRequest(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.UpstreamRequests.WithLabelValues(outcome).Inc()
	m.UpstreamRequestDuration.WithLabelValues(outcome).Observe(durationSeconds)
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
