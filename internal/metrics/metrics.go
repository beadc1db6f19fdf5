// Package metrics exposes Prometheus instrumentation for the alerts API.
//
// Naming follows Prometheus conventions: alertd_ prefix, _total suffix for
// counters and _seconds for duration histograms.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so independent servers (and tests) do
// not collide on the default one.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	faults   *prometheus.CounterVec
}

// New registers the collectors. alertCount backs the alertd_alerts gauge
// and may be nil.
func New(alertCount func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertd_http_requests_total",
				Help: "HTTP requests by operation and response status.",
			},
			[]string{"operation", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alertd_http_request_duration_seconds",
				Help:    "Handler latency by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		faults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alertd_handler_faults_total",
				Help: "Faults intercepted by the response wrapper by operation and error code.",
			},
			[]string{"operation", "code"},
		),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.faults,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if alertCount != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "alertd_alerts",
				Help: "Alerts currently held in the store.",
			},
			func() float64 { return float64(alertCount()) },
		))
	}
	return m
}

func (m *Metrics) ObserveRequest(operation string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveFault(operation, code string) {
	if m == nil {
		return
	}
	m.faults.WithLabelValues(operation, code).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests and for embedding extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
