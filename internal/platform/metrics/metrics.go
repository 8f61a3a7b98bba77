// Package metrics exposes bus counters, runner state and HTTP request
// instrumentation to Prometheus.
package metrics

import (
	"net/http"

	"github.com/phrazzld/eventhost/internal/events"
	"github.com/phrazzld/eventhost/internal/hosted"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventhost"

// StatsSource supplies bus counters.
type StatsSource interface {
	Stats() events.Stats
}

// StateSource supplies the hosted runner state.
type StateSource interface {
	Name() string
	State() hosted.State
}

// Metrics owns a private registry so tests and multiple instances do not
// collide on the global one.
type Metrics struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestsTotal   *prometheus.CounterVec
}

// New creates the registry and registers the bus, runner, Go runtime and
// HTTP collectors.
func New(stats StatsSource, runner StateSource) (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"code", "method"},
		),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Count of all HTTP requests processed, labeled by method and status code.",
			},
			[]string{"code", "method"},
		),
	}

	toRegister := []prometheus.Collector{
		m.requestDuration,
		m.requestsTotal,
		newBusCollector(stats, runner),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware instruments HTTP requests.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(
		m.requestDuration,
		promhttp.InstrumentHandlerCounter(m.requestsTotal, next),
	)
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
