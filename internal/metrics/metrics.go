// Package metrics holds the bridge's prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains every collector the bridge records. All collectors live
// on a private registry so tests can build as many instances as they want
// without global registration conflicts.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal          *prometheus.CounterVec
	PrintsTotal            *prometheus.CounterVec
	DrawerKicksTotal       *prometheus.CounterVec
	RetryAttemptsTotal     *prometheus.CounterVec
	PrinterReconnectsTotal prometheus.Counter
	PrintDurationSeconds   prometheus.Histogram
}

// New creates and registers all bridge metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eposproxy",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Print requests received, by recognized intent",
			},
			[]string{"intent"},
		),

		PrintsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eposproxy",
				Subsystem: "printer",
				Name:      "prints_total",
				Help:      "Receipt print attempts, by final result",
			},
			[]string{"result"},
		),

		DrawerKicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eposproxy",
				Subsystem: "printer",
				Name:      "drawer_kicks_total",
				Help:      "Cash drawer kicks, by final result",
			},
			[]string{"result"},
		),

		RetryAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eposproxy",
				Subsystem: "printer",
				Name:      "retry_attempts_total",
				Help:      "Extra attempts beyond the first, by operation",
			},
			[]string{"operation"},
		),

		PrinterReconnectsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "eposproxy",
				Subsystem: "printer",
				Name:      "reconnects_total",
				Help:      "Forced transport teardowns after failed operations",
			},
		),

		PrintDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "eposproxy",
				Subsystem: "printer",
				Name:      "print_duration_seconds",
				Help:      "Wall time of successful prints, retries included",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.PrintsTotal,
		m.DrawerKicksTotal,
		m.RetryAttemptsTotal,
		m.PrinterReconnectsTotal,
		m.PrintDurationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler serves the registry in prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
