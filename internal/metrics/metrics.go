// Package metrics provides Prometheus metrics for the tracker daemon.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the daemon.
type Metrics struct {
	TicksTotal         prometheus.Counter
	SamplerErrorsTotal *prometheus.CounterVec
	TransitionsTotal   *prometheus.CounterVec
	ActivitiesRecorded prometheus.Counter
	SprintsRecorded    prometheus.Counter
	StorageWritesTotal *prometheus.CounterVec
	StorageWriteTime   *prometheus.HistogramVec
	Tracking           prometheus.Gauge

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		TicksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "focustrack_ticks_total",
				Help: "Total number of tracker ticks evaluated.",
			},
		),
		SamplerErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focustrack_sampler_errors_total",
				Help: "Sampler failures that caused a tick to be skipped, by query.",
			},
			[]string{"query"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focustrack_transitions_total",
				Help: "Tracker state transitions by kind.",
			},
			[]string{"kind"},
		),
		ActivitiesRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "focustrack_activities_recorded_total",
				Help: "Closed activity entries appended to history.",
			},
		),
		SprintsRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "focustrack_sprints_recorded_total",
				Help: "Sprints appended to the sprint log.",
			},
		),
		StorageWritesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "focustrack_storage_writes_total",
				Help: "Whole-file writes by key and result.",
			},
			[]string{"key", "result"},
		),
		StorageWriteTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "focustrack_storage_write_duration_seconds",
				Help:    "Whole-file write duration by key.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"key"},
		),
		Tracking: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "focustrack_tracking",
				Help: "1 while an activity entry is open, 0 when idle.",
			},
		),
		registry: reg,
	}

	reg.MustRegister(m.TicksTotal)
	reg.MustRegister(m.SamplerErrorsTotal)
	reg.MustRegister(m.TransitionsTotal)
	reg.MustRegister(m.ActivitiesRecorded)
	reg.MustRegister(m.SprintsRecorded)
	reg.MustRegister(m.StorageWritesTotal)
	reg.MustRegister(m.StorageWriteTime)
	reg.MustRegister(m.Tracking)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSamplerError increments the sampler error counter.
func (m *Metrics) RecordSamplerError(query string) {
	m.SamplerErrorsTotal.WithLabelValues(query).Inc()
}

// RecordTransition increments the transition counter.
func (m *Metrics) RecordTransition(kind string) {
	m.TransitionsTotal.WithLabelValues(kind).Inc()
}

// RecordWrite records the outcome and duration of one storage write.
func (m *Metrics) RecordWrite(key string, seconds float64, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StorageWritesTotal.WithLabelValues(key, result).Inc()
	m.StorageWriteTime.WithLabelValues(key).Observe(seconds)
}

// SetTracking sets the tracking gauge.
func (m *Metrics) SetTracking(open bool) {
	if open {
		m.Tracking.Set(1)
		return
	}
	m.Tracking.Set(0)
}
