// Package metrics exposes Prometheus collectors for pipeline observability.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors recorded during pipeline runs. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	runsTotal            *prometheus.CounterVec
	stepDurationSeconds  *prometheus.HistogramVec
	downloadedBytesTotal prometheus.Counter
}

// New creates the pipeline collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics
// endpoint.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gaiacore_pipeline_runs_total",
				Help: "Total pipeline runs by terminal outcome",
			},
			[]string{"outcome"},
		),
		stepDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gaiacore_pipeline_step_duration_seconds",
				Help:    "Duration of each pipeline step",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"step"},
		),
		downloadedBytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gaiacore_downloaded_bytes_total",
				Help: "Total bytes downloaded across all pipeline runs",
			},
		),
	}

	reg.MustRegister(
		m.runsTotal,
		m.stepDurationSeconds,
		m.downloadedBytesTotal,
	)

	return m
}

// RecordRun counts a finished run under its terminal outcome.
func (m *Metrics) RecordRun(outcome string) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(outcome).Inc()
}

// RecordStepDuration observes how long one pipeline step took.
func (m *Metrics) RecordStepDuration(step string, seconds float64) {
	if m == nil {
		return
	}
	m.stepDurationSeconds.WithLabelValues(step).Observe(seconds)
}

// AddDownloadedBytes accumulates transfer volume.
func (m *Metrics) AddDownloadedBytes(n int64) {
	if m == nil {
		return
	}
	m.downloadedBytesTotal.Add(float64(n))
}
