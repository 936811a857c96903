package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/WessleyAI/rizz-engine/pkg/metrics"
)

// Metrics are the ingest counters. A nil *Metrics records nothing.
type Metrics struct {
	records  *prometheus.CounterVec
	batches  *prometheus.CounterVec
	jobs     *prometheus.CounterVec
	stageDur *prometheus.HistogramVec
	active   prometheus.Gauge
}

// NewMetrics registers the ingest metrics on reg.
func NewMetrics(reg *metrics.Registry) *Metrics {
	return &Metrics{
		records:  reg.Counter("ingest_records_total", "Blocks seen by the indexer", "outcome"),
		batches:  reg.Counter("ingest_batches_total", "Vector store upserts", "outcome"),
		jobs:     reg.Counter("ingest_jobs_total", "URL jobs handled by the worker", "outcome"),
		stageDur: reg.Histogram("ingest_stage_duration_seconds", "Per-stage duration", nil, "stage"),
		active:   reg.Gauge("ingest_active_jobs", "Jobs currently running").WithLabelValues(),
	}
}

func (m *Metrics) record(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.records.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) batch(outcome string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) job(outcome string) {
	if m == nil {
		return
	}
	m.jobs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) stage(name string, start time.Time) {
	if m == nil {
		return
	}
	metrics.Since(m.stageDur.WithLabelValues(name), start)
}

func (m *Metrics) begin() func() {
	if m == nil {
		return func() {}
	}
	m.active.Inc()
	return m.active.Dec
}
