// Package metrics exposes Prometheus series for scrape runs. Every method is
// safe on a nil *Metrics, which disables collection.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeRetry   = "retry"
	OutcomeFailed  = "failed"
)

// Metrics holds the scraper's collectors.
type Metrics struct {
	FetchAttempts *prometheus.CounterVec
	CacheHits     prometheus.Counter
	Batches       *prometheus.CounterVec
	Records       *prometheus.CounterVec
	UnitFailures  prometheus.Counter
	SweepDuration *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vitiscrape_fetch_attempts_total",
			Help: "Page fetch attempts by outcome",
		}, []string{"outcome"}),
		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "vitiscrape_pages_cache_hits_total",
			Help: "Pages served from the on-disk cache",
		}),
		Batches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vitiscrape_batches_total",
			Help: "Non-empty batches produced, by option",
		}, []string{"option"}),
		Records: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vitiscrape_records_total",
			Help: "Records extracted, by option",
		}, []string{"option"}),
		UnitFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "vitiscrape_unit_failures_total",
			Help: "Scrape units that failed and were skipped",
		}),
		SweepDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vitiscrape_sweep_duration_seconds",
			Help:    "Wall time of sweeps",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"kind"}),
	}
}

func (m *Metrics) FetchAttempt(outcome string) {
	if m == nil {
		return
	}
	m.FetchAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.CacheHits.Inc()
}

// BatchDone counts one non-empty batch and its records.
func (m *Metrics) BatchDone(option string, records int) {
	if m == nil {
		return
	}
	m.Batches.WithLabelValues(option).Inc()
	m.Records.WithLabelValues(option).Add(float64(records))
}

func (m *Metrics) UnitFailed() {
	if m == nil {
		return
	}
	m.UnitFailures.Inc()
}

// ObserveSweep records the duration of a sweep started at start.
func (m *Metrics) ObserveSweep(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.SweepDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
