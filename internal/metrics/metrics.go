// Package metrics exposes Prometheus collectors for the refresh pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors updated by the refresh service.
type Metrics struct {
	RefreshAttempts *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	Records         prometheus.Gauge
	Duplicates      prometheus.Counter
	Malformed       *prometheus.CounterVec
	LastSuccess     prometheus.Gauge
	AppliedSequence prometheus.Gauge
}

// New registers the collectors on reg. A nil reg creates unregistered
// collectors, which is what tests usually want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RefreshAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ioc_refresh_attempts_total",
				Help: "Feed refresh attempts by outcome and trigger",
			},
			[]string{"status", "trigger"},
		),
		RefreshDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "ioc_refresh_duration_seconds",
				Help:    "Time spent fetching and applying the feed",
				Buckets: prometheus.DefBuckets,
			},
		),
		Records: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ioc_records",
				Help: "Records in the currently applied dataset",
			},
		),
		Duplicates: f.NewCounter(
			prometheus.CounterOpts{
				Name: "ioc_duplicates_dropped_total",
				Help: "Records dropped as duplicates during ingestion",
			},
		),
		Malformed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ioc_records_flagged_total",
				Help: "Ingested records flagged by classification, by reason",
			},
			[]string{"reason"},
		),
		LastSuccess: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ioc_last_refresh_success_timestamp_seconds",
				Help: "Unix time of the last applied refresh",
			},
		),
		AppliedSequence: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "ioc_applied_sequence",
				Help: "Sequence number of the applied refresh",
			},
		),
	}
}
