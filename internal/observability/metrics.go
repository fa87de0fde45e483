package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a map run
// and for the preview server.
type Metrics struct {
	// Archive fetcher.
	ArchiveDownloads *prometheus.CounterVec // labels: dataset, outcome={downloaded,cached,error}
	ArchiveBytes     prometheus.Counter

	// Pipeline.
	RecordsQueried   prometheus.Gauge
	FeaturesRendered prometheus.Gauge
	StageDuration    *prometheus.HistogramVec // labels: stage
	MapsWritten      prometheus.Counter
	EventsPublished  *prometheus.CounterVec // labels: outcome={success,error}

	// Preview server.
	MapsServed prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ArchiveDownloads,
		m.ArchiveBytes,
		m.RecordsQueried,
		m.FeaturesRendered,
		m.StageDuration,
		m.MapsWritten,
		m.EventsPublished,
		m.MapsServed,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ArchiveDownloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overdose_map",
			Name:      "archive_downloads_total",
			Help:      "Boundary archive fetches by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		ArchiveBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overdose_map",
			Name:      "archive_bytes_total",
			Help:      "Bytes of boundary archives downloaded.",
		}),
		RecordsQueried: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "overdose_map",
			Name:      "records_queried",
			Help:      "Rows returned by the overdose store for the last run.",
		}),
		FeaturesRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "overdose_map",
			Name:      "features_rendered",
			Help:      "County features in the last rendered map.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "overdose_map",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),
		MapsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overdose_map",
			Name:      "maps_written_total",
			Help:      "HTML maps written to disk.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "overdose_map",
			Name:      "events_published_total",
			Help:      "Map-generated events published by outcome.",
		}, []string{"outcome"}),
		MapsServed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "overdose_map",
			Name:      "maps_served_total",
			Help:      "Map files served by the preview server.",
		}),
	}
}

// WriteTextfile dumps the default registry to path in the Prometheus text
// format, for pickup by the node exporter textfile collector.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
