package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// download and processing phases.
type Metrics struct {
	Downloads        *prometheus.CounterVec   // labels: dataset, outcome={fetched,skipped,not_found,failed}
	FilesProcessed   *prometheus.CounterVec   // labels: dataset, outcome={processed,empty,failed}
	RowsWritten      *prometheus.CounterVec   // labels: dataset
	DownloadDuration *prometheus.HistogramVec // labels: dataset
	PipelineRunning  prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		Downloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "downloads_total",
			Help:      "Download tasks by dataset and outcome.",
		}, []string{"dataset", "outcome"}),
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "files_processed_total",
			Help:      "Raw files handled by the processing phase, by outcome.",
		}, []string{"dataset", "outcome"}),
		RowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "climate_etl",
			Name:      "rows_written_total",
			Help:      "Observation rows written to processed CSV output.",
		}, []string{"dataset"}),
		DownloadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "climate_etl",
			Name:      "download_duration_seconds",
			Help:      "Duration of a single download task, network fetches only.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"dataset"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "climate_etl",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline step is active, 0 otherwise.",
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Downloads,
		m.FilesProcessed,
		m.RowsWritten,
		m.DownloadDuration,
		m.PipelineRunning,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
