package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tide_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the tide pipeline.
type Metrics struct {
	RowsExtracted    prometheus.Counter
	RowsSkipped      *prometheus.CounterVec // labels: reason={header,empty,short}
	ReadingsProduced prometheus.Counter
	SlotsSkipped     *prometheus.CounterVec // labels: reason={blank,bad_time,bad_height,bad_date,no_local_time}
	PagesFetched     *prometheus.CounterVec // labels: source={cache,network}
	FetchDuration    prometheus.Histogram

	RunsTotal      *prometheus.CounterVec // labels: outcome={success,no_data,error}
	RunDuration    prometheus.Histogram
	LastSuccess    prometheus.Gauge
	PipelineActive prometheus.Gauge

	ReadingsPublished prometheus.Counter
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_extracted_total",
			Help:      "Wide table rows extracted from tide pages.",
		}),
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_skipped_total",
			Help:      "Table rows skipped during extraction, by reason.",
		}, []string{"reason"}),
		ReadingsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_produced_total",
			Help:      "Long-form tide readings produced by the reshaper.",
		}),
		SlotsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_skipped_total",
			Help:      "Time/height slots skipped during reshape, by reason.",
		}, []string{"reason"}),
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Tide pages loaded, by source.",
		}, []string{"source"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of network fetches of the tide page.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs, by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-extract-reshape-load run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		PipelineActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline loop is active, 0 when shut down.",
		}),
		ReadingsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_published_total",
			Help:      "Readings written to the Kafka topic.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RowsExtracted,
		m.RowsSkipped,
		m.ReadingsProduced,
		m.SlotsSkipped,
		m.PagesFetched,
		m.FetchDuration,
		m.RunsTotal,
		m.RunDuration,
		m.LastSuccess,
		m.PipelineActive,
		m.ReadingsPublished,
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsWithRegistry creates metrics registered on reg. The CLI uses a
// private registry so its one-shot commands never touch global state.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
