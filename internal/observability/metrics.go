package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// data-prep pipeline.
type Metrics struct {
	RowsJoined            prometheus.Gauge
	FacilitiesPartitioned prometheus.Gauge
	SplitRows             *prometheus.GaugeVec // labels: split={train,val,test}
	SetupDuration         prometheus.Histogram
	DataModuleReady       prometheus.Gauge

	// Streaming metrics.
	SamplesStreamed *prometheus.CounterVec // labels: split
	BatchesEmitted  *prometheus.CounterVec // labels: split
	StreamErrors    *prometheus.CounterVec // labels: split

	// Image fetch metrics (recorded by the COG adapter).
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error}
	FetchDuration prometheus.Histogram
	FetchCache    *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RowsJoined: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "emissions_prep",
			Name:      "rows_joined",
			Help:      "Rows in the canonical joined table after the last setup.",
		}),
		FacilitiesPartitioned: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "emissions_prep",
			Name:      "facilities_partitioned",
			Help:      "Distinct facilities partitioned into train/val.",
		}),
		SplitRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "emissions_prep",
			Name:      "split_rows",
			Help:      "Rows labeled per split after the last setup.",
		}, []string{"split"}),
		SetupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emissions_prep",
			Name:      "setup_duration_seconds",
			Help:      "Duration of a complete join-partition-label setup.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		DataModuleReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "emissions_prep",
			Name:      "datamodule_ready",
			Help:      "1 once setup has completed successfully, 0 before.",
		}),
		SamplesStreamed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emissions_prep",
			Name:      "samples_streamed_total",
			Help:      "Samples yielded to batch consumers by split.",
		}, []string{"split"}),
		BatchesEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emissions_prep",
			Name:      "batches_emitted_total",
			Help:      "Batches handed to the consumer by split.",
		}, []string{"split"}),
		StreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emissions_prep",
			Name:      "stream_errors_total",
			Help:      "Fatal streaming errors by split.",
		}, []string{"split"}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emissions_prep",
			Name:      "fetch_requests_total",
			Help:      "COG crop requests by outcome.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "emissions_prep",
			Name:      "fetch_duration_seconds",
			Help:      "COG tiler request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "emissions_prep",
			Name:      "fetch_cache_total",
			Help:      "Image cache lookups by result.",
		}, []string{"result"}),
	}

	prometheus.MustRegister(
		m.RowsJoined,
		m.FacilitiesPartitioned,
		m.SplitRows,
		m.SetupDuration,
		m.DataModuleReady,
		m.SamplesStreamed,
		m.BatchesEmitted,
		m.StreamErrors,
		m.FetchRequests,
		m.FetchDuration,
		m.FetchCache,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RowsJoined:            prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "emissions_prep", Name: "rows_joined"}),
		FacilitiesPartitioned: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "emissions_prep", Name: "facilities_partitioned"}),
		SplitRows:             prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "emissions_prep", Name: "split_rows"}, []string{"split"}),
		SetupDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "emissions_prep", Name: "setup_duration_seconds"}),
		DataModuleReady:       prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "emissions_prep", Name: "datamodule_ready"}),
		SamplesStreamed:       prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "emissions_prep", Name: "samples_streamed_total"}, []string{"split"}),
		BatchesEmitted:        prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "emissions_prep", Name: "batches_emitted_total"}, []string{"split"}),
		StreamErrors:          prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "emissions_prep", Name: "stream_errors_total"}, []string{"split"}),
		FetchRequests:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "emissions_prep", Name: "fetch_requests_total"}, []string{"outcome"}),
		FetchDuration:         prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "emissions_prep", Name: "fetch_duration_seconds"}),
		FetchCache:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "emissions_prep", Name: "fetch_cache_total"}, []string{"result"}),
	}
}
