package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion engine.
type Metrics struct {
	RunsTotal       *prometheus.CounterVec // labels: outcome={success,failure}
	FallbackFetches prometheus.Counter
	PointsAppended  prometheus.Counter
	StoreRewrites   prometheus.Counter

	RunDuration      prometheus.Histogram
	WindowEnd        prometheus.Gauge
	LastSuccess      prometheus.Gauge
	DaemonRunning    prometheus.Gauge
	KafkaPublished   prometheus.Counter
	KafkaPublishErrs prometheus.Counter
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RunsTotal,
		m.FallbackFetches,
		m.PointsAppended,
		m.StoreRewrites,
		m.RunDuration,
		m.WindowEnd,
		m.LastSuccess,
		m.DaemonRunning,
		m.KafkaPublished,
		m.KafkaPublishErrs,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dst_ingest",
			Name:      "runs_total",
			Help:      "Completed ingestion runs by outcome.",
		}, []string{"outcome"}),
		FallbackFetches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dst_ingest",
			Name:      "fallback_fetches_total",
			Help:      "Runs that needed the previous-month archive document.",
		}),
		PointsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dst_ingest",
			Name:      "points_appended_total",
			Help:      "New hourly points appended to the store.",
		}),
		StoreRewrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dst_ingest",
			Name:      "store_rewrites_total",
			Help:      "Full store rewrites (first run or forced rebuild).",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dst_ingest",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-parse-build-persist run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		WindowEnd: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dst_ingest",
			Name:      "window_end_timestamp_seconds",
			Help:      "Unix time of the anchor hour last published.",
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dst_ingest",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		DaemonRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dst_ingest",
			Name:      "daemon_running",
			Help:      "1 while the interval loop is active, 0 when shut down.",
		}),
		KafkaPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dst_ingest",
			Name:      "kafka_points_published_total",
			Help:      "Points published to the Kafka sink topic.",
		}),
		KafkaPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "dst_ingest",
			Name:      "kafka_publish_errors_total",
			Help:      "Failed Kafka publishes (non-fatal to the run).",
		}),
	}
}
