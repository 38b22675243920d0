package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// ingestion pipeline and the fee endpoint.
type Metrics struct {
	// Ingestion metrics.
	IngestRuns            *prometheus.CounterVec // labels: outcome={success,fallback,error}
	ObservationsPersisted prometheus.Counter
	ObservationsFiltered  prometheus.Counter
	LastIngestSuccess     prometheus.Gauge
	PublisherEnabled      prometheus.Gauge

	// Fee endpoint metrics.
	FeeRequests        *prometheus.CounterVec // labels: outcome (see adapter/http)
	FeeRequestDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		IngestRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delivery_fee",
			Name:      "ingest_runs_total",
			Help:      "Ingestion cycles by outcome.",
		}, []string{"outcome"}),
		ObservationsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "delivery_fee",
			Name:      "observations_persisted_total",
			Help:      "Observations written to the store.",
		}),
		ObservationsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "delivery_fee",
			Name:      "observations_filtered_total",
			Help:      "Parsed observations dropped for stations outside the catalog.",
		}),
		LastIngestSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "delivery_fee",
			Name:      "last_ingest_success_timestamp_seconds",
			Help:      "Unix time of the last successful ingestion cycle.",
		}),
		PublisherEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "delivery_fee",
			Name:      "publisher_enabled",
			Help:      "1 when the Kafka observation publisher is enabled, 0 otherwise.",
		}),
		FeeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "delivery_fee",
			Name:      "fee_requests_total",
			Help:      "Fee requests by outcome.",
		}, []string{"outcome"}),
		FeeRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "delivery_fee",
			Name:      "fee_request_duration_seconds",
			Help:      "Duration of fee calculation including store reads.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}

	prometheus.MustRegister(
		m.IngestRuns,
		m.ObservationsPersisted,
		m.ObservationsFiltered,
		m.LastIngestSuccess,
		m.PublisherEnabled,
		m.FeeRequests,
		m.FeeRequestDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		IngestRuns:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "delivery_fee", Name: "ingest_runs_total"}, []string{"outcome"}),
		ObservationsPersisted: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "delivery_fee", Name: "observations_persisted_total"}),
		ObservationsFiltered:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "delivery_fee", Name: "observations_filtered_total"}),
		LastIngestSuccess:     prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "delivery_fee", Name: "last_ingest_success_timestamp_seconds"}),
		PublisherEnabled:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "delivery_fee", Name: "publisher_enabled"}),
		FeeRequests:           prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "delivery_fee", Name: "fee_requests_total"}, []string{"outcome"}),
		FeeRequestDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "delivery_fee", Name: "fee_request_duration_seconds"}),
	}
}
