package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. Both services register
// against their own registry so the worker can expose a scrape endpoint
// independent of the API.
type Metrics struct {
	Registry *prometheus.Registry

	JobsSubmitted       *prometheus.CounterVec
	JobsProcessed       *prometheus.CounterVec
	PagesProcessed      prometheus.Counter
	ComponentsExtracted *prometheus.CounterVec
	ProcessingSeconds   prometheus.Histogram
	JobsInFlight        prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		JobsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yoink",
			Name:      "jobs_submitted_total",
			Help:      "Extraction jobs accepted for processing.",
		}, []string{"actor"}),
		JobsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yoink",
			Name:      "jobs_processed_total",
			Help:      "Extraction jobs finished, by outcome.",
		}, []string{"status"}),
		PagesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "yoink",
			Name:      "pages_processed_total",
			Help:      "Document pages run through detection.",
		}),
		ComponentsExtracted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yoink",
			Name:      "components_extracted_total",
			Help:      "Components extracted, by category.",
		}, []string{"category"}),
		ProcessingSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "yoink",
			Name:      "job_processing_seconds",
			Help:      "Wall time spent processing one job.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		JobsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "yoink",
			Name:      "jobs_in_flight",
			Help:      "Jobs currently being processed.",
		}),
	}
}
