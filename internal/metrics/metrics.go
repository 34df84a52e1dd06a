package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cas"

var (
	// TaxonomyBuilds counts finished builds by origin (api, worker, cli) and
	// outcome (success, failed).
	TaxonomyBuilds *prometheus.CounterVec

	// BuildDuration observes the wall time of a build in seconds.
	BuildDuration *prometheus.HistogramVec

	// AnnotationsBuilt counts produced annotation records.
	AnnotationsBuilt prometheus.Counter

	// JobsInFlight is the number of queue jobs being processed.
	JobsInFlight prometheus.Gauge
)

func init() {
	TaxonomyBuilds = MustRegisterCounterVec(namespace, "taxonomy", "builds_total",
		"Number of taxonomy builds.", "origin", "outcome")
	BuildDuration = MustRegisterHistogramVec(namespace, "taxonomy", "build_duration_seconds",
		"Duration of taxonomy builds.", prometheus.ExponentialBuckets(0.01, 4, 8), "origin")
	AnnotationsBuilt = MustRegisterCounter(namespace, "taxonomy", "annotations_total",
		"Number of annotation records produced.")
	JobsInFlight = MustRegisterGauge(namespace, "worker", "jobs_in_flight",
		"Number of taxonomy jobs being processed.")
}

// ObserveBuild records one build. outcome is "success" or "failed".
func ObserveBuild(origin, outcome string, seconds float64, annotations int) {
	TaxonomyBuilds.WithLabelValues(origin, outcome).Inc()
	BuildDuration.WithLabelValues(origin).Observe(seconds)
	if annotations > 0 {
		AnnotationsBuilt.Add(float64(annotations))
	}
}

// MustRegisterCounterVec creates and registers a counter vector.
// Must be called from `init`.
func MustRegisterCounterVec(namespace, component, name, help string, labelNames ...string) *prometheus.CounterVec {
	m := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: component,
		Name:      name,
		Help:      help,
	}, labelNames)
	prometheus.MustRegister(m)
	return m
}

// MustRegisterCounter creates and registers a counter.
// Must be called from `init`.
func MustRegisterCounter(namespace, component, name, help string) prometheus.Counter {
	m := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: component,
		Name:      name,
		Help:      help,
	})
	prometheus.MustRegister(m)
	return m
}

// MustRegisterGauge creates and registers a gauge.
// Must be called from `init`.
func MustRegisterGauge(namespace, component, name, help string) prometheus.Gauge {
	m := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: component,
		Name:      name,
		Help:      help,
	})
	prometheus.MustRegister(m)
	return m
}

// MustRegisterHistogramVec creates and registers a histogram vector.
// Must be called from `init`.
func MustRegisterHistogramVec(namespace, component, name, help string, buckets []float64, labelNames ...string) *prometheus.HistogramVec {
	m := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: component,
		Name:      name,
		Help:      help,
		Buckets:   buckets,
	}, labelNames)
	prometheus.MustRegister(m)
	return m
}
