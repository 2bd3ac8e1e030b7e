package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors are registered with 'promauto' on the default registry.

var (
	// 1. Runs Total (Counter)
	// Counts classification runs, labelled by outcome ("ok", "no_reference_cluster", "error").
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refclass_runs_total",
			Help: "Total number of classification runs",
		},
		[]string{"status"},
	)

	// 2. Run Duration (Histogram)
	// Mixture fitting dominates; large inputs take seconds.
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refclass_run_duration_seconds",
			Help:    "Duration of classification runs in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// 3. Clusters (Histogram)
	// Number of clusters produced by the clustering backend per run.
	Clusters = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "refclass_clusters",
			Help:    "Number of clusters per classification run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// 4. Forced Expansions (Counter)
	ForcedExpansions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "refclass_forced_expansions_total",
			Help: "Expansion rounds that admitted a cluster without passing the acceptance test",
		},
	)

	// 5. Warnings (Counter)
	WarningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "refclass_warnings_total",
			Help: "Non-fatal warnings attached to classification results",
		},
		[]string{"code"},
	)
)

// Run describes one finished classification run.
type Run struct {
	Status           string
	Seconds          float64
	Clusters         int
	ForcedExpansions int
	WarningCodes     []string
}

// ObserveRun records a finished run on every collector.
func ObserveRun(r Run) {
	RunsTotal.WithLabelValues(r.Status).Inc()
	RunDuration.Observe(r.Seconds)
	if r.Clusters > 0 {
		Clusters.Observe(float64(r.Clusters))
	}
	if r.ForcedExpansions > 0 {
		ForcedExpansions.Add(float64(r.ForcedExpansions))
	}
	for _, code := range r.WarningCodes {
		WarningsTotal.WithLabelValues(code).Inc()
	}
}
