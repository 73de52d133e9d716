package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query outcomes
const (
	OutcomeMatched = "matched"
	OutcomeNoMatch = "no_match"
	OutcomeError   = "error"
)

var (
	IndexBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_index_builds_total",
			Help: "Total number of index builds by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	IndexBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_index_build_duration_seconds",
			Help:    "Duration of catalog load and index build in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	IndexDocuments = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_index_documents",
			Help: "Number of documents in the published index",
		},
	)

	IndexVocabularySize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_index_vocabulary_size",
			Help: "Number of distinct terms in the published index",
		},
	)

	CatalogSkippedRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommender_catalog_skipped_records",
			Help: "Catalog records rejected during the last successful build",
		},
	)

	Queries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommender_queries_total",
			Help: "Total number of recommendation queries by outcome",
		},
		[]string{"outcome"},
	)

	QueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommender_query_duration_seconds",
			Help:    "Duration of recommendation queries in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)
)

// RecordBuild updates build metrics. Gauges only move on success so they keep
// describing the index that is actually published.
func RecordBuild(duration time.Duration, err error, documents, vocabulary, skipped int) {
	IndexBuildDuration.Observe(duration.Seconds())
	if err != nil {
		IndexBuilds.WithLabelValues("failure").Inc()
		return
	}
	IndexBuilds.WithLabelValues("success").Inc()
	IndexDocuments.Set(float64(documents))
	IndexVocabularySize.Set(float64(vocabulary))
	CatalogSkippedRecords.Set(float64(skipped))
}

// RecordQuery counts a query and observes its latency.
func RecordQuery(duration time.Duration, outcome string) {
	Queries.WithLabelValues(outcome).Inc()
	QueryDuration.Observe(duration.Seconds())
}
