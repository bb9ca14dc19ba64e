// Package metrics exposes the recommendation-engine-specific Prometheus
// instrumentation: request counts, scorer latency, cache hit rate, and
// ingestion throughput.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RecommendationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendation_requests_total",
			Help: "Total number of recommendation requests served",
		},
		[]string{"cache_hit"},
	)

	RecommendationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_request_duration_seconds",
			Help:    "Duration of recommendation requests, including all scorers and ranking",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	ScorerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommendation_scorer_duration_seconds",
			Help:    "Duration of one scoring strategy's contribution to a recommendation request",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25},
		},
		[]string{"scorer"},
	)

	IngestionEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interaction_events_total",
			Help: "Total number of interaction events ingested",
		},
		[]string{"kind", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(RecommendationRequestsTotal)
	prometheus.MustRegister(RecommendationLatency)
	prometheus.MustRegister(ScorerLatency)
	prometheus.MustRegister(IngestionEventsTotal)
}

// ObserveScorerLatency records how long a named scorer took to run.
func ObserveScorerLatency(scorer string, start time.Time) {
	ScorerLatency.WithLabelValues(scorer).Observe(time.Since(start).Seconds())
}
