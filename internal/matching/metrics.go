package matching

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/imadgeboyega/kiekky-matching/internal/scoring"
)

var (
	compatibilityComputations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_compatibility_computations_total",
			Help: "Compatibility results computed, by weight vector",
		},
		[]string{"vector"},
	)

	compatibilityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_compatibility_scores",
			Help:    "Distribution of overall compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_cache_lookups_total",
			Help: "Compatibility cache lookups by result",
		},
		[]string{"result"},
	)

	candidatesExcluded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_candidates_excluded_total",
			Help: "Candidates removed by the filter pipeline, by gate",
		},
		[]string{"gate"},
	)

	candidateErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_candidate_errors_total",
			Help: "Candidates dropped from a batch because loading or scoring them failed",
		},
	)

	rankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_ranking_duration_seconds",
			Help:    "Time spent producing one ranked candidate list",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func RecordComputation(result *scoring.CompatibilityResult) {
	compatibilityComputations.WithLabelValues(string(result.Vector)).Inc()
	compatibilityScores.Observe(float64(result.Overall))
}

func RecordCacheLookup(hit bool) {
	if hit {
		cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	cacheLookups.WithLabelValues("miss").Inc()
}

func RecordExclusion(g Gate) {
	candidatesExcluded.WithLabelValues(string(g)).Inc()
}

func RecordCandidateError() {
	candidateErrors.Inc()
}

func RecordRankingDuration(d time.Duration) {
	rankingDuration.Observe(d.Seconds())
}
