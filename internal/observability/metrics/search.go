package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/markocampo/campus-assistant/internal/core/domain"
)

// SearchMetrics implements the retrieval telemetry sink. Everything here is
// advisory; recording can never block or fail a search.
type SearchMetrics struct {
	searchesTotal    *prometheus.CounterVec
	degradedTotal    prometheus.Counter
	searchDuration   *prometheus.HistogramVec
	resultCount      *prometheus.HistogramVec
	stageDuration    *prometheus.HistogramVec
	stageResults     *prometheus.HistogramVec
	stageFailures    *prometheus.CounterVec
	embedCacheHits   prometheus.Counter
	embedCacheMisses prometheus.Counter
}

func NewSearchMetrics(registry *prometheus.Registry, service string) *SearchMetrics {
	constLabels := prometheus.Labels{"service": service}

	m := &SearchMetrics{
		searchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "campus",
			Subsystem:   "search",
			Name:        "requests_total",
			Help:        "Total searches by detected category.",
			ConstLabels: constLabels,
		}, []string{"category"}),
		degradedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "campus",
			Subsystem:   "search",
			Name:        "degraded_total",
			Help:        "Total searches completed with at least one failed stage.",
			ConstLabels: constLabels,
		}),
		searchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "campus",
			Subsystem:   "search",
			Name:        "duration_seconds",
			Help:        "End-to-end search duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"category"}),
		resultCount: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "campus",
			Subsystem:   "search",
			Name:        "results",
			Help:        "Distribution of returned results per search.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21},
			ConstLabels: constLabels,
		}, []string{"category"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "campus",
			Subsystem:   "retrieval",
			Name:        "stage_duration_seconds",
			Help:        "Per-stage retrieval duration in seconds.",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}, []string{"stage"}),
		stageResults: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "campus",
			Subsystem:   "retrieval",
			Name:        "stage_results",
			Help:        "Distribution of candidates produced per stage.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21},
			ConstLabels: constLabels,
		}, []string{"stage"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "campus",
			Subsystem:   "retrieval",
			Name:        "stage_failures_total",
			Help:        "Total stage failures by stage and category.",
			ConstLabels: constLabels,
		}, []string{"stage", "category"}),
		embedCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "campus",
			Subsystem:   "embedding",
			Name:        "cache_hits_total",
			Help:        "Embedding cache hits.",
			ConstLabels: constLabels,
		}),
		embedCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "campus",
			Subsystem:   "embedding",
			Name:        "cache_misses_total",
			Help:        "Embedding cache misses.",
			ConstLabels: constLabels,
		}),
	}

	registry.MustRegister(
		m.searchesTotal,
		m.degradedTotal,
		m.searchDuration,
		m.resultCount,
		m.stageDuration,
		m.stageResults,
		m.stageFailures,
		m.embedCacheHits,
		m.embedCacheMisses,
	)
	return m
}

func (m *SearchMetrics) StageCompleted(_ domain.Category, stage string, count int, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	m.stageResults.WithLabelValues(stage).Observe(float64(count))
}

func (m *SearchMetrics) StageFailed(category domain.Category, stage string) {
	m.stageFailures.WithLabelValues(stage, string(category)).Inc()
}

func (m *SearchMetrics) SearchCompleted(category domain.Category, results int, degraded bool, elapsed time.Duration) {
	label := string(category)
	m.searchesTotal.WithLabelValues(label).Inc()
	m.searchDuration.WithLabelValues(label).Observe(elapsed.Seconds())
	m.resultCount.WithLabelValues(label).Observe(float64(results))
	if degraded {
		m.degradedTotal.Inc()
	}
}

func (m *SearchMetrics) EmbedCacheHit()  { m.embedCacheHits.Inc() }
func (m *SearchMetrics) EmbedCacheMiss() { m.embedCacheMisses.Inc() }
