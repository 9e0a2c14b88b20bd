// Package metrics defines the prometheus instrumentation for the analysis
// pipeline.  All metrics live in a dedicated registry so tests can construct
// isolated instances without global-registry collisions.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "policyaudit"

// DefaultStageDurationBuckets covers in-process retrieval stages (fast) up to
// judge round-trips (tens of seconds).
var DefaultStageDurationBuckets = []float64{.005, .025, .1, .25, .5, 1, 2.5, 5, 10, 20, 40}

// PipelineMetrics holds all instrument vectors for the compliance pipeline.
type PipelineMetrics struct {
	// Analysis layer
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec

	// Retrieval layer
	StageDuration      *prometheus.HistogramVec
	RetrievalFallbacks *prometheus.CounterVec
	CandidatesReturned prometheus.Histogram

	// Judge layer
	JudgeCallsTotal     *prometheus.CounterVec
	JudgeCallDuration   *prometheus.HistogramVec
	JudgeParseFallbacks *prometheus.CounterVec

	// Scoring layer
	CoverageMethodTotal *prometheus.CounterVec
	OverallScore        prometheus.Histogram

	// Embedding cache
	EmbeddingCacheHits   prometheus.Counter
	EmbeddingCacheMisses prometheus.Counter

	registry *prometheus.Registry
}

// NewPipelineMetrics constructs and registers all pipeline metrics on a fresh
// registry.
func NewPipelineMetrics() *PipelineMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())

	m := &PipelineMetrics{registry: reg}

	m.AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "analyses_total",
		Help:      "Completed document analyses by outcome.",
	}, []string{"status"})

	m.AnalysisDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analysis_duration_seconds",
		Help:      "End-to-end analysis duration.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	}, []string{"mode"})

	m.StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "retrieval_stage_duration_seconds",
		Help:      "Duration per retrieval stage (lexical, embedding, rerank).",
		Buckets:   DefaultStageDurationBuckets,
	}, []string{"stage"})

	m.RetrievalFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrieval_fallbacks_total",
		Help:      "Silent degradations in the retrieval path by reason.",
	}, []string{"reason"})

	m.CandidatesReturned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "retrieval_candidates_returned",
		Help:      "Candidate count returned by hybrid retrieval.",
		Buckets:   []float64{0, 5, 10, 20, 40, 60, 100, 200},
	})

	m.JudgeCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "judge_calls_total",
		Help:      "Judge invocations by operation and outcome.",
	}, []string{"operation", "status"})

	m.JudgeCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "judge_call_duration_seconds",
		Help:      "Judge round-trip duration by operation.",
		Buckets:   []float64{.5, 1, 2, 5, 10, 15, 30},
	}, []string{"operation"})

	m.JudgeParseFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "judge_parse_fallbacks_total",
		Help:      "Defensive parse strategy downgrades by parser.",
	}, []string{"parser", "strategy"})

	m.CoverageMethodTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "coverage_method_total",
		Help:      "Article coverage computations by method (llm, traditional).",
	}, []string{"method"})

	m.OverallScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "overall_score",
		Help:      "Distribution of overall compliance scores.",
		Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 75, 80, 90, 100},
	})

	m.EmbeddingCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_cache_hits_total",
		Help:      "Embedding cache hits.",
	})

	m.EmbeddingCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_cache_misses_total",
		Help:      "Embedding cache misses.",
	})

	reg.MustRegister(
		m.AnalysesTotal,
		m.AnalysisDuration,
		m.StageDuration,
		m.RetrievalFallbacks,
		m.CandidatesReturned,
		m.JudgeCallsTotal,
		m.JudgeCallDuration,
		m.JudgeParseFallbacks,
		m.CoverageMethodTotal,
		m.OverallScore,
		m.EmbeddingCacheHits,
		m.EmbeddingCacheMisses,
	)

	return m
}

// Handler returns an http.Handler exposing the registry in the prometheus
// text format.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry exposes the underlying registry for test assertions.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Timer observes elapsed wall time into a histogram on ObserveDuration.
type Timer struct {
	obs   prometheus.Observer
	start time.Time
}

// NewTimer starts a Timer against the given observer.  A nil observer yields
// a Timer whose ObserveDuration is a no-op.
func NewTimer(obs prometheus.Observer) *Timer {
	return &Timer{obs: obs, start: time.Now()}
}

// ObserveDuration records the elapsed time in seconds.
func (t *Timer) ObserveDuration() {
	if t.obs == nil {
		return
	}
	t.obs.Observe(time.Since(t.start).Seconds())
}
