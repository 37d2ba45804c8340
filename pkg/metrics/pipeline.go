package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics exposes counters and histograms for the query pipeline.
type PipelineMetrics struct {
	registry *prometheus.Registry

	queryTotal          *prometheus.CounterVec
	rateLimitRejections *prometheus.CounterVec
	cacheLookups        *prometheus.CounterVec
	retrievalDuration   *prometheus.HistogramVec
	retrievedChunks     prometheus.Histogram
	confidence          prometheus.Histogram
	streamChunksTotal   prometheus.Counter
}

func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total query requests by terminal outcome.",
		},
		[]string{"outcome"},
	)
	rateLimitRejections := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "ratelimit",
			Name:      "rejections_total",
			Help:      "Total requests rejected by the rate limiter.",
		},
		[]string{"role"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by result.",
		},
		[]string{"result"},
	)
	retrievalDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "retrieval",
			Name:      "duration_seconds",
			Help:      "Hybrid retrieval duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
	retrievedChunks := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "retrieval",
			Name:      "retrieved_chunks",
			Help:      "Distribution of fused chunks per retrieval.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)
	confidence := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "retrieval",
			Name:      "confidence",
			Help:      "Distribution of retrieval confidence scores.",
			Buckets:   []float64{0, 0.1, 0.2, 0.35, 0.5, 0.65, 0.8, 0.9, 1},
		},
	)
	streamChunksTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "stream",
			Name:      "chunks_total",
			Help:      "Total answer chunks streamed to clients.",
		},
	)

	registry.MustRegister(
		queryTotal,
		rateLimitRejections,
		cacheLookups,
		retrievalDuration,
		retrievedChunks,
		confidence,
		streamChunksTotal,
	)

	return &PipelineMetrics{
		registry:            registry,
		queryTotal:          queryTotal,
		rateLimitRejections: rateLimitRejections,
		cacheLookups:        cacheLookups,
		retrievalDuration:   retrievalDuration,
		retrievedChunks:     retrievedChunks,
		confidence:          confidence,
		streamChunksTotal:   streamChunksTotal,
	}
}

// Query outcomes.
const (
	OutcomeAnswered      = "answered"
	OutcomeCached        = "cached"
	OutcomeClarification = "clarification"
	OutcomeRefusal       = "refusal"
	OutcomeError         = "error"
)

func (m *PipelineMetrics) ObserveQuery(outcome string) {
	m.queryTotal.WithLabelValues(outcome).Inc()
}

func (m *PipelineMetrics) ObserveRateLimitRejection(role string) {
	m.rateLimitRejections.WithLabelValues(role).Inc()
}

func (m *PipelineMetrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *PipelineMetrics) ObserveRetrieval(strategy string, elapsed time.Duration, chunks int, confidence float64) {
	m.retrievalDuration.WithLabelValues(strategy).Observe(elapsed.Seconds())
	m.retrievedChunks.Observe(float64(chunks))
	m.confidence.Observe(confidence)
}

func (m *PipelineMetrics) ObserveStreamChunk() {
	m.streamChunksTotal.Inc()
}

// Handler serves the registry for scraping.
func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
