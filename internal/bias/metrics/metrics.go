package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the bias scoring engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// End-to-end analysis latency and outcomes by mode
	AnalysisLatency *prometheus.HistogramVec
	AnalysisOutcome *prometheus.CounterVec

	// Chunk fan-out
	ChunksScored  prometheus.Counter
	ChunkFailures *prometheus.CounterVec

	// Model backend attempts
	BackendAttempts *prometheus.CounterVec
	BackendLatency  *prometheus.HistogramVec
	CircuitOpen     *prometheus.GaugeVec

	// Outcome cache
	CacheLookups *prometheus.CounterVec
}

// New registers all engine metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		AnalysisLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biasmeter_analysis_duration_seconds",
			Help:    "Duration of a full analysis request by mode",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 15, 30, 60},
		}, []string{"mode"}),

		AnalysisOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biasmeter_analysis_total",
			Help: "Total analyses by mode and outcome",
		}, []string{"mode", "outcome"}), // outcome: "ok", "empty", "cached", "result", "degraded_result", "failed_result", "not_configured", "unknown_backend"

		ChunksScored: factory.NewCounter(prometheus.CounterOpts{
			Name: "biasmeter_chunks_scored_total",
			Help: "Total chunks scored by the lexicon path",
		}),

		ChunkFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biasmeter_chunk_failures_total",
			Help: "Chunks that contributed a zero score because scoring failed",
		}, []string{"reason"}), // reason: "timeout", "error", "panic"

		BackendAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biasmeter_backend_attempts_total",
			Help: "Model backend attempts by backend and classified outcome",
		}, []string{"backend", "outcome"}), // outcome: "success" or a backends.ErrorCategory ("overloaded", "rate_limited", "timeout", ...)

		BackendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biasmeter_backend_attempt_duration_seconds",
			Help:    "Duration of a single model backend attempt",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"backend"}),

		CircuitOpen: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "biasmeter_backend_circuit_open",
			Help: "1 when the backend circuit breaker is open",
		}, []string{"backend"}),

		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biasmeter_cache_lookups_total",
			Help: "Outcome cache lookups by cache kind and result",
		}, []string{"cache", "result"}), // result: "hit", "miss", "error"
	}
}

// ObserveAnalysis records a completed analysis.
func (m *Metrics) ObserveAnalysis(mode, outcome string, d time.Duration) {
	if m != nil {
		m.AnalysisLatency.WithLabelValues(mode).Observe(d.Seconds())
		m.AnalysisOutcome.WithLabelValues(mode, outcome).Inc()
	}
}

// AddChunksScored counts chunks dispatched for scoring.
func (m *Metrics) AddChunksScored(n int) {
	if m != nil {
		m.ChunksScored.Add(float64(n))
	}
}

// IncrementChunkFailure records a chunk that contributed zero.
func (m *Metrics) IncrementChunkFailure(reason string) {
	if m != nil {
		m.ChunkFailures.WithLabelValues(reason).Inc()
	}
}

// ObserveBackendAttempt records one backend call.
func (m *Metrics) ObserveBackendAttempt(backend, outcome string, d time.Duration) {
	if m != nil {
		m.BackendAttempts.WithLabelValues(backend, outcome).Inc()
		m.BackendLatency.WithLabelValues(backend).Observe(d.Seconds())
	}
}

// SetCircuitOpen publishes the breaker position for a backend.
func (m *Metrics) SetCircuitOpen(backend string, open bool) {
	if m != nil {
		v := 0.0
		if open {
			v = 1
		}
		m.CircuitOpen.WithLabelValues(backend).Set(v)
	}
}

// IncrementCacheLookup records a cache hit, miss or error.
func (m *Metrics) IncrementCacheLookup(cache, result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(cache, result).Inc()
	}
}
