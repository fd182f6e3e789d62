package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveAnalysis("lexicon", "result", time.Millisecond)
		m.AddChunksScored(3)
		m.IncrementChunkFailure("timeout")
		m.ObserveBackendAttempt("gpt-4o-mini", "success", time.Second)
		m.SetCircuitOpen("gpt-4o-mini", true)
		m.IncrementCacheLookup("memory", "hit")
	})
}

func TestRecording(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveAnalysis("model", "degraded_result", 2*time.Second)
	m.AddChunksScored(4)
	m.IncrementChunkFailure("timeout")
	m.IncrementChunkFailure("timeout")
	m.ObserveBackendAttempt("claude-haiku", "overloaded", time.Second)
	m.SetCircuitOpen("claude-haiku", true)
	m.IncrementCacheLookup("redis", "miss")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysisOutcome.WithLabelValues("model", "degraded_result")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ChunksScored))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ChunkFailures.WithLabelValues("timeout")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendAttempts.WithLabelValues("claude-haiku", "overloaded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitOpen.WithLabelValues("claude-haiku")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("redis", "miss")))
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
