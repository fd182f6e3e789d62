package aggregate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"biasmeter/internal/bias/lexicon"
	"biasmeter/internal/bias/metrics"
	"biasmeter/internal/bias/models"
	"biasmeter/internal/bias/scorer"
	"biasmeter/internal/bias/text"
)

// fakeScorer returns a fixed score per chunk index and can be told to fail,
// hang or panic on specific chunks.
type fakeScorer struct {
	scores  map[int]models.ChunkScore
	fail    map[int]error
	hang    map[int]bool
	panics  map[int]bool
	release chan struct{}
	calls   atomic.Int32
}

func newFakeScorer() *fakeScorer {
	return &fakeScorer{
		scores:  map[int]models.ChunkScore{},
		fail:    map[int]error{},
		hang:    map[int]bool{},
		panics:  map[int]bool{},
		release: make(chan struct{}),
	}
}

func (f *fakeScorer) Score(_ context.Context, chunk text.Chunk) (models.ChunkScore, error) {
	f.calls.Add(1)
	if f.panics[chunk.Index] {
		panic("boom")
	}
	if f.hang[chunk.Index] {
		<-f.release
	}
	if err := f.fail[chunk.Index]; err != nil {
		return models.ChunkScore{}, err
	}
	return f.scores[chunk.Index], nil
}

func chunksOf(n int) []text.Chunk {
	chunks := make([]text.Chunk, n)
	for i := range chunks {
		chunks[i] = text.Chunk{Index: i, Text: "chunk"}
	}
	return chunks
}

// =============================================================================
// Aggregator Test Suite
// =============================================================================

type AggregatorSuite struct {
	suite.Suite
	scorer  *fakeScorer
	metrics *metrics.Metrics
	agg     *Aggregator
}

func TestAggregatorSuite(t *testing.T) {
	suite.Run(t, new(AggregatorSuite))
}

func (s *AggregatorSuite) SetupTest() {
	s.scorer = newFakeScorer()
	s.metrics = metrics.New(prometheus.NewRegistry())

	var err error
	s.agg, err = New(s.scorer,
		WithChunkTimeout(50*time.Millisecond),
		WithMaxConcurrency(4),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
}

func (s *AggregatorSuite) TearDownTest() {
	close(s.scorer.release)
}

func (s *AggregatorSuite) TestNew() {
	s.Run("nil scorer returns error", func() {
		_, err := New(nil)
		s.ErrorContains(err, "chunk scorer is required")
	})
}

func (s *AggregatorSuite) TestAggregate() {
	ctx := context.Background()

	s.Run("no chunks yields zero score", func() {
		got := s.agg.Aggregate(ctx, nil)
		s.Equal(models.AggregateScore{}, got)
	})

	s.Run("single chunk is scored", func() {
		s.scorer.scores[0] = models.ChunkScore{DomainSum: -0.8, DomainCount: 1, SentimentSum: 2.0, SentimentCount: 1}
		got := s.agg.Aggregate(ctx, chunksOf(1))
		s.Equal(1, got.Chunks)
		s.Equal(0, got.FailedChunks)
		s.InDelta(-0.1, got.WeightedScore, 1e-9)
	})

	s.Run("chunk scores are summed field-wise", func() {
		s.scorer.scores[0] = models.ChunkScore{DomainSum: 0.6, DomainCount: 1}
		s.scorer.scores[1] = models.ChunkScore{SentimentSum: -2.5, SentimentCount: 1}
		s.scorer.scores[2] = models.ChunkScore{DomainSum: 0.8, DomainCount: 1, SentimentSum: 1.0, SentimentCount: 2}

		got := s.agg.Aggregate(ctx, chunksOf(3))
		s.Equal(3, got.Chunks)
		s.Equal(2, got.DomainCount)
		s.Equal(3, got.SentimentCount)
		s.InDelta(1.4, got.DomainSum, 1e-9)
		s.InDelta(-1.5, got.SentimentSum, 1e-9)
		// (1.4*3 - 1.5) / (2*3 + 3)
		s.InDelta(0.3, got.WeightedScore, 1e-9)
	})
}

func (s *AggregatorSuite) TestFailedChunksContributeZero() {
	ctx := context.Background()
	for i := range 4 {
		s.scorer.scores[i] = models.ChunkScore{DomainSum: 1, DomainCount: 1}
	}

	s.Run("error", func() {
		s.scorer.fail[1] = errors.New("scoring failed")
		got := s.agg.Aggregate(ctx, chunksOf(4))
		s.Equal(1, got.FailedChunks)
		s.Equal(3, got.DomainCount)
		delete(s.scorer.fail, 1)
	})

	s.Run("timeout", func() {
		s.scorer.hang[2] = true
		start := time.Now()
		got := s.agg.Aggregate(ctx, chunksOf(4))
		s.Less(time.Since(start), 2*time.Second)
		s.Equal(1, got.FailedChunks)
		s.Equal(3, got.DomainCount)
		s.Equal(1.0, promtestutil.ToFloat64(s.metrics.ChunkFailures.WithLabelValues("timeout")))
		delete(s.scorer.hang, 2)
	})

	s.Run("panic", func() {
		s.scorer.panics[3] = true
		got := s.agg.Aggregate(ctx, chunksOf(4))
		s.Equal(1, got.FailedChunks)
		s.Equal(3, got.DomainCount)
		s.Equal(1.0, promtestutil.ToFloat64(s.metrics.ChunkFailures.WithLabelValues("panic")))
		delete(s.scorer.panics, 3)
	})

	s.Run("single chunk panic is absorbed inline", func() {
		s.scorer.panics[0] = true
		got := s.agg.Aggregate(ctx, chunksOf(1))
		s.Equal(1, got.FailedChunks)
		s.Equal(0.0, got.WeightedScore)
		delete(s.scorer.panics, 0)
	})
}

// =============================================================================
// Properties
// =============================================================================

func TestWeightedScore(t *testing.T) {
	tests := []struct {
		name  string
		score models.ChunkScore
		want  float64
	}{
		{name: "no matches", score: models.ChunkScore{}, want: 0},
		{name: "domain only", score: models.ChunkScore{DomainSum: -1.6, DomainCount: 2}, want: -0.8},
		{name: "sentiment only", score: models.ChunkScore{SentimentSum: 4, SentimentCount: 2}, want: 2},
		{name: "worked example", score: models.ChunkScore{DomainSum: -0.8, DomainCount: 1, SentimentSum: 2.0, SentimentCount: 1}, want: -0.1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, WeightedScore(tt.score), 1e-9)
		})
	}
}

func TestRechunkingPreservesSums(t *testing.T) {
	sc, err := scorer.New(lexicon.New(
		map[string]float64{"liberal": -0.8},
		map[string]float64{"help": 2.0},
	))
	require.NoError(t, err)
	agg, err := New(sc)
	require.NoError(t, err)

	// 13 runes per unit, so multiples of 13 cut exactly between tokens.
	doc := strings.Repeat("liberal help ", 40)
	baseline := agg.Aggregate(context.Background(), text.Split(doc, 5000))

	for _, size := range []int{13, 26, 130, 260} {
		got := agg.Aggregate(context.Background(), text.Split(doc, size))
		assert.Equal(t, baseline.DomainCount, got.DomainCount, "size %d", size)
		assert.Equal(t, baseline.SentimentCount, got.SentimentCount, "size %d", size)
		assert.InDelta(t, baseline.DomainSum, got.DomainSum, 1e-9, "size %d", size)
		assert.InDelta(t, baseline.SentimentSum, got.SentimentSum, 1e-9, "size %d", size)
		assert.InDelta(t, baseline.WeightedScore, got.WeightedScore, 1e-9, "size %d", size)
	}
}

type countingScorer struct {
	mu      sync.Mutex
	active  int
	maxSeen int
}

func (c *countingScorer) Score(_ context.Context, _ text.Chunk) (models.ChunkScore, error) {
	c.mu.Lock()
	c.active++
	if c.active > c.maxSeen {
		c.maxSeen = c.active
	}
	c.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	c.mu.Lock()
	c.active--
	c.mu.Unlock()
	return models.ChunkScore{SentimentSum: 1, SentimentCount: 1}, nil
}

func TestConcurrencyIsBounded(t *testing.T) {
	sc := &countingScorer{}
	agg, err := New(sc, WithMaxConcurrency(2))
	require.NoError(t, err)

	got := agg.Aggregate(context.Background(), chunksOf(10))
	assert.Equal(t, 10, got.SentimentCount)
	assert.LessOrEqual(t, sc.maxSeen, 2)
}
