// Package aggregate fans chunk scoring out across goroutines and folds the
// results into a single document score.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"biasmeter/internal/bias/metrics"
	"biasmeter/internal/bias/models"
	"biasmeter/internal/bias/text"
)

// DomainWeight multiplies domain matches relative to sentiment matches in the
// weighted score.
const DomainWeight = 3.0

// DefaultChunkTimeout bounds the scoring of a single chunk.
const DefaultChunkTimeout = 5 * time.Second

var tracer = otel.Tracer("biasmeter/internal/bias/aggregate")

// ChunkScorer scores one chunk.
type ChunkScorer interface {
	Score(ctx context.Context, chunk text.Chunk) (models.ChunkScore, error)
}

// ChunkError reports a chunk whose score was replaced by zero.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

var errPanic = errors.New("scorer panicked")

// Aggregator scores chunks concurrently and sums the results.
type Aggregator struct {
	scorer         ChunkScorer
	chunkTimeout   time.Duration
	maxConcurrency int
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// Option configures an Aggregator.
type Option func(*Aggregator)

func WithChunkTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.chunkTimeout = d
		}
	}
}

// WithMaxConcurrency caps in-flight chunk tasks. Zero means GOMAXPROCS.
func WithMaxConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxConcurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// New creates an aggregator over scorer.
func New(scorer ChunkScorer, opts ...Option) (*Aggregator, error) {
	if scorer == nil {
		return nil, errors.New("chunk scorer is required")
	}
	a := &Aggregator{
		scorer:         scorer,
		chunkTimeout:   DefaultChunkTimeout,
		maxConcurrency: runtime.GOMAXPROCS(0),
		logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Aggregate scores every chunk and returns the summed score. A single chunk is
// scored inline. Otherwise each chunk runs as its own task under a timeout;
// a failed or timed-out chunk contributes zero and never fails the call.
// Summation happens only after every task has finished, in chunk order.
func (a *Aggregator) Aggregate(ctx context.Context, chunks []text.Chunk) models.AggregateScore {
	ctx, span := tracer.Start(ctx, "aggregate.Aggregate",
		trace.WithAttributes(attribute.Int("chunks", len(chunks))))
	defer span.End()

	a.metrics.AddChunksScored(len(chunks))

	results := make([]models.ChunkScore, len(chunks))
	failed := make([]bool, len(chunks))

	switch len(chunks) {
	case 0:
	case 1:
		score, err := a.scoreInline(ctx, chunks[0])
		results[0], failed[0] = score, a.recordFailure(ctx, chunks[0], err)
	default:
		var g errgroup.Group
		g.SetLimit(a.maxConcurrency)
		for i, chunk := range chunks {
			g.Go(func() error {
				score, err := a.scoreWithTimeout(ctx, chunk)
				results[i], failed[i] = score, a.recordFailure(ctx, chunk, err)
				return nil
			})
		}
		_ = g.Wait()
	}

	agg := models.AggregateScore{Chunks: len(chunks)}
	for i, r := range results {
		agg.ChunkScore = agg.ChunkScore.Add(r)
		if failed[i] {
			agg.FailedChunks++
		}
	}
	agg.WeightedScore = WeightedScore(agg.ChunkScore)

	span.SetAttributes(
		attribute.Int("failed_chunks", agg.FailedChunks),
		attribute.Int("domain_count", agg.DomainCount),
		attribute.Int("sentiment_count", agg.SentimentCount),
	)
	return agg
}

// WeightedScore combines raw accumulators. It is zero when nothing matched.
func WeightedScore(s models.ChunkScore) float64 {
	denom := float64(s.DomainCount)*DomainWeight + float64(s.SentimentCount)
	if denom <= 0 {
		return 0
	}
	return (s.DomainSum*DomainWeight + s.SentimentSum) / denom
}

func (a *Aggregator) scoreInline(ctx context.Context, chunk text.Chunk) (score models.ChunkScore, err error) {
	defer func() {
		if r := recover(); r != nil {
			score, err = models.ChunkScore{}, fmt.Errorf("%w: %v", errPanic, r)
		}
	}()
	return a.scorer.Score(ctx, chunk)
}

func (a *Aggregator) scoreWithTimeout(ctx context.Context, chunk text.Chunk) (models.ChunkScore, error) {
	ctx, cancel := context.WithTimeout(ctx, a.chunkTimeout)
	defer cancel()

	type result struct {
		score models.ChunkScore
		err   error
	}
	// Buffered so an abandoned scorer can still finish and exit.
	done := make(chan result, 1)
	go func() {
		score, err := a.scoreInline(ctx, chunk)
		done <- result{score: score, err: err}
	}()

	select {
	case r := <-done:
		return r.score, r.err
	case <-ctx.Done():
		return models.ChunkScore{}, ctx.Err()
	}
}

// recordFailure logs and counts a failed chunk and reports whether it failed.
func (a *Aggregator) recordFailure(ctx context.Context, chunk text.Chunk, err error) bool {
	if err == nil {
		return false
	}
	cerr := &ChunkError{Index: chunk.Index, Err: err}

	reason := "error"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
	case errors.Is(err, errPanic):
		reason = "panic"
	}
	a.metrics.IncrementChunkFailure(reason)
	a.logger.WarnContext(ctx, "chunk scoring failed, contributing zero",
		"chunk_index", chunk.Index,
		"chunk_chars", len(chunk.Text),
		"reason", reason,
		"error", cerr,
	)
	return true
}
