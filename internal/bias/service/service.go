// Package service is the entry point of the bias engine. It normalizes the
// input once and routes it down the lexicon or the model path.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"biasmeter/internal/bias/cache"
	"biasmeter/internal/bias/explain"
	"biasmeter/internal/bias/invoker"
	"biasmeter/internal/bias/metrics"
	"biasmeter/internal/bias/models"
	"biasmeter/internal/bias/normalize"
	"biasmeter/internal/bias/text"
	dErrors "biasmeter/pkg/domain-errors"
	"biasmeter/pkg/platform/sentinel"
	"biasmeter/pkg/requestcontext"
)

// LexiconMessageFormat is the message for a lexicon result.
const LexiconMessageFormat = "Analysis complete: Found %d political terms and %d sentiment terms. Overall bias score: %.2f"

// EmptyTextMessage is returned for input with nothing left after normalization.
const EmptyTextMessage = "No text to analyze"

var tracer = otel.Tracer("biasmeter/internal/bias/service")

// Request is one analysis request.
type Request struct {
	Text    string
	Mode    models.Mode
	Backend string
}

// Aggregator scores chunks concurrently.
type Aggregator interface {
	Aggregate(ctx context.Context, chunks []text.Chunk) models.AggregateScore
}

// Invoker scores text with an external model.
type Invoker interface {
	Select(backendID string) (invoker.BackendSpec, bool, error)
	Invoke(ctx context.Context, text, backendID string) (invoker.Outcome, error)
	Backends() []invoker.BackendStatus
}

// Service runs analyses.
type Service struct {
	aggregator    Aggregator
	invoker       Invoker
	cache         cache.Store
	maxChunkChars int
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithInvoker enables model mode.
func WithInvoker(inv Invoker) Option {
	return func(s *Service) {
		s.invoker = inv
	}
}

// WithCache caches successful model scores.
func WithCache(store cache.Store) Option {
	return func(s *Service) {
		s.cache = store
	}
}

// WithMaxChunkChars sets the chunk size for lexicon mode.
func WithMaxChunkChars(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxChunkChars = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a Service. Without WithInvoker, model requests report the
// engine as not configured.
func New(aggregator Aggregator, opts ...Option) (*Service, error) {
	if aggregator == nil {
		return nil, errors.New("aggregator is required")
	}
	s := &Service{
		aggregator:    aggregator,
		maxChunkChars: text.DefaultMaxChunkChars,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Analyze scores req. It always returns a usable BiasResult; the error is
// non-nil for an invalid mode or a model configuration problem, in which
// case the result is neutral.
func (s *Service) Analyze(ctx context.Context, req Request) (models.BiasResult, error) {
	start := time.Now()
	requestID := requestcontext.RequestID(ctx)

	if req.Mode == "" {
		req.Mode = models.ModeLexicon
	}
	if req.Mode != models.ModeLexicon && req.Mode != models.ModeModel {
		return models.Neutral("Unsupported analysis mode.", ""),
			dErrors.New(dErrors.CodeValidation, "mode must be one of: lexicon, model")
	}

	ctx, span := tracer.Start(ctx, "service.Analyze",
		trace.WithAttributes(
			attribute.String("mode", string(req.Mode)),
			attribute.Int("text.length", len(req.Text)),
		))
	defer span.End()

	normalized := text.Normalize(req.Text)
	if normalized == "" {
		s.metrics.ObserveAnalysis(string(req.Mode), "empty", time.Since(start))
		return models.Neutral(EmptyTextMessage, "The input contained no analyzable text."), nil
	}

	var (
		result  models.BiasResult
		outcome string
		err     error
	)
	if req.Mode == models.ModeModel {
		result, outcome, err = s.analyzeModel(ctx, normalized, req.Backend)
	} else {
		result, outcome = s.analyzeLexicon(ctx, normalized)
	}

	duration := time.Since(start)
	s.metrics.ObserveAnalysis(string(req.Mode), outcome, duration)
	span.SetAttributes(attribute.String("outcome", outcome))
	s.logger.InfoContext(ctx, "analysis complete",
		"request_id", requestID,
		"mode", req.Mode,
		"outcome", outcome,
		"text_length", len(normalized),
		"left", result.Left,
		"duration_ms", duration.Milliseconds(),
	)
	return result, err
}

func (s *Service) analyzeLexicon(ctx context.Context, normalized string) (models.BiasResult, string) {
	chunks := text.Split(normalized, s.maxChunkChars)
	agg := s.aggregator.Aggregate(ctx, chunks)

	split := normalize.ToPercentages(agg.WeightedScore, normalize.LexiconScale)
	return models.BiasResult{
		Left:        split.Left,
		Right:       split.Right,
		Message:     fmt.Sprintf(LexiconMessageFormat, agg.DomainCount, agg.SentimentCount, agg.WeightedScore),
		Explanation: lexiconExplanation(agg),
	}, "ok"
}

func lexiconExplanation(agg models.AggregateScore) string {
	if agg.Matches() == 0 {
		return "No political or sentiment terms were found, so the text is treated as neutral."
	}
	out := fmt.Sprintf("Weighted lexicon match over %d chunk(s). %s", agg.Chunks, explain.Synthesize(agg.WeightedScore))
	if agg.FailedChunks > 0 {
		out += fmt.Sprintf(" %d chunk(s) could not be scored and were counted as neutral.", agg.FailedChunks)
	}
	return out
}

func (s *Service) analyzeModel(ctx context.Context, normalized, backendID string) (models.BiasResult, string, error) {
	if s.invoker == nil {
		out := invoker.Outcome{State: invoker.StateNotConfigured}
		return out.Result(), "not_configured", toDomainError(&invoker.ConfigError{Err: invoker.ErrNotConfigured})
	}

	spec, _, err := s.invoker.Select(backendID)
	if err != nil {
		return configFailure(backendID, err)
	}

	key := cache.Key(spec.ID, normalized)
	if entry, ok := s.lookup(ctx, key); ok {
		out := invoker.Outcome{
			State:       invoker.StateResult,
			Backend:     entry.Backend,
			Model:       entry.Model,
			Score:       entry.Score,
			Explanation: entry.Explanation,
			Strategy:    entry.Strategy,
		}
		return out.Result(), "cached", nil
	}

	out, err := s.invoker.Invoke(ctx, normalized, backendID)
	if err != nil {
		return configFailure(backendID, err)
	}
	if out.Cacheable() {
		s.store(ctx, key, out)
	}
	return out.Result(), string(out.State), nil
}

func configFailure(backendID string, err error) (models.BiasResult, string, error) {
	out := invoker.Outcome{State: invoker.StateNotConfigured, Backend: backendID}
	outcome := "not_configured"
	if errors.Is(err, invoker.ErrUnknownBackend) {
		out.State = invoker.StateFailed
		outcome = "unknown_backend"
	}
	return out.Result(), outcome, toDomainError(err)
}

func (s *Service) lookup(ctx context.Context, key string) (cache.Entry, bool) {
	if s.cache == nil {
		return cache.Entry{}, false
	}
	entry, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		s.metrics.IncrementCacheLookup(s.cache.Name(), "hit")
		return entry, true
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementCacheLookup(s.cache.Name(), "miss")
	default:
		s.metrics.IncrementCacheLookup(s.cache.Name(), "error")
		s.logger.WarnContext(ctx, "cache lookup failed", "cache", s.cache.Name(), "error", err)
	}
	return cache.Entry{}, false
}

func (s *Service) store(ctx context.Context, key string, out invoker.Outcome) {
	if s.cache == nil {
		return
	}
	entry := cache.Entry{
		Backend:     out.Backend,
		Model:       out.Model,
		Score:       out.Score,
		Explanation: out.Explanation,
		Strategy:    out.Strategy,
		StoredAt:    requestcontext.Now(ctx),
	}
	if err := s.cache.Set(ctx, key, entry); err != nil {
		s.logger.WarnContext(ctx, "cache store failed", "cache", s.cache.Name(), "error", err)
	}
}

// Backends lists model backends, or nil when model mode is disabled.
func (s *Service) Backends() []invoker.BackendStatus {
	if s.invoker == nil {
		return nil
	}
	return s.invoker.Backends()
}

func toDomainError(err error) error {
	switch {
	case errors.Is(err, invoker.ErrUnknownBackend):
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	case errors.Is(err, invoker.ErrNotConfigured):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "model analysis is not configured")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "model analysis failed")
	}
}
