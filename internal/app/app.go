// Package app builds the engine from configuration. Both the HTTP server and
// the CLI start from here.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"biasmeter/internal/bias/aggregate"
	"biasmeter/internal/bias/cache"
	"biasmeter/internal/bias/invoker"
	"biasmeter/internal/bias/invoker/backends"
	"biasmeter/internal/bias/invoker/retry"
	"biasmeter/internal/bias/lexicon"
	"biasmeter/internal/bias/metrics"
	"biasmeter/internal/bias/scorer"
	"biasmeter/internal/bias/service"
	"biasmeter/internal/platform/config"
	redisclient "biasmeter/internal/platform/redis"
)

// Components are the long-lived parts of a running engine.
type Components struct {
	Lexicon *lexicon.Store
	Invoker *invoker.Invoker
	Service *service.Service
	Cache   cache.Store
	Redis   *redisclient.Client
	Metrics *metrics.Metrics
}

// Option adjusts how components are built.
type Option func(*buildOptions)

type buildOptions struct {
	clientFactory invoker.ClientFactory
	skipRedis     bool
}

// WithClientFactory replaces SDK client construction.
func WithClientFactory(f invoker.ClientFactory) Option {
	return func(o *buildOptions) {
		o.clientFactory = f
	}
}

// WithoutRedis forces the in-memory cache even when a Redis URL is set.
func WithoutRedis() Option {
	return func(o *buildOptions) {
		o.skipRedis = true
	}
}

// Build wires lexicon, scorer, aggregator, invoker, cache and service.
// reg may be nil, in which case metrics are recorded but not exported.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer, opts ...Option) (*Components, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	c := &Components{Metrics: metrics.New(reg)}

	c.Lexicon = lexicon.Load(ctx, lexicon.Paths{
		Domain:    cfg.Lexicon.DomainPath,
		Sentiment: cfg.Lexicon.SentimentPath,
	}, logger)

	sc, err := scorer.New(c.Lexicon)
	if err != nil {
		return nil, fmt.Errorf("create scorer: %w", err)
	}
	agg, err := aggregate.New(sc,
		aggregate.WithChunkTimeout(cfg.Engine.ChunkTimeout),
		aggregate.WithMaxConcurrency(cfg.Engine.MaxConcurrency),
		aggregate.WithLogger(logger),
		aggregate.WithMetrics(c.Metrics),
	)
	if err != nil {
		return nil, fmt.Errorf("create aggregator: %w", err)
	}

	c.Invoker, err = buildInvoker(cfg, logger, c.Metrics, o.clientFactory)
	if err != nil {
		return nil, err
	}

	if cfg.Cache.Enabled {
		if cfg.Redis.URL != "" && !o.skipRedis {
			c.Redis, err = redisclient.New(ctx, cfg.Redis)
			if err != nil {
				return nil, fmt.Errorf("connect redis: %w", err)
			}
			c.Cache = cache.NewRedisStore(c.Redis.Client, cfg.Cache.TTL)
		} else {
			c.Cache = cache.NewMemoryStore(cfg.Cache.Size, cfg.Cache.TTL)
		}
	}

	svcOpts := []service.Option{
		service.WithInvoker(c.Invoker),
		service.WithMaxChunkChars(cfg.Engine.MaxChunkChars),
		service.WithLogger(logger),
		service.WithMetrics(c.Metrics),
	}
	if c.Cache != nil {
		svcOpts = append(svcOpts, service.WithCache(c.Cache))
	}
	c.Service, err = service.New(agg, svcOpts...)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("create service: %w", err)
	}

	logger.InfoContext(ctx, "engine ready",
		"model_enabled", c.Invoker.Enabled(),
		"default_backend", c.Invoker.DefaultBackend(),
		"cache", cacheName(c.Cache),
	)
	return c, nil
}

func buildInvoker(cfg config.Config, logger *slog.Logger, m *metrics.Metrics, factory invoker.ClientFactory) (*invoker.Invoker, error) {
	extra := make([]invoker.BackendSpec, 0, len(cfg.Invoker.Backends))
	for _, b := range cfg.Invoker.Backends {
		family, err := backends.ParseFamily(b.Family)
		if err != nil {
			return nil, fmt.Errorf("backend %s: %w", b.ID, err)
		}
		extra = append(extra, invoker.BackendSpec{
			ID:            b.ID,
			Family:        family,
			Model:         b.Model,
			CredentialRef: b.CredentialRef,
			FamilyDefault: b.FamilyDefault,
		})
	}
	registry, err := invoker.NewRegistry(invoker.MergeCatalog(invoker.DefaultCatalog(), extra...)...)
	if err != nil {
		return nil, fmt.Errorf("register backends: %w", err)
	}

	order := make([]backends.Family, 0, len(cfg.Invoker.FamilyOrder))
	for _, name := range cfg.Invoker.FamilyOrder {
		family, err := backends.ParseFamily(name)
		if err != nil {
			return nil, fmt.Errorf("family order: %w", err)
		}
		order = append(order, family)
	}

	creds := config.LookupCredentials(cfg.CredentialRefs(
		invoker.CredentialOpenAI,
		invoker.CredentialAnthropic,
		invoker.CredentialGemini,
	))

	opts := []invoker.Option{
		invoker.WithLogger(logger),
		invoker.WithMetrics(m),
		invoker.WithDefaultBackend(cfg.Invoker.DefaultBackend),
		invoker.WithFamilyOrder(order),
		invoker.WithAttemptTimeout(cfg.Invoker.AttemptTimeout),
		invoker.WithMaxPromptChars(cfg.Invoker.MaxPromptChars),
		invoker.WithPolicy(retry.Policy{
			MaxRetries: cfg.Invoker.MaxRetries,
			BaseDelay:  cfg.Invoker.BaseDelay,
			MaxJitter:  cfg.Invoker.MaxJitter,
		}),
		invoker.WithClientFactory(factory),
	}
	if cb := cfg.Invoker.CircuitBreaker; cb.Enabled {
		opts = append(opts, invoker.WithCircuitBreaker(cb.FailureThreshold, cb.SuccessThreshold))
	}

	inv, err := invoker.New(registry, creds, opts...)
	if err != nil {
		return nil, fmt.Errorf("create invoker: %w", err)
	}
	return inv, nil
}

func cacheName(s cache.Store) string {
	if s == nil {
		return "disabled"
	}
	return s.Name()
}

// Close releases external connections.
func (c *Components) Close() error {
	if c.Redis != nil {
		return c.Redis.Close()
	}
	return nil
}
