// Package invoker sends text to an external model backend and turns its
// reply into a bias score. Transient overload is retried with exponential
// backoff; every other failure is final. Callers always receive an Outcome,
// which maps onto a BiasResult even when the backend could not be reached.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"biasmeter/internal/bias/explain"
	"biasmeter/internal/bias/invoker/backends"
	"biasmeter/internal/bias/invoker/parse"
	"biasmeter/internal/bias/invoker/retry"
	"biasmeter/internal/bias/metrics"
	"biasmeter/pkg/platform/circuit"
)

// DefaultAttemptTimeout bounds a single backend call.
const DefaultAttemptTimeout = 60 * time.Second

var tracer = otel.Tracer("biasmeter/internal/bias/invoker")

// ClientFactory builds the client for a backend. Once it succeeds for a
// backend it is not called again; a failed build is retried on the next call.
type ClientFactory func(ctx context.Context, spec BackendSpec, apiKey string) (backends.Client, error)

func defaultClientFactory(ctx context.Context, spec BackendSpec, apiKey string) (backends.Client, error) {
	return backends.NewClient(ctx, spec.Family, spec.ID, apiKey)
}

type lazyClient struct {
	mu     sync.Mutex
	client backends.Client
}

// Invoker selects a backend, calls it, and interprets the reply.
type Invoker struct {
	registry       *Registry
	credentials    Credentials
	defaultBackend string
	familyOrder    []backends.Family

	policy         retry.Policy
	sleep          retry.Sleeper
	parser         parse.Chain
	attemptTimeout time.Duration
	maxPromptChars int
	maxTokens      int
	temperature    float64

	factory  ClientFactory
	clients  map[string]*lazyClient
	breakers map[string]*circuit.Breaker

	enabled bool
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Invoker.
type Option func(*Invoker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Invoker) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Metrics) Option {
	return func(i *Invoker) {
		i.metrics = m
	}
}

// WithPolicy replaces the retry policy. A policy without a classifier uses
// backends.IsTransient.
func WithPolicy(p retry.Policy) Option {
	return func(i *Invoker) {
		if p.IsTransient == nil {
			p.IsTransient = backends.IsTransient
		}
		i.policy = p
	}
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(s retry.Sleeper) Option {
	return func(i *Invoker) {
		if s != nil {
			i.sleep = s
		}
	}
}

// WithClientFactory replaces SDK client construction.
func WithClientFactory(f ClientFactory) Option {
	return func(i *Invoker) {
		if f != nil {
			i.factory = f
		}
	}
}

// WithParser replaces the response parsing chain.
func WithParser(c parse.Chain) Option {
	return func(i *Invoker) {
		if len(c) > 0 {
			i.parser = c
		}
	}
}

// WithDefaultBackend sets the backend used when a request names none.
func WithDefaultBackend(id string) Option {
	return func(i *Invoker) {
		if id != "" {
			i.defaultBackend = id
		}
	}
}

// WithFamilyOrder sets the credential fallback order.
func WithFamilyOrder(order []backends.Family) Option {
	return func(i *Invoker) {
		if len(order) > 0 {
			i.familyOrder = order
		}
	}
}

// WithAttemptTimeout bounds each backend call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(i *Invoker) {
		if d > 0 {
			i.attemptTimeout = d
		}
	}
}

// WithMaxPromptChars bounds the text sent per request.
func WithMaxPromptChars(n int) Option {
	return func(i *Invoker) {
		if n > 0 {
			i.maxPromptChars = n
		}
	}
}

// WithCircuitBreaker enables a breaker per backend. While a backend's
// circuit is open, transient failures are not retried.
func WithCircuitBreaker(failureThreshold, successThreshold int) Option {
	return func(i *Invoker) {
		i.breakers = make(map[string]*circuit.Breaker, len(i.registry.order))
		for _, id := range i.registry.order {
			i.breakers[id] = circuit.New(id,
				circuit.WithFailureThreshold(failureThreshold),
				circuit.WithSuccessThreshold(successThreshold),
			)
		}
	}
}

// New creates an Invoker. The default backend is the first registered one
// unless WithDefaultBackend says otherwise.
func New(registry *Registry, credentials Credentials, opts ...Option) (*Invoker, error) {
	if registry == nil || len(registry.order) == 0 {
		return nil, errors.New("invoker: registry is required")
	}

	i := &Invoker{
		registry:       registry,
		credentials:    credentials,
		defaultBackend: registry.order[0],
		familyOrder:    backends.Families,
		policy:         retry.DefaultPolicy(backends.IsTransient),
		sleep:          retry.Sleep,
		parser:         parse.DefaultChain(),
		attemptTimeout: DefaultAttemptTimeout,
		maxPromptChars: DefaultMaxPromptChars,
		maxTokens:      DefaultMaxTokens,
		temperature:    DefaultTemperature,
		factory:        defaultClientFactory,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}

	if _, ok := registry.Get(i.defaultBackend); !ok {
		return nil, &ConfigError{Backend: i.defaultBackend, Err: ErrUnknownBackend}
	}

	i.clients = make(map[string]*lazyClient, len(registry.order))
	for _, spec := range registry.All() {
		i.clients[spec.ID] = &lazyClient{}
		if credentials.Has(spec.CredentialRef) {
			i.enabled = true
		}
	}
	return i, nil
}

// Enabled reports whether any registered backend has credentials.
func (i *Invoker) Enabled() bool {
	return i.enabled
}

// DefaultBackend returns the backend used for requests that name none.
func (i *Invoker) DefaultBackend() string {
	return i.defaultBackend
}

// Backends lists registered backends with their availability.
func (i *Invoker) Backends() []BackendStatus {
	specs := i.registry.All()
	out := make([]BackendStatus, 0, len(specs))
	for _, spec := range specs {
		status := BackendStatus{
			BackendSpec: spec,
			Configured:  i.credentials.Has(spec.CredentialRef),
			Default:     spec.ID == i.defaultBackend,
		}
		if b, ok := i.breakers[spec.ID]; ok {
			status.CircuitOpen = b.IsOpen()
		}
		out = append(out, status)
	}
	return out
}

// BackendStatus is a registry entry annotated with runtime state.
type BackendStatus struct {
	BackendSpec
	Configured  bool `json:"configured"`
	Default     bool `json:"default"`
	CircuitOpen bool `json:"circuit_open"`
}

// Select resolves backendID to a usable backend. An empty ID means the
// default. When the chosen backend lacks credentials the first family, in
// fallback order, whose default backend has credentials is used instead.
func (i *Invoker) Select(backendID string) (spec BackendSpec, fellBack bool, err error) {
	if backendID == "" {
		backendID = i.defaultBackend
	}
	spec, ok := i.registry.Get(backendID)
	if !ok {
		return BackendSpec{}, false, &ConfigError{Backend: backendID, Err: ErrUnknownBackend}
	}
	if i.credentials.Has(spec.CredentialRef) {
		return spec, false, nil
	}
	for _, family := range i.familyOrder {
		candidate, ok := i.registry.FamilyDefault(family)
		if ok && i.credentials.Has(candidate.CredentialRef) {
			return candidate, true, nil
		}
	}
	return BackendSpec{}, false, &ConfigError{Backend: backendID, Err: ErrNotConfigured}
}

// Invoke scores text with the named backend. The returned error is non-nil
// only for selection problems (*ConfigError); backend failures are reported
// through Outcome.State.
func (i *Invoker) Invoke(ctx context.Context, text, backendID string) (Outcome, error) {
	if !i.enabled {
		return Outcome{State: StateNotConfigured, Backend: backendID, Reason: ErrNotConfigured.Error()},
			&ConfigError{Err: ErrNotConfigured}
	}

	spec, fellBack, err := i.Select(backendID)
	if err != nil {
		state := StateNotConfigured
		if errors.Is(err, ErrUnknownBackend) {
			state = StateFailed
		}
		return Outcome{State: state, Backend: backendID, Reason: err.Error()}, err
	}
	if fellBack {
		i.logger.InfoContext(ctx, "backend lacks credentials, falling back",
			"requested", backendID,
			"backend", spec.ID,
		)
	}

	ctx, span := tracer.Start(ctx, "invoker.Invoke",
		trace.WithAttributes(
			attribute.String("backend.id", spec.ID),
			attribute.String("backend.family", string(spec.Family)),
			attribute.String("backend.model", spec.Model),
			attribute.Bool("backend.fallback", fellBack),
		))
	defer span.End()

	out := i.run(ctx, spec, text)
	out.FellBack = fellBack

	span.SetAttributes(
		attribute.String("invoke.state", string(out.State)),
		attribute.Int("invoke.attempts", out.Attempts),
	)
	if out.State != StateResult {
		span.SetStatus(codes.Error, out.Reason)
	}
	return out, nil
}

func (i *Invoker) run(ctx context.Context, spec BackendSpec, text string) Outcome {
	out := Outcome{State: StateInit, Backend: spec.ID, Model: spec.Model}

	client, err := i.client(ctx, spec)
	if err != nil {
		i.logger.ErrorContext(ctx, "failed to create backend client", "backend", spec.ID, "error", err)
		out.State = StateFailed
		out.Category = backends.ErrorInternal
		out.Reason = err.Error()
		return out
	}

	req := backends.Request{
		Model:       spec.Model,
		System:      systemPrompt,
		Prompt:      buildPrompt(text, i.maxPromptChars),
		MaxTokens:   i.maxTokens,
		Temperature: i.temperature,
	}

	var (
		raw      string
		callErr  error
		decision retry.Decision
	)
	for {
		switch out.State {
		case StateInit:
			out.State = StateSending

		case StateSending:
			raw, callErr = i.attempt(ctx, client, spec, req, out.Attempts)
			decision = i.policy.Decide(out.Attempts, callErr)
			out.Attempts++
			switch decision.Action {
			case retry.Succeed:
				out.State = StateSuccess
			case retry.Fail:
				out.State = StatePermanentFailure
			default:
				out.State = StateTransientFailure
			}

		case StateSuccess:
			i.recordSuccess(spec.ID)
			parsed := i.parser.Parse(raw)
			out.Score = parsed.Score
			out.Strategy = parsed.Strategy
			out.Explanation = explain.Sanitize(parsed.Explanation, parsed.Score)
			out.State = StateResult
			return out

		case StateTransientFailure:
			open := i.recordFailure(ctx, spec.ID)
			if decision.Action == retry.Retry && open {
				i.logger.WarnContext(ctx, "circuit open, not retrying", "backend", spec.ID, "attempts", out.Attempts)
				decision = retry.Decision{Action: retry.GiveUp}
			}
			if decision.Action != retry.Retry {
				out.State = StateDegraded
				out.Category = backends.GetCategory(callErr)
				out.Reason = callErr.Error()
				i.logger.WarnContext(ctx, "backend unavailable after retries",
					"backend", spec.ID,
					"attempts", out.Attempts,
					"error", callErr,
				)
				return out
			}

			i.logger.InfoContext(ctx, "backend overloaded, retrying",
				"backend", spec.ID,
				"attempt", out.Attempts,
				"delay", decision.Delay,
			)
			if err := i.sleep(ctx, decision.Delay); err != nil {
				out.State = StateDegraded
				out.Category = backends.ErrorTimeout
				out.Reason = err.Error()
				return out
			}
			out.State = StateSending

		case StatePermanentFailure:
			out.State = StateFailed
			out.Category = backends.GetCategory(callErr)
			out.Reason = callErr.Error()
			i.logger.ErrorContext(ctx, "backend call failed",
				"backend", spec.ID,
				"category", out.Category,
				"error", callErr,
			)
			return out

		default:
			out.Reason = fmt.Sprintf("unexpected state %q", out.State)
			out.State = StateFailed
			return out
		}
	}
}

func (i *Invoker) attempt(ctx context.Context, client backends.Client, spec BackendSpec, req backends.Request, n int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, i.attemptTimeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "invoker.attempt",
		trace.WithAttributes(
			attribute.String("backend.id", spec.ID),
			attribute.Int("attempt", n),
		))
	defer span.End()

	start := time.Now()
	raw, err := client.Complete(ctx, req)
	outcome := "success"
	if err != nil {
		var be *backends.Error
		if !errors.As(err, &be) && errors.Is(err, context.DeadlineExceeded) {
			err = backends.NewError(backends.ErrorTimeout, spec.ID, "attempt timed out", 0, err)
		}
		outcome = string(backends.GetCategory(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	i.metrics.ObserveBackendAttempt(spec.ID, outcome, time.Since(start))
	return raw, err
}

func (i *Invoker) client(ctx context.Context, spec BackendSpec) (backends.Client, error) {
	lc := i.clients[spec.ID]
	lc.mu.Lock()
	defer lc.mu.Unlock()

	if lc.client != nil {
		return lc.client, nil
	}
	client, err := i.factory(ctx, spec, i.credentials[spec.CredentialRef])
	if err != nil {
		return nil, err
	}
	lc.client = client
	return client, nil
}

func (i *Invoker) recordFailure(ctx context.Context, backendID string) (open bool) {
	b, ok := i.breakers[backendID]
	if !ok {
		return false
	}
	open, change := b.RecordFailure()
	if change.Opened {
		i.logger.WarnContext(ctx, "circuit opened", "backend", backendID)
		i.metrics.SetCircuitOpen(backendID, true)
	}
	return open
}

func (i *Invoker) recordSuccess(backendID string) {
	b, ok := i.breakers[backendID]
	if !ok {
		return
	}
	if _, change := b.RecordSuccess(); change.Closed {
		i.logger.Info("circuit closed", "backend", backendID)
		i.metrics.SetCircuitOpen(backendID, false)
	}
}
