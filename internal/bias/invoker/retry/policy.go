// Package retry decides, per attempt, whether a failed backend call is
// retried and how long to wait first. Decisions are pure given the jitter
// source, which keeps the invoker's state machine testable without sleeping.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Defaults for backend retries.
const (
	DefaultMaxRetries = 4
	DefaultBaseDelay  = time.Second
	DefaultMaxJitter  = time.Second

	// MaxDelay caps the exponential part of a backoff.
	MaxDelay = 5 * time.Minute
)

// Action is what the caller should do after an attempt.
type Action int

const (
	// Succeed: the attempt returned without error.
	Succeed Action = iota
	// Retry: transient failure with budget left; wait Delay then try again.
	Retry
	// Fail: permanent failure; do not retry.
	Fail
	// GiveUp: transient failure but the retry budget is spent.
	GiveUp
)

func (a Action) String() string {
	switch a {
	case Succeed:
		return "succeed"
	case Retry:
		return "retry"
	case Fail:
		return "fail"
	case GiveUp:
		return "give_up"
	default:
		return "unknown"
	}
}

// Decision is the outcome of Policy.Decide.
type Decision struct {
	Action Action
	Delay  time.Duration
}

// Policy is an exponential backoff with additive jitter:
// delay = BaseDelay * 2^attempt + U[0, MaxJitter).
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxJitter  time.Duration

	// IsTransient classifies errors. Required.
	IsTransient func(error) bool

	// Jitter returns a value in [0, max). Defaults to a uniform random draw.
	Jitter func(max time.Duration) time.Duration
}

// DefaultPolicy returns the standard backend policy using isTransient.
func DefaultPolicy(isTransient func(error) bool) Policy {
	return Policy{
		MaxRetries:  DefaultMaxRetries,
		BaseDelay:   DefaultBaseDelay,
		MaxJitter:   DefaultMaxJitter,
		IsTransient: isTransient,
	}
}

// Decide maps the zero-based attempt index and its error to an action.
// Attempt n (0..MaxRetries-1) failing transiently yields Retry; attempt
// MaxRetries failing transiently yields GiveUp, so at most MaxRetries+1
// attempts are made.
func (p Policy) Decide(attempt int, err error) Decision {
	if err == nil {
		return Decision{Action: Succeed}
	}
	if p.IsTransient == nil || !p.IsTransient(err) {
		return Decision{Action: Fail}
	}
	if attempt >= p.MaxRetries {
		return Decision{Action: GiveUp}
	}
	return Decision{Action: Retry, Delay: p.Delay(attempt)}
}

// Delay computes the wait before the retry following attempt. The
// exponential part never exceeds MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	backoff := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	delay := MaxDelay
	if backoff < float64(MaxDelay) {
		delay = time.Duration(backoff)
	}
	return delay + p.jitter()
}

func (p Policy) jitter() time.Duration {
	if p.MaxJitter <= 0 {
		return 0
	}
	if p.Jitter != nil {
		return p.Jitter(p.MaxJitter)
	}
	return time.Duration(rand.Int64N(int64(p.MaxJitter)))
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
