package invoker

import (
	"fmt"

	"biasmeter/internal/bias/invoker/backends"
	"biasmeter/internal/bias/models"
	"biasmeter/internal/bias/normalize"
)

// State is a step of the invocation state machine.
type State string

const (
	StateInit             State = "init"
	StateSending          State = "sending"
	StateSuccess          State = "success"
	StateTransientFailure State = "transient_failure"
	StatePermanentFailure State = "permanent_failure"

	// Terminal states.
	StateResult        State = "result"
	StateDegraded      State = "degraded_result"
	StateFailed        State = "failed_result"
	StateNotConfigured State = "not_configured"
)

// ResultMessageFormat is the message for a scored model result.
const ResultMessageFormat = "Political bias analysis score: %.2f (negative=left, positive=right)"

// Outcome is the terminal state of one Invoke call.
type Outcome struct {
	State       State
	Backend     string
	Model       string
	Score       float64
	Explanation string
	Strategy    string
	Attempts    int
	FellBack    bool

	// Category and Reason describe the last failure. Empty on success.
	Category backends.ErrorCategory
	Reason   string
}

// Cacheable reports whether the outcome is a real score.
func (o Outcome) Cacheable() bool {
	return o.State == StateResult
}

// Result converts the outcome into percentages. Every non-result state maps
// to a neutral 50/50 split with a message naming what went wrong.
func (o Outcome) Result() models.BiasResult {
	switch o.State {
	case StateResult:
		split := normalize.ToPercentages(o.Score, normalize.ModelScale)
		return models.BiasResult{
			Left:        split.Left,
			Right:       split.Right,
			Message:     fmt.Sprintf(ResultMessageFormat, o.Score),
			Explanation: o.Explanation,
		}
	case StateDegraded:
		return models.Neutral(
			fmt.Sprintf("Model backend %s is currently unavailable; returning a neutral result.", o.Backend),
			fmt.Sprintf("The backend reported overload or unavailability on %d attempt(s), so no bias estimate was made.", o.Attempts),
		)
	case StateNotConfigured:
		return models.Neutral(
			"Model analysis is not configured.",
			"No model backend has credentials. Configure an API key or use lexicon mode.",
		)
	default:
		category := o.Category
		if category == "" {
			category = backends.ErrorInternal
		}
		return models.Neutral(
			fmt.Sprintf("Model analysis failed for backend %s.", o.Backend),
			fmt.Sprintf("The backend call failed (%s), so no bias estimate was made.", category),
		)
	}
}
