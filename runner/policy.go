package runner

import (
	"time"

	"github.com/dapaulid/stressy/types"
)

// StopPolicy decides, after each recorded outcome, whether the repeater keeps
// dispatching iterations or halts. Implementations must be pure functions of
// the history, the elapsed wall time and the cancellation flag, with no side
// effects, so they stay independently testable.
//
// When several halt conditions hold in the same step the priority order is
// Cancelled > FailureDetected > LimitReached: a user-requested stop always
// wins, and an observed failure is reported even if a limit was hit in the
// same step.
type StopPolicy interface {
	Decide(history *History, elapsed time.Duration, cancelRequested bool) types.StopDecision
}

// Limits bounds a campaign independently of pass/fail behavior. Zero values
// mean unbounded.
type Limits struct {
	MaxRuns    int
	MaxElapsed time.Duration
}

func (l Limits) reached(history *History, elapsed time.Duration) bool {
	if l.MaxRuns > 0 && history.Attempts() >= l.MaxRuns {
		return true
	}
	if l.MaxElapsed > 0 && elapsed >= l.MaxElapsed {
		return true
	}
	return false
}

// firstFailurePolicy is the tool's defining behavior: run until failure.
type firstFailurePolicy struct {
	limits Limits
}

// NewFirstFailurePolicy halts on the first failing run, or when the given
// limits are exceeded.
func NewFirstFailurePolicy(limits Limits) StopPolicy {
	return &firstFailurePolicy{limits: limits}
}

func (p *firstFailurePolicy) Decide(history *History, elapsed time.Duration, cancelRequested bool) types.StopDecision {
	switch {
	case cancelRequested:
		return types.HaltWith(types.HaltCancelled)
	case history.Failures() > 0:
		return types.HaltWith(types.HaltFailureDetected)
	case p.limits.reached(history, elapsed):
		return types.HaltWith(types.HaltLimitReached)
	default:
		return types.Continue()
	}
}

// fixedCountPolicy runs a set number of iterations regardless of outcome,
// only counting failures along the way. A zero count runs until cancelled.
type fixedCountPolicy struct {
	limits Limits
}

// NewFixedCountPolicy continues through failures until the limits are
// exhausted. With zero limits only cancellation halts the campaign.
func NewFixedCountPolicy(limits Limits) StopPolicy {
	return &fixedCountPolicy{limits: limits}
}

func (p *fixedCountPolicy) Decide(history *History, elapsed time.Duration, cancelRequested bool) types.StopDecision {
	switch {
	case cancelRequested:
		return types.HaltWith(types.HaltCancelled)
	case p.limits.reached(history, elapsed):
		return types.HaltWith(types.HaltLimitReached)
	default:
		return types.Continue()
	}
}

// consecutiveFailuresPolicy tolerates isolated failures and halts once they
// come in an unbroken streak of the given length.
type consecutiveFailuresPolicy struct {
	threshold int
	limits    Limits
}

// NewConsecutiveFailuresPolicy halts after threshold consecutive failing
// runs, or when the given limits are exceeded.
func NewConsecutiveFailuresPolicy(threshold int, limits Limits) StopPolicy {
	if threshold < 1 {
		threshold = 1
	}
	return &consecutiveFailuresPolicy{threshold: threshold, limits: limits}
}

func (p *consecutiveFailuresPolicy) Decide(history *History, elapsed time.Duration, cancelRequested bool) types.StopDecision {
	switch {
	case cancelRequested:
		return types.HaltWith(types.HaltCancelled)
	case history.ConsecutiveFailures() >= p.threshold:
		return types.HaltWith(types.HaltFailureDetected)
	case p.limits.reached(history, elapsed):
		return types.HaltWith(types.HaltLimitReached)
	default:
		return types.Continue()
	}
}
