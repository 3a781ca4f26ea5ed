package runner

import (
	"sort"
	"time"

	"github.com/dapaulid/stressy/types"
)

// statsAggregator folds the outcome stream into running aggregates. Record is
// O(1) in time and memory so unbounded campaigns do not grow the aggregator;
// the median is derived at freeze time from the per-run durations the history
// keeps anyway.
type statsAggregator struct {
	attempts  int
	successes int
	failures  int
	cancelled int

	minDuration time.Duration
	maxDuration time.Duration
	sumDuration time.Duration
	completed   int // runs counted in the duration aggregates
}

func newStatsAggregator() *statsAggregator {
	return &statsAggregator{}
}

func (a *statsAggregator) Record(o *types.Outcome) {
	a.attempts++
	switch {
	case o.Status == types.RunStatusCancelled:
		a.cancelled++
		return // cancelled runs do not contribute timing data
	case o.Status.Failed():
		a.failures++
	default:
		a.successes++
	}

	a.completed++
	a.sumDuration += o.Duration
	if a.completed == 1 || o.Duration < a.minDuration {
		a.minDuration = o.Duration
	}
	if o.Duration > a.maxDuration {
		a.maxDuration = o.Duration
	}
}

// Summarize freezes the aggregates into a Summary. The history provides the
// duration distribution for the median; it must contain exactly the outcomes
// previously passed to Record.
func (a *statsAggregator) Summarize(history *History, runID, command string, started time.Time, elapsed time.Duration, reason types.HaltReason, trigger *types.Outcome) *types.Summary {
	if history.Attempts() != a.attempts {
		// Engine bug: the single-writer invariant has been violated.
		panic("runner: history length diverged from recorded attempts")
	}

	return &types.Summary{
		RunID:          runID,
		Command:        command,
		Started:        started,
		Elapsed:        elapsed,
		Reason:         reason,
		Attempts:       a.attempts,
		Successes:      a.successes,
		Failures:       a.failures,
		Cancelled:      a.cancelled,
		MinDuration:    a.minDuration,
		MedianDuration: medianDuration(history.Durations()),
		MaxDuration:    a.maxDuration,
		Trigger:        trigger,
	}
}

func medianDuration(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
