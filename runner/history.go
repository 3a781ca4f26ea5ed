package runner

import (
	"time"

	"github.com/dapaulid/stressy/types"
)

// HistoryEntry is the per-run summary kept in the history. It deliberately
// excludes captured output so memory stays bounded for arbitrarily long
// campaigns.
type HistoryEntry struct {
	Index    int
	Status   types.RunStatus
	ExitCode int
	Started  time.Time
	Duration time.Duration
}

// History is the repeater's append-only record of completed outcomes. It has
// exactly one writer, the repeater's consumption loop, and is therefore
// unsynchronized; external readers must use Snapshot.
type History struct {
	entries []HistoryEntry

	successes int
	failures  int
	cancelled int

	consecutiveFailures  int
	consecutiveSuccesses int
}

func NewHistory() *History {
	return &History{}
}

// Record appends the outcome's summary fields and updates the derived
// counters. The outcome's captured output is not retained here.
func (h *History) Record(o *types.Outcome) {
	h.entries = append(h.entries, HistoryEntry{
		Index:    o.Index,
		Status:   o.Status,
		ExitCode: o.ExitCode,
		Started:  o.Started,
		Duration: o.Duration,
	})

	switch {
	case o.Status == types.RunStatusCancelled:
		h.cancelled++
	case o.Status.Failed():
		h.failures++
		h.consecutiveFailures++
		h.consecutiveSuccesses = 0
	default:
		h.successes++
		h.consecutiveSuccesses++
		h.consecutiveFailures = 0
	}
}

// Attempts returns the number of recorded outcomes.
func (h *History) Attempts() int { return len(h.entries) }

func (h *History) Successes() int { return h.successes }
func (h *History) Failures() int  { return h.failures }
func (h *History) Cancelled() int { return h.cancelled }

// ConsecutiveFailures returns the length of the current failure streak,
// counted over completed (non-cancelled) runs.
func (h *History) ConsecutiveFailures() int { return h.consecutiveFailures }

// ConsecutiveSuccesses returns the length of the current passing streak.
func (h *History) ConsecutiveSuccesses() int { return h.consecutiveSuccesses }

// Last returns the most recently recorded entry, or false when empty.
func (h *History) Last() (HistoryEntry, bool) {
	if len(h.entries) == 0 {
		return HistoryEntry{}, false
	}
	return h.entries[len(h.entries)-1], true
}

// Durations returns the wall-clock duration of every completed run, in
// completion order. Cancelled runs are excluded: their duration measures the
// user's patience, not the command.
func (h *History) Durations() []time.Duration {
	out := make([]time.Duration, 0, len(h.entries))
	for _, e := range h.entries {
		if e.Status == types.RunStatusCancelled {
			continue
		}
		out = append(out, e.Duration)
	}
	return out
}

// Snapshot returns a read-only copy of the history for consumers outside the
// repeater's consumption loop.
func (h *History) Snapshot() HistorySnapshot {
	entries := make([]HistoryEntry, len(h.entries))
	copy(entries, h.entries)
	return HistorySnapshot{
		Entries:              entries,
		Successes:            h.successes,
		Failures:             h.failures,
		Cancelled:            h.cancelled,
		ConsecutiveFailures:  h.consecutiveFailures,
		ConsecutiveSuccesses: h.consecutiveSuccesses,
	}
}

// HistorySnapshot is a point-in-time copy of the run history.
type HistorySnapshot struct {
	Entries              []HistoryEntry
	Successes            int
	Failures             int
	Cancelled            int
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
}
