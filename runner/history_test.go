package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapaulid/stressy/types"
)

func TestHistory_Counters(t *testing.T) {
	h := NewHistory()
	recordOutcomes(h,
		types.RunStatusPass,
		types.RunStatusFail,
		types.RunStatusTimeout,
		types.RunStatusCancelled,
		types.RunStatusPass,
	)

	assert.Equal(t, 5, h.Attempts())
	assert.Equal(t, 2, h.Successes())
	assert.Equal(t, 2, h.Failures())
	assert.Equal(t, 1, h.Cancelled())
	assert.Equal(t, h.Attempts(), h.Successes()+h.Failures()+h.Cancelled())
}

func TestHistory_ConsecutiveFailures(t *testing.T) {
	h := NewHistory()

	recordOutcomes(h, types.RunStatusFail, types.RunStatusFail)
	assert.Equal(t, 2, h.ConsecutiveFailures())

	// a pass resets the streak
	recordOutcomes(h, types.RunStatusPass)
	assert.Equal(t, 0, h.ConsecutiveFailures())

	// a cancelled run neither extends nor resets it
	recordOutcomes(h, types.RunStatusFail, types.RunStatusCancelled, types.RunStatusFail)
	assert.Equal(t, 2, h.ConsecutiveFailures())
}

func TestHistory_ConsecutiveSuccesses(t *testing.T) {
	h := NewHistory()

	recordOutcomes(h, types.RunStatusPass, types.RunStatusPass, types.RunStatusPass)
	assert.Equal(t, 3, h.ConsecutiveSuccesses())

	recordOutcomes(h, types.RunStatusFail)
	assert.Equal(t, 0, h.ConsecutiveSuccesses())

	recordOutcomes(h, types.RunStatusPass, types.RunStatusCancelled)
	assert.Equal(t, 1, h.ConsecutiveSuccesses())
}

func TestHistory_DurationsExcludeCancelled(t *testing.T) {
	h := NewHistory()
	h.Record(&types.Outcome{Index: 1, Status: types.RunStatusPass, Duration: 10 * time.Millisecond})
	h.Record(&types.Outcome{Index: 2, Status: types.RunStatusCancelled, Duration: 500 * time.Millisecond})
	h.Record(&types.Outcome{Index: 3, Status: types.RunStatusFail, Duration: 20 * time.Millisecond})

	durations := h.Durations()
	require.Len(t, durations, 2)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, durations)
}

func TestHistory_Last(t *testing.T) {
	h := NewHistory()
	_, ok := h.Last()
	assert.False(t, ok)

	recordOutcomes(h, types.RunStatusPass, types.RunStatusFail)
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, types.RunStatusFail, last.Status)
	assert.Equal(t, 2, last.Index)
}

func TestHistory_SnapshotIsIndependent(t *testing.T) {
	h := NewHistory()
	recordOutcomes(h, types.RunStatusPass)

	snap := h.Snapshot()
	recordOutcomes(h, types.RunStatusFail)

	assert.Len(t, snap.Entries, 1)
	assert.Equal(t, 0, snap.Failures)
	assert.Equal(t, 1, h.Failures())
}
