// Package reporting renders campaign results for humans and persists the
// per-command results history.
package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/dapaulid/stressy/types"
)

// Verdict is the one-word classification printed and persisted for a
// campaign, mirroring the exit-code contract.
func Verdict(s *types.Summary) string {
	switch {
	case s.Reason == types.HaltCancelled:
		return "CANCELLED"
	case s.Failures > 0:
		return "FAILED"
	default:
		return "PASSED"
	}
}

// FormatSummaryLine renders the single closing line of a campaign, e.g.
// "FAILED after 41 successful runs, took 2min 13s".
func FormatSummaryLine(s *types.Summary, processes int) string {
	var line string
	switch Verdict(s) {
	case "PASSED":
		line = fmt.Sprintf("successfully completed all %d runs", s.Successes)
	case "FAILED":
		if s.Failures == 1 && s.Reason == types.HaltFailureDetected {
			line = fmt.Sprintf("FAILED after %d successful runs", s.Successes)
		} else {
			line = fmt.Sprintf("FAILED with %d failed and %d successful runs", s.Failures, s.Successes)
		}
	default:
		line = fmt.Sprintf("cancelled by user after %d failed and %d successful runs", s.Failures, s.Successes)
	}

	if processes > 1 {
		line += fmt.Sprintf(" on %d processes", processes)
	}
	line += fmt.Sprintf(", took %s", FormatDuration(s.Elapsed))
	return line
}

// durationUnits, largest first, for multi-part formatting of long durations.
var durationUnits = []struct {
	seconds int64
	suffix  string
}{
	{7 * 24 * 60 * 60, "w"},
	{24 * 60 * 60, "d"},
	{60 * 60, "h"},
	{60, "min"},
	{1, "s"},
}

// FormatDuration renders sub-minute durations with millisecond precision and
// longer ones as at most two coarse parts ("1h 12min").
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%0.3fs", d.Seconds())
	}

	remaining := int64(d.Seconds())
	var parts []string
	for _, unit := range durationUnits {
		n := remaining / unit.seconds
		remaining %= unit.seconds
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d%s", n, unit.suffix))
		}
		if len(parts) == 2 {
			break
		}
	}
	return strings.Join(parts, " ")
}
