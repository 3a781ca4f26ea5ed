package types

import (
	"strings"
	"time"

	"github.com/dapaulid/stressy/exitcodes"
)

// RunStatus represents how a single run of the command ended
type RunStatus string

const (
	RunStatusPass      RunStatus = "pass"      // command exited with code 0
	RunStatusFail      RunStatus = "fail"      // command exited with a non-zero code
	RunStatusTimeout   RunStatus = "timeout"   // command was killed after exceeding the per-run timeout
	RunStatusCancelled RunStatus = "cancelled" // command was killed because the user requested a stop
)

// Failed reports whether the status counts as a failure for stop policies.
// A cancelled run is not a failure: the user asked to stop, the command did
// not misbehave.
func (s RunStatus) Failed() bool {
	return s == RunStatusFail || s == RunStatusTimeout
}

// CommandSpec describes the command every iteration runs. It is constructed
// once from configuration and read-only for the lifetime of the engine.
type CommandSpec struct {
	Command []string          // command tokens; Command[0] is the executable
	WorkDir string            // working directory, empty for the current one
	Env     map[string]string // overlay merged onto the ambient environment
	Timeout time.Duration     // per-run timeout, 0 disables it
}

// String renders the command line for logs and reports.
func (s CommandSpec) String() string {
	return strings.Join(s.Command, " ")
}

// Outcome is the recorded result of one iteration. Instances are created by
// the executor and become immutable once handed to the repeater.
type Outcome struct {
	Index           int           // 1-based dispatch index, monotonic
	Status          RunStatus
	ExitCode        int           // meaningful for pass/fail only
	Err             error         // descriptive error for failed runs, nil otherwise
	Started         time.Time
	Duration        time.Duration
	Output          []byte        // tail-bounded combined stdout/stderr
	OutputTruncated bool          // true when Output dropped leading bytes
}

// HaltReason classifies why the repeat loop stopped.
type HaltReason string

const (
	HaltFailureDetected HaltReason = "failure-detected"
	HaltLimitReached    HaltReason = "limit-reached"
	HaltCancelled       HaltReason = "cancelled"
)

// StopDecision is returned by a stop policy after each recorded outcome.
type StopDecision struct {
	Halt   bool
	Reason HaltReason
}

// Continue returns the decision to keep dispatching iterations.
func Continue() StopDecision {
	return StopDecision{}
}

// HaltWith returns the decision to stop with the given reason.
func HaltWith(reason HaltReason) StopDecision {
	return StopDecision{Halt: true, Reason: reason}
}

// Summary is the final aggregate of a campaign, produced once at halt.
type Summary struct {
	RunID     string
	Command   string
	Started   time.Time
	Elapsed   time.Duration
	Reason    HaltReason
	Attempts  int
	Successes int
	Failures  int
	Cancelled int // runs killed by user cancellation, neither pass nor fail

	MinDuration    time.Duration
	MedianDuration time.Duration
	MaxDuration    time.Duration

	// Trigger is the outcome that caused a failure halt, with its captured
	// output retained. Nil unless Reason is HaltFailureDetected.
	Trigger *Outcome
}

// SuccessRate returns the fraction of completed (non-cancelled) runs that
// passed, in [0,1]. Returns 1 when nothing completed.
func (s *Summary) SuccessRate() float64 {
	completed := s.Successes + s.Failures
	if completed == 0 {
		return 1
	}
	return float64(s.Successes) / float64(completed)
}

// ExitCode maps the campaign result to the process exit code contract:
// 0 when the campaign completed without failures, 1 when any run failed,
// 2 when the user cancelled.
func (s *Summary) ExitCode() int {
	switch {
	case s.Reason == HaltCancelled:
		return exitcodes.Cancelled
	case s.Failures > 0:
		return exitcodes.Failed
	default:
		return exitcodes.Passed
	}
}
