// Package runner implements the repeat-execution engine.
//
// The main components are:
//   - CommandExecutor: spawns one iteration of the command as a child process
//     and turns its termination into an Outcome
//   - tailBuffer: bounded capture of a run's combined stdout/stderr
//   - StopPolicy: pure decision function choosing whether to continue or halt
//   - Repeater: drives the loop, owns the run history, serializes outcome
//     processing and applies the stop policy
//   - statsAggregator: streaming summary statistics over the outcome stream
//
// These components work together to reproduce intermittent failures by brute
// force repetition, with proper timeout handling, graceful cancellation and no
// leaked child processes.
package runner
