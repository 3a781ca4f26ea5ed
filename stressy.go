package stressy

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"

	"github.com/dapaulid/stressy/exitcodes"
	"github.com/dapaulid/stressy/flags"
	"github.com/dapaulid/stressy/metrics"
	"github.com/dapaulid/stressy/reporting"
	"github.com/dapaulid/stressy/runner"
	"github.com/dapaulid/stressy/types"
)

// Stressy wires the repeat-execution engine to the configured reporting and
// persistence surfaces.
type Stressy struct {
	config   *Config
	log      log.Logger
	repeater *runner.Repeater
	store    *reporting.Store

	summary *types.Summary
}

// New creates a new Stressy instance from the given config. A nil store
// disables the results history.
func New(config *Config, store *reporting.Store) (*Stressy, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	logger := config.Log
	if logger == nil {
		logger = log.Root()
	}

	spec := types.CommandSpec{
		Command: config.Command,
		WorkDir: config.WorkDir,
		Env:     config.Env,
		Timeout: config.Timeout,
	}

	var stream io.Writer
	if config.OutputMode == flags.OutputAll {
		stream = os.Stdout
	}

	executor, err := runner.NewCommandExecutor(runner.ExecutorConfig{
		Spec:      spec,
		TailBytes: config.TailBytes,
		Stream:    stream,
		Log:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create executor: %w", err)
	}

	runID := uuid.New().String()
	progress := buildProgress(config, runID)

	repeater, err := runner.NewRepeater(runner.RepeaterConfig{
		Executor:    executor,
		Policy:      buildPolicy(config),
		Parallelism: config.Processes,
		Sleep:       config.Sleep,
		Command:     spec.String(),
		RunID:       runID,
		RunsHint:    config.Runs,
		Progress:    progress,
		Log:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create repeater: %w", err)
	}

	return &Stressy{
		config:   config,
		log:      logger,
		repeater: repeater,
		store:    store,
	}, nil
}

// buildPolicy maps the configured halt behavior to a stop policy.
func buildPolicy(config *Config) runner.StopPolicy {
	limits := runner.Limits{
		MaxRuns:    config.Runs,
		MaxElapsed: config.MaxTime,
	}
	switch {
	case config.ContinueAfterFailure:
		return runner.NewFixedCountPolicy(limits)
	case config.ConsecutiveFailures > 0:
		return runner.NewConsecutiveFailuresPolicy(config.ConsecutiveFailures, limits)
	default:
		return runner.NewFirstFailurePolicy(limits)
	}
}

// buildProgress assembles the progress chain: metrics recording always runs,
// periodic log updates only when enabled.
func buildProgress(config *Config, runID string) runner.ProgressIndicator {
	var inner runner.ProgressIndicator
	if config.ShowProgress {
		inner = runner.NewLogProgressIndicator(config.Log, config.ProgressInterval)
	} else {
		inner = runner.NewNoOpProgressIndicator()
	}
	return &metricsProgress{runID: runID, inner: inner}
}

// metricsProgress records per-run and campaign metrics while delegating the
// display to the wrapped indicator.
type metricsProgress struct {
	runID string
	inner runner.ProgressIndicator
}

func (m *metricsProgress) StartCampaign(command string, totalRuns int) {
	m.inner.StartCampaign(command, totalRuns)
}

func (m *metricsProgress) StartRun(index int) {
	m.inner.StartRun(index)
}

func (m *metricsProgress) CompleteRun(outcome *types.Outcome) {
	metrics.RecordRun(m.runID, outcome.Status, outcome.Duration)
	m.inner.CompleteRun(outcome)
}

func (m *metricsProgress) CompleteCampaign(summary *types.Summary) {
	metrics.RecordCampaign(summary)
	m.inner.CompleteCampaign(summary)
}

// Run executes the campaign to completion and retains the summary for
// reporting. A non-nil error means the harness itself failed, not the command
// under test.
func (s *Stressy) Run(ctx context.Context) (_ *types.Summary, err error) {
	// engine invariant panics become runtime errors, not a crash dump
	defer func() {
		if r := recover(); r != nil {
			err = NewRuntimeError(fmt.Errorf("internal error: %v", r))
		}
	}()

	summary, err := s.repeater.Run(ctx)
	if err != nil {
		metrics.RecordErrorDetails("campaign", err)
		return nil, NewRuntimeError(err)
	}
	s.summary = summary

	if s.store != nil && s.config.RecordHistory {
		entry := reporting.EntryFromSummary(summary, s.config.Processes)
		if err := s.store.Append(entry); err != nil {
			// history is best effort, the campaign result stands
			s.log.Warn("Failed to record campaign in results history", "error", err)
		}
	}
	return summary, nil
}

// Report writes the campaign outcome to w: the failing run's output according
// to the output mode, the summary table, and the one-line verdict.
func (s *Stressy) Report(w io.Writer, colored bool) error {
	if s.summary == nil {
		return fmt.Errorf("no campaign has been run")
	}

	if s.summary.Trigger != nil {
		switch s.config.OutputMode {
		case flags.OutputFail:
			reporting.RenderFailureOutput(w, s.summary.Trigger)
		case flags.OutputFile:
			path, err := s.writeFailureFile(s.summary.Trigger)
			if err != nil {
				return fmt.Errorf("failed to write failure log: %w", err)
			}
			fmt.Fprintf(w, "output of failing run written to %s\n", path)
		}
	}

	reporting.RenderSummary(w, s.summary, s.config.Processes, colored)
	fmt.Fprintln(w, reporting.FormatSummaryLine(s.summary, s.config.Processes))
	return nil
}

// writeFailureFile persists the failing run's captured output under the
// configured log directory.
func (s *Stressy) writeFailureFile(o *types.Outcome) (string, error) {
	if err := os.MkdirAll(s.config.LogDir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("stressy-run%d-%s.log", o.Index, o.Started.Format("20060102-150405"))
	path := filepath.Join(s.config.LogDir, name)
	if err := os.WriteFile(path, o.Output, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Summary returns the frozen result of the last campaign, or nil if none ran.
func (s *Stressy) Summary() *types.Summary {
	return s.summary
}

// ExitCode maps the campaign result to the process exit code.
func (s *Stressy) ExitCode() int {
	if s.summary == nil {
		return exitcodes.RuntimeErr
	}
	return s.summary.ExitCode()
}
