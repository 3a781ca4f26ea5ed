package runner

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc"

	"github.com/dapaulid/stressy/types"
)

// repeaterState tracks the engine's lifecycle: dispatching, draining
// in-flight work after a halt decision, or done.
type repeaterState int

const (
	stateRunning repeaterState = iota
	stateHalting
	stateHalted
)

func (s repeaterState) String() string {
	switch s {
	case stateRunning:
		return "running"
	case stateHalting:
		return "halting"
	default:
		return "halted"
	}
}

// RepeaterConfig configures a Repeater.
type RepeaterConfig struct {
	Executor    CommandExecutor
	Policy      StopPolicy
	Parallelism int           // concurrent runner slots, DefaultParallelism when 0
	Sleep       time.Duration // pause between sequential runs, ignored when parallel
	Command     string        // display string for progress and summary
	RunID       string        // campaign identifier, generated when empty
	RunsHint    int           // configured run count for progress display, 0 = unbounded
	Progress    ProgressIndicator
	Log         log.Logger
}

// Repeater orchestrates iterations against the executor, consulting the stop
// policy after each completed outcome. It is the single writer of the run
// history: outcome hand-off is serialized through one consumption loop even
// when runs execute in parallel, so policy decisions always observe a
// consistent, totally-ordered view of completed outcomes.
type Repeater struct {
	cfg     RepeaterConfig
	log     log.Logger
	history *History
	stats   *statsAggregator
}

// NewRepeater creates a repeat-execution engine.
func NewRepeater(cfg RepeaterConfig) (*Repeater, error) {
	if cfg.Executor == nil {
		return nil, errors.New("executor cannot be nil")
	}
	if cfg.Policy == nil {
		return nil, errors.New("stop policy cannot be nil")
	}
	if cfg.Parallelism < 0 {
		return nil, errors.New("parallelism cannot be negative")
	}
	if cfg.Parallelism == 0 {
		cfg.Parallelism = DefaultParallelism
	}
	if cfg.Progress == nil {
		cfg.Progress = NewNoOpProgressIndicator()
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.Parallelism > MaxReasonableParallelism {
		cfg.Log.Warn("Very high parallelism requested", "parallelism", cfg.Parallelism,
			"recommendation", "consider lower values to avoid resource exhaustion")
	}

	return &Repeater{
		cfg:     cfg,
		log:     cfg.Log.New("component", "repeater"),
		history: NewHistory(),
		stats:   newStatsAggregator(),
	}, nil
}

// execResult carries one worker's hand-off to the consumption loop.
type execResult struct {
	outcome *types.Outcome
	err     error
}

// Run drives the repeat loop until the stop policy halts it, the context is
// cancelled, or a run cannot be spawned. It blocks until every in-flight
// child process has been reaped and returns the frozen summary.
func (r *Repeater) Run(ctx context.Context) (*types.Summary, error) {
	runID := r.cfg.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	started := time.Now()
	r.log.Info("Starting campaign", "runId", runID, "command", r.cfg.Command, "parallelism", r.cfg.Parallelism)
	r.cfg.Progress.StartCampaign(r.cfg.Command, r.cfg.RunsHint)

	// Cancelling runCtx actively terminates in-flight runs. It is used for
	// user cancellation and fatal spawn errors; failure and limit halts let
	// in-flight work finish naturally.
	runCtx, cancelRuns := context.WithCancel(ctx)
	defer cancelRuns()

	dispatchCh := make(chan int)
	resultCh := make(chan execResult)

	var wg conc.WaitGroup
	for i := 0; i < r.cfg.Parallelism; i++ {
		wg.Go(func() { r.worker(runCtx, dispatchCh, resultCh) })
	}

	state := stateRunning
	var reason types.HaltReason
	var trigger *types.Outcome
	var fatal error
	next := 0     // last dispatched index, strictly increasing
	inFlight := 0

	for {
		// Top up runner slots while the engine is still running. Indices are
		// assigned here, at dispatch time, by the single consumption loop.
		for state == stateRunning && inFlight < r.cfg.Parallelism {
			if err := r.pause(ctx, next); err != nil {
				state, reason = stateHalting, types.HaltCancelled
				break
			}
			if ctx.Err() != nil {
				state, reason = stateHalting, types.HaltCancelled
				break
			}
			next++
			inFlight++
			r.cfg.Progress.StartRun(next)
			dispatchCh <- next
		}
		if inFlight == 0 {
			break
		}

		// Outcomes arrive in completion order, which under parallelism is not
		// dispatch order. History records them as they complete.
		res := <-resultCh
		inFlight--

		if res.err != nil {
			// Spawn failure: fatal to the whole campaign, not a run failure.
			if fatal == nil {
				fatal = res.err
			}
			state = stateHalting
			cancelRuns()
			continue
		}

		o := res.outcome
		r.history.Record(o)
		r.stats.Record(o)
		r.cfg.Progress.CompleteRun(o)

		if state != stateRunning {
			continue // draining, the halt decision stands
		}

		decision := r.cfg.Policy.Decide(r.history, time.Since(started), ctx.Err() != nil)
		if !decision.Halt {
			continue
		}

		state = stateHalting
		reason = decision.Reason
		r.log.Debug("Stop policy halted campaign", "reason", reason, "attempts", r.history.Attempts())

		switch reason {
		case types.HaltCancelled:
			cancelRuns()
		case types.HaltFailureDetected:
			if o.Status.Failed() {
				trigger = o
			}
		}
	}

	close(dispatchCh)
	wg.Wait()
	state = stateHalted

	if fatal != nil {
		r.log.Error("Campaign aborted", "state", state, "err", fatal)
		return nil, fatal
	}

	summary := r.stats.Summarize(r.history, runID, r.cfg.Command, started, time.Since(started), reason, trigger)
	r.cfg.Progress.CompleteCampaign(summary)
	r.log.Info("Campaign halted", "state", state, "reason", reason,
		"attempts", summary.Attempts, "failures", summary.Failures, "elapsed", summary.Elapsed.Truncate(time.Millisecond))
	return summary, nil
}

// History returns a read-only snapshot of the run history so far. Safe to
// call only after Run returns; concurrent readers during a campaign observe
// it through the progress indicator instead.
func (r *Repeater) History() HistorySnapshot {
	return r.history.Snapshot()
}

// worker executes dispatched iterations until the dispatch channel closes.
func (r *Repeater) worker(ctx context.Context, dispatchCh <-chan int, resultCh chan<- execResult) {
	for index := range dispatchCh {
		outcome, err := r.cfg.Executor.Execute(ctx, index)
		resultCh <- execResult{outcome: outcome, err: err}
	}
}

// pause waits the configured sleep between sequential runs. Returns an error
// when cancelled while waiting.
func (r *Repeater) pause(ctx context.Context, dispatched int) error {
	if r.cfg.Sleep <= 0 || dispatched == 0 || r.cfg.Parallelism > 1 {
		return nil
	}
	timer := time.NewTimer(r.cfg.Sleep)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
