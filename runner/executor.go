package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/dapaulid/stressy/types"
)

var _ CommandExecutor = (*commandExecutor)(nil)

// CommandExecutor runs one iteration of the command under test and reports its
// Outcome. The returned error is non-nil only when the command could not be
// launched at all; that is fatal to the whole campaign and must never be
// treated as a per-run failure.
type CommandExecutor interface {
	Execute(ctx context.Context, index int) (*types.Outcome, error)
}

// ExecutorFunc adapts a function to the CommandExecutor interface.
type ExecutorFunc func(ctx context.Context, index int) (*types.Outcome, error)

func (f ExecutorFunc) Execute(ctx context.Context, index int) (*types.Outcome, error) {
	return f(ctx, index)
}

// ExecutorConfig configures a command executor.
type ExecutorConfig struct {
	Spec      types.CommandSpec
	TailBytes int       // output retained per run, DefaultTailBytes when 0
	Stream    io.Writer // optional live mirror of the child's output
	Log       log.Logger
}

// commandExecutor implements CommandExecutor on top of os/exec. Each call
// creates and reaps exactly one child process; termination is always awaited,
// never fired-and-forgotten.
type commandExecutor struct {
	spec      types.CommandSpec
	tailBytes int
	stream    io.Writer
	log       log.Logger
}

// NewCommandExecutor creates an executor for the given command spec.
func NewCommandExecutor(cfg ExecutorConfig) (CommandExecutor, error) {
	if len(cfg.Spec.Command) == 0 {
		return nil, errors.New("command cannot be empty")
	}
	logger := cfg.Log
	if logger == nil {
		logger = log.Root()
	}
	return &commandExecutor{
		spec:      cfg.Spec,
		tailBytes: cfg.TailBytes,
		stream:    cfg.Stream,
		log:       logger.New("component", "executor"),
	}, nil
}

// Execute spawns the command and blocks until it terminates, times out or the
// context is cancelled. Timeout and cancellation both kill the child's whole
// process group and wait for the handle to be reaped.
func (e *commandExecutor) Execute(ctx context.Context, index int) (*types.Outcome, error) {
	outcome := &types.Outcome{Index: index, Started: time.Now()}

	// Cancellation is checked at spawn time: a run requested after the stop
	// signal never starts a child.
	if ctx.Err() != nil {
		outcome.Status = types.RunStatusCancelled
		return outcome, nil
	}

	cmd := exec.Command(e.spec.Command[0], e.spec.Command[1:]...)
	cmd.Dir = e.spec.WorkDir
	cmd.Env = mergeEnv(e.spec.Env)
	// Own process group, so killing the child takes its descendants with it.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	tail := newTailBuffer(e.tailBytes)
	var out io.Writer = tail
	if e.stream != nil {
		out = io.MultiWriter(tail, e.stream)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to launch command %q: %w", e.spec.String(), err)
	}
	e.log.Debug("Spawned run", "run", index, "pid", cmd.Process.Pid)

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	var timeoutCh <-chan time.Time
	if e.spec.Timeout > 0 {
		timer := time.NewTimer(e.spec.Timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case waitErr := <-waitCh:
		outcome.Duration = time.Since(outcome.Started)
		e.classifyExit(outcome, waitErr)

	case <-timeoutCh:
		e.terminate(cmd, waitCh)
		outcome.Duration = time.Since(outcome.Started)
		outcome.Status = types.RunStatusTimeout
		outcome.Err = fmt.Errorf("killed after exceeding timeout of %s", e.spec.Timeout)
		e.log.Debug("Run timed out", "run", index, "timeout", e.spec.Timeout)

	case <-ctx.Done():
		e.terminate(cmd, waitCh)
		outcome.Duration = time.Since(outcome.Started)
		outcome.Status = types.RunStatusCancelled
		e.log.Debug("Run cancelled", "run", index)
	}

	outcome.Output = tail.Bytes()
	outcome.OutputTruncated = tail.Truncated()
	return outcome, nil
}

// classifyExit fills status, exit code and error for a child that terminated
// on its own.
func (e *commandExecutor) classifyExit(outcome *types.Outcome, waitErr error) {
	if waitErr == nil {
		outcome.Status = types.RunStatusPass
		return
	}
	exitErr := &exec.ExitError{}
	if errors.As(waitErr, &exitErr) {
		outcome.Status = types.RunStatusFail
		outcome.ExitCode = exitErr.ExitCode()
		outcome.Err = fmt.Errorf("exited with code %d", exitErr.ExitCode())
		return
	}
	outcome.Status = types.RunStatusFail
	outcome.Err = fmt.Errorf("failed to wait for command: %w", waitErr)
}

// terminate kills the child's process group and waits for the process handle
// to be reaped so no zombie is left behind. SIGTERM first, SIGKILL after the
// grace period.
func (e *commandExecutor) terminate(cmd *exec.Cmd, waitCh <-chan error) {
	pgid := cmd.Process.Pid
	_ = syscall.Kill(-pgid, syscall.SIGTERM)

	select {
	case <-waitCh:
	case <-time.After(killGracePeriod):
		_ = syscall.Kill(-pgid, syscall.SIGKILL)
		<-waitCh
	}
}

// mergeEnv overlays the spec's environment onto the ambient process
// environment. Overlay keys are appended last and therefore win.
func mergeEnv(overlay map[string]string) []string {
	env := os.Environ()
	if len(overlay) == 0 {
		return env
	}
	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overlay[k])
	}
	return env
}
