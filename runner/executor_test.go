package runner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dapaulid/stressy/types"
)

func newTestExecutor(t *testing.T, cfg ExecutorConfig) CommandExecutor {
	t.Helper()
	exec, err := NewCommandExecutor(cfg)
	require.NoError(t, err)
	return exec
}

func shellExecutor(t *testing.T, script string, timeout time.Duration) CommandExecutor {
	t.Helper()
	return newTestExecutor(t, ExecutorConfig{
		Spec: types.CommandSpec{
			Command: []string{"/bin/sh", "-c", script},
			Timeout: timeout,
		},
	})
}

func TestExecute_PassingCommand(t *testing.T) {
	exec := shellExecutor(t, "echo ok", 0)

	outcome, err := exec.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusPass, outcome.Status)
	assert.Equal(t, 0, outcome.ExitCode)
	assert.NoError(t, outcome.Err)
	assert.Equal(t, 1, outcome.Index)
	assert.Equal(t, "ok\n", string(outcome.Output))
	assert.False(t, outcome.OutputTruncated)
	assert.Greater(t, outcome.Duration, time.Duration(0))
}

func TestExecute_FailingCommandReportsExitCode(t *testing.T) {
	exec := shellExecutor(t, "echo boom >&2; exit 3", 0)

	outcome, err := exec.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusFail, outcome.Status)
	assert.Equal(t, 3, outcome.ExitCode)
	assert.Error(t, outcome.Err)
	assert.Contains(t, string(outcome.Output), "boom")
}

func TestExecute_CapturesStderrAndStdout(t *testing.T) {
	exec := shellExecutor(t, "echo out; echo err >&2", 0)

	outcome, err := exec.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Contains(t, string(outcome.Output), "out")
	assert.Contains(t, string(outcome.Output), "err")
}

func TestExecute_TimeoutKillsCommand(t *testing.T) {
	exec := shellExecutor(t, "sleep 30", 100*time.Millisecond)

	start := time.Now()
	outcome, err := exec.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusTimeout, outcome.Status)
	assert.Error(t, outcome.Err)
	assert.True(t, outcome.Status.Failed())
	// must not wait anywhere near the full sleep
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecute_NoProcessLeakAfterTimeout(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), "pid")
	exec := shellExecutor(t, fmt.Sprintf("echo $$ > %s; sleep 30", pidFile), 100*time.Millisecond)

	outcome, err := exec.Execute(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, types.RunStatusTimeout, outcome.Status)

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)

	// the child must be gone from the process table, not detached or zombied
	killErr := syscall.Kill(pid, 0)
	assert.ErrorIs(t, killErr, syscall.ESRCH)
}

func TestExecute_CancellationKillsCommand(t *testing.T) {
	exec := shellExecutor(t, "sleep 30", 0)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	outcome, err := exec.Execute(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusCancelled, outcome.Status)
	assert.False(t, outcome.Status.Failed())
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestExecute_CancelledBeforeStartDoesNotSpawn(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "spawned")
	exec := shellExecutor(t, "touch "+marker, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome, err := exec.Execute(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, types.RunStatusCancelled, outcome.Status)

	_, statErr := os.Stat(marker)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExecute_SpawnFailureIsFatal(t *testing.T) {
	exec := newTestExecutor(t, ExecutorConfig{
		Spec: types.CommandSpec{Command: []string{"/nonexistent/binary"}},
	})

	outcome, err := exec.Execute(context.Background(), 1)
	require.Error(t, err)
	assert.Nil(t, outcome)
}

func TestExecute_WorkDir(t *testing.T) {
	dir := t.TempDir()
	exec := newTestExecutor(t, ExecutorConfig{
		Spec: types.CommandSpec{
			Command: []string{"/bin/sh", "-c", "pwd"},
			WorkDir: dir,
		},
	})

	outcome, err := exec.Execute(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, types.RunStatusPass, outcome.Status)
	got, err := filepath.EvalSymlinks(string(bytes.TrimSpace(outcome.Output)))
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExecute_EnvOverlay(t *testing.T) {
	exec := newTestExecutor(t, ExecutorConfig{
		Spec: types.CommandSpec{
			Command: []string{"/bin/sh", "-c", "echo $STRESSY_TEST_VALUE"},
			Env:     map[string]string{"STRESSY_TEST_VALUE": "overlaid"},
		},
	})

	outcome, err := exec.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "overlaid\n", string(outcome.Output))
}

func TestExecute_OutputIsTailBounded(t *testing.T) {
	exec := newTestExecutor(t, ExecutorConfig{
		Spec: types.CommandSpec{
			Command: []string{"/bin/sh", "-c", "i=0; while [ $i -lt 1000 ]; do echo line$i; i=$((i+1)); done"},
		},
		TailBytes: 128,
	})

	outcome, err := exec.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(outcome.Output), 128)
	assert.True(t, outcome.OutputTruncated)
	assert.Contains(t, string(outcome.Output), "line999")
}

func TestExecute_StreamMirrorsOutput(t *testing.T) {
	var mirror bytes.Buffer
	exec := newTestExecutor(t, ExecutorConfig{
		Spec:   types.CommandSpec{Command: []string{"/bin/sh", "-c", "echo mirrored"}},
		Stream: &mirror,
	})

	outcome, err := exec.Execute(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "mirrored\n", mirror.String())
	assert.Equal(t, "mirrored\n", string(outcome.Output))
}

func TestNewCommandExecutor_RejectsEmptyCommand(t *testing.T) {
	_, err := NewCommandExecutor(ExecutorConfig{})
	require.Error(t, err)
}

func TestMergeEnv_OverlayWins(t *testing.T) {
	t.Setenv("STRESSY_MERGE_TEST", "ambient")

	env := mergeEnv(map[string]string{"STRESSY_MERGE_TEST": "overlay"})

	// last entry wins for duplicated keys, so the overlay must come after
	// the ambient value
	last := ""
	for _, kv := range env {
		if strings.HasPrefix(kv, "STRESSY_MERGE_TEST=") {
			last = kv
		}
	}
	assert.Equal(t, "STRESSY_MERGE_TEST=overlay", last)
}
