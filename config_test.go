package stressy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/dapaulid/stressy/flags"
)

// parseConfig runs the flag parser the same way the binary does and captures
// the resulting config.
func parseConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	var cfg *Config
	var cfgErr error
	app := cli.NewApp()
	app.Flags = flags.Flags
	app.Action = func(ctx *cli.Context) error {
		cfg, cfgErr = NewConfig(ctx, nil, ctx.Args().Slice())
		return nil
	}
	require.NoError(t, app.Run(append([]string{"stressy"}, args...)))
	return cfg, cfgErr
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := parseConfig(t, "true")
	require.NoError(t, err)

	assert.Equal(t, []string{"true"}, cfg.Command)
	assert.Equal(t, 0, cfg.Runs)
	assert.Equal(t, 1, cfg.Processes)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.Equal(t, time.Duration(0), cfg.Sleep)
	assert.False(t, cfg.ContinueAfterFailure)
	assert.Equal(t, flags.OutputFail, cfg.OutputMode)
	assert.True(t, cfg.RecordHistory)
	assert.Empty(t, cfg.WorkDir)
	assert.Nil(t, cfg.Env)
}

func TestNewConfig_Flags(t *testing.T) {
	cfg, err := parseConfig(t,
		"-n", "100",
		"-p", "4",
		"-t", "30s",
		"-s", "1s",
		"-c",
		"-o", "all",
		"-e", "FOO=bar",
		"-e", "BAZ=qux",
		"--no-history",
		"go", "test", "./...",
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"go", "test", "./..."}, cfg.Command)
	assert.Equal(t, 100, cfg.Runs)
	assert.Equal(t, 4, cfg.Processes)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, time.Second, cfg.Sleep)
	assert.True(t, cfg.ContinueAfterFailure)
	assert.Equal(t, flags.OutputAll, cfg.OutputMode)
	assert.Equal(t, map[string]string{"FOO": "bar", "BAZ": "qux"}, cfg.Env)
	assert.False(t, cfg.RecordHistory)
}

func TestNewConfig_RequiresCommand(t *testing.T) {
	_, err := parseConfig(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no command")
}

func TestNewConfig_RejectsInvalidValues(t *testing.T) {
	_, err := parseConfig(t, "-p", "0", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "processes")

	_, err = parseConfig(t, "-n", "-1", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "runs")
}

func TestNewConfig_FileModeRequiresLogDir(t *testing.T) {
	_, err := parseConfig(t, "-o", "file", "--log-dir", "", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log-dir")
}

func TestNewConfig_ResolvesWorkDir(t *testing.T) {
	cfg, err := parseConfig(t, "-C", ".", "true")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.WorkDir))
}

func TestNewConfig_RejectsMalformedEnv(t *testing.T) {
	_, err := parseConfig(t, "-e", "NOEQUALS", "true")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KEY=VALUE")
}

func TestNewConfig_FileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stressy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runs: 25\ntimeout: 45s\noutput: none\n"), 0o644))

	cfg, err := parseConfig(t, "--config", path, "true")
	require.NoError(t, err)
	assert.Equal(t, 25, cfg.Runs)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, flags.OutputNone, cfg.OutputMode)
}

func TestNewConfig_FlagsBeatFileDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stressy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runs: 25\nprocesses: 8\n"), 0o644))

	cfg, err := parseConfig(t, "--config", path, "-n", "5", "true")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Runs, "command line wins over the file")
	assert.Equal(t, 8, cfg.Processes, "unset flags take the file value")
}

func TestNewConfig_MissingExplicitConfigFileFails(t *testing.T) {
	_, err := parseConfig(t, "--config", "/nonexistent/stressy.yaml", "true")
	require.Error(t, err)
}

func TestNewConfig_MalformedConfigFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stressy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runs: [not a number\n"), 0o644))

	_, err := parseConfig(t, "--config", path, "true")
	require.Error(t, err)
}
