package stressy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/dapaulid/stressy/flags"
)

// DefaultConfigFile is picked up from the working directory when no --config
// flag is given.
const DefaultConfigFile = ".stressy.yaml"

// Config holds the application configuration
type Config struct {
	Command              []string          // command tokens to run repeatedly
	WorkDir              string            // working directory for the command
	Env                  map[string]string // environment overlay for the command
	Timeout              time.Duration     // per-run timeout, 0 disables it
	Runs                 int               // number of repetitions, 0 = until failure
	Processes            int               // parallel runner slots
	Sleep                time.Duration     // pause between sequential runs
	MaxTime              time.Duration     // campaign wall-clock limit, 0 = unbounded
	ContinueAfterFailure bool              // keep going after failures, only counting them
	ConsecutiveFailures  int               // halt after this failure streak, 0 = first failure
	OutputMode           flags.OutputMode  // what to do with run output
	TailBytes            int               // output retained per run, 0 = default
	LogDir               string            // failure log directory for OutputFile mode
	RecordHistory        bool              // append the campaign to the results history
	ShowProgress         bool              // periodically log campaign progress
	ProgressInterval     time.Duration     // interval between progress updates
	MetricsAddr          string            // prometheus listen address, "" = off
	HealthzAddr          string            // healthz listen address, "" = off
	Log                  log.Logger
}

// fileConfig mirrors the subset of flags that may be defaulted from a YAML
// config file. Flags set on the command line or environment always win.
type fileConfig struct {
	Runs                int    `yaml:"runs"`
	Processes           int    `yaml:"processes"`
	Timeout             string `yaml:"timeout"`
	Sleep               string `yaml:"sleep"`
	MaxTime             string `yaml:"max_time"`
	Output              string `yaml:"output"`
	ConsecutiveFailures int    `yaml:"consecutive_failures"`
	TailBytes           int    `yaml:"tail_bytes"`
	LogDir              string `yaml:"log_dir"`
	MetricsAddr         string `yaml:"metrics_addr"`
	HealthzAddr         string `yaml:"healthz_addr"`
}

// NewConfig creates a new Config from the cli context and the trailing
// command arguments.
func NewConfig(ctx *cli.Context, logger log.Logger, command []string) (*Config, error) {
	if len(command) == 0 {
		return nil, errors.New("no command specified")
	}

	cfg := &Config{
		Command:              command,
		Timeout:              ctx.Duration(flags.Timeout.Name),
		Runs:                 ctx.Int(flags.Runs.Name),
		Processes:            ctx.Int(flags.Processes.Name),
		Sleep:                ctx.Duration(flags.Sleep.Name),
		MaxTime:              ctx.Duration(flags.MaxTime.Name),
		ContinueAfterFailure: ctx.Bool(flags.Continue.Name),
		ConsecutiveFailures:  ctx.Int(flags.ConsecutiveFailures.Name),
		OutputMode:           flags.OutputMode(ctx.String(flags.Output.Name)),
		TailBytes:            ctx.Int(flags.TailBytes.Name),
		LogDir:               ctx.String(flags.LogDir.Name),
		RecordHistory:        !ctx.Bool(flags.NoHistory.Name),
		ShowProgress:         ctx.Bool(flags.Progress.Name),
		ProgressInterval:     ctx.Duration(flags.ProgressInterval.Name),
		MetricsAddr:          ctx.String(flags.MetricsAddr.Name),
		HealthzAddr:          ctx.String(flags.HealthzAddr.Name),
		Log:                  logger,
	}

	if err := applyFileDefaults(ctx, cfg); err != nil {
		return nil, err
	}

	if workDir := ctx.String(flags.WorkDir.Name); workDir != "" {
		absWorkDir, err := filepath.Abs(workDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for working directory %q: %w", workDir, err)
		}
		cfg.WorkDir = absWorkDir
	}

	env, err := parseEnvOverlay(ctx.StringSlice(flags.Env.Name))
	if err != nil {
		return nil, err
	}
	cfg.Env = env

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Processes < 1 {
		return fmt.Errorf("processes must be at least 1, got %d", c.Processes)
	}
	if c.Runs < 0 {
		return fmt.Errorf("runs cannot be negative, got %d", c.Runs)
	}
	if c.ConsecutiveFailures < 0 {
		return fmt.Errorf("consecutive-failures cannot be negative, got %d", c.ConsecutiveFailures)
	}
	if c.TailBytes < 0 {
		return fmt.Errorf("tail-bytes cannot be negative, got %d", c.TailBytes)
	}
	if !c.OutputMode.IsValid() {
		return fmt.Errorf("invalid output mode: %s", c.OutputMode)
	}
	if c.OutputMode == flags.OutputFile && c.LogDir == "" {
		return errors.New("log-dir is required when --output=file")
	}
	return nil
}

// applyFileDefaults merges YAML file values into flags the user did not set.
func applyFileDefaults(ctx *cli.Context, cfg *Config) error {
	path := ctx.String(flags.ConfigFile.Name)
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %q: %w", path, err)
	}

	if !ctx.IsSet(flags.Runs.Name) && fc.Runs != 0 {
		cfg.Runs = fc.Runs
	}
	if !ctx.IsSet(flags.Processes.Name) && fc.Processes != 0 {
		cfg.Processes = fc.Processes
	}
	if !ctx.IsSet(flags.Timeout.Name) && fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout in config file: %w", err)
		}
		cfg.Timeout = d
	}
	if !ctx.IsSet(flags.Sleep.Name) && fc.Sleep != "" {
		d, err := time.ParseDuration(fc.Sleep)
		if err != nil {
			return fmt.Errorf("invalid sleep in config file: %w", err)
		}
		cfg.Sleep = d
	}
	if !ctx.IsSet(flags.MaxTime.Name) && fc.MaxTime != "" {
		d, err := time.ParseDuration(fc.MaxTime)
		if err != nil {
			return fmt.Errorf("invalid max_time in config file: %w", err)
		}
		cfg.MaxTime = d
	}
	if !ctx.IsSet(flags.Output.Name) && fc.Output != "" {
		cfg.OutputMode = flags.OutputMode(fc.Output)
	}
	if !ctx.IsSet(flags.ConsecutiveFailures.Name) && fc.ConsecutiveFailures != 0 {
		cfg.ConsecutiveFailures = fc.ConsecutiveFailures
	}
	if !ctx.IsSet(flags.TailBytes.Name) && fc.TailBytes != 0 {
		cfg.TailBytes = fc.TailBytes
	}
	if !ctx.IsSet(flags.LogDir.Name) && fc.LogDir != "" {
		cfg.LogDir = fc.LogDir
	}
	if !ctx.IsSet(flags.MetricsAddr.Name) && fc.MetricsAddr != "" {
		cfg.MetricsAddr = fc.MetricsAddr
	}
	if !ctx.IsSet(flags.HealthzAddr.Name) && fc.HealthzAddr != "" {
		cfg.HealthzAddr = fc.HealthzAddr
	}
	return nil
}

// parseEnvOverlay turns repeated KEY=VALUE flags into the environment overlay
// map.
func parseEnvOverlay(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid environment entry %q, expected KEY=VALUE", pair)
		}
		env[key] = value
	}
	return env, nil
}
