package flags

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "STRESSY"

// prefixEnvVars adds the application prefix to the environment variable name
// of a flag.
func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

// OutputMode selects what to do with the output of the command under test.
type OutputMode string

const (
	OutputAll  OutputMode = "all"  // stream every run's output to the terminal
	OutputFail OutputMode = "fail" // print the captured tail of the failing run only
	OutputFile OutputMode = "file" // write the failing run's captured tail to the log directory
	OutputNone OutputMode = "none" // discard all run output
)

func (m OutputMode) String() string {
	return string(m)
}

func (m OutputMode) IsValid() bool {
	switch m {
	case OutputAll, OutputFail, OutputFile, OutputNone:
		return true
	default:
		return false
	}
}

// ValidOutputModes returns all supported output modes.
func ValidOutputModes() []OutputMode {
	return []OutputMode{OutputAll, OutputFail, OutputFile, OutputNone}
}

func validateOutputMode(value string) error {
	if !OutputMode(value).IsValid() {
		modes := make([]string, 0, len(ValidOutputModes()))
		for _, m := range ValidOutputModes() {
			modes = append(modes, m.String())
		}
		return fmt.Errorf("output mode must be one of: %s", strings.Join(modes, ", "))
	}
	return nil
}

var (
	Runs = &cli.IntFlag{
		Name:    "runs",
		Aliases: []string{"n"},
		Value:   0,
		EnvVars: prefixEnvVars("RUNS"),
		Usage:   "Number of repetitions. Repeat until failure if not specified",
	}
	Processes = &cli.IntFlag{
		Name:    "processes",
		Aliases: []string{"p"},
		Value:   1,
		EnvVars: prefixEnvVars("PROCESSES"),
		Usage:   "Number of processes to run the command in parallel",
	}
	Timeout = &cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Value:   0,
		EnvVars: prefixEnvVars("TIMEOUT"),
		Usage:   "Per-run timeout for the command to complete (e.g. '30s'). 0 disables it",
	}
	Sleep = &cli.DurationFlag{
		Name:    "sleep",
		Aliases: []string{"s"},
		Value:   0,
		EnvVars: prefixEnvVars("SLEEP"),
		Usage:   "Duration to wait before the next run",
	}
	MaxTime = &cli.DurationFlag{
		Name:    "max-time",
		Value:   0,
		EnvVars: prefixEnvVars("MAX_TIME"),
		Usage:   "Halt the campaign after this much total wall-clock time",
	}
	Continue = &cli.BoolFlag{
		Name:    "continue",
		Aliases: []string{"c"},
		Value:   false,
		EnvVars: prefixEnvVars("CONTINUE"),
		Usage:   "Continue after first failure, only counting failures",
	}
	ConsecutiveFailures = &cli.IntFlag{
		Name:    "consecutive-failures",
		Value:   0,
		EnvVars: prefixEnvVars("CONSECUTIVE_FAILURES"),
		Usage:   "Halt only after this many failures in an unbroken streak",
	}
	Output = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   OutputFail.String(),
		EnvVars: prefixEnvVars("OUTPUT"),
		Usage:   "Destination for command output: all, fail, file or none",
		Action: func(_ *cli.Context, value string) error {
			return validateOutputMode(value)
		},
	}
	WorkDir = &cli.StringFlag{
		Name:    "workdir",
		Aliases: []string{"C"},
		Value:   "",
		EnvVars: prefixEnvVars("WORKDIR"),
		Usage:   "Working directory for the command under test",
	}
	Env = &cli.StringSliceFlag{
		Name:    "env",
		Aliases: []string{"e"},
		EnvVars: prefixEnvVars("ENV"),
		Usage:   "Extra KEY=VALUE environment entries for the command, repeatable",
	}
	TailBytes = &cli.IntFlag{
		Name:    "tail-bytes",
		Value:   0,
		EnvVars: prefixEnvVars("TAIL_BYTES"),
		Usage:   "Bytes of output retained per run (tail). 0 uses the built-in default",
	}
	LogDir = &cli.StringFlag{
		Name:    "log-dir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOG_DIR"),
		Usage:   "Directory for failure logs when --output=file",
	}
	Results = &cli.BoolFlag{
		Name:    "results",
		Aliases: []string{"r"},
		Value:   false,
		EnvVars: prefixEnvVars("RESULTS"),
		Usage:   "Print previous results for the given command and exit",
	}
	ClearResults = &cli.BoolFlag{
		Name:    "clear-results",
		Value:   false,
		EnvVars: prefixEnvVars("CLEAR_RESULTS"),
		Usage:   "Clear previous results for the given command and exit",
	}
	NoHistory = &cli.BoolFlag{
		Name:    "no-history",
		Value:   false,
		EnvVars: prefixEnvVars("NO_HISTORY"),
		Usage:   "Do not record this campaign in the results history",
	}
	ConfigFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: prefixEnvVars("CONFIG"),
		Usage:   "Path to a YAML file providing flag defaults (default: .stressy.yaml if present)",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log.level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level: debug, info, warn, error",
	}
	Progress = &cli.BoolFlag{
		Name:    "progress",
		Value:   false,
		EnvVars: prefixEnvVars("PROGRESS"),
		Usage:   "Periodically log campaign progress",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress.interval",
		Value:   10 * time.Second,
		EnvVars: prefixEnvVars("PROGRESS_INTERVAL"),
		Usage:   "Interval between progress updates when --progress is set",
	}
	MetricsAddr = &cli.StringFlag{
		Name:    "metrics.addr",
		Value:   "",
		EnvVars: prefixEnvVars("METRICS_ADDR"),
		Usage:   "Serve prometheus metrics on this address (e.g. ':7300') during the campaign",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   "",
		EnvVars: prefixEnvVars("HEALTHZ_ADDR"),
		Usage:   "Serve a healthz endpoint on this address during the campaign",
	}
)

var optionalFlags = []cli.Flag{
	Runs,
	Processes,
	Timeout,
	Sleep,
	MaxTime,
	Continue,
	ConsecutiveFailures,
	Output,
	WorkDir,
	Env,
	TailBytes,
	LogDir,
	Results,
	ClearResults,
	NoHistory,
	ConfigFile,
	LogLevel,
	Progress,
	ProgressInterval,
	MetricsAddr,
	HealthzAddr,
}

var Flags []cli.Flag

func init() {
	Flags = append(Flags, optionalFlags...)
}
