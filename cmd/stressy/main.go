package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	stressy "github.com/dapaulid/stressy"
	"github.com/dapaulid/stressy/exitcodes"
	"github.com/dapaulid/stressy/flags"
	"github.com/dapaulid/stressy/reporting"
	"github.com/dapaulid/stressy/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "stressy"
	app.Usage = "Repeat a command until it fails"
	app.Description = "stressy runs a command over and over to flush out flaky behavior, " +
		"then reports how often and how fast it failed"
	app.ArgsUsage = "command [args...]"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if stressy.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.Failed))
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logger := setupLogger(ctx)
	command := ctx.Args().Slice()
	store := openStore(logger)

	// history maintenance modes exit before any run happens
	if ctx.Bool(flags.ClearResults.Name) {
		return clearResults(store, command)
	}
	if ctx.Bool(flags.Results.Name) {
		return showResults(store, command)
	}

	if len(command) == 0 {
		cli.ShowAppHelpAndExit(ctx, exitcodes.RuntimeErr)
	}

	cfg, err := stressy.NewConfig(ctx, logger, command)
	if err != nil {
		return stressy.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	app, err := stressy.New(cfg, store)
	if err != nil {
		return stressy.NewRuntimeError(fmt.Errorf("failed to create stressy: %w", err))
	}

	if cfg.HealthzAddr != "" || cfg.MetricsAddr != "" {
		svc := service.New()
		svc.Start(ctx.Context, cfg.HealthzAddr, cfg.MetricsAddr)
		defer svc.Shutdown()
	}

	summary, err := app.Run(ctx.Context)
	if err != nil {
		return err
	}

	if err := app.Report(os.Stdout, useColor(os.Stdout)); err != nil {
		return stressy.NewRuntimeError(err)
	}

	if code := summary.ExitCode(); code != exitcodes.Passed {
		// carry the campaign verdict without repeating the summary line
		return cli.Exit("", code)
	}
	return nil
}

// setupLogger builds the process logger from the log.level flag, colorizing
// when stderr is a terminal.
func setupLogger(ctx *cli.Context) log.Logger {
	level := parseLogLevel(ctx.String(flags.LogLevel.Name))
	colored := useColor(os.Stderr)
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, level, colored)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.LevelDebug
	case "warn":
		return log.LevelWarn
	case "error":
		return log.LevelError
	default:
		return log.LevelInfo
	}
}

func useColor(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// openStore locates the results history. Failure to resolve the path disables
// history rather than aborting runs.
func openStore(logger log.Logger) *reporting.Store {
	path, err := reporting.DefaultStorePath()
	if err != nil {
		logger.Warn("Results history unavailable", "error", err)
		return nil
	}
	return reporting.NewStore(path)
}

func showResults(store *reporting.Store, command []string) error {
	if store == nil {
		return stressy.NewRuntimeError(errors.New("results history is unavailable"))
	}
	filter := strings.Join(command, " ")
	entries, err := store.List(filter)
	if err != nil {
		return stressy.NewRuntimeError(fmt.Errorf("failed to read results: %w", err))
	}
	if len(entries) == 0 {
		fmt.Println("no results recorded")
		return nil
	}
	reporting.RenderEntries(os.Stdout, entries)
	return nil
}

func clearResults(store *reporting.Store, command []string) error {
	if store == nil {
		return stressy.NewRuntimeError(errors.New("results history is unavailable"))
	}
	filter := strings.Join(command, " ")
	if err := store.Clear(filter); err != nil {
		return stressy.NewRuntimeError(fmt.Errorf("failed to clear results: %w", err))
	}
	if filter == "" {
		fmt.Println("cleared all results")
	} else {
		fmt.Printf("cleared results for %q\n", filter)
	}
	return nil
}
