// Package cli holds the entry points shared by the testbed commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/randomizedcoder/go-trigger-testbed/internal/classpath"
	"github.com/randomizedcoder/go-trigger-testbed/internal/config"
	"github.com/randomizedcoder/go-trigger-testbed/internal/driver"
	"github.com/randomizedcoder/go-trigger-testbed/internal/logging"
	"github.com/randomizedcoder/go-trigger-testbed/internal/orchestrator"
	"github.com/randomizedcoder/go-trigger-testbed/internal/parser"
	"github.com/randomizedcoder/go-trigger-testbed/internal/process"
)

// isVersionArg reports whether the first argument asks for the version.
func isVersionArg(args []string) bool {
	return len(args) > 0 && slices.Contains([]string{"-version", "--version", "version"}, args[0])
}

// RunBatch parses args for mode, runs the batch and returns the process
// exit status.
func RunBatch(mode config.Mode, version string, args []string, stdout, stderr io.Writer) int {
	// Handle version flag early (before flag parsing)
	if isVersionArg(args) {
		fmt.Fprintf(stdout, "%s %s\n", mode, version)
		return 0
	}

	cfg, err := config.ParseFlags(mode, args, stderr)
	if err != nil {
		if config.IsHelp(err) {
			return 0
		}
		fmt.Fprintf(stderr, "Error parsing flags: %v\n", err)
		return 1
	}

	// When TUI is enabled, suppress logs to avoid interfering with TUI rendering
	var logger *slog.Logger
	if cfg.TUIEnabled {
		logger = logging.NewLoggerWithWriter(io.Discard, "json", "info")
	} else {
		logger = logging.NewLogger(cfg.LogFormat, cfg.LogLevel, cfg.Debug)
	}
	logging.SetDefault(logger)

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(stderr, "Configuration error: %v\n", err)
		return 1
	}

	logger.Info("starting",
		"command", mode.String(),
		"version", version,
		"config_dir", cfg.ConfigDir,
		"target_dir", cfg.TargetDir,
		"log_file", cfg.LogFile,
		"metrics_addr", cfg.MetricsAddr,
	)

	orch := orchestrator.New(cfg, logger, orchestrator.Options{
		Version: version,
		Output:  stdout,
	})
	if err := orch.Run(context.Background()); err != nil {
		if !errors.Is(err, driver.ErrEmergencyExit) {
			logger.Error("batch_failed", "error", err)
			fmt.Fprintf(stderr, "%s: %v\n", mode, err)
		}
		return 1
	}
	return 0
}

// SingleRun runs the testbed once with arguments given by the user.
type SingleRun struct {
	// Java is the JVM executable (default "java").
	Java string

	// Resolver builds the classpath. Nil searches the environment's
	// build trees.
	Resolver classpath.Resolver

	// Debug prints the command before running it.
	Debug bool

	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// SingleRunFromEnv configures a single run from the environment; DEBUG
// being set at all enables command printing.
func SingleRunFromEnv() SingleRun {
	_, debug := os.LookupEnv("DEBUG")
	return SingleRun{
		Java:   process.DefaultJava,
		Debug:  debug,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logging.NewLogger("text", "warn", false),
	}
}

// Run passes args to the testbed main class, echoing its output, and
// returns the testbed's exit status.
func (s SingleRun) Run(ctx context.Context, args []string) int {
	stdout, stderr := s.Stdout, s.Stderr
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}
	logger := s.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	resolver := s.Resolver
	if resolver == nil {
		resolver = classpath.NewMavenResolver(classpath.LayoutFromEnv(), classpath.Subprojects, classpath.RepoJars, logger)
	}
	entries, err := resolver.Resolve()
	if err != nil {
		fmt.Fprintf(stderr, "test-trigger: %v\n", err)
		return 1
	}

	cmd := process.JavaCommand{
		Java:      s.Java,
		JVMArgs:   process.SplitJVMArgs(config.DefaultJavaArgs),
		MainClass: config.DefaultMainClass,
		Args:      args,
		Classpath: classpath.Join(entries),
	}
	if s.Debug {
		fmt.Fprintln(stdout, cmd.CommandString())
	}

	launcher := process.NewLauncher(process.LauncherConfig{
		ForwardSignals: true,
		Logger:         logger,
	})
	echo := parser.HandlerFunc(func(stream parser.Stream, text string) {
		if stream == parser.Stderr {
			fmt.Fprintln(stderr, text)
			return
		}
		fmt.Fprintln(stdout, text)
	})

	res, err := launcher.Run(ctx, cmd.Descriptor(0), echo)
	if err != nil {
		fmt.Fprintf(stderr, "test-trigger: %v\n", err)
		if res == nil {
			return 1
		}
	}
	return res.ExitCode
}
