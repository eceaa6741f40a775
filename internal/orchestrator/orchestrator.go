package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/randomizedcoder/go-trigger-testbed/internal/classpath"
	"github.com/randomizedcoder/go-trigger-testbed/internal/config"
	"github.com/randomizedcoder/go-trigger-testbed/internal/driver"
	"github.com/randomizedcoder/go-trigger-testbed/internal/logging"
	"github.com/randomizedcoder/go-trigger-testbed/internal/metrics"
	"github.com/randomizedcoder/go-trigger-testbed/internal/preflight"
	"github.com/randomizedcoder/go-trigger-testbed/internal/process"
	"github.com/randomizedcoder/go-trigger-testbed/internal/stats"
	"github.com/randomizedcoder/go-trigger-testbed/internal/tui"
	"github.com/randomizedcoder/go-trigger-testbed/internal/watchdog"
)

// Options holds the parts of a batch which are not taken from Config.
type Options struct {
	// Version is reported in logs and the batch info metric.
	Version string

	// Output receives status lines and the exit summary (default stdout).
	Output io.Writer

	// Resolver builds the testbed classpath. Nil searches the Maven
	// build trees under the configured pDAQ home.
	Resolver classpath.Resolver

	// CaptureDir receives the per-run capture file (default ".").
	CaptureDir string
}

// Orchestrator coordinates all components for a testbed batch.
type Orchestrator struct {
	config  *config.Config
	logger  *slog.Logger
	version string
	batchID string

	output     io.Writer
	console    io.Writer
	resolver   classpath.Resolver
	captureDir string

	registry      *prometheus.Registry
	metrics       *metrics.Collector
	metricsServer *metrics.Server
	stats         *stats.BatchStats
	launcher      *process.Launcher

	startTime time.Time
}

// New creates a new Orchestrator with the given configuration.
func New(cfg *config.Config, logger *slog.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	// The dashboard owns the terminal; status lines still reach the log file
	console := output
	if cfg.TUIEnabled {
		console = io.Discard
	}
	captureDir := opts.CaptureDir
	if captureDir == "" {
		captureDir = "."
	}

	batchID := uuid.New().String()
	logger = logger.With("batch_id", batchID)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollectorWithRegistry(metrics.CollectorConfig{
		BatchID: batchID,
		Mode:    cfg.Mode.String(),
		Version: opts.Version,
	}, registry)

	o := &Orchestrator{
		config:     cfg,
		logger:     logger,
		version:    opts.Version,
		batchID:    batchID,
		output:     output,
		console:    console,
		resolver:   opts.Resolver,
		captureDir: captureDir,
		registry:   registry,
		metrics:    collector,
		stats:      stats.NewBatchStats(),
	}

	o.launcher = process.NewLauncher(process.LauncherConfig{
		SearchPaths:    cfg.SearchPaths,
		ForwardSignals: true,
		Logger:         logger,
	})

	if o.resolver == nil {
		o.resolver = o.mavenResolver()
	}
	if cfg.MetricsAddr != "" {
		o.metricsServer = metrics.NewServer(cfg.MetricsAddr, registry, o.status, logger)
	}

	return o
}

// mavenResolver searches the environment's build trees, overridden by
// the configured pDAQ home and release.
func (o *Orchestrator) mavenResolver() classpath.Resolver {
	layout := classpath.LayoutFromEnv()
	if o.config.PDAQHome != "" {
		layout.PDAQHome = o.config.PDAQHome
	}
	if o.config.Release != "" {
		layout.Release = o.config.Release
	}
	return classpath.NewMavenResolver(layout, classpath.Subprojects, classpath.RepoJars, o.logger)
}

// BatchID returns the identifier of this batch.
func (o *Orchestrator) BatchID() string {
	return o.batchID
}

// Stats returns the batch statistics.
func (o *Orchestrator) Stats() *stats.BatchStats {
	return o.stats
}

// Metrics returns the metrics collector for external access.
func (o *Orchestrator) Metrics() *metrics.Collector {
	return o.metrics
}

// Registry returns the registry holding the batch metrics.
func (o *Orchestrator) Registry() *prometheus.Registry {
	return o.registry
}

// batchStatus is served on /status.
type batchStatus struct {
	BatchID string         `json:"batch_id"`
	Mode    string         `json:"mode"`
	Version string         `json:"version"`
	Stats   stats.Snapshot `json:"stats"`
}

func (o *Orchestrator) status() any {
	return batchStatus{
		BatchID: o.batchID,
		Mode:    o.config.Mode.String(),
		Version: o.version,
		Stats:   o.stats.Snapshot(),
	}
}

// Run executes the batch. It blocks until every selected run has finished
// or the batch is interrupted, and returns driver.ErrEmergencyExit if the
// operator stopped it.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.startTime = time.Now()
	cfg := o.config

	// Run preflight checks
	if !cfg.SkipPreflight {
		result := preflight.RunAll(preflight.Options{
			Java:          cfg.JavaPath,
			Finder:        o.launcher,
			ConfigDir:     cfg.ConfigDir,
			TargetDir:     cfg.TargetDir,
			CaptureDir:    o.captureDir,
			Resolver:      o.resolver,
			NeedBaselines: cfg.Mode == config.ModeCompare,
		})
		preflight.PrintResults(o.output, result)
		if !result.Passed {
			return errors.New("preflight checks failed (use -skip-preflight to override)")
		}
	}

	entries, err := o.resolver.Resolve()
	if err != nil {
		return fmt.Errorf("classpath: %w", err)
	}
	command := process.JavaCommand{
		Java:      cfg.JavaPath,
		JVMArgs:   process.SplitJVMArgs(cfg.JavaArgs),
		MainClass: cfg.MainClass,
		Classpath: classpath.Join(entries),
	}

	configs, err := o.openCatalog()
	if err != nil {
		return err
	}

	logFile, err := logging.OpenLogFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()

	status := driver.NewStatusWriter(o.console, logFile)
	status.OnLine(o.stats.AddLine)

	wd := watchdog.New(watchdog.Config{
		Signaler:       o.launcher,
		Logger:         o.logger,
		EscalationWait: cfg.EscalationWait,
		Callbacks: watchdog.Callbacks{
			OnStateChange: o.onWatchdogState,
			OnSignal:      o.onWatchdogSignal,
			OnExhausted:   o.onWatchdogExhausted,
		},
	})
	defer wd.Stop()

	if o.metricsServer != nil {
		if err := o.metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
	}

	d := driver.New(driver.Config{
		Runner:     o.launcher,
		Watcher:    wd,
		Command:    command,
		Status:     status,
		Tail:       logging.NewOutputTail(o.logger, cfg.Verbose),
		TargetDir:  cfg.TargetDir,
		CaptureDir: o.captureDir,
		RunNumber:  cfg.RunNumber,
		Timeout:    cfg.RunTimeout,
		Verbose:    cfg.Verbose,
		Debug:      cfg.Debug,
		Logger:     o.logger,
		Callbacks: driver.Callbacks{
			OnConfig:   o.onConfig,
			OnRunStart: o.onRunStart,
			OnRun:      o.onRun,
			OnSkip:     o.onSkip,
		},
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopSignals := o.watchSignals(cancel)
	defer stopSignals()

	o.logger.Info("batch_starting",
		"mode", cfg.Mode.String(),
		"version", o.version,
		"config_dir", cfg.ConfigDir,
		"target_dir", cfg.TargetDir,
		"classpath_entries", len(entries),
	)

	batch := func(ctx context.Context) error {
		return o.runBatch(ctx, d, configs)
	}
	var batchErr error
	if cfg.TUIEnabled {
		batchErr = o.runWithTUI(ctx, cancel, batch)
	} else {
		batchErr = batch(ctx)
	}

	snap := o.stats.Snapshot()
	o.logger.Info("batch_finished",
		"runs", snap.Runs,
		"failed", snap.Failed,
		"killed", snap.Killed,
		"skipped", snap.Skipped,
		"elapsed", time.Since(o.startTime).String(),
		"error", batchErr,
	)

	o.writeTextfile()

	if o.metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := o.metricsServer.Shutdown(shutdownCtx); err != nil {
			o.logger.Warn("metrics_server_shutdown_error", "error", err)
		}
		shutdownCancel()
	}

	// Print exit summary
	fmt.Fprint(o.output, stats.FormatExitSummary(snap, stats.SummaryConfig{
		Command:     cfg.Mode.String(),
		BatchID:     o.batchID,
		LogFile:     cfg.LogFile,
		MetricsAddr: cfg.MetricsAddr,
		MetricsFile: cfg.MetricsFile,
	}))

	return batchErr
}

// runWithTUI runs the batch in the background while the dashboard owns
// the terminal. Leaving the dashboard before the batch is done cancels it.
func (o *Orchestrator) runWithTUI(ctx context.Context, cancel context.CancelFunc, batch func(context.Context) error) error {
	model := tui.New(tui.Config{
		Command:     o.config.Mode.String(),
		BatchID:     o.batchID,
		MetricsAddr: o.config.MetricsAddr,
		LogFile:     o.config.LogFile,
		StatsSource: o.stats,
	})
	p := tea.NewProgram(model, tea.WithAltScreen())

	batchDone := make(chan error, 1)
	go func() {
		err := batch(ctx)
		batchDone <- err
		tui.SendDone(p, err)
	}()

	final, err := p.Run()
	if err != nil {
		o.logger.Error("tui_failed", "error", err)
		cancel()
	} else if m, ok := final.(tui.Model); ok && m.Interrupted() {
		o.logger.Info("tui_interrupted")
		cancel()
	}
	return <-batchDone
}

// watchSignals cancels the batch on SIGTERM or SIGHUP, and on SIGINT
// between runs. A SIGINT during a run is left to the launcher, which
// forwards it to the testbed.
func (o *Orchestrator) watchSignals(cancel context.CancelFunc) (stop func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case sig := <-sigCh:
				if sig == syscall.SIGINT && o.launcher.Pid() != 0 {
					continue
				}
				o.logger.Info("received_signal", "signal", sig.String())
				cancel()
			}
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

// writeTextfile refreshes the node_exporter textfile snapshot, if one is
// configured.
func (o *Orchestrator) writeTextfile() {
	if o.config.MetricsFile == "" {
		return
	}
	if err := metrics.WriteTextfile(o.config.MetricsFile, o.registry); err != nil {
		o.logger.Warn("metrics_textfile_failed", "path", o.config.MetricsFile, "error", err)
	}
}
