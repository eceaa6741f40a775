// Package driver runs the testbed over every selected combination of run
// configuration, component variant, trigger type and hit count.
//
// Runs are strictly sequential: the driver arms the watchdog, starts the
// testbed through a process.Runner, waits for it, writes one status line
// and decides whether the capture file is kept.
package driver

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"time"

	"github.com/randomizedcoder/go-trigger-testbed/internal/baseline"
	"github.com/randomizedcoder/go-trigger-testbed/internal/catalog"
	"github.com/randomizedcoder/go-trigger-testbed/internal/logging"
	"github.com/randomizedcoder/go-trigger-testbed/internal/metrics"
	"github.com/randomizedcoder/go-trigger-testbed/internal/process"
)

// ErrEmergencyExit is returned when the operator interrupted a run.
// The batch must not continue.
var ErrEmergencyExit = errors.New("emergency exit")

// DefaultHitsPerSecond is the hit rate used to size the run timeout.
const DefaultHitsPerSecond = 25

// =============================================================================
// Selection
// =============================================================================

// Variant selects the old or the new implementation of a component.
type Variant int

const (
	Old Variant = iota
	New
)

func (v Variant) String() string {
	if v == Old {
		return "old"
	}
	return "new"
}

// Selection says which runs a batch attempts.
type Selection struct {
	Old   bool
	New   bool
	Types []catalog.TriggerType

	// NumHits lists the hit counts tried for each trigger type.
	NumHits []int

	// AlwaysRun reruns the old variant even if its data file exists.
	AlwaysRun bool
}

// Variants returns the selected variants, old first.
func (s Selection) Variants() []Variant {
	var vs []Variant
	if s.Old {
		vs = append(vs, Old)
	}
	if s.New {
		vs = append(vs, New)
	}
	return vs
}

// =============================================================================
// Configuration
// =============================================================================

// RunWatcher is told when each run starts and stops.
// watchdog.Watchdog implements it.
type RunWatcher interface {
	StartRun(runID int, timeout time.Duration)
	StopRun(runID int)
}

// Outcome describes one finished run.
type Outcome struct {
	Config  string
	Variant Variant
	Type    catalog.TriggerType
	Hits    int
	Result  *process.Result

	// Report is the trimmed report line, or NoReport.
	Report   string
	NoReport bool

	// Preserved is the path the capture was kept under, or "".
	Preserved string
}

// Classify maps the outcome onto a metrics outcome.
func (o Outcome) Classify() metrics.Outcome {
	switch {
	case o.Result.Interrupted():
		return metrics.OutcomeInterrupted
	case o.Result.KillSignal != 0:
		return metrics.OutcomeKilled
	case o.Result.Failed():
		return metrics.OutcomeFailed
	case o.NoReport:
		return metrics.OutcomeNoReport
	default:
		return metrics.OutcomeOK
	}
}

// Callbacks contains optional callback functions for batch events.
type Callbacks struct {
	// OnConfig is called when the driver moves to a run configuration.
	OnConfig func(rc *catalog.RunConfig)

	// OnRunStart is called just before the testbed is started.
	OnRunStart func(desc string)

	// OnRun is called after every run which was not interrupted.
	OnRun func(o Outcome)

	// OnSkip is called for every run which was not started.
	OnSkip func(reason metrics.SkipReason)
}

// Config holds configuration for creating a Driver.
type Config struct {
	Runner  process.Runner
	Watcher RunWatcher

	// Command is the testbed invocation; the driver supplies Args.
	Command process.JavaCommand

	Status *StatusWriter
	Tail   *logging.OutputTail

	// TargetDir holds the hit files and baseline data files.
	TargetDir string

	// CaptureDir receives wrap.p<pid> and preserved captures.
	CaptureDir string

	RunNumber int

	// Timeout returns the watchdog limit for a hit count.
	// Nil uses hits / DefaultHitsPerSecond seconds.
	Timeout func(numHits int) time.Duration

	Verbose bool
	Debug   bool

	Logger    *slog.Logger
	Callbacks Callbacks
}

// Driver runs the testbed. It is not safe for concurrent use.
type Driver struct {
	runner    process.Runner
	watcher   RunWatcher
	command   process.JavaCommand
	status    *StatusWriter
	tail      *logging.OutputTail
	capture   *baseline.Capture
	targetDir string
	runNumber int
	timeout   func(int) time.Duration
	verbose   bool
	debug     bool
	logger    *slog.Logger
	callbacks Callbacks

	runID     int
	curConfig string
}

// New creates a Driver.
func New(cfg Config) *Driver {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	status := cfg.Status
	if status == nil {
		status = NewStatusWriter(nil, nil)
	}
	timeout := cfg.Timeout
	if timeout == nil {
		timeout = func(hits int) time.Duration {
			return time.Duration(hits) * time.Second / DefaultHitsPerSecond
		}
	}
	captureDir := cfg.CaptureDir
	if captureDir == "" {
		captureDir = "."
	}

	return &Driver{
		runner:    cfg.Runner,
		watcher:   cfg.Watcher,
		command:   cfg.Command,
		status:    status,
		tail:      cfg.Tail,
		capture:   baseline.NewCapture(captureDir),
		targetDir: cfg.TargetDir,
		runNumber: cfg.RunNumber,
		timeout:   timeout,
		verbose:   cfg.Verbose,
		debug:     cfg.Debug,
		logger:    logger,
		callbacks: cfg.Callbacks,
	}
}

// =============================================================================
// Batch
// =============================================================================

// RunAll runs every selected combination for each configuration.
//
// Old-variant runs are skipped when their data file exists (unless
// AlwaysRun), and a failed old run skips the remaining hit counts for
// that type. New-variant runs need the old data file; once one is missing
// the remaining hit counts are skipped.
//
// An operator interrupt returns ErrEmergencyExit; other errors are
// returned as soon as they occur.
func (d *Driver) RunAll(ctx context.Context, configs iter.Seq[*catalog.RunConfig], sel Selection) error {
	for rc := range configs {
		if err := d.checkContext(ctx); err != nil {
			return err
		}
		if rc.Skip() {
			if d.verbose {
				d.status.Println("Skip " + rc.Name())
			}
			d.skip(metrics.SkipConfigListed)
			continue
		}
		if !rc.Usable() {
			d.logger.Debug("config_unusable", "config", rc.Name())
			d.skip(metrics.SkipUnusable)
			continue
		}

		d.enterConfig(rc)
		for _, v := range sel.Variants() {
			for _, tt := range sel.Types {
				if !tt.InConfig(rc) {
					d.skip(metrics.SkipNotInConfig)
					continue
				}
				if err := d.runHits(ctx, rc, v, tt, sel); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *Driver) runHits(ctx context.Context, rc *catalog.RunConfig, v Variant, tt catalog.TriggerType, sel Selection) error {
	for i, hits := range sel.NumHits {
		df := baseline.NewDataFile(rc, tt, d.runNumber, hits)
		exists := df.Exists(d.targetDir)

		if v == Old && !sel.AlwaysRun && exists {
			d.status.Skip(SkipLine(v.String(), tt.String(), df.Name()+" exists"))
			d.skip(metrics.SkipDataExists)
			continue
		}
		if v == New && !exists {
			d.status.Skip(SkipLine(v.String(), tt.String(), df.Name()+" is missing"))
			d.skip(metrics.SkipDataMissing)
			break
		}

		if err := d.checkContext(ctx); err != nil {
			return err
		}
		o, err := d.run(ctx, runRequest{config: rc, variant: v, ttype: tt, hits: hits, run: d.runNumber, showVariant: true})
		if err != nil {
			return err
		}

		if v == Old && o.Result.Failed() {
			for range sel.NumHits[i+1:] {
				d.skip(metrics.SkipOldFailed)
			}
			break
		}
	}
	return nil
}

// RunEntry reruns the new component against one existing baseline file,
// using the run number and hit count recorded in its name.
func (d *Driver) RunEntry(ctx context.Context, e baseline.Entry) (Outcome, error) {
	if err := d.checkContext(ctx); err != nil {
		return Outcome{}, err
	}
	if d.curConfig != e.Config.Name() {
		d.enterConfig(e.Config)
	}
	return d.run(ctx, runRequest{config: e.Config, variant: New, ttype: e.Type, hits: e.Hits, run: e.Run})
}

// RunEntries calls RunEntry for every entry in order.
func (d *Driver) RunEntries(ctx context.Context, entries iter.Seq[baseline.Entry]) error {
	for e := range entries {
		if _, err := d.RunEntry(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) enterConfig(rc *catalog.RunConfig) {
	d.curConfig = rc.Name()
	d.status.Config(rc.Name())
	d.logger.Info("config_started", "config", rc.Name(), "hubs", len(rc.Hubs()), "trigger", rc.TriggerConfig().String())
	if d.callbacks.OnConfig != nil {
		d.callbacks.OnConfig(rc)
	}
}

func (d *Driver) skip(reason metrics.SkipReason) {
	if d.callbacks.OnSkip != nil {
		d.callbacks.OnSkip(reason)
	}
}

func (d *Driver) checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		d.status.Println("EMERGENCY EXIT")
		return fmt.Errorf("%w: %w", ErrEmergencyExit, err)
	}
	return nil
}

// =============================================================================
// Single Run
// =============================================================================

type runRequest struct {
	config      *catalog.RunConfig
	variant     Variant
	ttype       catalog.TriggerType
	hits        int
	run         int
	showVariant bool
}

// Args returns the testbed arguments for a run.
func Args(component, config, configDir string, hits, run int, targetDir string) []string {
	return []string{
		"-C", component,
		"-c", config,
		"-D", configDir,
		"-n", strconv.Itoa(hits),
		"-r", strconv.Itoa(run),
		"-t", targetDir,
	}
}

func (d *Driver) run(ctx context.Context, req runRequest) (Outcome, error) {
	rc := req.config
	comp := req.ttype.Component(req.variant == Old)
	timeout := d.timeout(req.hits)

	cmd := d.command
	cmd.Args = Args(comp, rc.Name(), rc.Dir(), req.hits, req.run, d.targetDir)
	desc := cmd.Descriptor(timeout)
	if d.debug {
		d.status.Console(cmd.CommandString())
	}

	if err := d.capture.Open(); err != nil {
		return Outcome{}, err
	}
	if d.tail != nil {
		d.tail.Reset()
	}

	runDesc := fmt.Sprintf("%s %s %s %d hits", rc.Name(), req.variant, req.ttype, req.hits)
	logger := d.logger.With("config", rc.Name(), "component", comp, "hits", req.hits)
	logger.Debug("run_starting", "timeout", timeout.String())
	if d.callbacks.OnRunStart != nil {
		d.callbacks.OnRunStart(runDesc)
	}

	d.runID++
	if d.watcher != nil {
		d.watcher.StartRun(d.runID, timeout)
	}
	h := &outputHandler{capture: d.capture, tail: d.tail}
	res, err := d.runner.Run(ctx, desc, h)
	if d.watcher != nil {
		d.watcher.StopRun(d.runID)
	}
	closeErr := d.capture.Close()

	if res == nil {
		_ = d.capture.Remove()
		if err == nil {
			err = errors.New("runner returned no result")
		}
		return Outcome{}, fmt.Errorf("run %s: %w", comp, err)
	}
	if res.Interrupted() || ctx.Err() != nil {
		d.status.Println("EMERGENCY EXIT")
		_ = d.capture.Remove()
		logger.Warn("run_interrupted", "signal", SignalName(res.ExitSignal))
		return Outcome{}, ErrEmergencyExit
	}
	if err != nil {
		_ = d.capture.Remove()
		return Outcome{}, fmt.Errorf("run %s: %w", comp, err)
	}
	if closeErr != nil || h.werr != nil {
		logger.Warn("capture_write_failed", "path", d.capture.Path(), "error", errors.Join(closeErr, h.werr))
	}

	o := Outcome{
		Config:  rc.Name(),
		Variant: req.variant,
		Type:    req.ttype,
		Hits:    req.hits,
		Result:  res,
	}
	res.Report = h.report

	if h.report == "" {
		o.Report = NoReport
		o.NoReport = true
		if !d.capture.IsEmpty() {
			o.Preserved = d.preserve(logger, req, rc.Name(), baseline.SuffixNoReport)
		}
	} else {
		o.Report = TrimReport(h.report)
	}

	if res.Failed() {
		if dest := d.preserve(logger, req, rc.Name(), baseline.SuffixFail); dest != "" {
			o.Preserved = dest
		}
		d.logFailure(logger, res)
	}
	if err := d.capture.Remove(); err != nil {
		logger.Warn("capture_remove_failed", "path", d.capture.Path(), "error", err)
	}

	line := RunLine{
		Type:       req.ttype.String(),
		Hits:       req.hits,
		RunTime:    res.RunTime,
		WaitTime:   res.WaitTime,
		Report:     o.Report,
		KillSignal: res.KillSignal,
		ExitCode:   res.ExitCode,
	}
	if req.showVariant {
		line.Variant = req.variant.String()
	}
	d.status.Run(line)

	logger.Info("run_finished",
		"exit_code", res.ExitCode,
		"run_time", res.RunTime.String(),
		"wait_time", res.WaitTime.String(),
		"outcome", string(o.Classify()),
	)
	if d.callbacks.OnRun != nil {
		d.callbacks.OnRun(o)
	}
	return o, nil
}

func (d *Driver) preserve(logger *slog.Logger, req runRequest, config, suffix string) string {
	name := baseline.BackupName(req.variant.String(), req.ttype.String(), req.hits, config, suffix)
	dest, err := d.capture.Backup(name)
	if err != nil {
		logger.Warn("capture_preserve_failed", "name", name, "error", err)
		return ""
	}
	if dest != "" {
		logger.Info("capture_preserved", "path", dest)
	}
	return dest
}

// logFailure logs the exceptions and last lines seen before a failure.
func (d *Driver) logFailure(logger *slog.Logger, res *process.Result) {
	if d.tail == nil {
		return
	}
	attrs := []any{"exit_code", res.ExitCode, "lines", d.tail.Lines()}
	if exc := d.tail.CountExceptions(); len(exc) > 0 {
		attrs = append(attrs, "exceptions", exc)
	}
	attrs = append(attrs, "last_lines", d.tail.RecentLines(5))
	logger.Warn("run_failed", attrs...)
}
