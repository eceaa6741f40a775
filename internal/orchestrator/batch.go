package orchestrator

import (
	"context"
	"syscall"

	"github.com/randomizedcoder/go-trigger-testbed/internal/baseline"
	"github.com/randomizedcoder/go-trigger-testbed/internal/catalog"
	"github.com/randomizedcoder/go-trigger-testbed/internal/config"
	"github.com/randomizedcoder/go-trigger-testbed/internal/driver"
	"github.com/randomizedcoder/go-trigger-testbed/internal/metrics"
	"github.com/randomizedcoder/go-trigger-testbed/internal/stats"
	"github.com/randomizedcoder/go-trigger-testbed/internal/watchdog"
)

// openCatalog loads the skip list and lists the configuration directory,
// restricted to the named configurations if any were given.
func (o *Orchestrator) openCatalog() (*catalog.Lister, error) {
	skip, err := catalog.LoadSkipList(o.config.SkipListFile)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("skip_list_loaded", "path", o.config.SkipListFile, "names", skip.Len())

	lister, err := catalog.NewLister(o.config.ConfigDir, skip, o.logger)
	if err != nil {
		return nil, err
	}
	lister.SetErrorOutput(o.output)

	for _, name := range o.config.Configs {
		if err := lister.Add(name); err != nil {
			return nil, err
		}
	}
	return lister, nil
}

// Selection builds the driver selection from the command-line switches.
func Selection(cfg *config.Config) driver.Selection {
	var types []catalog.TriggerType
	for _, tt := range catalog.AllTriggerTypes {
		switch {
		case tt == catalog.InIce && cfg.NoInIce,
			tt == catalog.IceTop && cfg.NoIceTop,
			tt == catalog.Global && cfg.NoGlobal:
			continue
		}
		types = append(types, tt)
	}

	return driver.Selection{
		Old:       !cfg.NoOld,
		New:       !cfg.NoNew,
		Types:     types,
		NumHits:   cfg.NumHits,
		AlwaysRun: cfg.AlwaysRun,
	}
}

// runBatch runs every selected combination, or in compare mode re-runs
// the new variant for each existing baseline file.
func (o *Orchestrator) runBatch(ctx context.Context, d *driver.Driver, configs *catalog.Lister) error {
	sel := Selection(o.config)

	if o.config.Mode == config.ModeCompare {
		files := baseline.NewLister(o.config.TargetDir, configs.List(), o.output, o.logger)
		files.SetOutput(o.console)
		o.logger.Info("baselines_indexed", "configs", files.Configs())
		entries, err := files.List(sel.Types)
		if err != nil {
			return err
		}
		return d.RunEntries(ctx, entries)
	}

	return d.RunAll(ctx, configs.List(), sel)
}

// =============================================================================
// Driver callbacks
// =============================================================================

func (o *Orchestrator) onConfig(rc *catalog.RunConfig) {
	o.stats.ConfigStarted(rc.Name())
	o.metrics.ConfigStarted()
}

func (o *Orchestrator) onRunStart(desc string) {
	o.stats.RunStarted(desc)
	o.metrics.RunStarted()
}

func (o *Orchestrator) onRun(out driver.Outcome) {
	sample := runSample(out)
	o.stats.Record(sample)
	o.metrics.RecordRun(metrics.RunRecord{
		Variant:  sample.Variant,
		Type:     sample.Type,
		Outcome:  out.Classify(),
		RunTime:  sample.RunTime,
		WaitTime: sample.WaitTime,
	})
	o.writeTextfile()
}

func (o *Orchestrator) onSkip(reason metrics.SkipReason) {
	o.stats.RecordSkip()
	o.metrics.RecordSkip(reason)
}

// runSample converts a driver outcome into a statistics sample.
func runSample(out driver.Outcome) stats.RunSample {
	s := stats.RunSample{
		Config:   out.Config,
		Variant:  out.Variant.String(),
		Type:     out.Type.String(),
		Hits:     out.Hits,
		NoReport: out.NoReport,
	}
	if res := out.Result; res != nil {
		s.RunTime = res.RunTime
		s.WaitTime = res.WaitTime
		s.ExitCode = res.ExitCode
		s.Killed = res.KillSignal != 0
	}
	return s
}

// =============================================================================
// Watchdog callbacks
// =============================================================================

func (o *Orchestrator) onWatchdogState(oldState, newState watchdog.State) {
	if o.config.Debug {
		o.logger.Debug("watchdog_state", "from", oldState.String(), "to", newState.String())
	}
}

func (o *Orchestrator) onWatchdogSignal(runID int, sig syscall.Signal) {
	o.metrics.RecordSignal(driver.SignalName(sig))
}

func (o *Orchestrator) onWatchdogExhausted(runID int) {
	o.metrics.RecordExhausted()
	o.logger.Error("run_unkillable", "run_id", runID)
}
