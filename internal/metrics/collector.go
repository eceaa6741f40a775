// Package metrics provides Prometheus metrics for testbed batches.
//
// Every run of a batch updates the collector; the metrics can be scraped
// over HTTP while the batch is running (-metrics) or written once as a
// textfile snapshot when it finishes (-metrics-file).
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome classifies a finished run.
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeFailed      Outcome = "failed"
	OutcomeKilled      Outcome = "killed"
	OutcomeNoReport    Outcome = "no_report"
	OutcomeInterrupted Outcome = "interrupted"
)

// SkipReason says why a run was not started.
type SkipReason string

const (
	SkipDataExists   SkipReason = "data_exists"
	SkipDataMissing  SkipReason = "data_missing"
	SkipConfigListed SkipReason = "skip_list"
	SkipOldFailed    SkipReason = "old_failed"
	SkipNotInConfig  SkipReason = "not_in_config"
	SkipUnusable     SkipReason = "unusable"
)

// RunRecord describes one finished run.
type RunRecord struct {
	Variant  string // "old" or "new"
	Type     string // "in-ice", "icetop" or "global"
	Outcome  Outcome
	RunTime  time.Duration
	WaitTime time.Duration
}

// CollectorConfig holds configuration for the collector.
type CollectorConfig struct {
	BatchID string
	Mode    string
	Version string
}

// Counts is a snapshot of the batch totals.
type Counts struct {
	Configs   int64
	Runs      int64
	Failed    int64
	Killed    int64
	NoReport  int64
	Skipped   int64
	Signals   int64
	Exhausted int64
}

// Collector manages all Prometheus metrics for a batch.
type Collector struct {
	info              *prometheus.GaugeVec
	configsTotal      prometheus.Counter
	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
	waitDuration      prometheus.Histogram
	skipsTotal        *prometheus.CounterVec
	watchdogSignals   *prometheus.CounterVec
	watchdogExhausted prometheus.Counter
	runActive         prometheus.Gauge
	lastRunTimestamp  prometheus.Gauge
	elapsedSeconds    prometheus.GaugeFunc

	startTime time.Time

	mu     sync.Mutex
	counts Counts
}

// runBuckets cover runs from a few seconds (1000 hits) to the half hour
// watchdog limit.
var runBuckets = []float64{1, 2.5, 5, 10, 20, 40, 80, 160, 320, 640, 1300, 1800}

// NewCollector creates a collector registered with the default registry.
func NewCollector(cfg CollectorConfig) *Collector {
	return NewCollectorWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewCollectorWithRegistry creates a collector with a custom registry.
// Useful for testing.
func NewCollectorWithRegistry(cfg CollectorConfig, registry prometheus.Registerer) *Collector {
	c := &Collector{
		info: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "testbed_batch_info",
				Help: "Information about the batch (value always 1)",
			},
			[]string{"batch_id", "mode", "version"},
		),
		configsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "testbed_configs_total",
				Help: "Run configurations processed",
			},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "testbed_runs_total",
				Help: "Finished testbed runs by outcome",
			},
			[]string{"variant", "type", "outcome"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "testbed_run_duration_seconds",
				Help:    "Time from start until the testbed closed its output",
				Buckets: runBuckets,
			},
			[]string{"variant", "type"},
		),
		waitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "testbed_wait_duration_seconds",
				Help:    "Time from closed output until the testbed exited",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
		),
		skipsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "testbed_skips_total",
				Help: "Runs not started, by reason",
			},
			[]string{"reason"},
		),
		watchdogSignals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "testbed_watchdog_signals_total",
				Help: "Signals sent to overdue runs",
			},
			[]string{"signal"},
		),
		watchdogExhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "testbed_watchdog_exhausted_total",
				Help: "Overdue runs which survived every termination signal",
			},
		),
		runActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "testbed_run_active",
				Help: "1 while a testbed run is in progress",
			},
		),
		lastRunTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "testbed_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
		startTime: time.Now(),
	}
	c.elapsedSeconds = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "testbed_batch_elapsed_seconds",
			Help: "Seconds since the batch started",
		},
		func() float64 { return time.Since(c.startTime).Seconds() },
	)

	registry.MustRegister(
		c.info,
		c.configsTotal,
		c.runsTotal,
		c.runDuration,
		c.waitDuration,
		c.skipsTotal,
		c.watchdogSignals,
		c.watchdogExhausted,
		c.runActive,
		c.lastRunTimestamp,
		c.elapsedSeconds,
	)

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	c.info.WithLabelValues(cfg.BatchID, cfg.Mode, version).Set(1)

	return c
}

// =============================================================================
// Update Methods
// =============================================================================

// ConfigStarted records that a run configuration is being processed.
func (c *Collector) ConfigStarted() {
	c.configsTotal.Inc()

	c.mu.Lock()
	c.counts.Configs++
	c.mu.Unlock()
}

// RunStarted marks a run as in progress.
func (c *Collector) RunStarted() {
	c.runActive.Set(1)
}

// RecordRun records a finished run.
func (c *Collector) RecordRun(r RunRecord) {
	c.runActive.Set(0)
	c.lastRunTimestamp.SetToCurrentTime()

	c.runsTotal.WithLabelValues(r.Variant, r.Type, string(r.Outcome)).Inc()
	c.runDuration.WithLabelValues(r.Variant, r.Type).Observe(r.RunTime.Seconds())
	c.waitDuration.Observe(r.WaitTime.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts.Runs++
	switch r.Outcome {
	case OutcomeFailed:
		c.counts.Failed++
	case OutcomeKilled:
		c.counts.Killed++
	case OutcomeNoReport:
		c.counts.NoReport++
	}
}

// RecordSkip records a run which was not started.
func (c *Collector) RecordSkip(reason SkipReason) {
	c.skipsTotal.WithLabelValues(string(reason)).Inc()

	c.mu.Lock()
	c.counts.Skipped++
	c.mu.Unlock()
}

// RecordSignal records a watchdog signal sent to an overdue run.
func (c *Collector) RecordSignal(signal string) {
	c.watchdogSignals.WithLabelValues(signal).Inc()

	c.mu.Lock()
	c.counts.Signals++
	c.mu.Unlock()
}

// RecordExhausted records a run which outlived the whole kill sequence.
func (c *Collector) RecordExhausted() {
	c.watchdogExhausted.Inc()

	c.mu.Lock()
	c.counts.Exhausted++
	c.mu.Unlock()
}

// Counts returns a snapshot of the batch totals.
func (c *Collector) Counts() Counts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts
}

// Elapsed returns the time since the collector was created.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}
