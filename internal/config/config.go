// Package config provides configuration management for the trigger testbed harness.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Mode selects which command a Config is parsed for.
type Mode int

const (
	// ModeBatch runs every selected configuration (test-all-configs).
	ModeBatch Mode = iota
	// ModeCompare re-runs existing baseline files (compare-existing).
	ModeCompare
)

// String returns the command name for the mode.
func (m Mode) String() string {
	switch m {
	case ModeBatch:
		return "test-all-configs"
	case ModeCompare:
		return "compare-existing"
	default:
		return "unknown"
	}
}

// Default values shared by the commands.
const (
	DefaultRunNumber      = 120151
	DefaultMainClass      = "icecube.daq.testbed.TestBed"
	DefaultJavaArgs       = "-Xmx4000m"
	DefaultHitsPerSecond  = 25
	DefaultSkipListFile   = "skip-list"
	DefaultBatchLogFile   = "all-configs.log"
	DefaultCompareLogFile = "cmp-configs.log"
)

// DefaultNumHits is the hit counts used when -n is not given.
var DefaultNumHits = []int{1000, 32800}

// Config holds all configuration options for a testbed batch.
type Config struct {
	Mode Mode `json:"-" yaml:"-"`

	// Catalog
	ConfigDir    string   `json:"config_dir" yaml:"config_dir"`
	TargetDir    string   `json:"target_dir" yaml:"target_dir"`
	SkipListFile string   `json:"skip_list" yaml:"skip_list"`
	Configs      []string `json:"configs" yaml:"configs"`

	// Batch selection
	RunNumber int    `json:"run_number" yaml:"run_number"`
	NumHits   []int  `json:"num_hits" yaml:"num_hits"`
	NoInIce   bool   `json:"no_inice" yaml:"no_inice"`
	NoIceTop  bool   `json:"no_icetop" yaml:"no_icetop"`
	NoGlobal  bool   `json:"no_global" yaml:"no_global"`
	NoOld     bool   `json:"no_old" yaml:"no_old"`
	NoNew     bool   `json:"no_new" yaml:"no_new"`
	AlwaysRun bool   `json:"always_run" yaml:"always_run"`
	LogFile   string `json:"log_file" yaml:"log_file"`

	// Testbed
	JavaPath      string   `json:"java_path" yaml:"java_path"`
	JavaArgs      string   `json:"java_args" yaml:"java_args"`
	MainClass     string   `json:"main_class" yaml:"main_class"`
	PDAQHome      string   `json:"pdaq_home" yaml:"pdaq_home"`
	Release       string   `json:"release" yaml:"release"` // "" = classpath default
	SearchPaths   []string `json:"search_paths" yaml:"search_paths"`
	HitsPerSecond int      `json:"hits_per_second" yaml:"hits_per_second"`

	// Watchdog
	EscalationWait time.Duration `json:"escalation_wait" yaml:"escalation_wait"`

	// Observability
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`
	MetricsFile string `json:"metrics_file" yaml:"metrics_file"`
	TUIEnabled  bool   `json:"tui" yaml:"tui"`
	Verbose     bool   `json:"verbose" yaml:"verbose"`
	Debug       bool   `json:"debug" yaml:"debug"`
	LogFormat   string `json:"log_format" yaml:"log_format"`
	LogLevel    string `json:"log_level" yaml:"log_level"`

	// Diagnostic modes
	SkipPreflight bool   `json:"skip_preflight" yaml:"skip_preflight"`
	SettingsFile  string `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with defaults for mode, taking the
// configuration and pDAQ directories from the environment.
func DefaultConfig(mode Mode) *Config {
	home := os.Getenv("HOME")

	configDir := os.Getenv("PDAQ_CONFIG")
	if configDir == "" {
		configDir = filepath.Join(home, "config")
	}
	logFile := DefaultBatchLogFile
	if mode == ModeCompare {
		logFile = DefaultCompareLogFile
	}

	return &Config{
		Mode: mode,

		// Catalog
		ConfigDir:    configDir,
		TargetDir:    filepath.Join(home, "prj", "simplehits"),
		SkipListFile: DefaultSkipListFile,

		// Batch
		RunNumber: DefaultRunNumber,
		NumHits:   append([]int(nil), DefaultNumHits...),
		LogFile:   logFile,

		// Testbed
		JavaPath:      "java",
		JavaArgs:      DefaultJavaArgs,
		MainClass:     DefaultMainClass,
		PDAQHome:      os.Getenv("PDAQ_HOME"),
		HitsPerSecond: DefaultHitsPerSecond,

		// Watchdog
		EscalationWait: time.Minute,

		// Observability
		LogFormat: "text",
		LogLevel:  "info",
	}
}

// RunTimeout is the watchdog limit for a run of numHits hits.
func (c *Config) RunTimeout(numHits int) time.Duration {
	rate := c.HitsPerSecond
	if rate <= 0 {
		rate = DefaultHitsPerSecond
	}
	return time.Duration(numHits) * time.Second / time.Duration(rate)
}
