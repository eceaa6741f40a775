package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// stringList is a repeatable string flag. The first use on the command
// line replaces any value loaded from the settings file.
type stringList struct {
	vals *[]string
	set  bool
}

func (l *stringList) String() string {
	if l.vals == nil {
		return ""
	}
	return strings.Join(*l.vals, ", ")
}

func (l *stringList) Set(value string) error {
	if !l.set {
		*l.vals = nil
		l.set = true
	}
	*l.vals = append(*l.vals, value)
	return nil
}

// intList is a repeatable integer flag with the same replace-then-append
// behaviour as stringList.
type intList struct {
	vals *[]int
	set  bool
}

func (l *intList) String() string {
	if l.vals == nil {
		return ""
	}
	parts := make([]string, len(*l.vals))
	for i, v := range *l.vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ", ")
}

func (l *intList) Set(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%q is not a number", value)
	}
	if !l.set {
		*l.vals = nil
		l.set = true
	}
	*l.vals = append(*l.vals, n)
	return nil
}

// ParseFlags parses args (without the program name) for mode and returns
// the Config. A settings file named by -settings is loaded first so that
// command-line flags override it. Usage is written to output (stderr if
// nil); -h returns flag.ErrHelp.
func ParseFlags(mode Mode, args []string, output io.Writer) (*Config, error) {
	if output == nil {
		output = os.Stderr
	}

	cfg := DefaultConfig(mode)
	if path := settingsArg(args); path != "" {
		if err := LoadSettings(path, cfg); err != nil {
			return nil, err
		}
	}

	fs := newFlagSet(mode, cfg, output)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if fs.NArg() > 0 {
		return nil, fmt.Errorf("found extra command-line arguments: %v", fs.Args())
	}

	return cfg, nil
}

// settingsArg finds the value of -settings without parsing the other flags.
func settingsArg(args []string) string {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if v, ok := strings.CutPrefix(name, "settings="); ok {
			return v
		}
		if name == "settings" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func newFlagSet(mode Mode, cfg *Config, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(mode.String(), flag.ContinueOnError)
	fs.SetOutput(output)

	fs.Usage = func() {
		fmt.Fprintf(output, "%s - %s\n\nUsage:\n  %s [flags]\n\nSelection:\n",
			mode, modeSummary(mode), mode)
		selection := []string{"config", "no-inice", "no-icetop", "no-global"}
		if mode == ModeBatch {
			selection = append(selection, "num-hits", "no-old", "no-new", "always-run", "run")
		}
		printFlagCategory(fs, output, selection)

		fmt.Fprintf(output, "\nDirectories:\n")
		printFlagCategory(fs, output, []string{"config-dir", "target-dir", "skip-list", "logfile", "settings"})

		fmt.Fprintf(output, "\nTestbed:\n")
		printFlagCategory(fs, output, []string{"java", "java-args", "main-class", "pdaq-home", "release", "hits-per-second", "escalation-wait"})

		fmt.Fprintf(output, "\nObservability:\n")
		printFlagCategory(fs, output, []string{"verbose", "debug", "log-format", "log-level", "metrics", "metrics-file", "tui", "skip-preflight"})
		fmt.Fprintln(output)
	}

	// Selection
	configs := &stringList{vals: &cfg.Configs}
	fs.Var(configs, "c", "")
	fs.Var(configs, "config", "Run configuration to try (can repeat; default all)")
	fs.BoolVar(&cfg.NoInIce, "no-inice", cfg.NoInIce, "Do not run in-ice trigger")
	fs.BoolVar(&cfg.NoIceTop, "no-icetop", cfg.NoIceTop, "Do not run icetop trigger")
	fs.BoolVar(&cfg.NoGlobal, "no-global", cfg.NoGlobal, "Do not run global trigger")

	if mode == ModeBatch {
		hits := &intList{vals: &cfg.NumHits}
		fs.Var(hits, "n", "")
		fs.Var(hits, "num-hits", "Number of hits (can repeat; default 1000 and 32800)")
		fs.BoolVar(&cfg.NoOld, "no-old", cfg.NoOld, "Do not run old trigger")
		fs.BoolVar(&cfg.NoNew, "no-new", cfg.NoNew, "Do not run new trigger")
		fs.BoolVar(&cfg.AlwaysRun, "a", cfg.AlwaysRun, "")
		fs.BoolVar(&cfg.AlwaysRun, "always-run", cfg.AlwaysRun, "Run old trigger even if data file exists")
		fs.IntVar(&cfg.RunNumber, "run", cfg.RunNumber, "Run number used for test data")
	}

	// Directories
	fs.StringVar(&cfg.ConfigDir, "D", cfg.ConfigDir, "")
	fs.StringVar(&cfg.ConfigDir, "config-dir", cfg.ConfigDir, "pDAQ configuration directory")
	fs.StringVar(&cfg.TargetDir, "t", cfg.TargetDir, "")
	fs.StringVar(&cfg.TargetDir, "target-dir", cfg.TargetDir, "Directory holding simple hit data and previous run results")
	fs.StringVar(&cfg.SkipListFile, "skip-list", cfg.SkipListFile, "File listing configurations to skip")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "")
	fs.StringVar(&cfg.LogFile, "logfile", cfg.LogFile, "Log file where output is written")
	fs.StringVar(&cfg.SettingsFile, "settings", cfg.SettingsFile, "YAML settings file (flags override it)")

	// Testbed
	fs.StringVar(&cfg.JavaPath, "java", cfg.JavaPath, "Java executable")
	fs.StringVar(&cfg.JavaArgs, "java-args", cfg.JavaArgs, "JVM arguments")
	fs.StringVar(&cfg.MainClass, "main-class", cfg.MainClass, "Testbed main class")
	fs.StringVar(&cfg.PDAQHome, "pdaq-home", cfg.PDAQHome, "pDAQ checkout used to find jars")
	fs.StringVar(&cfg.Release, "release", cfg.Release, "pDAQ release of the subproject jars")
	fs.IntVar(&cfg.HitsPerSecond, "hits-per-second", cfg.HitsPerSecond, "Expected hit rate; sets the run timeout")
	fs.DurationVar(&cfg.EscalationWait, "escalation-wait", cfg.EscalationWait, "Wait between kill signals for an overdue run")

	// Observability
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Print skipped configurations and testbed output")
	fs.BoolVar(&cfg.Debug, "x", cfg.Debug, "")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "Print debugging data")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, `Log format: "json" or "text"`)
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, `Log level: "debug", "info", "warn" or "error"`)
	fs.StringVar(&cfg.MetricsAddr, "metrics", cfg.MetricsAddr, "Prometheus metrics address (empty = disabled)")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "Write a metrics snapshot here at exit")
	fs.BoolVar(&cfg.TUIEnabled, "tui", cfg.TUIEnabled, "Enable live terminal dashboard")
	fs.BoolVar(&cfg.SkipPreflight, "skip-preflight", cfg.SkipPreflight, "Skip preflight checks")

	return fs
}

func modeSummary(mode Mode) string {
	if mode == ModeCompare {
		return "re-run the trigger for existing testbed data files"
	}
	return "run the trigger testbed for every run configuration"
}

// printFlagCategory prints flags matching the given names (helper for usage).
// Single-letter aliases are listed next to their long name.
func printFlagCategory(fs *flag.FlagSet, w io.Writer, names []string) {
	aliases := map[string]string{}
	fs.VisitAll(func(f *flag.Flag) {
		if f.Usage == "" {
			fs.VisitAll(func(long *flag.Flag) {
				if long != f && long.Usage != "" && long.Value == f.Value {
					aliases[long.Name] = f.Name
				}
			})
		}
	})

	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		label := "-" + f.Name
		if short, ok := aliases[f.Name]; ok {
			label = "-" + short + ", " + label
		}
		fmt.Fprintf(w, "  %s %s\n    \t%s", label, flagType(f), f.Usage)
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" && f.DefValue != "0s" {
			fmt.Fprintf(w, " (default %s)", f.DefValue)
		}
		fmt.Fprintln(w)
	}
}

// flagType returns a type hint for the flag value.
func flagType(f *flag.Flag) string {
	switch v := f.Value.(type) {
	case *intList:
		return "int"
	case *stringList:
		return "string"
	case flag.Getter:
		switch v.Get().(type) {
		case bool:
			return ""
		case int:
			return "int"
		case time.Duration:
			return "duration"
		}
	}
	return "string"
}

// IsHelp reports whether err came from -h or -help.
func IsHelp(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
