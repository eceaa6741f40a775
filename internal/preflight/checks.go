// Package preflight provides startup validation checks.
package preflight

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/randomizedcoder/go-trigger-testbed/internal/baseline"
	"github.com/randomizedcoder/go-trigger-testbed/internal/classpath"
)

// Note: syscall.RLIMIT_NPROC is not exported in Go's syscall package,
// so we read process limits from /proc/self/limits instead.

// Limits a JVM running the testbed comfortably needs.
const (
	requiredFDs     = 1024
	requiredThreads = 512
)

// Check represents the result of a single preflight check.
type Check struct {
	Name     string // Name of the check
	Required int    // Required value (if applicable)
	Actual   int    // Actual value found
	Passed   bool   // Whether the check passed
	Warning  bool   // True if it's a warning (non-fatal)
	Message  string // Additional context
}

// Result holds the results of all preflight checks.
type Result struct {
	Checks []Check
	Passed bool
}

// String returns a human-readable summary of the check.
func (c Check) String() string {
	status := "✓"
	if !c.Passed {
		status = "✗"
	} else if c.Warning {
		status = "⚠"
	}

	if c.Required > 0 {
		return fmt.Sprintf("  %s %s: %d available (need %d)", status, c.Name, c.Actual, c.Required)
	}
	return fmt.Sprintf("  %s %s: %s", status, c.Name, c.Message)
}

// PathFinder resolves an executable. process.Launcher implements it.
type PathFinder interface {
	LookPath(name string) (string, error)
}

// Options selects what RunAll checks.
type Options struct {
	// Java is the JVM executable, resolved through Finder.
	Java   string
	Finder PathFinder

	ConfigDir string
	TargetDir string

	// CaptureDir must be writable for the per-run capture file.
	CaptureDir string

	// Resolver builds the classpath; nil skips the check.
	Resolver classpath.Resolver

	// NeedBaselines fails the target check when no baseline files exist.
	NeedBaselines bool
}

// RunAll executes all preflight checks.
func RunAll(opts Options) *Result {
	result := &Result{
		Checks: make([]Check, 0, 7),
		Passed: true,
	}
	add := func(c Check) {
		result.Checks = append(result.Checks, c)
		if !c.Passed {
			result.Passed = false
		}
	}

	add(checkJava(opts.Java, opts.Finder))
	add(checkConfigDir(opts.ConfigDir))
	add(checkTargetDir(opts.TargetDir, opts.NeedBaselines))
	add(checkCaptureDir(opts.CaptureDir))
	if opts.Resolver != nil {
		add(checkClasspath(opts.Resolver))
	}
	add(checkFileDescriptors())
	add(checkProcessLimit())

	return result
}

// checkJava verifies the JVM is on the search path and runs.
func checkJava(name string, finder PathFinder) Check {
	if name == "" {
		name = "java"
	}
	path := name
	if finder != nil {
		found, err := finder.LookPath(name)
		if err != nil {
			return Check{
				Name:    "java",
				Passed:  false,
				Message: fmt.Sprintf("not found: %v", err),
			}
		}
		path = found
	}

	// "java -version" prints to stderr
	output, err := exec.Command(path, "-version").CombinedOutput()
	if err != nil {
		return Check{
			Name:    "java",
			Passed:  false,
			Message: fmt.Sprintf("not found at %s: %v", path, err),
		}
	}

	return Check{
		Name:    "java",
		Passed:  true,
		Message: fmt.Sprintf("found at %s (version %s)", path, parseJavaVersion(string(output))),
	}
}

// parseJavaVersion extracts the quoted version from `java -version`
// output, e.g. `openjdk version "17.0.9" 2023-10-17`.
func parseJavaVersion(output string) string {
	first, _, _ := strings.Cut(output, "\n")
	_, rest, ok := strings.Cut(first, `"`)
	if !ok {
		return "unknown"
	}
	version, _, ok := strings.Cut(rest, `"`)
	if !ok || version == "" {
		return "unknown"
	}
	return version
}

// checkConfigDir verifies the run configuration directory.
func checkConfigDir(dir string) Check {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Check{
			Name:    "config_dir",
			Passed:  false,
			Message: fmt.Sprintf("cannot read %s: %v", dir, err),
		}
	}

	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".xml") {
			n++
		}
	}
	return Check{
		Name:    "config_dir",
		Passed:  true,
		Warning: n == 0,
		Message: fmt.Sprintf("%s (%d XML files)", dir, n),
	}
}

// checkTargetDir verifies the hit and baseline data directory.
func checkTargetDir(dir string, needBaselines bool) Check {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Check{
			Name:    "target_dir",
			Passed:  false,
			Message: fmt.Sprintf("cannot read %s: %v", dir, err),
		}
	}

	n := 0
	for _, e := range entries {
		if _, ok := baseline.ParseDataFileName(e.Name()); ok {
			n++
		}
	}
	return Check{
		Name:    "target_dir",
		Passed:  n > 0 || !needBaselines,
		Warning: n == 0,
		Message: fmt.Sprintf("%s (%d baseline files)", dir, n),
	}
}

// checkCaptureDir verifies the capture file can be written.
func checkCaptureDir(dir string) Check {
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, ".preflight-*")
	if err != nil {
		return Check{
			Name:    "capture_dir",
			Passed:  false,
			Message: fmt.Sprintf("%s is not writable: %v", dir, err),
		}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	return Check{
		Name:    "capture_dir",
		Passed:  true,
		Message: abs + " is writable",
	}
}

// checkClasspath verifies every jar the testbed needs can be found.
func checkClasspath(r classpath.Resolver) Check {
	entries, err := r.Resolve()
	if err != nil {
		return Check{
			Name:    "classpath",
			Passed:  false,
			Message: err.Error(),
		}
	}
	return Check{
		Name:    "classpath",
		Passed:  true,
		Message: fmt.Sprintf("%d entries", len(entries)),
	}
}

// checkFileDescriptors warns when the open file limit is low for a JVM.
func checkFileDescriptors() Check {
	var limit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &limit); err != nil {
		return Check{
			Name:    "file_descriptors",
			Passed:  true,
			Warning: true,
			Message: fmt.Sprintf("unable to check: %v", err),
		}
	}

	actual := int(min(limit.Cur, 1<<30))
	return Check{
		Name:     "file_descriptors",
		Required: requiredFDs,
		Actual:   actual,
		Passed:   true, // A JVM may cope with fewer; only warn
		Warning:  actual < requiredFDs,
		Message:  fmt.Sprintf("ulimit -n %d (recommend %d)", actual, requiredFDs),
	}
}

// checkProcessLimit warns when the process limit leaves little room for
// JVM threads.
func checkProcessLimit() Check {
	data, err := os.ReadFile("/proc/self/limits")
	if err != nil {
		// Non-Linux or restricted access, assume OK
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to check (non-Linux or restricted)",
		}
	}

	actual := parseMaxProcesses(string(data))
	if actual == 0 {
		return Check{
			Name:    "process_limit",
			Passed:  true,
			Warning: true,
			Message: "unable to determine (assuming OK)",
		}
	}

	return Check{
		Name:     "process_limit",
		Required: requiredThreads,
		Actual:   actual,
		Passed:   true,
		Warning:  actual < requiredThreads,
		Message:  fmt.Sprintf("ulimit -u %d (recommend %d)", actual, requiredThreads),
	}
}

// parseMaxProcesses reads the soft "Max processes" limit from the
// contents of /proc/self/limits. It returns 0 if the line is missing.
func parseMaxProcesses(limits string) int {
	actual := 0
	for _, line := range strings.Split(limits, "\n") {
		if strings.HasPrefix(line, "Max processes") {
			fields := strings.Fields(line)
			if len(fields) >= 4 {
				if fields[2] == "unlimited" {
					actual = 1000000
				} else {
					fmt.Sscanf(fields[2], "%d", &actual)
				}
			}
			break
		}
	}
	return actual
}

// PrintResults prints the preflight check results.
func PrintResults(w io.Writer, result *Result) {
	fmt.Fprintln(w, "Preflight checks:")
	for _, check := range result.Checks {
		fmt.Fprintln(w, check.String())
		if !check.Passed {
			fmt.Fprintf(w, "    Fix: %s\n", suggestFix(check.Name))
		}
	}
	fmt.Fprintln(w)
}

// suggestFix returns a suggestion for fixing a failed check.
func suggestFix(name string) string {
	switch name {
	case "java":
		return "install a JDK or pass -java /path/to/java"
	case "config_dir":
		return "set PDAQ_CONFIG or pass -D <dir>"
	case "target_dir":
		return "pass -t <dir> holding the simple hit files and baseline data"
	case "capture_dir":
		return "run from a writable directory"
	case "classpath":
		return "build the pDAQ subprojects (mvn install) or set PDAQ_HOME"
	default:
		return "see documentation"
	}
}
