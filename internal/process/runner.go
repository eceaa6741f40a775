// Package process launches the testbed and other external programs.
package process

import (
	"context"
	"strings"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-trigger-testbed/internal/parser"
)

// Runner runs one external program to completion.
// This interface allows the batch driver to be tested without a JVM.
type Runner interface {
	// Run starts the program described by desc, delivers each output line
	// to h and waits for it to exit. Only one run may be active at a time.
	Run(ctx context.Context, desc Descriptor, h parser.LineHandler) (*Result, error)
}

// Descriptor describes one program invocation. It is not modified by Run.
type Descriptor struct {
	// Path is the executable, resolved against the launcher's search
	// paths unless it contains a slash.
	Path string

	// Args are the arguments after the executable name.
	Args []string

	// Env holds KEY=value overrides added to the inherited environment.
	Env []string

	// Dir is the working directory (empty for the current directory).
	Dir string

	// Timeout is how long the run may take before the watchdog
	// escalates. Zero uses the watchdog default.
	Timeout time.Duration
}

// Command returns the full argument vector.
func (d Descriptor) Command() []string {
	return append([]string{d.Path}, d.Args...)
}

// String returns the command as a single line, for debug output.
func (d Descriptor) String() string {
	return strings.Join(quoteAll(d.Command()), " ")
}

// Result captures the outcome of one run.
type Result struct {
	Command []string
	Pid     int

	// ExitCode is the exit status, or 128+N when the process died from
	// signal N.
	ExitCode int

	// ExitSignal is the operator signal (SIGINT) forwarded to the run, or 0.
	ExitSignal syscall.Signal

	// KillSignal is the last signal sent through Kill, or 0.
	KillSignal syscall.Signal

	// RunTime spans start until all output was drained.
	RunTime time.Duration

	// WaitTime spans drained output until the process was reaped.
	WaitTime time.Duration

	// Report is filled in by callers which scan the output for a summary.
	Report string
}

// Failed reports whether the run exited with a non-zero status.
func (r *Result) Failed() bool {
	return r.ExitCode != 0
}

// Interrupted reports whether the operator interrupted the run.
func (r *Result) Interrupted() bool {
	return r.ExitSignal != 0
}

// quoteAll single-quotes arguments which a shell would split or expand.
func quoteAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'\\$`*?[]{}()<>|&;#~") {
			out[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		} else {
			out[i] = a
		}
	}
	return out
}
