package driver

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sys/unix"
)

// =============================================================================
// Console Styles
// =============================================================================

var (
	configStyle = lipgloss.NewStyle().
			Bold(true)

	skipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF"))

	killedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	failedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

// =============================================================================
// Status Lines
// =============================================================================

// RunLine holds the fields of one run's status line.
type RunLine struct {
	// Variant is "old" or "new"; empty omits it (compare mode).
	Variant  string
	Type     string
	Hits     int
	RunTime  time.Duration
	WaitTime time.Duration
	Report   string

	// KillSignal is the last signal sent by the watchdog, or 0.
	KillSignal syscall.Signal

	ExitCode int
}

// waitThreshold is the shortest exit wait shown in a status line.
const waitThreshold = 2 * time.Second

func (l RunLine) prefix() string {
	var b strings.Builder
	b.WriteString("    ")
	if l.Variant != "" {
		b.WriteString(l.Variant + " ")
	}
	fmt.Fprintf(&b, "%s %d hits %.0f secs", l.Type, l.Hits, l.RunTime.Seconds())
	if l.WaitTime >= waitThreshold {
		fmt.Fprintf(&b, ", waited %.2f", l.WaitTime.Seconds())
	}
	b.WriteString(": " + l.Report + "  ")
	return b.String()
}

// Killed returns the kill annotation, or "".
func (l RunLine) Killed() string {
	if l.KillSignal == 0 {
		return ""
	}
	return fmt.Sprintf("  !!KILLED %s!!", SignalName(l.KillSignal))
}

// Failed returns the failure annotation, or "".
func (l RunLine) Failed() string {
	switch l.ExitCode {
	case 0:
		return ""
	case 1:
		return "  !!FAILED!!"
	default:
		return fmt.Sprintf("  !!FAIL %d!!", l.ExitCode)
	}
}

// String returns the plain status line, e.g.
//
//	    new in-ice 1000 hits 12 secs: compared 1234 payloads  !!FAILED!!
func (l RunLine) String() string {
	return l.prefix() + l.Killed() + l.Failed()
}

// SignalName returns the conventional name of sig, e.g. "SIGKILL".
func SignalName(sig syscall.Signal) string {
	if name := unix.SignalName(sig); name != "" {
		return name
	}
	return fmt.Sprintf("signal %d", int(sig))
}

// SkipLine returns the line printed for a run which was not started.
func SkipLine(variant, compType, reason string) string {
	return fmt.Sprintf("    %s %s skipped (%s)", variant, compType, reason)
}

// =============================================================================
// StatusWriter
// =============================================================================

// StatusWriter prints status lines to the console and appends them to the
// batch log. Console annotations are styled; the log is plain text.
type StatusWriter struct {
	mu      sync.Mutex
	console io.Writer
	log     io.Writer
	onLine  func(string)
}

// NewStatusWriter creates a writer. Either writer may be nil.
func NewStatusWriter(console, log io.Writer) *StatusWriter {
	if console == nil {
		console = io.Discard
	}
	if log == nil {
		log = io.Discard
	}
	return &StatusWriter{console: console, log: log}
}

// OnLine registers f to receive every plain line written.
func (w *StatusWriter) OnLine(f func(line string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onLine = f
}

func (w *StatusWriter) write(plain, styled string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.console, styled)
	fmt.Fprintln(w.log, plain)
	if w.onLine != nil {
		w.onLine(plain)
	}
}

// Println writes msg unchanged to both outputs.
func (w *StatusWriter) Println(msg string) {
	w.write(msg, msg)
}

// Config announces a run configuration.
func (w *StatusWriter) Config(name string) {
	w.write(name, configStyle.Render(name))
}

// Skip writes a skip line.
func (w *StatusWriter) Skip(line string) {
	w.write(line, skipStyle.Render(line))
}

// Run writes a run's status line.
func (w *StatusWriter) Run(l RunLine) {
	styled := l.prefix()
	if k := l.Killed(); k != "" {
		styled += killedStyle.Render(k)
	}
	if f := l.Failed(); f != "" {
		styled += failedStyle.Render(f)
	}
	w.write(l.String(), styled)
}

// Console writes msg to the console only.
func (w *StatusWriter) Console(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.console, msg)
}
