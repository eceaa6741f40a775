package logging

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

const (
	// MaxLineLength is the maximum length of a single stored line before truncation.
	MaxLineLength = 4096

	// MaxBufferedLines is the number of recent lines kept per run.
	MaxBufferedLines = 100
)

// OutputTail keeps the most recent lines of testbed output so they can be
// shown when a run fails. Lines which look like Java exceptions are
// logged as they arrive.
type OutputTail struct {
	logger  *slog.Logger
	verbose bool

	// Circular buffer for recent lines
	buffer []string
	bufIdx int
	count  int
	mu     sync.Mutex
}

// NewOutputTail creates an empty tail. logger should carry the run's
// identifying attributes.
func NewOutputTail(logger *slog.Logger, verbose bool) *OutputTail {
	if logger == nil {
		logger = Discard()
	}
	return &OutputTail{
		logger:  logger,
		verbose: verbose,
		buffer:  make([]string, MaxBufferedLines),
	}
}

// HandleLine records one line of output.
func (t *OutputTail) HandleLine(line string) {
	if len(line) > MaxLineLength {
		line = line[:MaxLineLength] + "...(truncated)"
	}

	t.mu.Lock()
	t.buffer[t.bufIdx] = line
	t.bufIdx = (t.bufIdx + 1) % MaxBufferedLines
	t.count++
	t.mu.Unlock()

	level := ClassifyLine(line)
	if !t.verbose && level < slog.LevelWarn {
		return
	}
	t.logger.Log(context.Background(), level, "testbed_output", "line", line)
}

// Reset forgets all lines, ready for the next run.
func (t *OutputTail) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.buffer)
	t.bufIdx = 0
	t.count = 0
}

// Lines returns the number of lines seen since the last Reset.
func (t *OutputTail) Lines() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// ClassifyLine returns the level at which a line of JVM output is logged.
func ClassifyLine(line string) slog.Level {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.Contains(line, "OutOfMemoryError"),
		strings.HasPrefix(trimmed, "Exception in thread"),
		strings.Contains(line, "FATAL"):
		return slog.LevelError
	case strings.HasPrefix(trimmed, "Caused by:"),
		strings.Contains(line, "Exception:"),
		strings.Contains(line, "Error:"),
		strings.Contains(line, "ERROR"):
		return slog.LevelWarn
	default:
		return slog.LevelDebug
	}
}

// RecentLines returns up to n of the most recent lines, oldest first.
func (t *OutputTail) RecentLines(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n > MaxBufferedLines {
		n = MaxBufferedLines
	}
	if n > t.count {
		n = t.count
	}

	lines := make([]string, 0, n)
	for i := 0; i < n; i++ {
		idx := (t.bufIdx - n + i + MaxBufferedLines) % MaxBufferedLines
		lines = append(lines, t.buffer[idx])
	}
	return lines
}

// ExceptionPatterns are JVM failure signatures counted for the run summary.
var ExceptionPatterns = []string{
	"OutOfMemoryError",
	"NullPointerException",
	"IllegalArgumentException",
	"IOException",
	"ClassNotFoundException",
	"NoClassDefFoundError",
	"Exception in thread",
}

// CountExceptions counts occurrences of ExceptionPatterns in the buffer.
func (t *OutputTail) CountExceptions() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts := make(map[string]int)
	for _, line := range t.buffer {
		if line == "" {
			continue
		}
		for _, pattern := range ExceptionPatterns {
			if strings.Contains(line, pattern) {
				counts[pattern]++
			}
		}
	}
	return counts
}
