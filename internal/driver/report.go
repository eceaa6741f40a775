package driver

import (
	"strings"

	"github.com/randomizedcoder/go-trigger-testbed/internal/baseline"
	"github.com/randomizedcoder/go-trigger-testbed/internal/logging"
	"github.com/randomizedcoder/go-trigger-testbed/internal/parser"
)

// NoReport replaces the report of a run which never printed one.
const NoReport = "No report"

const (
	reportMarker = "Consumer "
	notStopped   = ", not stopped"
)

// IsReportLine reports whether a stdout line is the consumer's summary.
func IsReportLine(line string) bool {
	if !strings.Contains(line, reportMarker) {
		return false
	}
	return strings.Contains(line, "compared") ||
		strings.Contains(line, "wrote") ||
		strings.Contains(line, "failed")
}

// TrimReport strips the "Consumer " prefix and ", not stopped" suffix.
func TrimReport(rpt string) string {
	rpt = strings.TrimPrefix(rpt, reportMarker)
	return strings.TrimSuffix(rpt, notStopped)
}

// outputHandler copies every line into the capture file and the output
// tail, and remembers the last report line seen on stdout.
type outputHandler struct {
	capture *baseline.Capture
	tail    *logging.OutputTail
	report  string
	werr    error
}

func (h *outputHandler) HandleLine(stream parser.Stream, text string) {
	if stream == parser.Stdout && IsReportLine(text) {
		h.report = strings.TrimRight(text, " \t\r")
	}
	if h.tail != nil {
		h.tail.HandleLine(text)
	}
	if h.werr == nil {
		h.werr = h.capture.WriteLine(text)
	}
}

var _ parser.LineHandler = (*outputHandler)(nil)
