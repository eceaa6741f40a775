package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SummaryConfig holds configuration for summary formatting.
type SummaryConfig struct {
	// Command is the name shown in the banner
	Command string

	// BatchID identifies the batch in logs and metrics
	BatchID string

	// LogFile is where the status lines were written
	LogFile string

	// MetricsAddr is the Prometheus metrics endpoint address
	MetricsAddr string

	// MetricsFile is the textfile snapshot path
	MetricsFile string
}

const (
	heavyRule = "═══════════════════════════════════════════════════════════════════════════════\n"
	lightRule = "───────────────────────────────────────────────────────────────────────────────\n"
)

// FormatExitSummary formats batch statistics for display at program exit.
func FormatExitSummary(snap Snapshot, cfg SummaryConfig) string {
	var b strings.Builder

	title := cfg.Command
	if title == "" {
		title = "testbed"
	}
	b.WriteString("\n")
	b.WriteString(heavyRule)
	fmt.Fprintf(&b, "%s\n", center(title+" Exit Summary", 79))
	b.WriteString(heavyRule + "\n")

	if cfg.BatchID != "" {
		fmt.Fprintf(&b, "Batch:                  %s\n", cfg.BatchID)
	}
	fmt.Fprintf(&b, "Batch Duration:         %s\n", FormatDuration(snap.Elapsed))
	fmt.Fprintf(&b, "Configurations:         %d\n", snap.Configs)
	fmt.Fprintf(&b, "Runs:                   %d\n", snap.Runs)
	fmt.Fprintf(&b, "Skipped:                %d\n\n", snap.Skipped)

	// Run times
	if len(snap.Components) > 0 {
		b.WriteString(lightRule)
		fmt.Fprintf(&b, "%s\n", center("Run Times", 79))
		b.WriteString(lightRule + "\n")

		fmt.Fprintf(&b, "  %-20s %8s %12s %12s %12s\n", "Component", "Runs", "P50", "P95", "Max")
		b.WriteString("  " + strings.Repeat("─", 68) + "\n")
		for _, c := range snap.Components {
			fmt.Fprintf(&b, "  %-20s %8d %12s %12s %12s\n",
				c.Name, c.Runs, FormatSeconds(c.P50), FormatSeconds(c.P95), FormatSeconds(c.Max))
		}
		if snap.MaxWait > 0 {
			fmt.Fprintf(&b, "\n  Longest exit wait:    %s\n", FormatSeconds(snap.MaxWait))
		}
		b.WriteString("\n")
	}

	// Problems
	if snap.Failed > 0 || snap.Killed > 0 || snap.NoReport > 0 {
		b.WriteString(lightRule)
		fmt.Fprintf(&b, "%s\n", center("Problems", 79))
		b.WriteString(lightRule + "\n")

		fmt.Fprintf(&b, "  Failed:               %d\n", snap.Failed)
		fmt.Fprintf(&b, "  Killed by watchdog:   %d\n", snap.Killed)
		fmt.Fprintf(&b, "  No report:            %d\n", snap.NoReport)

		if len(snap.ExitCodes) > 0 {
			codes := make([]int, 0, len(snap.ExitCodes))
			for code := range snap.ExitCodes {
				codes = append(codes, code)
			}
			sort.Ints(codes)

			b.WriteString("\n  Exit codes:\n")
			for _, code := range codes {
				fmt.Fprintf(&b, "  %5d %-16s %d\n", code, exitCodeLabel(code), snap.ExitCodes[code])
			}
		}
		b.WriteString("\n")
	}

	if cfg.LogFile != "" {
		fmt.Fprintf(&b, "Status log: %s\n", cfg.LogFile)
	}
	if cfg.MetricsAddr != "" {
		fmt.Fprintf(&b, "Metrics endpoint was: http://%s/metrics\n", cfg.MetricsAddr)
	}
	if cfg.MetricsFile != "" {
		fmt.Fprintf(&b, "Metrics snapshot: %s\n", cfg.MetricsFile)
	}

	b.WriteString(heavyRule)

	return b.String()
}

// center pads s on the left so it is centered in width columns.
func center(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return strings.Repeat(" ", (width-n)/2) + s
}

// exitCodeLabel returns a human-readable label for common exit codes.
func exitCodeLabel(code int) string {
	switch code {
	case 1:
		return "(failed)"
	case 130:
		return "(SIGINT)"
	case 131:
		return "(SIGQUIT)"
	case 137:
		return "(SIGKILL)"
	case 143:
		return "(SIGTERM)"
	default:
		return ""
	}
}

// =============================================================================
// Formatting Helper Functions (exported for reuse)
// =============================================================================

// FormatDuration formats a duration as HH:MM:SS.
func FormatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatSeconds formats a duration as whole seconds, or with two decimals
// below ten seconds.
func FormatSeconds(d time.Duration) string {
	if d < 10*time.Second {
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
	return fmt.Sprintf("%.0fs", d.Seconds())
}

// FormatNumber formats a number with K/M suffixes for readability.
func FormatNumber(n int64) string {
	if n >= 1_000_000 {
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	}
	return fmt.Sprintf("%d", n)
}
