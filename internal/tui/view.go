package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-trigger-testbed/internal/stats"
)

// =============================================================================
// Main View Rendering
// =============================================================================

func (m Model) renderDashboard() string {
	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderProgress())

	if m.snap != nil {
		sections = append(sections, m.renderCounts())
		if len(m.snap.Components) > 0 {
			sections = append(sections, m.renderRunTimes())
		}
		if m.showRecent && len(m.snap.Recent) > 0 {
			sections = append(sections, m.renderRecent())
		}
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	title := m.command
	if title == "" {
		title = "testbed"
	}
	header := fmt.Sprintf(" %s │ Runs: %d │ Elapsed: %s ", title, m.Runs(), formatDuration(m.Elapsed()))
	if m.batchID != "" {
		header += "│ " + m.batchID + " "
	}
	return headerStyle.Width(m.width).Render(header)
}

// =============================================================================
// Progress Section
// =============================================================================

func (m Model) renderProgress() string {
	var status string
	switch {
	case m.done && m.doneErr != nil:
		status = statusError.Render("✗ Batch stopped: " + m.doneErr.Error())
	case m.done:
		status = statusOK.Render("✓ Batch finished")
	case m.snap != nil && m.snap.Current != "":
		status = statusInfo.Render("▶ " + m.snap.Current)
	case m.snap != nil && m.snap.Config != "":
		status = statusInfo.Render("Scanning " + m.snap.Config)
	default:
		status = mutedStyle.Render("Waiting for the first run...")
	}

	lines := []string{sectionHeaderStyle.Render("Progress")}
	if m.snap != nil && m.snap.Config != "" {
		lines = append(lines, RenderKeyValue("Configuration", fmt.Sprintf("%s (%d)", m.snap.Config, m.snap.Configs)))
	}
	lines = append(lines, status)

	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// Counts
// =============================================================================

func (m Model) renderCounts() string {
	s := m.snap

	barWidth := m.width - 30
	if barWidth < 20 {
		barWidth = 20
	}

	failed := GetProblemStyle(s.Failed, s.Runs).Render(fmt.Sprintf("%d", s.Failed))
	killed := GetProblemStyle(s.Killed, s.Runs).Render(fmt.Sprintf("%d", s.Killed))
	noReport := GetProblemStyle(s.NoReport, s.Runs).Render(fmt.Sprintf("%d", s.NoReport))

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Runs"),
		RenderKeyValue("Finished", fmt.Sprintf("%d", s.Runs)),
		RenderKeyValue("Skipped", fmt.Sprintf("%d", s.Skipped)),
		labelStyle.Render("Failed:")+failed,
		labelStyle.Render("Killed:")+killed,
		labelStyle.Render("No report:")+noReport,
		"",
		mutedStyle.Render("Passing ")+RenderProgressBar(m.PassRate(), barWidth),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Run Times
// =============================================================================

func (m Model) renderRunTimes() string {
	var b strings.Builder
	b.WriteString(tableHeaderStyle.Render(fmt.Sprintf("%-18s %6s %9s %9s %9s", "Component", "Runs", "P50", "P95", "Max")))
	for _, c := range m.snap.Components {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%-18s %6d %9s %9s %9s",
			c.Name, c.Runs, stats.FormatSeconds(c.P50), stats.FormatSeconds(c.P95), stats.FormatSeconds(c.Max)))
	}
	if m.snap.MaxWait > 0 {
		b.WriteString("\n" + dimStyle.Render("longest exit wait "+stats.FormatSeconds(m.snap.MaxWait)))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		sectionHeaderStyle.Render("Run Times"),
		b.String(),
	)
	return boxStyle.Width(m.width - 2).Render(content)
}

// =============================================================================
// Recent Lines
// =============================================================================

func (m Model) renderRecent() string {
	width := m.width - 6
	lines := []string{sectionHeaderStyle.Render("Recent")}
	for _, line := range m.snap.Recent {
		lines = append(lines, GetLineStyle(line).Render(truncate(line, width)))
	}
	return boxStyle.Width(m.width - 2).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	var parts []string
	if m.done {
		parts = append(parts, "q: exit")
	} else {
		parts = append(parts, "q: abort batch")
	}
	parts = append(parts, "l: toggle recent lines", "r: refresh")
	if m.logFile != "" {
		parts = append(parts, "log: "+m.logFile)
	}
	if m.metricsAddr != "" {
		parts = append(parts, "metrics: http://"+m.metricsAddr+"/metrics")
	}
	if m.snap != nil && m.snap.Runs > 0 {
		parts = append(parts, "failing "+formatPercent(1-m.PassRate()))
	}
	return footerStyle.Render(strings.Join(parts, " │ "))
}
