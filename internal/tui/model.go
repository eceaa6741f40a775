package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-trigger-testbed/internal/stats"
)

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// StatsMsg carries updated statistics.
type StatsMsg struct {
	Snapshot stats.Snapshot
}

// DoneMsg reports that the batch finished, with its error if any.
type DoneMsg struct {
	Err error
}

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

// =============================================================================
// Model
// =============================================================================

// Model represents the TUI state.
type Model struct {
	// Configuration
	command     string
	batchID     string
	metricsAddr string
	logFile     string

	// Current state
	snap        *stats.Snapshot
	startTime   time.Time
	lastUpdate  time.Time
	showRecent  bool
	done        bool
	doneErr     error
	interrupted bool

	// Display options
	width  int
	height int

	statsSource StatsSource

	quitting bool
}

// StatsSource provides batch statistics. stats.BatchStats implements it.
type StatsSource interface {
	Snapshot() stats.Snapshot
}

// Config holds TUI configuration.
type Config struct {
	Command     string
	BatchID     string
	MetricsAddr string
	LogFile     string
	StatsSource StatsSource
}

// New creates a new TUI model.
func New(cfg Config) Model {
	return Model{
		command:     cfg.Command,
		batchID:     cfg.BatchID,
		metricsAddr: cfg.MetricsAddr,
		logFile:     cfg.LogFile,
		statsSource: cfg.StatsSource,
		startTime:   time.Now(),
		lastUpdate:  time.Now(),
		showRecent:  true,
		width:       80,
		height:      24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			m.interrupted = !m.done
			return m, tea.Quit
		case "l":
			m.showRecent = !m.showRecent
			return m, nil
		case "r":
			// Force refresh
			return m, tickCmd()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		m.refresh()
		if m.done {
			return m, nil
		}
		return m, tickCmd()

	case StatsMsg:
		snap := msg.Snapshot
		m.snap = &snap
		m.lastUpdate = time.Now()
		return m, nil

	case DoneMsg:
		m.refresh()
		m.done = true
		m.doneErr = msg.Err
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) refresh() {
	if m.statsSource != nil {
		snap := m.statsSource.Snapshot()
		m.snap = &snap
	}
	m.lastUpdate = time.Now()
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderDashboard()
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the batch started.
func (m Model) Elapsed() time.Duration {
	if m.snap != nil && !m.snap.Started.IsZero() {
		return m.snap.Elapsed
	}
	return time.Since(m.startTime)
}

// Runs returns the number of finished runs.
func (m Model) Runs() int {
	if m.snap == nil {
		return 0
	}
	return m.snap.Runs
}

// PassRate returns the fraction of finished runs which exited cleanly.
func (m Model) PassRate() float64 {
	if m.snap == nil || m.snap.Runs == 0 {
		return 0
	}
	return float64(m.snap.Runs-m.snap.Failed) / float64(m.snap.Runs)
}

// Interrupted reports whether the operator quit before the batch finished.
func (m Model) Interrupted() bool {
	return m.interrupted
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendStats sends a stats update to the TUI.
func SendStats(p *tea.Program, snap stats.Snapshot) {
	if p != nil {
		p.Send(StatsMsg{Snapshot: snap})
	}
}

// SendDone tells the TUI the batch finished.
func SendDone(p *tea.Program, err error) {
	if p != nil {
		p.Send(DoneMsg{Err: err})
	}
}

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatPercent formats a percentage.
func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value*100)
}

// truncate shortens s to width columns, marking the cut with "…".
func truncate(s string, width int) string {
	r := []rune(s)
	if width <= 1 || len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
