package stats

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// Table-Driven Tests: Formatting Functions
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"zero", 0, "00:00:00"},
		{"one second", time.Second, "00:00:01"},
		{"one minute", time.Minute, "00:01:00"},
		{"one hour", time.Hour, "01:00:00"},
		{"mixed", 2*time.Hour + 30*time.Minute + 45*time.Second, "02:30:45"},
		{"24 hours", 24 * time.Hour, "24:00:00"},
		{"sub-second", 500 * time.Millisecond, "00:00:00"},
		{"59 seconds", 59 * time.Second, "00:00:59"},
		{"59 minutes", 59 * time.Minute, "00:59:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.duration); got != tt.want {
				t.Errorf("FormatDuration(%v) = %q, want %q", tt.duration, got, tt.want)
			}
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		want string
	}{
		{"zero", 0, "0"},
		{"small", 123, "123"},
		{"999", 999, "999"},
		{"1K", 1000, "1.0K"},
		{"1.5K", 1500, "1.5K"},
		{"10K", 10000, "10.0K"},
		{"999K", 999000, "999.0K"},
		{"1M", 1000000, "1.0M"},
		{"1.5M", 1500000, "1.5M"},
		{"10M", 10000000, "10.0M"},
		{"negative", -100, "-100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatNumber(tt.n); got != tt.want {
				t.Errorf("FormatNumber(%d) = %q, want %q", tt.n, got, tt.want)
			}
		})
	}
}


func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0.00s"},
		{1500 * time.Millisecond, "1.50s"},
		{9990 * time.Millisecond, "9.99s"},
		{10 * time.Second, "10s"},
		{1312 * time.Second, "1312s"},
	}
	for _, tt := range tests {
		if got := FormatSeconds(tt.d); got != tt.want {
			t.Errorf("FormatSeconds(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestExitCodeLabel(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{1, "(failed)"},
		{130, "(SIGINT)"},
		{131, "(SIGQUIT)"},
		{137, "(SIGKILL)"},
		{143, "(SIGTERM)"},
		{2, ""},
	}
	for _, tt := range tests {
		if got := exitCodeLabel(tt.code); got != tt.want {
			t.Errorf("exitCodeLabel(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

// =============================================================================
// Tests: Exit Summary
// =============================================================================

func TestFormatExitSummary_Empty(t *testing.T) {
	out := FormatExitSummary(NewBatchStats().Snapshot(), SummaryConfig{Command: "test-all-configs"})

	for _, want := range []string{"test-all-configs Exit Summary", "Runs:                   0"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
	for _, absent := range []string{"Run Times", "Problems", "Metrics endpoint"} {
		if strings.Contains(out, absent) {
			t.Errorf("empty summary contains %q", absent)
		}
	}
}

func TestFormatExitSummary_WithRuns(t *testing.T) {
	s := NewBatchStats()
	s.ConfigStarted("sps-2024")
	s.Record(RunSample{Variant: "old", Type: "in-ice", RunTime: 4 * time.Second})
	s.Record(RunSample{Variant: "new", Type: "in-ice", RunTime: 30 * time.Second, WaitTime: 3 * time.Second})
	s.Record(RunSample{Variant: "new", Type: "global", RunTime: time.Second, ExitCode: 2, NoReport: true})
	s.Record(RunSample{Variant: "new", Type: "global", RunTime: time.Second, ExitCode: 137, Killed: true})
	s.RecordSkip()

	out := FormatExitSummary(s.Snapshot(), SummaryConfig{
		Command:     "test-all-configs",
		BatchID:     "abc-123",
		LogFile:     "all-configs.log",
		MetricsAddr: "127.0.0.1:9101",
		MetricsFile: "/var/lib/node_exporter/testbed.prom",
	})

	for _, want := range []string{
		"Batch:                  abc-123",
		"Configurations:         1",
		"Runs:                   4",
		"Skipped:                1",
		"old in-ice",
		"new global",
		"Longest exit wait:    3.00s",
		"Failed:               2",
		"Killed by watchdog:   1",
		"No report:            1",
		"137 (SIGKILL)",
		"Status log: all-configs.log",
		"http://127.0.0.1:9101/metrics",
		"Metrics snapshot: /var/lib/node_exporter/testbed.prom",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

// =============================================================================
// Tests: BatchStats
// =============================================================================

func TestBatchStats_Components(t *testing.T) {
	s := NewBatchStats()
	for i := 1; i <= 100; i++ {
		s.Record(RunSample{Variant: "new", Type: "icetop", RunTime: time.Duration(i) * time.Second})
	}
	s.Record(RunSample{Variant: "old", Type: "icetop", RunTime: time.Second})

	snap := s.Snapshot()
	if len(snap.Components) != 2 || snap.Components[0].Name != "new icetop" || snap.Components[1].Name != "old icetop" {
		t.Fatalf("Components = %+v", snap.Components)
	}

	c := snap.Components[0]
	if c.Runs != 100 || c.Max != 100*time.Second {
		t.Errorf("Runs = %d, Max = %v", c.Runs, c.Max)
	}
	if c.P50 < 45*time.Second || c.P50 > 56*time.Second {
		t.Errorf("P50 = %v, want about 50s", c.P50)
	}
	if c.P95 < 90*time.Second || c.P95 > 100*time.Second {
		t.Errorf("P95 = %v, want about 95s", c.P95)
	}
}

func TestBatchStats_Current(t *testing.T) {
	s := NewBatchStats()
	s.ConfigStarted("a")
	s.ConfigStarted("b")
	s.RunStarted("new in-ice 1000 hits")

	snap := s.Snapshot()
	if snap.Configs != 2 || snap.Config != "b" || snap.Current != "new in-ice 1000 hits" {
		t.Errorf("snapshot = %+v", snap)
	}

	s.Record(RunSample{Variant: "new", Type: "in-ice"})
	if s.Snapshot().Current != "" {
		t.Error("Current not cleared after Record")
	}
}

func TestBatchStats_RecentLines(t *testing.T) {
	s := NewBatchStats()
	for i := range maxRecent + 5 {
		s.AddLine(strings.Repeat("x", i))
	}

	recent := s.Snapshot().Recent
	if len(recent) != maxRecent {
		t.Fatalf("len(Recent) = %d", len(recent))
	}
	if len(recent[0]) != 5 || len(recent[maxRecent-1]) != maxRecent+4 {
		t.Errorf("Recent kept the wrong lines: first %d, last %d", len(recent[0]), len(recent[maxRecent-1]))
	}
}

func TestBatchStats_SnapshotIsCopy(t *testing.T) {
	s := NewBatchStats()
	s.Record(RunSample{ExitCode: 1})
	snap := s.Snapshot()
	snap.ExitCodes[1] = 99

	if s.Snapshot().ExitCodes[1] != 1 {
		t.Error("Snapshot shares the exit code map")
	}
}
