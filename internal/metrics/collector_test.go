package metrics

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// =============================================================================
// Test Helpers
// =============================================================================

// newTestCollector creates a collector with an isolated registry.
func newTestCollector() (*Collector, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	c := NewCollectorWithRegistry(CollectorConfig{
		BatchID: "batch-1",
		Mode:    "test-all-configs",
	}, registry)
	return c, registry
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// metricValue returns the value of the series of name whose labels include
// labels, and the number of series the family has.
func metricValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) (float64, int) {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := labels[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched != len(labels) {
				continue
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue(), len(mf.GetMetric())
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue(), len(mf.GetMetric())
			}
		}
		return 0, len(mf.GetMetric())
	}
	return 0, 0
}

// =============================================================================
// Tests: Collector
// =============================================================================

func TestNewCollector_Info(t *testing.T) {
	_, reg := newTestCollector()

	labels := map[string]string{"batch_id": "batch-1", "mode": "test-all-configs", "version": "dev"}
	if got, _ := metricValue(t, reg, "testbed_batch_info", labels); got != 1 {
		t.Errorf("testbed_batch_info = %v, want 1", got)
	}
}

func TestNewCollector_SeparateRegistries(t *testing.T) {
	// Two collectors must not collide.
	newTestCollector()
	newTestCollector()
}

func TestRecordRun(t *testing.T) {
	c, reg := newTestCollector()

	c.RunStarted()
	if v, _ := metricValue(t, reg, "testbed_run_active", nil); v != 1 {
		t.Error("run_active not set")
	}

	records := []RunRecord{
		{Variant: "old", Type: "in-ice", Outcome: OutcomeOK, RunTime: 5 * time.Second},
		{Variant: "new", Type: "in-ice", Outcome: OutcomeOK, RunTime: 6 * time.Second},
		{Variant: "new", Type: "global", Outcome: OutcomeFailed, RunTime: time.Second, WaitTime: 3 * time.Second},
		{Variant: "new", Type: "icetop", Outcome: OutcomeKilled},
		{Variant: "new", Type: "icetop", Outcome: OutcomeNoReport},
	}
	for _, r := range records {
		c.RecordRun(r)
	}

	if v, _ := metricValue(t, reg, "testbed_run_active", nil); v != 0 {
		t.Error("run_active still set")
	}
	got, series := metricValue(t, reg, "testbed_runs_total", map[string]string{"variant": "new", "type": "in-ice", "outcome": "ok"})
	if got != 1 {
		t.Errorf("new in-ice ok = %v", got)
	}
	if series != 5 {
		t.Errorf("runs_total series = %d, want 5", series)
	}

	counts := c.Counts()
	want := Counts{Runs: 5, Failed: 1, Killed: 1, NoReport: 1}
	if counts != want {
		t.Errorf("Counts() = %+v, want %+v", counts, want)
	}
}

func TestRecordSkipAndWatchdog(t *testing.T) {
	c, reg := newTestCollector()

	c.ConfigStarted()
	c.RecordSkip(SkipDataExists)
	c.RecordSkip(SkipDataExists)
	c.RecordSkip(SkipDataMissing)
	c.RecordSignal("SIGQUIT")
	c.RecordSignal("SIGTERM")
	c.RecordExhausted()

	if got, _ := metricValue(t, reg, "testbed_skips_total", map[string]string{"reason": "data_exists"}); got != 2 {
		t.Errorf("data_exists skips = %v", got)
	}
	if got, _ := metricValue(t, reg, "testbed_watchdog_signals_total", map[string]string{"signal": "SIGQUIT"}); got != 1 {
		t.Errorf("SIGQUIT signals = %v", got)
	}

	counts := c.Counts()
	if counts.Configs != 1 || counts.Skipped != 3 || counts.Signals != 2 || counts.Exhausted != 1 {
		t.Errorf("Counts() = %+v", counts)
	}
}

// =============================================================================
// Tests: Server
// =============================================================================

func TestServer_Routes(t *testing.T) {
	c, registry := newTestCollector()
	c.RecordSkip(SkipUnusable)

	status := func() any {
		return map[string]int{"runs": 3}
	}
	s := NewServer("127.0.0.1:0", registry, status, newTestLogger())
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	testCases := []struct {
		path   string
		method string
		code   int
		want   string
	}{
		{"/health", http.MethodGet, http.StatusOK, "ok"},
		{"/healthz", http.MethodGet, http.StatusOK, "ok"},
		{"/metrics", http.MethodGet, http.StatusOK, `testbed_skips_total{reason="unusable"} 1`},
		{"/status", http.MethodGet, http.StatusOK, `"runs": 3`},
		{"/metrics", http.MethodPost, http.StatusMethodNotAllowed, ""},
		{"/nowhere", http.MethodGet, http.StatusNotFound, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.method+tc.path, func(t *testing.T) {
			req, _ := http.NewRequest(tc.method, ts.URL+tc.path, nil)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tc.code {
				t.Errorf("status = %d, want %d", resp.StatusCode, tc.code)
			}
			if !strings.Contains(string(body), tc.want) {
				t.Errorf("body = %q, want it to contain %q", body, tc.want)
			}
		})
	}
}

func TestServer_NoStatus(t *testing.T) {
	s := NewServer("127.0.0.1:0", prometheus.NewRegistry(), nil, newTestLogger())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if s.Addr() != "127.0.0.1:0" {
		t.Errorf("Addr() = %q", s.Addr())
	}
}

// =============================================================================
// Tests: Textfile
// =============================================================================

// readTextfile parses a file written by WriteTextfile.
func readTextfile(t *testing.T, path string) map[string]*dto.MetricFamily {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	decoder := expfmt.NewDecoder(f, expfmt.FmtText)
	families := make(map[string]*dto.MetricFamily)
	for {
		var mf dto.MetricFamily
		if err := decoder.Decode(&mf); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			t.Fatalf("parse %s: %v", path, err)
		}
		families[mf.GetName()] = &mf
	}
	return families
}

func TestWriteTextfile(t *testing.T) {
	c, registry := newTestCollector()
	c.RecordRun(RunRecord{Variant: "new", Type: "global", Outcome: OutcomeOK, RunTime: 12 * time.Second})

	dir := t.TempDir()
	path := filepath.Join(dir, "testbed.prom")
	if err := WriteTextfile(path, registry); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	families := readTextfile(t, path)
	runs, ok := families["testbed_runs_total"]
	if !ok {
		t.Fatalf("testbed_runs_total missing; have %d families", len(families))
	}
	if got := runs.GetMetric()[0].GetCounter().GetValue(); got != 1 {
		t.Errorf("testbed_runs_total = %v", got)
	}
	hist := families["testbed_run_duration_seconds"].GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 1 || hist.GetSampleSum() != 12 {
		t.Errorf("histogram count = %d, sum = %v", hist.GetSampleCount(), hist.GetSampleSum())
	}

	// No temporary files left behind.
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want 1", len(entries))
	}
}

func TestWriteTextfile_BadDir(t *testing.T) {
	_, registry := newTestCollector()
	if err := WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"), registry); err == nil {
		t.Error("WriteTextfile() into missing dir succeeded")
	}
}
