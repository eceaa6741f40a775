// Package stats provides batch statistics for testbed runs.
//
// BatchStats is updated by the driver callbacks as runs finish and is read
// by the TUI, the /status endpoint and the exit summary.
package stats

import (
	"slices"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
)

// RunSample describes one finished run.
type RunSample struct {
	Config   string
	Variant  string
	Type     string
	Hits     int
	RunTime  time.Duration
	WaitTime time.Duration
	ExitCode int
	Killed   bool
	NoReport bool
}

// Component returns the series key of the sample, e.g. "new in-ice".
func (r RunSample) Component() string {
	return r.Variant + " " + r.Type
}

// ComponentStats summarizes run times for one variant and trigger type.
type ComponentStats struct {
	Name string        `json:"name"`
	Runs int           `json:"runs"`
	P50  time.Duration `json:"p50"`
	P95  time.Duration `json:"p95"`
	Max  time.Duration `json:"max"`
}

// Snapshot is a point-in-time copy of the batch statistics.
type Snapshot struct {
	Started    time.Time        `json:"started"`
	Elapsed    time.Duration    `json:"elapsed"`
	Configs    int              `json:"configs"`
	Config     string           `json:"config"`
	Current    string           `json:"current"`
	Runs       int              `json:"runs"`
	Failed     int              `json:"failed"`
	Killed     int              `json:"killed"`
	NoReport   int              `json:"no_report"`
	Skipped    int              `json:"skipped"`
	MaxWait    time.Duration    `json:"max_wait"`
	ExitCodes  map[int]int      `json:"exit_codes"`
	Components []ComponentStats `json:"components"`
	Recent     []string         `json:"recent"`
}

// maxRecent is the number of status lines kept for display.
const maxRecent = 12

type component struct {
	digest *tdigest.TDigest
	runs   int
	max    time.Duration
}

// BatchStats accumulates run statistics. It is safe for concurrent use.
type BatchStats struct {
	mu sync.Mutex

	start      time.Time
	components map[string]*component
	order      []string

	configs  int
	config   string
	current  string
	runs     int
	failed   int
	killed   int
	noReport int
	skipped  int
	maxWait  time.Duration
	exits    map[int]int
	recent   []string
}

// NewBatchStats creates empty statistics starting now.
func NewBatchStats() *BatchStats {
	return &BatchStats{
		start:      time.Now(),
		components: make(map[string]*component),
		exits:      make(map[int]int),
	}
}

// ConfigStarted records that the batch moved to run configuration name.
func (s *BatchStats) ConfigStarted(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs++
	s.config = name
}

// RunStarted records a description of the run in progress.
func (s *BatchStats) RunStarted(desc string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = desc
}

// Record adds a finished run.
func (s *BatchStats) Record(r RunSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = ""
	s.runs++
	if r.ExitCode != 0 {
		s.failed++
		s.exits[r.ExitCode]++
	}
	if r.Killed {
		s.killed++
	}
	if r.NoReport {
		s.noReport++
	}
	if r.WaitTime > s.maxWait {
		s.maxWait = r.WaitTime
	}

	key := r.Component()
	c, ok := s.components[key]
	if !ok {
		c = &component{digest: tdigest.NewWithCompression(100)}
		s.components[key] = c
		s.order = append(s.order, key)
	}
	c.digest.Add(float64(r.RunTime.Nanoseconds()), 1)
	c.runs++
	if r.RunTime > c.max {
		c.max = r.RunTime
	}
}

// RecordSkip counts a run which was not started.
func (s *BatchStats) RecordSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped++
}

// AddLine keeps line in the list of recent status lines.
func (s *BatchStats) AddLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recent = append(s.recent, line)
	if len(s.recent) > maxRecent {
		s.recent = slices.Delete(s.recent, 0, len(s.recent)-maxRecent)
	}
}

// Snapshot returns a copy of the current statistics.
func (s *BatchStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Started:   s.start,
		Elapsed:   time.Since(s.start),
		Configs:   s.configs,
		Config:    s.config,
		Current:   s.current,
		Runs:      s.runs,
		Failed:    s.failed,
		Killed:    s.killed,
		NoReport:  s.noReport,
		Skipped:   s.skipped,
		MaxWait:   s.maxWait,
		ExitCodes: make(map[int]int, len(s.exits)),
		Recent:    slices.Clone(s.recent),
	}
	for code, n := range s.exits {
		snap.ExitCodes[code] = n
	}

	for _, key := range s.order {
		c := s.components[key]
		snap.Components = append(snap.Components, ComponentStats{
			Name: key,
			Runs: c.runs,
			P50:  time.Duration(c.digest.Quantile(0.50)),
			P95:  time.Duration(c.digest.Quantile(0.95)),
			Max:  c.max,
		})
	}
	return snap
}
