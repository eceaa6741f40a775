package logging

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"trace", slog.LevelInfo},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			if result := parseLevel(tc.input); result != tc.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tc.input, result, tc.expected)
			}
		})
	}
}

func TestNewLogger_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", "JSON", "", "invalid"} {
		t.Run(format, func(t *testing.T) {
			if NewLogger(format, "info", false) == nil {
				t.Error("NewLogger returned nil")
			}
		})
	}
}

func TestNewLoggerWithWriter(t *testing.T) {
	testCases := []struct {
		format string
		want   string
	}{
		{"json", `"key":"value"`},
		{"text", "key=value"},
		{"", "key=value"},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&buf, tc.format, "info")
			logger.Info("run_started", "key", "value")
			logger.Debug("hidden")

			output := buf.String()
			if !strings.Contains(output, "run_started") || !strings.Contains(output, tc.want) {
				t.Errorf("output = %q, want it to contain %q", output, tc.want)
			}
			if strings.Contains(output, "hidden") {
				t.Error("debug record logged at info level")
			}
		})
	}
}

func TestNewLoggerWithWriter_NilWriter(t *testing.T) {
	logger := NewLoggerWithWriter(nil, "text", "info")
	logger.Info("goes nowhere")
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	SetDefault(NewLoggerWithWriter(&buf, "text", "info"))
	slog.Info("via_default")

	if !strings.Contains(buf.String(), "via_default") {
		t.Errorf("default logger not replaced: %q", buf.String())
	}
}

func TestRotateLogFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "all-configs.log")

	// Missing file is fine.
	if err := RotateLogFile(path); err != nil {
		t.Fatalf("RotateLogFile() error = %v", err)
	}

	for i, contents := range []string{"first", "second"} {
		f, err := OpenLogFile(path)
		if err != nil {
			t.Fatalf("OpenLogFile() error = %v", err)
		}
		fmt.Fprint(f, contents)
		f.Close()

		if i == 1 {
			old, err := os.ReadFile(path + ".old")
			if err != nil || string(old) != "first" {
				t.Errorf(".old contents = %q, %v", old, err)
			}
		}
	}

	cur, _ := os.ReadFile(path)
	if string(cur) != "second" {
		t.Errorf("log contents = %q", cur)
	}
}

func TestClassifyLine(t *testing.T) {
	testCases := []struct {
		line string
		want slog.Level
	}{
		{`Exception in thread "main" java.lang.NullPointerException`, slog.LevelError},
		{"java.lang.OutOfMemoryError: Java heap space", slog.LevelError},
		{"Caused by: java.io.IOException: closed", slog.LevelWarn},
		{"java.io.IOException: Broken pipe", slog.LevelWarn},
		{"12:00 ERROR SimpleMajorityTrigger - bad hit", slog.LevelWarn},
		{"\tat icecube.daq.testbed.TestBed.main(TestBed.java:42)", slog.LevelDebug},
		{"Consumer compared 1234 payloads", slog.LevelDebug},
	}

	for _, tc := range testCases {
		if got := ClassifyLine(tc.line); got != tc.want {
			t.Errorf("ClassifyLine(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}

func TestOutputTail_RecentLines(t *testing.T) {
	tail := NewOutputTail(nil, false)

	if got := tail.RecentLines(5); len(got) != 0 {
		t.Errorf("empty tail RecentLines() = %q", got)
	}

	for i := range MaxBufferedLines + 20 {
		tail.HandleLine(fmt.Sprintf("line %d", i))
	}

	got := tail.RecentLines(3)
	want := []string{
		fmt.Sprintf("line %d", MaxBufferedLines+17),
		fmt.Sprintf("line %d", MaxBufferedLines+18),
		fmt.Sprintf("line %d", MaxBufferedLines+19),
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("RecentLines(3) = %q, want %q", got, want)
	}
	if n := len(tail.RecentLines(1000)); n != MaxBufferedLines {
		t.Errorf("RecentLines(1000) returned %d lines", n)
	}
	if tail.Lines() != MaxBufferedLines+20 {
		t.Errorf("Lines() = %d", tail.Lines())
	}

	tail.Reset()
	if tail.Lines() != 0 || len(tail.RecentLines(10)) != 0 {
		t.Error("Reset() did not clear the tail")
	}
}

func TestOutputTail_PartialBuffer(t *testing.T) {
	tail := NewOutputTail(nil, false)
	tail.HandleLine("a")
	tail.HandleLine("")
	tail.HandleLine("b")

	got := tail.RecentLines(10)
	if len(got) != 3 || got[0] != "a" || got[1] != "" || got[2] != "b" {
		t.Errorf("RecentLines() = %q", got)
	}
}

func TestOutputTail_Truncation(t *testing.T) {
	tail := NewOutputTail(nil, false)
	tail.HandleLine(strings.Repeat("x", MaxLineLength+50))

	got := tail.RecentLines(1)[0]
	if !strings.HasSuffix(got, "...(truncated)") || len(got) != MaxLineLength+len("...(truncated)") {
		t.Errorf("truncated line length = %d", len(got))
	}
}

func TestOutputTail_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "text", "debug")

	quiet := NewOutputTail(logger, false)
	quiet.HandleLine("ordinary output")
	quiet.HandleLine("java.io.IOException: closed")
	if strings.Contains(buf.String(), "ordinary output") {
		t.Error("non-verbose tail logged ordinary output")
	}
	if !strings.Contains(buf.String(), "IOException") {
		t.Error("exception line was not logged")
	}

	buf.Reset()
	verbose := NewOutputTail(logger, true)
	verbose.HandleLine("ordinary output")
	if !strings.Contains(buf.String(), "testbed_output") {
		t.Error("verbose tail did not log output")
	}
}

func TestOutputTail_CountExceptions(t *testing.T) {
	tail := NewOutputTail(nil, false)
	tail.HandleLine(`Exception in thread "main" java.lang.NullPointerException`)
	tail.HandleLine("java.lang.NullPointerException")
	tail.HandleLine("all good")

	counts := tail.CountExceptions()
	if counts["NullPointerException"] != 2 || counts["Exception in thread"] != 1 {
		t.Errorf("CountExceptions() = %v", counts)
	}
}

func TestOutputTail_Concurrent(t *testing.T) {
	tail := NewOutputTail(nil, false)
	var wg sync.WaitGroup
	for g := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 200 {
				tail.HandleLine(fmt.Sprintf("g%d-%d", g, i))
				_ = tail.RecentLines(5)
			}
		}()
	}
	wg.Wait()

	if tail.Lines() != 800 {
		t.Errorf("Lines() = %d, want 800", tail.Lines())
	}
}
