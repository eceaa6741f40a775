package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/randomizedcoder/go-trigger-testbed/internal/classpath"
	"github.com/randomizedcoder/go-trigger-testbed/internal/config"
	"github.com/randomizedcoder/go-trigger-testbed/internal/logging"
)

// fakeJava writes a script standing in for the JVM.
func fakeJava(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "java")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

// =============================================================================
// Tests: RunBatch
// =============================================================================

func TestRunBatch_Version(t *testing.T) {
	for _, arg := range []string{"-version", "--version", "version"} {
		t.Run(arg, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if code := RunBatch(config.ModeCompare, "1.2.3", []string{arg}, &stdout, &stderr); code != 0 {
				t.Errorf("exit code = %d, want 0", code)
			}
			if got := stdout.String(); got != "compare-existing 1.2.3\n" {
				t.Errorf("stdout = %q", got)
			}
		})
	}
}

func TestRunBatch_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := RunBatch(config.ModeBatch, "dev", []string{"-h"}, &stdout, &stderr); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.Contains(stderr.String(), "test-all-configs") {
		t.Errorf("usage missing command name:\n%s", stderr.String())
	}
}

func TestRunBatch_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown flag", []string{"-no-such-flag"}, "Error parsing flags"},
		{"extra argument", []string{"sps-2024"}, "Error parsing flags"},
		{"nothing to run", []string{"-no-old", "-no-new"}, "Configuration error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() { logging.SetDefault(logging.Discard()) })

			var stdout, stderr bytes.Buffer
			if code := RunBatch(config.ModeBatch, "dev", tt.args, &stdout, &stderr); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(stderr.String(), tt.want) {
				t.Errorf("stderr missing %q:\n%s", tt.want, stderr.String())
			}
		})
	}
}

// =============================================================================
// Tests: SingleRun
// =============================================================================

func TestSingleRun_PassesArgsAndExitCode(t *testing.T) {
	java := fakeJava(t, `echo "args: $*"
echo "cp: $CLASSPATH"
echo "problem" >&2
exit 3
`)
	var stdout, stderr bytes.Buffer
	s := SingleRun{
		Java:     java,
		Resolver: classpath.StaticResolver{"/jars/a.jar", "/jars/b.jar"},
		Stdout:   &stdout,
		Stderr:   &stderr,
	}

	if code := s.Run(context.Background(), []string{"-C", "iit", "-n", "10"}); code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}

	out := stdout.String()
	wantArgs := "args: " + config.DefaultJavaArgs + " " + config.DefaultMainClass + " -C iit -n 10"
	if !strings.Contains(out, wantArgs) {
		t.Errorf("stdout missing %q:\n%s", wantArgs, out)
	}
	if !strings.Contains(out, "cp: /jars/a.jar:/jars/b.jar") {
		t.Errorf("CLASSPATH not exported:\n%s", out)
	}
	if strings.Contains(out, "export CLASSPATH") {
		t.Error("command printed without Debug")
	}
	if stderr.String() != "problem\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestSingleRun_Debug(t *testing.T) {
	var stdout bytes.Buffer
	s := SingleRun{
		Java:     fakeJava(t, "exit 0\n"),
		Resolver: classpath.StaticResolver{"/jars/a.jar"},
		Debug:    true,
		Stdout:   &stdout,
	}

	if code := s.Run(context.Background(), nil); code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(stdout.String(), `export CLASSPATH="/jars/a.jar"`) {
		t.Errorf("stdout = %q", stdout.String())
	}
}

type failingResolver struct{}

func (failingResolver) Resolve() ([]string, error) {
	return nil, &classpath.SetupError{Msg: "cannot find jar for splicer"}
}

func TestSingleRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		run  SingleRun
	}{
		{"classpath", SingleRun{Java: "java", Resolver: failingResolver{}}},
		{"missing java", SingleRun{Java: "/nonexistent/java", Resolver: classpath.StaticResolver{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			tt.run.Stderr = &stderr

			if code := tt.run.Run(context.Background(), nil); code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.HasPrefix(stderr.String(), "test-trigger: ") {
				t.Errorf("stderr = %q", stderr.String())
			}
		})
	}
}

func TestSingleRunFromEnv(t *testing.T) {
	t.Setenv("DEBUG", "")
	if s := SingleRunFromEnv(); !s.Debug || s.Java != "java" {
		t.Errorf("SingleRunFromEnv() = %+v", s)
	}

	os.Unsetenv("DEBUG")
	if SingleRunFromEnv().Debug {
		t.Error("Debug set without DEBUG in the environment")
	}
}
