package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/randomizedcoder/go-trigger-testbed/internal/parser"
)

// Callbacks contains optional callback functions for launcher events.
type Callbacks struct {
	// OnStart is called once the process is running.
	OnStart func(pid int, command []string)

	// OnExit is called after the process has been reaped.
	OnExit func(result *Result)
}

// LauncherConfig holds configuration for creating a Launcher.
type LauncherConfig struct {
	// SearchPaths are the directories searched for executables.
	// Empty means $PATH.
	SearchPaths []string

	// ForwardSignals relays SIGINT and SIGQUIT received by this
	// process to the child's process group while a run is active.
	ForwardSignals bool

	// BufferSize bounds how many lines may queue for the handler.
	BufferSize int

	Logger    *slog.Logger
	Callbacks Callbacks
}

// Launcher runs one subprocess at a time in its own process group.
//
// Run is called from the driver goroutine; Signal and Kill may be called
// concurrently from the watchdog.
type Launcher struct {
	searchPaths    []string
	forwardSignals bool
	bufferSize     int
	logger         *slog.Logger
	callbacks      Callbacks

	mu         sync.Mutex
	pid        int // 0 when idle
	exitSignal syscall.Signal
	killSignal syscall.Signal
}

// NewLauncher creates a Launcher.
func NewLauncher(cfg LauncherConfig) *Launcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		searchPaths:    cfg.SearchPaths,
		forwardSignals: cfg.ForwardSignals,
		bufferSize:     cfg.BufferSize,
		logger:         logger,
		callbacks:      cfg.Callbacks,
	}
}

// LookPath resolves an executable name against the search paths.
func (l *Launcher) LookPath(name string) (string, error) {
	if strings.Contains(name, "/") {
		if isExecutable(name) {
			return name, nil
		}
		return "", &LaunchError{Path: name, Err: errors.New("not an executable file")}
	}

	if len(l.searchPaths) == 0 {
		path, err := exec.LookPath(name)
		if err != nil {
			return "", &LaunchError{Path: name, Err: err}
		}
		return path, nil
	}

	for _, dir := range l.searchPaths {
		path := filepath.Join(dir, name)
		if isExecutable(path) {
			return path, nil
		}
	}
	return "", &LaunchError{Path: name, SearchPaths: l.searchPaths}
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() && info.Mode().Perm()&0o111 != 0
}

// Run implements Runner.
//
// The returned error is non-nil only if the process could not be started
// or ctx was cancelled; a non-zero exit status is reported in the Result.
func (l *Launcher) Run(ctx context.Context, desc Descriptor, h parser.LineHandler) (*Result, error) {
	if h == nil {
		h = parser.Discard
	}

	path, err := l.LookPath(desc.Path)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(path, desc.Args...)
	cmd.Dir = desc.Dir
	if len(desc.Env) > 0 {
		cmd.Env = append(os.Environ(), desc.Env...)
	}

	// Own process group so signals reach the JVM and anything it forks
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	var sigs chan os.Signal
	if l.forwardSignals {
		sigs = make(chan os.Signal, 4)
		signal.Notify(sigs, syscall.SIGINT, syscall.SIGQUIT)
		defer signal.Stop(sigs)
	}

	l.mu.Lock()
	if l.pid != 0 {
		l.mu.Unlock()
		return nil, ErrBusy
	}
	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		l.mu.Unlock()
		l.logger.Error("failed_to_start_process", "path", path, "error", err)
		return nil, &LaunchError{Path: path, Err: err}
	}
	pid := cmd.Process.Pid
	l.pid = pid
	l.exitSignal = 0
	l.killSignal = 0
	l.mu.Unlock()

	result := &Result{
		Command: append([]string{path}, desc.Args...),
		Pid:     pid,
	}

	l.logger.Debug("process_started", "pid", pid, "command", desc.String())
	if l.callbacks.OnStart != nil {
		l.callbacks.OnStart(pid, result.Command)
	}

	pipeline := parser.NewPipeline(2, l.bufferSize)
	readers := []*parser.PipeReader{
		parser.NewPipeReader(stdout, parser.Stdout, pipeline),
		parser.NewPipeReader(stderr, parser.Stderr, pipeline),
	}
	for _, r := range readers {
		go r.Run()
	}

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		pipeline.RunParser(h)
	}()

	l.await(ctx, drained, sigs)
	drainTime := time.Now()
	l.logReaders(pid, readers)

	var waitErr error
	reaped := make(chan struct{})
	go func() {
		defer close(reaped)
		waitErr = cmd.Wait()
	}()
	l.await(ctx, reaped, sigs)

	result.RunTime = drainTime.Sub(startTime)
	result.WaitTime = time.Since(drainTime)
	result.ExitCode = extractExitCode(waitErr)

	l.mu.Lock()
	result.ExitSignal = l.exitSignal
	result.KillSignal = l.killSignal
	l.pid = 0
	l.mu.Unlock()

	outLines, errLines, _ := pipeline.Stats()
	l.logger.Debug("process_exited",
		"pid", pid,
		"exit_code", result.ExitCode,
		"run_time", result.RunTime.String(),
		"wait_time", result.WaitTime.String(),
		"stdout_lines", outLines,
		"stderr_lines", errLines,
	)

	if l.callbacks.OnExit != nil {
		l.callbacks.OnExit(result)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// logReaders reports output which could not be delivered intact. Only
// valid once the pipeline has drained.
func (l *Launcher) logReaders(pid int, readers []*parser.PipeReader) {
	for _, r := range readers {
		if err := r.Err(); err != nil {
			l.logger.Warn("output_read_failed", "pid", pid, "error", err)
		}
		if n := r.Truncated(); n > 0 {
			l.logger.Warn("output_lines_truncated", "pid", pid, "lines", n)
		}
	}
}

// await blocks until done is closed, relaying operator signals and
// killing the process group if ctx is cancelled.
func (l *Launcher) await(ctx context.Context, done <-chan struct{}, sigs <-chan os.Signal) {
	ctxDone := ctx.Done()
	for {
		select {
		case <-done:
			return
		case sig := <-sigs:
			if s, ok := sig.(syscall.Signal); ok {
				l.relay(s)
			}
		case <-ctxDone:
			ctxDone = nil
			l.logger.Warn("run_cancelled", "reason", ctx.Err())
			_ = l.Signal(syscall.SIGKILL)
		}
	}
}

// relay forwards an operator signal. The first SIGINT is recorded as the
// run's exit signal; a repeated SIGINT escalates to SIGKILL.
func (l *Launcher) relay(sig syscall.Signal) {
	switch sig {
	case syscall.SIGINT:
		l.mu.Lock()
		repeated := l.exitSignal != 0
		l.exitSignal = sig
		l.mu.Unlock()

		if repeated {
			l.logger.Warn("repeated_interrupt_killing_process")
			_ = l.Signal(syscall.SIGKILL)
			return
		}
		l.logger.Info("forwarding_interrupt")
		_ = l.Signal(sig)
	case syscall.SIGQUIT:
		l.logger.Info("forwarding_quit")
		_ = l.Signal(sig)
	}
}

// Signal sends sig to the active process group without recording it.
func (l *Launcher) Signal(sig syscall.Signal) error {
	l.mu.Lock()
	pid := l.pid
	l.mu.Unlock()

	if pid == 0 {
		return ErrNotRunning
	}
	// The child is its own group leader, so -pid addresses the whole group
	if err := syscall.Kill(-pid, sig); err != nil {
		if errors.Is(err, syscall.ESRCH) {
			return ErrNotRunning
		}
		return fmt.Errorf("signal %d to process group %d: %w", int(sig), pid, err)
	}
	return nil
}

// Kill sends sig to the active process group and records it as the
// run's kill signal.
func (l *Launcher) Kill(sig syscall.Signal) error {
	l.mu.Lock()
	if l.pid != 0 {
		l.killSignal = sig
	}
	l.mu.Unlock()
	return l.Signal(sig)
}

// Pid returns the active process ID, or 0.
func (l *Launcher) Pid() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pid
}

// extractExitCode extracts the exit code from a Wait() error.
func extractExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if status.Signaled() {
				return 128 + int(status.Signal())
			}
			return status.ExitStatus()
		}
	}

	return 1
}

var _ Runner = (*Launcher)(nil)
