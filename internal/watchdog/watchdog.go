package watchdog

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// Defaults match the limits used for full-size testbed runs.
const (
	DefaultTimeout        = 1800 * time.Second
	DefaultEscalationWait = 60 * time.Second
)

// DiagnosticSignal asks the JVM for a thread dump before it is killed.
const DiagnosticSignal = syscall.SIGQUIT

// TerminationSignals are sent in order, each followed by EscalationWait.
var TerminationSignals = []syscall.Signal{syscall.SIGTERM, syscall.SIGINT, syscall.SIGKILL}

// Signaler delivers signals to the active run. process.Launcher implements it.
type Signaler interface {
	// Signal sends sig without recording it.
	Signal(sig syscall.Signal) error

	// Kill sends sig and records it as the run's kill signal.
	Kill(sig syscall.Signal) error
}

// Callbacks contains optional callback functions for watchdog events.
// They are called from the watcher goroutine.
type Callbacks struct {
	// OnStateChange is called when the watchdog state changes.
	OnStateChange func(oldState, newState State)

	// OnSignal is called after each signal sent to a run.
	OnSignal func(runID int, sig syscall.Signal)

	// OnExhausted is called when a run survives every termination signal.
	OnExhausted func(runID int)
}

// Config holds configuration for creating a Watchdog.
type Config struct {
	Signaler Signaler
	Logger   *slog.Logger

	// DefaultTimeout applies to runs started without a timeout.
	DefaultTimeout time.Duration

	// EscalationWait is the pause after each termination signal.
	EscalationWait time.Duration

	Callbacks Callbacks
}

type event struct {
	start   bool
	runID   int
	timeout time.Duration
}

type tracked struct {
	id      int
	timeout time.Duration
}

type outcome int

const (
	outcomeTimeout   outcome = iota
	outcomeStopped           // tracked run finished
	outcomeRestarted         // a new run replaced the tracked one
	outcomeQuit
)

// Watchdog watches one run at a time from a single goroutine. Runs are
// reported through StartRun and StopRun; all transitions are driven by
// one event channel.
type Watchdog struct {
	signaler       Signaler
	logger         *slog.Logger
	defaultTimeout time.Duration
	escalationWait time.Duration
	callbacks      Callbacks

	events   chan event
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	state atomic.Int32
}

// New creates a Watchdog and starts its goroutine.
func New(cfg Config) *Watchdog {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.DefaultTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	wait := cfg.EscalationWait
	if wait <= 0 {
		wait = DefaultEscalationWait
	}

	w := &Watchdog{
		signaler:       cfg.Signaler,
		logger:         logger,
		defaultTimeout: timeout,
		escalationWait: wait,
		callbacks:      cfg.Callbacks,
		events:         make(chan event),
		quit:           make(chan struct{}),
		done:           make(chan struct{}),
	}
	go w.loop()
	return w
}

// StartRun begins watching runID. A zero timeout uses the default.
// Starting a run replaces any run still being watched.
func (w *Watchdog) StartRun(runID int, timeout time.Duration) {
	if timeout <= 0 {
		timeout = w.defaultTimeout
	}
	w.send(event{start: true, runID: runID, timeout: timeout})
}

// StopRun reports that runID has finished. Stale IDs are ignored.
func (w *Watchdog) StopRun(runID int) {
	w.send(event{runID: runID})
}

func (w *Watchdog) send(ev event) {
	select {
	case w.events <- ev:
	case <-w.done:
	}
}

// Stop shuts the watcher down and waits for it to exit.
// It is safe to call in any state and more than once.
func (w *Watchdog) Stop() {
	w.stopOnce.Do(func() {
		close(w.quit)
	})
	<-w.done
}

// Done is closed once the watcher goroutine has exited.
func (w *Watchdog) Done() <-chan struct{} {
	return w.done
}

// State returns the current state of the watchdog.
func (w *Watchdog) State() State {
	return State(w.state.Load())
}

func (w *Watchdog) setState(newState State) {
	oldState := State(w.state.Swap(int32(newState)))
	if w.callbacks.OnStateChange != nil && oldState != newState {
		w.callbacks.OnStateChange(oldState, newState)
	}
}

func (w *Watchdog) loop() {
	defer close(w.done)
	defer w.setState(StateStopped)

	var run tracked
	for {
		w.setState(StateIdle)
		if !w.awaitStart(&run) {
			return
		}

	armed:
		for {
			w.setState(StateArmed)
			w.logger.Debug("watchdog_armed", "run", run.id, "timeout", run.timeout.String())

			result := w.waitEvent(&run, run.timeout)
			if result == outcomeTimeout {
				result = w.escalate(&run)
			}
			switch result {
			case outcomeQuit:
				return
			case outcomeStopped:
				break armed
			}
		}
	}
}

// awaitStart blocks until a run starts. It returns false on quit.
func (w *Watchdog) awaitStart(run *tracked) bool {
	for {
		select {
		case <-w.quit:
			return false
		case ev := <-w.events:
			if ev.start {
				*run = tracked{id: ev.runID, timeout: ev.timeout}
				return true
			}
		}
	}
}

// waitEvent waits up to d (forever if d <= 0) for the tracked run to
// change.
func (w *Watchdog) waitEvent(run *tracked, d time.Duration) outcome {
	var expired <-chan time.Time
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-w.quit:
			return outcomeQuit
		case <-expired:
			return outcomeTimeout
		case ev := <-w.events:
			if ev.start {
				*run = tracked{id: ev.runID, timeout: ev.timeout}
				return outcomeRestarted
			}
			if ev.runID == run.id {
				return outcomeStopped
			}
			w.logger.Debug("watchdog_stale_stop", "run", ev.runID, "current", run.id)
		}
	}
}

// escalate signals an overdue run until it stops, a new run replaces it,
// or the watchdog quits. A run which survives SIGKILL is reported once
// and then left alone.
func (w *Watchdog) escalate(run *tracked) outcome {
	w.setState(StateEscalating)
	w.logger.Warn("run_timeout", "run", run.id, "timeout", run.timeout.String())

	w.deliver(run.id, DiagnosticSignal, false)

	for _, sig := range TerminationSignals {
		w.deliver(run.id, sig, true)
		if result := w.waitEvent(run, w.escalationWait); result != outcomeTimeout {
			return result
		}
	}

	w.logger.Error("run_unkillable", "run", run.id)
	if w.callbacks.OnExhausted != nil {
		w.callbacks.OnExhausted(run.id)
	}
	return w.waitEvent(run, 0)
}

func (w *Watchdog) deliver(runID int, sig syscall.Signal, record bool) {
	var err error
	if record {
		err = w.signaler.Kill(sig)
	} else {
		err = w.signaler.Signal(sig)
	}

	if err != nil {
		w.logger.Warn("watchdog_signal_failed", "run", runID, "signal", sig.String(), "error", err)
	} else {
		w.logger.Info("watchdog_signal_sent", "run", runID, "signal", sig.String())
	}
	if w.callbacks.OnSignal != nil {
		w.callbacks.OnSignal(runID, sig)
	}
}
