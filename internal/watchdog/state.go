// Package watchdog kills testbed runs which take too long.
package watchdog

// State represents the current state of the watchdog.
type State int

const (
	// StateIdle means no run is being watched.
	StateIdle State = iota

	// StateArmed means a run is active and its deadline has not passed.
	StateArmed

	// StateEscalating means the deadline passed and signals are being sent.
	StateEscalating

	// StateStopped means the watcher goroutine has exited.
	StateStopped
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateEscalating:
		return "escalating"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if the state is a terminal state (stopped).
func (s State) IsTerminal() bool {
	return s == StateStopped
}
