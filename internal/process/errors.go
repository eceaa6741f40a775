package process

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotRunning is returned when a signal is requested with no active run.
var ErrNotRunning = errors.New("no process is running")

// ErrBusy is returned when Run is called while another run is active.
var ErrBusy = errors.New("launcher is already running a process")

// LaunchError reports a program which could not be started.
type LaunchError struct {
	Path        string
	SearchPaths []string
	Err         error
}

func (e *LaunchError) Error() string {
	if len(e.SearchPaths) > 0 && e.Err == nil {
		return fmt.Sprintf("cannot find %q in %s", e.Path, strings.Join(e.SearchPaths, ":"))
	}
	if e.Err != nil {
		return fmt.Sprintf("cannot launch %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("cannot launch %q", e.Path)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}
