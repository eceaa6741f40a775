package catalog

import "fmt"

// ParseError reports a run or trigger configuration file that could not be used.
type ParseError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigNotFoundError is returned when a named run configuration
// does not exist in the configuration directory.
type ConfigNotFoundError struct {
	Name string
	Dir  string
}

func (e *ConfigNotFoundError) Error() string {
	return fmt.Sprintf("cannot find run configuration %q in %s", e.Name, e.Dir)
}
