package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// RotateLogFile moves an existing path to path.old, replacing any
// earlier backup. A missing path is not an error.
func RotateLogFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := os.Rename(path, path+".old"); err != nil {
		return fmt.Errorf("rotate log %s: %w", path, err)
	}
	return nil
}

// OpenLogFile rotates path and creates a fresh log file in its place.
func OpenLogFile(path string) (*os.File, error) {
	if err := RotateLogFile(path); err != nil {
		return nil, err
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create log %s: %w", path, err)
	}
	return f, nil
}
