package baseline

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Suffixes of preserved capture files.
const (
	SuffixFail     = "fail"
	SuffixNoReport = "norpt"
)

// Capture holds the complete output of the current run in wrap.p<pid>.
// The file is preserved under a descriptive name when a run fails or
// produces no report, and removed otherwise.
type Capture struct {
	dir  string
	path string

	f *os.File
	w *bufio.Writer
}

// NewCapture creates a capture for this process in dir.
func NewCapture(dir string) *Capture {
	return &Capture{
		dir:  dir,
		path: filepath.Join(dir, fmt.Sprintf("wrap.p%d", os.Getpid())),
	}
}

// Path returns the capture file path.
func (c *Capture) Path() string {
	return c.path
}

// Open creates or truncates the capture file.
func (c *Capture) Open() error {
	if c.f != nil {
		return errors.New("capture already open")
	}
	f, err := os.Create(c.path)
	if err != nil {
		return fmt.Errorf("create capture: %w", err)
	}
	c.f = f
	c.w = bufio.NewWriter(f)
	return nil
}

// WriteLine appends one line of output.
func (c *Capture) WriteLine(text string) error {
	if c.w == nil {
		return errors.New("capture not open")
	}
	if _, err := c.w.WriteString(text); err != nil {
		return err
	}
	return c.w.WriteByte('\n')
}

// Close flushes and closes the capture file. It is safe to call when
// the capture is not open.
func (c *Capture) Close() error {
	if c.f == nil {
		return nil
	}
	flushErr := c.w.Flush()
	closeErr := c.f.Close()
	c.f, c.w = nil, nil
	return errors.Join(flushErr, closeErr)
}

// IsEmpty reports whether the capture file is missing or empty.
func (c *Capture) IsEmpty() bool {
	info, err := os.Stat(c.path)
	return err != nil || info.Size() == 0
}

// BackupName returns the preserved name for a run,
// wrap-<rev>-<type>-<hits>-<config>.<suffix>.
func BackupName(rev, compType string, hits int, config, suffix string) string {
	return fmt.Sprintf("wrap-%s-%s-%d-%s.%s", rev, compType, hits, config, suffix)
}

// Backup renames the capture file to name in the capture directory.
// It returns "" without error if there is no capture file.
func (c *Capture) Backup(name string) (string, error) {
	if _, err := os.Stat(c.path); errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	dest := filepath.Join(c.dir, name)
	if err := os.Rename(c.path, dest); err != nil {
		return "", fmt.Errorf("preserve capture: %w", err)
	}
	return dest, nil
}

// Remove deletes the capture file if it exists.
func (c *Capture) Remove() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
