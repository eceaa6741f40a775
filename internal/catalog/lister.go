package catalog

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Files in a configuration directory which are never run configurations.
var ignoredNames = map[string]struct{}{
	"default-dom-geometry.xml": {},
	"nicknames.txt":            {},
}

// Lister enumerates the run configurations of one directory.
type Lister struct {
	dir    string
	skip   *SkipList
	added  []string
	errOut io.Writer
	logger *slog.Logger
}

// NewLister creates a lister for dir. skip may be nil.
func NewLister(dir string, skip *SkipList, logger *slog.Logger) (*Lister, error) {
	if err := isConfigDir(dir); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lister{
		dir:    dir,
		skip:   skip,
		errOut: os.Stderr,
		logger: logger,
	}, nil
}

// SetErrorOutput redirects "Ignoring bad ..." reports (default stderr).
func (l *Lister) SetErrorOutput(w io.Writer) {
	l.errOut = w
}

// Dir returns the configuration directory.
func (l *Lister) Dir() string {
	return l.dir
}

// Add restricts the listing to explicitly named configurations.
// The ".xml" suffix may be omitted.
func (l *Lister) Add(name string) error {
	path, err := LocateRunConfig(l.dir, name)
	if err != nil {
		return err
	}
	l.added = append(l.added, path)
	return nil
}

// List yields the run configurations in the directory in name order,
// or only the added configurations if Add was called. Files which cannot
// be parsed are reported and skipped.
func (l *Lister) List() iter.Seq[*RunConfig] {
	return func(yield func(*RunConfig) bool) {
		paths := l.added
		if len(paths) == 0 {
			var err error
			if paths, err = l.scan(); err != nil {
				fmt.Fprintf(l.errOut, "Cannot list %s (%v)\n", l.dir, err)
				return
			}
		}

		for _, path := range paths {
			rc, err := ParseRunConfig(path, l.skip)
			if err != nil {
				fmt.Fprintf(l.errOut, "Ignoring bad %s (%v)\n", path, err)
				l.logger.Debug("run_config_ignored", "path", path, "error", err)
				continue
			}
			if !yield(rc) {
				return
			}
		}
	}
}

func (l *Lister) scan() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		path := filepath.Join(l.dir, e.Name())
		if !candidate(e.Name()) || !isFile(path) {
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths, nil
}

// candidate reports whether a directory entry name may hold a run configuration.
func candidate(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".cfg") {
		return false
	}
	_, ignored := ignoredNames[name]
	return !ignored
}
