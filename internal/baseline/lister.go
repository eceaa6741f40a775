package baseline

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/randomizedcoder/go-trigger-testbed/internal/catalog"
)

// Entry is an existing baseline file matched to its run configuration.
type Entry struct {
	DataFile
	Path   string
	Config *catalog.RunConfig
}

func (e Entry) String() string {
	return fmt.Sprintf("%s-%s-r%d-h%d-p%d", e.Config.Name(), e.Type.FileType(), e.Run, e.Hubs, e.Hits)
}

// Lister finds existing baseline files and maps each back to the run
// configuration whose name hashes to the file's hash.
type Lister struct {
	dir    string
	byHash map[string]*catalog.RunConfig
	out    io.Writer
	logger *slog.Logger
}

// NewLister indexes configs by hash. When two configurations share a
// hash the first one is kept and the collision is reported to errOut.
func NewLister(dir string, configs iter.Seq[*catalog.RunConfig], errOut io.Writer, logger *slog.Logger) *Lister {
	if errOut == nil {
		errOut = os.Stderr
	}
	if logger == nil {
		logger = slog.Default()
	}

	byHash := make(map[string]*catalog.RunConfig)
	for rc := range configs {
		if prev, ok := byHash[rc.Hash()]; ok {
			fmt.Fprintf(errOut, "Collision: %s overrides %s\n", prev.Name(), rc.Name())
			logger.Warn("config_hash_collision", "hash", rc.Hash(), "kept", prev.Name(), "ignored", rc.Name())
			continue
		}
		byHash[rc.Hash()] = rc
	}

	return &Lister{
		dir:    dir,
		byHash: byHash,
		out:    os.Stdout,
		logger: logger,
	}
}

// SetOutput redirects "Ignoring ..." notices (default stdout).
func (l *Lister) SetOutput(w io.Writer) {
	l.out = w
}

// Configs returns the number of indexed configurations.
func (l *Lister) Configs() int {
	return len(l.byHash)
}

// List reads the target directory and yields its baseline files in name
// order for the selected trigger types. Files for unknown, skipped or
// unusable configurations are passed over; files for a component the
// configuration does not run are reported.
func (l *Lister) List(types []catalog.TriggerType) (iter.Seq[Entry], error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read baseline dir: %w", err)
	}

	return func(yield func(Entry) bool) {
		for _, e := range entries {
			df, ok := ParseDataFileName(e.Name())
			if !ok {
				continue
			}
			rc, ok := l.byHash[df.Hash]
			if !ok || rc.Skip() || !rc.Usable() {
				continue
			}
			if !slices.Contains(types, df.Type) {
				continue
			}
			if !df.Type.InConfig(rc) {
				fmt.Fprintf(l.out, "Ignoring %s (%s not in runcfg)\n", e.Name(), df.Type.FileType())
				continue
			}

			entry := Entry{
				DataFile: df,
				Path:     filepath.Join(l.dir, e.Name()),
				Config:   rc,
			}
			if !yield(entry) {
				return
			}
		}
	}, nil
}
