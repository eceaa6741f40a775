// Package baseline names, finds and scans the data files written by
// earlier testbed runs, and keeps the per-run output capture.
package baseline

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/randomizedcoder/go-trigger-testbed/internal/catalog"
)

// DataFile identifies one baseline file: the output of one trigger
// component for one configuration, run number and hit count.
type DataFile struct {
	Hash string
	Type catalog.TriggerType
	Run  int
	Hubs int
	Hits int
}

// NewDataFile returns the baseline file for a run of tt on rc.
func NewDataFile(rc *catalog.RunConfig, tt catalog.TriggerType, run, hits int) DataFile {
	return DataFile{
		Hash: rc.Hash(),
		Type: tt,
		Run:  run,
		Hubs: tt.MaxHubs(rc),
		Hits: hits,
	}
}

// Name returns the file name, rc<hash>-<type>-r<run>-h<hubs>-p<hits>.dat.
func (d DataFile) Name() string {
	return fmt.Sprintf("rc%s-%s-r%d-h%d-p%d.dat", d.Hash, d.Type.FileType(), d.Run, d.Hubs, d.Hits)
}

// Path returns the file's location in dir.
func (d DataFile) Path(dir string) string {
	return filepath.Join(dir, d.Name())
}

// Exists reports whether the file is present in dir.
func (d DataFile) Exists(dir string) bool {
	_, err := os.Stat(d.Path(dir))
	return err == nil
}

var dataFilePattern = regexp.MustCompile(`^rc([^-\s]+)-([^-\s]+)-r(\d+)-h(\d+)-p(\d+)\.dat$`)

// ParseDataFileName parses a baseline file name.
// It returns false for names which do not match or use an unknown type.
func ParseDataFileName(name string) (DataFile, bool) {
	m := dataFilePattern.FindStringSubmatch(name)
	if m == nil {
		return DataFile{}, false
	}
	tt, ok := catalog.ParseFileType(m[2])
	if !ok {
		return DataFile{}, false
	}

	var nums [3]int
	for i, s := range m[3:6] {
		n, err := strconv.Atoi(s)
		if err != nil {
			return DataFile{}, false
		}
		nums[i] = n
	}
	return DataFile{Hash: m[1], Type: tt, Run: nums[0], Hubs: nums[1], Hits: nums[2]}, true
}
