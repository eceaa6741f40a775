package catalog

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// SkipList names run configurations which are excluded from a batch
// regardless of their contents.
type SkipList struct {
	names map[string]struct{}
}

// NewSkipList creates an empty skip list.
func NewSkipList(names ...string) *SkipList {
	s := &SkipList{names: make(map[string]struct{})}
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// LoadSkipList reads one configuration name per line from path.
// A missing file yields an empty list.
func LoadSkipList(path string) (*SkipList, error) {
	s := NewSkipList()
	if path == "" {
		return s, nil
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("open skip list: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" {
			continue
		}
		s.Add(line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read skip list %s: %w", path, err)
	}
	return s, nil
}

// Add excludes a configuration name.
func (s *SkipList) Add(name string) {
	s.names[trimXML(name)] = struct{}{}
}

// Contains reports whether the configuration at path is excluded.
// Only the base name is compared, with any ".xml" suffix removed.
func (s *SkipList) Contains(path string) bool {
	if s == nil {
		return false
	}
	_, ok := s.names[trimXML(filepath.Base(path))]
	return ok
}

// Len returns the number of excluded names.
func (s *SkipList) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}
