package catalog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Source IDs which classify trigger algorithms.
const (
	SourceInIce  = 4000
	SourceIceTop = 5000
	SourceGlobal = 6000
)

// AlgorithmKind classifies a trigger algorithm by its source ID.
type AlgorithmKind int

const (
	KindInIce AlgorithmKind = iota
	KindIceTop
	KindGlobal
	KindUnknown
)

var kindPrefix = [...]string{"ii", "it", "gl", "??"}

// Algorithm is one entry of a trigger configuration file.
type Algorithm struct {
	Name     string
	SourceID int
}

// Kind classifies the algorithm.
func (a Algorithm) Kind() AlgorithmKind {
	switch a.SourceID {
	case SourceInIce:
		return KindInIce
	case SourceIceTop:
		return KindIceTop
	case SourceGlobal:
		return KindGlobal
	default:
		return KindUnknown
	}
}

// TriggerConfig is a parsed trigger configuration file.
type TriggerConfig struct {
	path       string
	algorithms []Algorithm

	// problems describes entries which were dropped as incomplete.
	problems []string
}

type triggerEntry struct {
	SourceID *string `xml:"sourceId"`
	Name     *string `xml:"triggerName"`
}

// problem returns a description of an incomplete entry, or "".
func (e triggerEntry) problem() string {
	switch {
	case e.Name == nil && e.SourceID == nil:
		return "Found empty triggerConfig entry"
	case e.Name == nil:
		return "Found unnamed triggerConfig entry"
	case e.SourceID == nil:
		return fmt.Sprintf("%s is missing source ID", strings.TrimSpace(*e.Name))
	}
	return ""
}

// ParseTriggerConfig reads a trigger configuration file.
// A file without any complete triggerConfig entry is a *ParseError.
func ParseTriggerConfig(path string) (*TriggerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "cannot open trigger configuration", Err: err}
	}
	defer f.Close()

	tc := &TriggerConfig{path: path}
	err = walkElements(f, func(d *xml.Decoder, se xml.StartElement) error {
		if se.Name.Local != "triggerConfig" {
			return nil
		}
		var entry triggerEntry
		if err := d.DecodeElement(&entry, &se); err != nil {
			return err
		}
		if p := entry.problem(); p != "" {
			tc.problems = append(tc.problems, p)
			return nil
		}
		src, err := strconv.Atoi(strings.TrimSpace(*entry.SourceID))
		if err != nil {
			return fmt.Errorf("bad source ID %q for %s", *entry.SourceID, *entry.Name)
		}
		tc.algorithms = append(tc.algorithms, Algorithm{
			Name:     strings.TrimSpace(*entry.Name),
			SourceID: src,
		})
		return nil
	})
	if err != nil {
		return nil, &ParseError{Path: path, Reason: "cannot parse trigger configuration", Err: err}
	}

	if len(tc.algorithms) == 0 {
		return nil, &ParseError{Path: path, Reason: "not a trigger configuration file"}
	}
	return tc, nil
}

// Path returns the file the configuration was read from.
func (tc *TriggerConfig) Path() string {
	return tc.path
}

// Algorithms returns the entries in file order.
func (tc *TriggerConfig) Algorithms() []Algorithm {
	out := make([]Algorithm, len(tc.algorithms))
	copy(out, tc.algorithms)
	return out
}

// Problems describes incomplete entries which were ignored.
func (tc *TriggerConfig) Problems() []string {
	return tc.problems
}

// Counts returns the number of algorithms of each kind,
// indexed by AlgorithmKind.
func (tc *TriggerConfig) Counts() [4]int {
	var counts [4]int
	for _, a := range tc.algorithms {
		counts[a.Kind()]++
	}
	return counts
}

// String summarizes the configuration, e.g. "sps-trigger.xml[ii=3 gl=1]".
func (tc *TriggerConfig) String() string {
	if tc == nil {
		return "None"
	}
	var parts []string
	for kind, n := range tc.Counts() {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", kindPrefix[kind], n))
		}
	}
	return fmt.Sprintf("%s[%s]", filepath.Base(tc.path), strings.Join(parts, " "))
}

var errNoElements = errors.New("no XML elements found")

// walkElements calls visit for every start element in document order.
// visit may consume the element with DecodeElement.
func walkElements(r io.Reader, visit func(d *xml.Decoder, se xml.StartElement) error) error {
	d := xml.NewDecoder(r)
	seen := false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			if !seen {
				return errNoElements
			}
			return nil
		}
		if err != nil {
			return err
		}
		if se, ok := tok.(xml.StartElement); ok {
			seen = true
			if err := visit(d, se); err != nil {
				return err
			}
		}
	}
}
