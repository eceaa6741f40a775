// Package catalog loads pDAQ run configurations and the trigger
// configurations they reference.
package catalog

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// Run component names which mark a configuration as exercising a trigger.
const (
	ComponentInIceTrigger  = "inIceTrigger"
	ComponentIceTopTrigger = "iceTopTrigger"
)

// Hub number ranges.
const (
	// MaxRealHub is the first hub number which is not real hardware.
	MaxRealHub = 1000
	maxSimHub  = 2000
	maxTestHub = 3000

	// Within each thousand, string hubs precede icetop hubs.
	stringHubLimit = 200
	icetopHubLimit = 300
)

// RunConfig holds the details of one run configuration file which the
// batch driver needs. It is immutable after parsing.
type RunConfig struct {
	path       string
	allHubs    []int
	stringHubs []int
	icetopHubs []int
	components []string
	trigger    *TriggerConfig
	skip       bool
	hash       string
}

// ParseRunConfig reads the run configuration at path.
//
// If skip contains the configuration, the file is not read and the
// returned RunConfig reports Skip() == true.
func ParseRunConfig(path string, skip *SkipList) (*RunConfig, error) {
	rc := &RunConfig{
		path: path,
		hash: HashName(filepath.Base(path)),
		skip: skip.Contains(path),
	}
	if rc.skip {
		return rc, nil
	}
	if err := rc.parse(); err != nil {
		return nil, err
	}
	return rc, nil
}

type triggerRef struct {
	Text     string `xml:",chardata"`
	Children []struct {
		XMLName xml.Name
	} `xml:",any"`
}

func (rc *RunConfig) parse() error {
	f, err := os.Open(rc.path)
	if err != nil {
		return &ParseError{Path: rc.path, Reason: "cannot open", Err: err}
	}
	defer f.Close()

	err = walkElements(f, func(d *xml.Decoder, se xml.StartElement) error {
		switch se.Name.Local {
		case "domConfigList":
			return rc.addHub(se)
		case "runComponent":
			name, ok := attr(se, "name")
			if !ok {
				return &ParseError{Path: rc.path, Reason: "found nameless runComponent"}
			}
			rc.components = append(rc.components, name)
		case "triggerConfig":
			var ref triggerRef
			if err := d.DecodeElement(&ref, &se); err != nil {
				return err
			}
			return rc.addTrigger(ref)
		}
		return nil
	})

	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	if err != nil {
		return &ParseError{Path: rc.path, Reason: "cannot parse", Err: err}
	}
	return nil
}

func (rc *RunConfig) addHub(se xml.StartElement) error {
	val, ok := attr(se, "hub")
	if !ok {
		return nil
	}
	hub, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		return &ParseError{Path: rc.path, Reason: fmt.Sprintf("bad hub number %q", val)}
	}
	rc.allHubs = append(rc.allHubs, hub)

	switch mod := hub % 1000; {
	case mod < stringHubLimit:
		rc.stringHubs = append(rc.stringHubs, hub)
	case mod < icetopHubLimit:
		rc.icetopHubs = append(rc.icetopHubs, hub)
	}
	return nil
}

// addTrigger resolves a triggerConfig reference. Elements with child
// elements are trigger definitions rather than references and are ignored.
func (rc *RunConfig) addTrigger(ref triggerRef) error {
	name := strings.TrimSpace(ref.Text)
	if name == "" || len(ref.Children) > 0 {
		return nil
	}
	if rc.trigger != nil {
		return &ParseError{Path: rc.path, Reason: "found multiple trigger configurations"}
	}

	path, ok := resolveFile(filepath.Join(filepath.Dir(rc.path), "trigger", name))
	if !ok {
		return &ParseError{
			Path:   rc.path,
			Reason: fmt.Sprintf("cannot find trigger configuration %q", name),
		}
	}

	tc, err := ParseTriggerConfig(path)
	if err != nil {
		return err
	}
	rc.trigger = tc
	return nil
}

// resolveFile returns path, or path+".xml", whichever is a regular file.
func resolveFile(path string) (string, bool) {
	if isFile(path) {
		return path, true
	}
	if !strings.HasSuffix(path, ".xml") && isFile(path+".xml") {
		return path + ".xml", true
	}
	return "", false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func attr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// Name returns the configuration name (file base name without ".xml").
func (rc *RunConfig) Name() string {
	return trimXML(filepath.Base(rc.path))
}

// Path returns the configuration file path.
func (rc *RunConfig) Path() string {
	return rc.path
}

// Dir returns the directory holding the configuration.
func (rc *RunConfig) Dir() string {
	return filepath.Dir(rc.path)
}

// Hash returns the baseline hash of the configuration name.
func (rc *RunConfig) Hash() string {
	return rc.hash
}

// Skip reports whether the configuration is on the skip list.
func (rc *RunConfig) Skip() bool {
	return rc.skip
}

// TriggerConfig returns the referenced trigger configuration, or nil.
func (rc *RunConfig) TriggerConfig() *TriggerConfig {
	return rc.trigger
}

// Components returns the run component names.
func (rc *RunConfig) Components() []string {
	return slices.Clone(rc.components)
}

// Hubs returns every hub number in document order, including hubs
// which are neither string nor icetop hubs.
func (rc *RunConfig) Hubs() []int {
	return slices.Clone(rc.allHubs)
}

// InIce reports whether the in-ice trigger is part of the run.
func (rc *RunConfig) InIce() bool {
	return slices.Contains(rc.components, ComponentInIceTrigger)
}

// IceTop reports whether the icetop trigger is part of the run.
func (rc *RunConfig) IceTop() bool {
	return slices.Contains(rc.components, ComponentIceTopTrigger)
}

// InIceHubs returns the number of string hubs.
func (rc *RunConfig) InIceHubs() int {
	return len(rc.stringHubs)
}

// IceTopHubs returns the number of icetop hubs.
func (rc *RunConfig) IceTopHubs() int {
	return len(rc.icetopHubs)
}

// GlobalHubs returns the number of inputs to the global trigger:
// one for each non-empty group of string or icetop hubs.
func (rc *RunConfig) GlobalHubs() int {
	n := 0
	if len(rc.icetopHubs) > 0 {
		n++
	}
	if len(rc.stringHubs) > 0 {
		n++
	}
	return n
}

// HubTypes counts hubs by range.
type HubTypes struct {
	Real      int
	Simulated int
	Test      int

	// Invalid holds negative or out-of-range hub numbers.
	Invalid []int
}

// HubTypes classifies the configuration's hubs.
func (rc *RunConfig) HubTypes() HubTypes {
	var ht HubTypes
	for _, h := range rc.allHubs {
		switch {
		case h < 0:
			ht.Invalid = append(ht.Invalid, h)
		case h < MaxRealHub:
			ht.Real++
		case h < maxSimHub:
			ht.Simulated++
		case h < maxTestHub:
			ht.Test++
		default:
			ht.Invalid = append(ht.Invalid, h)
		}
	}
	return ht
}

// Usable reports whether the configuration can be run by the testbed:
// it has at least one string or icetop hub, only real hubs, and at
// least one trigger component.
func (rc *RunConfig) Usable() bool {
	if len(rc.stringHubs) == 0 && len(rc.icetopHubs) == 0 {
		return false
	}
	for _, h := range rc.allHubs {
		if h >= MaxRealHub {
			return false
		}
	}
	return rc.IceTop() || rc.InIce()
}

func (rc *RunConfig) String() string {
	return fmt.Sprintf("%s[hubs*%d ithubs*%d comps*%d tc=%s]%s",
		filepath.Base(rc.path), len(rc.stringHubs), len(rc.icetopHubs),
		len(rc.components), rc.trigger, rc.hash)
}

// LocateRunConfig returns the path of the named configuration in dir,
// appending ".xml" if needed.
func LocateRunConfig(dir, name string) (string, error) {
	path, ok := resolveFile(filepath.Join(dir, name))
	if !ok {
		return "", &ConfigNotFoundError{Name: name, Dir: dir}
	}
	return path, nil
}

// isConfigDir reports whether dir exists and is a directory.
func isConfigDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("configuration directory %s does not exist", dir)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}
