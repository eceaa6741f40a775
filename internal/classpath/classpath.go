// Package classpath locates the jar files needed to run the testbed.
package classpath

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRelease is the pDAQ release whose subproject jars are used.
const DefaultRelease = "1.0.0-SNAPSHOT"

// daqRepoGroup is the Maven group directory of pDAQ subprojects.
const daqRepoGroup = "edu/wisc/icecube"

// Subprojects are the pDAQ projects the testbed needs, in classpath order.
var Subprojects = []string{
	"daq-common", "splicer", "payload", "daq-io", "juggler",
	"trigger-common", "oldtrigger", "trigger", "trigger-testbed",
}

// RepoJars are the third-party jars the testbed needs.
var RepoJars = []RepoJar{
	{Group: "log4j", Name: "log4j", Version: "1.2.7"},
	{Group: "commons-logging", Name: "commons-logging", Version: "1.0.4"},
	{Group: "edu/wisc/icecube", Name: "icebucket", Version: "3.0.2"},
	{Group: "dom4j", Name: "dom4j", Version: "1.6.1"},
	{Group: "jaxen", Name: "jaxen", Version: "1.1.1"},
	{Group: "org/zeromq", Name: "jzmq", Version: "1.0.0"},
	{Group: "com/google/code/gson", Name: "gson", Version: "2.1"},
}

// Resolver produces the classpath entries for a run.
type Resolver interface {
	Resolve() ([]string, error)
}

// Join builds a CLASSPATH value.
func Join(entries []string) string {
	return strings.Join(entries, string(os.PathListSeparator))
}

// RepoJar identifies a jar in a Maven repository.
type RepoJar struct {
	// Group is the group path, e.g. "com/google/code/gson".
	Group   string
	Name    string
	Version string

	// Extra is an optional classifier, e.g. "native".
	Extra string
}

// JarName returns the file name of the jar at version.
func (j RepoJar) JarName(version string) string {
	return jarName(j.Name, version, j.Extra)
}

func (j RepoJar) String() string {
	return j.Group + ":" + j.Name + ":" + j.Version
}

func jarName(name, version, extra string) string {
	if extra == "" {
		return name + "-" + version + ".jar"
	}
	return name + "-" + version + "-" + extra + ".jar"
}

// SetupError reports a required jar which could not be found.
// It is fatal before any run begins.
type SetupError struct {
	Jar      string
	Searched string
}

func (e *SetupError) Error() string {
	if e.Searched != "" {
		return fmt.Sprintf("cannot find %s in local Maven repository (%s)", e.Jar, e.Searched)
	}
	return fmt.Sprintf("cannot find %s jar file", e.Jar)
}

// StaticResolver returns a fixed list of entries.
type StaticResolver []string

// Resolve implements Resolver.
func (s StaticResolver) Resolve() ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// ParseRepoJar parses "group:name:version[:extra]", where group uses
// slashes or dots.
func ParseRepoJar(s string) (RepoJar, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 || len(parts) > 4 {
		return RepoJar{}, fmt.Errorf("bad repository jar %q: want group:name:version[:extra]", s)
	}
	for _, p := range parts {
		if p == "" {
			return RepoJar{}, fmt.Errorf("bad repository jar %q: empty field", s)
		}
	}
	j := RepoJar{
		Group:   filepath.ToSlash(strings.ReplaceAll(parts[0], ".", "/")),
		Name:    parts[1],
		Version: parts[2],
	}
	if len(parts) == 4 {
		j.Extra = parts[3]
	}
	return j, nil
}
