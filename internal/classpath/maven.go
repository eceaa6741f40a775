package classpath

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Layout describes where built jars may be found.
type Layout struct {
	// WorkDir is the base for relative subproject lookups.
	WorkDir string

	// PDAQHome is the active pDAQ checkout ($PDAQ_HOME), if any.
	PDAQHome string

	// MavenRepo is the local Maven repository, if any.
	MavenRepo string

	// Release selects subproject jar versions and the distribution directory.
	Release string
}

// LayoutFromEnv builds a Layout from $PDAQ_HOME and $HOME.
// Directories which do not exist are left empty.
func LayoutFromEnv() Layout {
	l := Layout{WorkDir: ".", Release: DefaultRelease}
	if home := os.Getenv("PDAQ_HOME"); home != "" && isDir(home) {
		l.PDAQHome = home
	}
	if home := os.Getenv("HOME"); home != "" {
		if repo := filepath.Join(home, ".m2", "repository"); isDir(repo) {
			l.MavenRepo = repo
		}
	}
	return l
}

// DistDir returns $PDAQ_HOME/target/pDAQ-<release>-dist/lib, or "" if
// it does not exist.
func (l Layout) DistDir() string {
	if l.PDAQHome == "" {
		return ""
	}
	dir := filepath.Join(l.PDAQHome, "target", "pDAQ-"+l.release()+"-dist", "lib")
	if !isDir(dir) {
		return ""
	}
	return dir
}

func (l Layout) release() string {
	if l.Release == "" {
		return DefaultRelease
	}
	return l.Release
}

// MavenResolver finds subproject jars in build trees and third-party jars
// in the local Maven repository.
type MavenResolver struct {
	layout      Layout
	subprojects []string
	repoJars    []RepoJar
	logger      *slog.Logger
}

// NewMavenResolver creates a resolver for the given jars.
func NewMavenResolver(layout Layout, subprojects []string, repoJars []RepoJar, logger *slog.Logger) *MavenResolver {
	if logger == nil {
		logger = slog.Default()
	}
	if layout.WorkDir == "" {
		layout.WorkDir = "."
	}
	return &MavenResolver{
		layout:      layout,
		subprojects: subprojects,
		repoJars:    repoJars,
		logger:      logger,
	}
}

// Resolve implements Resolver. Subproject entries come first.
func (r *MavenResolver) Resolve() ([]string, error) {
	entries := make([]string, 0, len(r.subprojects)+len(r.repoJars))

	for _, proj := range r.subprojects {
		path, ok := r.FindSubproject(proj)
		if !ok {
			return nil, &SetupError{Jar: proj}
		}
		entries = append(entries, path)
	}

	for _, jar := range r.repoJars {
		path, ok := r.FindRepoJar(jar)
		if !ok {
			return nil, &SetupError{Jar: jar.Name, Searched: r.layout.MavenRepo}
		}
		entries = append(entries, path)
	}

	r.logger.Debug("classpath_resolved", "entries", len(entries))
	return entries, nil
}

// FindSubproject locates the jar or class directory of a pDAQ subproject.
//
// Search order: target/<jar> (inside the subproject), <proj>/target/<jar>
// (inside the project), ../<proj>/target/<jar> (inside a sibling),
// <proj>/target/classes, ../<proj>/target/classes, $PDAQ_HOME/<proj>/target/<jar>,
// the distribution directory, then the Maven repository.
func (r *MavenResolver) FindSubproject(proj string) (string, bool) {
	release := r.layout.release()
	jar := jarName(proj, release, "")
	work := r.layout.WorkDir

	candidates := []string{
		filepath.Join(work, "target", jar),
		filepath.Join(work, proj, "target", jar),
		filepath.Join(work, "..", proj, "target", jar),
		filepath.Join(work, proj, "target", "classes"),
		filepath.Join(work, "..", proj, "target", "classes"),
	}
	if r.layout.PDAQHome != "" {
		candidates = append(candidates, filepath.Join(r.layout.PDAQHome, proj, "target", jar))
	}
	if dist := r.layout.DistDir(); dist != "" {
		candidates = append(candidates, filepath.Join(dist, jar))
	}
	if r.layout.MavenRepo != "" {
		candidates = append(candidates,
			filepath.Join(r.layout.MavenRepo, daqRepoGroup, proj, release, jar))
	}

	for _, c := range candidates {
		if exists(c) {
			return c, true
		}
	}
	return "", false
}

// FindRepoJar locates a third-party jar at or after the requested version,
// first in the Maven repository and then in the distribution directory.
// A newer version is used with a warning.
func (r *MavenResolver) FindRepoJar(j RepoJar) (string, bool) {
	if r.layout.MavenRepo != "" {
		if path, ok := r.findInRepo(j); ok {
			return path, true
		}
	}
	if dist := r.layout.DistDir(); dist != "" {
		if path, ok := r.findInDist(dist, j); ok {
			return path, true
		}
	}
	return "", false
}

func (r *MavenResolver) findInRepo(j RepoJar) (string, bool) {
	projDir := filepath.Join(r.layout.MavenRepo, filepath.FromSlash(j.Group), j.Name)
	exact := filepath.Join(projDir, j.Version, j.JarName(j.Version))
	if exists(exact) {
		return exact, true
	}

	entries, err := os.ReadDir(projDir)
	if err != nil {
		return "", false
	}
	var newer []string
	for _, e := range entries {
		if e.IsDir() && CompareVersions(e.Name(), j.Version) > 0 {
			newer = append(newer, e.Name())
		}
	}
	slices.SortFunc(newer, CompareVersions)

	for _, vers := range newer {
		path := filepath.Join(projDir, vers, jarName(j.Name, vers, ""))
		if exists(path) {
			r.warnVersion(j, vers)
			return path, true
		}
	}
	return "", false
}

func (r *MavenResolver) findInDist(dist string, j RepoJar) (string, bool) {
	exact := filepath.Join(dist, j.JarName(j.Version))
	if exists(exact) {
		return exact, true
	}

	entries, err := os.ReadDir(dist)
	if err != nil {
		return "", false
	}
	prefix := j.Name + "-"
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		vers, ok := strings.CutSuffix(name[len(prefix):], ".jar")
		if !ok || vers == "" {
			continue
		}
		if CompareVersions(vers, j.Version) >= 0 {
			r.warnVersion(j, vers)
			return filepath.Join(dist, name), true
		}
	}
	return "", false
}

func (r *MavenResolver) warnVersion(j RepoJar, found string) {
	r.logger.Warn("using_other_jar_version",
		"jar", j.Name,
		"version", found,
		"requested", j.Version,
	)
}

var _ Resolver = (*MavenResolver)(nil)
