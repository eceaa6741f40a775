package classpath

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// touch creates an empty file, making parent directories.
func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompareVersions(t *testing.T) {
	testCases := []struct {
		a, b string
		want int
	}{
		{"1.2.7", "1.2.7", 0},
		{"1.2.8", "1.2.7", 1},
		{"1.10.0", "1.9.0", 1},
		{"2.1", "2.2.4", -1},
		{"1.0.0-SNAPSHOT", "1.0.0", -1},
		{"1.2.7.1", "1.2.7", 1},
		{"1.2.7", "1.2.7.1", -1},
		{"3.0.2-beta", "3.0.2", -1},
		{"1.0.10.2", "1.0.9.9", 1},
	}

	for _, tc := range testCases {
		if got := CompareVersions(tc.a, tc.b); got != tc.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFindSubproject_SearchOrder(t *testing.T) {
	root := t.TempDir()
	work := filepath.Join(root, "pdaq", "trigger")
	home := filepath.Join(root, "home-pdaq")
	repo := filepath.Join(root, "m2")
	jar := "splicer-" + DefaultRelease + ".jar"

	layout := Layout{WorkDir: work, PDAQHome: home, MavenRepo: repo}
	r := NewMavenResolver(layout, nil, nil, newTestLogger())

	if _, ok := r.FindSubproject("splicer"); ok {
		t.Fatal("found subproject in empty tree")
	}

	// Each candidate is added from lowest to highest priority.
	steps := []string{
		filepath.Join(repo, daqRepoGroup, "splicer", DefaultRelease, jar),
		filepath.Join(home, "target", "pDAQ-"+DefaultRelease+"-dist", "lib", jar),
		filepath.Join(home, "splicer", "target", jar),
		filepath.Join(work, "..", "splicer", "target", "classes", "x.class"),
		filepath.Join(work, "splicer", "target", "classes", "x.class"),
		filepath.Join(work, "..", "splicer", "target", jar),
		filepath.Join(work, "splicer", "target", jar),
		filepath.Join(work, "target", jar),
	}

	for _, step := range steps {
		touch(t, step)
		want := step
		if filepath.Base(step) == "x.class" {
			want = filepath.Dir(step)
		}
		got, ok := r.FindSubproject("splicer")
		if !ok || got != want {
			t.Errorf("after creating %s: FindSubproject() = %q, %v", step, got, ok)
		}
	}
}

func TestFindRepoJar(t *testing.T) {
	repo := t.TempDir()
	gson := RepoJar{Group: "com/google/code/gson", Name: "gson", Version: "2.1"}
	r := NewMavenResolver(Layout{MavenRepo: repo}, nil, nil, newTestLogger())

	if _, ok := r.FindRepoJar(gson); ok {
		t.Fatal("found jar in empty repository")
	}

	// Older versions are never used.
	touch(t, filepath.Join(repo, "com/google/code/gson/gson/2.0/gson-2.0.jar"))
	if _, ok := r.FindRepoJar(gson); ok {
		t.Error("used an older version")
	}

	// The closest newer version wins.
	touch(t, filepath.Join(repo, "com/google/code/gson/gson/2.8.9/gson-2.8.9.jar"))
	newer := touch(t, filepath.Join(repo, "com/google/code/gson/gson/2.2.4/gson-2.2.4.jar"))
	if got, ok := r.FindRepoJar(gson); !ok || got != newer {
		t.Errorf("FindRepoJar() = %q, %v, want %q", got, ok, newer)
	}

	// The exact version wins over newer ones.
	exact := touch(t, filepath.Join(repo, "com/google/code/gson/gson/2.1/gson-2.1.jar"))
	if got, ok := r.FindRepoJar(gson); !ok || got != exact {
		t.Errorf("FindRepoJar() = %q, %v, want %q", got, ok, exact)
	}
}

func TestFindRepoJar_Extra(t *testing.T) {
	repo := t.TempDir()
	jzmq := RepoJar{Group: "org/zeromq", Name: "jzmq", Version: "1.0.0", Extra: "native-amd64-Linux"}
	want := touch(t, filepath.Join(repo, "org/zeromq/jzmq/1.0.0/jzmq-1.0.0-native-amd64-Linux.jar"))

	r := NewMavenResolver(Layout{MavenRepo: repo}, nil, nil, newTestLogger())
	if got, ok := r.FindRepoJar(jzmq); !ok || got != want {
		t.Errorf("FindRepoJar() = %q, %v", got, ok)
	}
}

func TestFindRepoJar_DistDir(t *testing.T) {
	home := t.TempDir()
	dist := filepath.Join(home, "target", "pDAQ-"+DefaultRelease+"-dist", "lib")
	touch(t, filepath.Join(dist, "dom4j-1.6.0.jar"))
	want := touch(t, filepath.Join(dist, "dom4j-1.6.2.jar"))

	r := NewMavenResolver(Layout{PDAQHome: home}, nil, nil, newTestLogger())
	got, ok := r.FindRepoJar(RepoJar{Group: "dom4j", Name: "dom4j", Version: "1.6.1"})
	if !ok || got != want {
		t.Errorf("FindRepoJar() = %q, %v, want %q", got, ok, want)
	}
}

func TestResolve(t *testing.T) {
	work := t.TempDir()
	repo := t.TempDir()
	a := touch(t, filepath.Join(work, "daq-common", "target", "daq-common-"+DefaultRelease+".jar"))
	b := touch(t, filepath.Join(work, "trigger", "target", "trigger-"+DefaultRelease+".jar"))
	c := touch(t, filepath.Join(repo, "log4j/log4j/1.2.7/log4j-1.2.7.jar"))

	r := NewMavenResolver(Layout{WorkDir: work, MavenRepo: repo},
		[]string{"daq-common", "trigger"},
		[]RepoJar{{Group: "log4j", Name: "log4j", Version: "1.2.7"}},
		newTestLogger())

	entries, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !slices.Equal(entries, []string{a, b, c}) {
		t.Errorf("Resolve() = %q", entries)
	}
	if got := Join(entries); got != a+":"+b+":"+c {
		t.Errorf("Join() = %q", got)
	}
}

func TestResolve_SetupErrors(t *testing.T) {
	repo := t.TempDir()

	r := NewMavenResolver(Layout{WorkDir: t.TempDir(), MavenRepo: repo},
		[]string{"payload"}, nil, newTestLogger())
	_, err := r.Resolve()
	var se *SetupError
	if !errors.As(err, &se) || se.Jar != "payload" {
		t.Errorf("error = %v, want SetupError for payload", err)
	}

	r = NewMavenResolver(Layout{WorkDir: t.TempDir(), MavenRepo: repo},
		nil, []RepoJar{{Group: "jaxen", Name: "jaxen", Version: "1.1.1"}}, newTestLogger())
	_, err = r.Resolve()
	if !errors.As(err, &se) || se.Jar != "jaxen" || se.Searched != repo {
		t.Errorf("error = %v, want SetupError for jaxen", err)
	}
}

func TestParseRepoJar(t *testing.T) {
	testCases := []struct {
		in      string
		want    RepoJar
		wantErr bool
	}{
		{"com.google.code.gson:gson:2.1", RepoJar{Group: "com/google/code/gson", Name: "gson", Version: "2.1"}, false},
		{"org/zeromq:jzmq:1.0.0:native", RepoJar{Group: "org/zeromq", Name: "jzmq", Version: "1.0.0", Extra: "native"}, false},
		{"gson:2.1", RepoJar{}, true},
		{"a::1", RepoJar{}, true},
	}
	for _, tc := range testCases {
		got, err := ParseRepoJar(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseRepoJar(%q) error = %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseRepoJar(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestStaticResolver(t *testing.T) {
	s := StaticResolver{"a.jar", "b.jar"}
	got, err := s.Resolve()
	if err != nil || !slices.Equal(got, []string{"a.jar", "b.jar"}) {
		t.Errorf("Resolve() = %q, %v", got, err)
	}
}
