package catalog

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadSkipList(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "skip-list", "old-config\nbroken.xml  \n\n")

	s, err := LoadSkipList(path)
	if err != nil {
		t.Fatalf("LoadSkipList() error = %v", err)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}

	testCases := []struct {
		path string
		want bool
	}{
		{"/cfg/old-config.xml", true},
		{"old-config", true},
		{"/cfg/broken.xml", true},
		{"/cfg/fine.xml", false},
		{"/old-config/fine.xml", false},
	}
	for _, tc := range testCases {
		if got := s.Contains(tc.path); got != tc.want {
			t.Errorf("Contains(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestLoadSkipList_Missing(t *testing.T) {
	s, err := LoadSkipList(filepath.Join(t.TempDir(), "skip-list"))
	if err != nil {
		t.Fatalf("LoadSkipList() error = %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSkipList_Nil(t *testing.T) {
	var s *SkipList
	if s.Contains("anything") || s.Len() != 0 {
		t.Error("nil skip list should be empty")
	}
}

func TestHashName(t *testing.T) {
	// md5("a") = 0cc175b9c0f1b6a831c399e269772661
	if got := HashName("a"); got != "cc175b9c0f1b6a831c399e269772661" {
		t.Errorf("HashName(a) = %q", got)
	}
	if HashName("a.xml") != HashName("a") {
		t.Error("HashName should ignore .xml suffix")
	}

	names := []string{"sps-2024", "spts-IT-stdtest-01", "x", ""}
	for _, name := range names {
		first := HashName(name)
		for range 5 {
			if got := HashName(name); got != first {
				t.Fatalf("HashName(%q) not stable: %q != %q", name, got, first)
			}
		}
		if strings.HasPrefix(first, "0") {
			t.Errorf("HashName(%q) = %q has leading zero", name, first)
		}
	}
}

func TestTriggerType(t *testing.T) {
	testCases := []struct {
		tt        TriggerType
		name      string
		fileType  string
		component string
		old       string
	}{
		{InIce, "in-ice", "iit", "IniceTriggerComponent", "OldIniceTriggerComponent"},
		{IceTop, "icetop", "itt", "IcetopTriggerComponent", "OldIcetopTriggerComponent"},
		{Global, "global", "glbl", "GlobalTriggerComponent", "OldGlobalTriggerComponent"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.tt.String() != tc.name {
				t.Errorf("String() = %q", tc.tt.String())
			}
			if tc.tt.FileType() != tc.fileType {
				t.Errorf("FileType() = %q", tc.tt.FileType())
			}
			if tc.tt.Component(false) != tc.component || tc.tt.Component(true) != tc.old {
				t.Errorf("Component() = %q/%q", tc.tt.Component(false), tc.tt.Component(true))
			}
			back, ok := ParseFileType(tc.fileType)
			if !ok || back != tc.tt {
				t.Errorf("ParseFileType(%q) = %v, %v", tc.fileType, back, ok)
			}
		})
	}

	if _, ok := ParseFileType("xyz"); ok {
		t.Error("ParseFileType(xyz) succeeded")
	}
}
