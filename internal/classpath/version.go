package classpath

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/mod/semver"
)

// CompareVersions orders Maven-style version strings, returning -1, 0 or +1.
//
// Versions which are valid semantic versions (with an implied "v") are
// compared with semver rules, so "1.0.0-SNAPSHOT" sorts before "1.0.0".
// Anything else, such as "1.2.7.1", is compared component by component,
// numerically where both components are numbers.
func CompareVersions(a, b string) int {
	va, vb := "v"+a, "v"+b
	if semver.IsValid(va) && semver.IsValid(vb) {
		return semver.Compare(va, vb)
	}
	return compareLoose(a, b)
}

func compareLoose(a, b string) int {
	pa, pb := splitVersion(a), splitVersion(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		if c := compareComponent(pa[i], pb[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(pa) < len(pb):
		return -1
	case len(pa) > len(pb):
		return 1
	default:
		return 0
	}
}

func compareComponent(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	switch {
	case errA == nil && errB == nil:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case errA == nil:
		// Numbers sort after words ("1.0.beta" < "1.0.1")
		return 1
	case errB == nil:
		return -1
	default:
		return strings.Compare(a, b)
	}
}

// splitVersion breaks a version into runs of digits and runs of letters.
func splitVersion(v string) []string {
	var parts []string
	var cur strings.Builder
	var curDigit bool

	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for _, r := range v {
		switch {
		case unicode.IsDigit(r):
			if !curDigit {
				flush()
			}
			curDigit = true
			cur.WriteRune(r)
		case unicode.IsLetter(r):
			if curDigit {
				flush()
			}
			curDigit = false
			cur.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return parts
}
