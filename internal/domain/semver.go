package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

// semverPattern matches MAJOR.MINOR.PATCH[-tag] per spec §3.
var semverPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)(?:-([A-Za-z0-9.-]+))?$`)

// SemVer is a parsed MAJOR.MINOR.PATCH[-tag] version.
type SemVer struct {
	Major, Minor, Patch int
	Tag                 string
}

// String renders the version back to its canonical form.
func (v SemVer) String() string {
	base := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Tag != "" {
		return base + "-" + v.Tag
	}

	return base
}

// ParseSemVer parses a MAJOR.MINOR.PATCH[-tag] string. An empty string
// parses to the zero value ("0.0.0") so an unset Version is never an
// error on its own.
func ParseSemVer(raw string) (SemVer, error) {
	if raw == "" {
		return SemVer{}, nil
	}

	m := semverPattern.FindStringSubmatch(raw)
	if m == nil {
		return SemVer{}, Invalidf("version %q does not match MAJOR.MINOR.PATCH[-tag]", raw)
	}

	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	patch, _ := strconv.Atoi(m[3])

	return SemVer{Major: major, Minor: minor, Patch: patch, Tag: m[4]}, nil
}

// ValidSemVer reports whether raw is either empty or a valid semantic
// version string.
func ValidSemVer(raw string) bool {
	if raw == "" {
		return true
	}

	return semverPattern.MatchString(raw)
}
