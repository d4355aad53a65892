package dataflow

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// StableVersion is the schema version new definitions are written at.
const StableVersion = "0.6.0"

// Version is a parsed apiVersion. Only two schema versions are understood;
// everything else is rejected at validation time.
type Version struct {
	canonical string
}

// ParseVersion parses an apiVersion string as a semantic version.
func ParseVersion(s string) (Version, error) {
	v := s
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return Version{}, fmt.Errorf("invalid semantic version `%s`", s)
	}
	return Version{canonical: semver.Canonical(v)}, nil
}

// IsV5 reports whether this is schema version 0.5.0.
func (v Version) IsV5() bool { return v.canonical == "v0.5.0" }

// IsV6 reports whether this is schema version 0.6.0.
func (v Version) IsV6() bool { return v.canonical == "v0.6.0" }

func (v Version) String() string {
	return strings.TrimPrefix(v.canonical, "v")
}
