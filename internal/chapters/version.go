package chapters

import (
	"fmt"
	"strconv"
	"strings"
)

const ApplicationName = "Chapters"

// Version is the running application version.
var Version = ApplicationVersion{Major: 1, Minor: 0}

// ApplicationVersion is a major.minor release number.
type ApplicationVersion struct {
	Major int
	Minor int
}

// IsOlderThan compares major first, then minor.
func (v ApplicationVersion) IsOlderThan(other ApplicationVersion) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	return v.Minor < other.Minor
}

func (v ApplicationVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ParseVersion parses "M.m". A leading "v" is accepted.
func ParseVersion(raw string) (ApplicationVersion, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "v")
	majorRaw, minorRaw, ok := strings.Cut(trimmed, ".")
	if !ok {
		return ApplicationVersion{}, fmt.Errorf("parse version %q: expected major.minor", raw)
	}
	major, err := strconv.Atoi(majorRaw)
	if err != nil || major < 0 {
		return ApplicationVersion{}, fmt.Errorf("parse version %q: invalid major", raw)
	}
	minor, err := strconv.Atoi(minorRaw)
	if err != nil || minor < 0 {
		return ApplicationVersion{}, fmt.Errorf("parse version %q: invalid minor", raw)
	}
	return ApplicationVersion{Major: major, Minor: minor}, nil
}
