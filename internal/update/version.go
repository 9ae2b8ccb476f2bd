package update

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var versionRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(?:-([a-zA-Z0-9.-]+))?$`)

// VersionFromWorker extracts the version from a worker's script URL query
// string. Both ?v= and ?version= are recognized; a nil worker or a URL
// without either parameter yields UnknownVersion.
func VersionFromWorker(worker *WorkerInfo) string {
	if worker == nil || worker.ScriptURL == "" {
		return UnknownVersion
	}
	u, err := url.Parse(worker.ScriptURL)
	if err != nil {
		return UnknownVersion
	}
	q := u.Query()
	if v := q.Get("v"); v != "" {
		return v
	}
	if v := q.Get("version"); v != "" {
		return v
	}
	return UnknownVersion
}

// Version represents a semantic version.
type Version struct {
	Major      int
	Minor      int
	Patch      int
	Prerelease string
}

// ParseVersion parses a semantic version string.
// Supports formats like "1.2.3", "v1.2.3", "2.0.0-rc.1".
func ParseVersion(s string) (*Version, error) {
	matches := versionRegex.FindStringSubmatch(s)
	if matches == nil {
		return nil, fmt.Errorf("invalid version format: %s", s)
	}

	major, _ := strconv.Atoi(matches[1])
	minor, _ := strconv.Atoi(matches[2])
	patch, _ := strconv.Atoi(matches[3])

	return &Version{
		Major:      major,
		Minor:      minor,
		Patch:      patch,
		Prerelease: matches[4],
	}, nil
}

// String returns the string representation.
func (v *Version) String() string {
	s := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		s += "-" + v.Prerelease
	}
	return s
}

// Compare compares two versions.
// Returns:
//   - 1 if v > other
//   - 0 if v == other
//   - -1 if v < other
func (v *Version) Compare(other *Version) int {
	if v.Major != other.Major {
		return sign(v.Major - other.Major)
	}
	if v.Minor != other.Minor {
		return sign(v.Minor - other.Minor)
	}
	if v.Patch != other.Patch {
		return sign(v.Patch - other.Patch)
	}

	// Stable versions (no prerelease) are greater than prereleases
	if v.Prerelease == "" && other.Prerelease != "" {
		return 1
	}
	if v.Prerelease != "" && other.Prerelease == "" {
		return -1
	}
	return strings.Compare(v.Prerelease, other.Prerelease)
}

// IsGreaterThan returns true if v > other.
func (v *Version) IsGreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

func sign(n int) int {
	if n > 0 {
		return 1
	}
	return -1
}

// IsNewer reports whether candidate is a strictly newer semantic version
// than current. Unparseable versions (content hashes, "unknown") are treated
// as newer whenever the strings differ, so hash-versioned workers still
// trigger notifications.
func IsNewer(current, candidate string) bool {
	cur, errCur := ParseVersion(current)
	cand, errCand := ParseVersion(candidate)
	if errCur != nil || errCand != nil {
		return current != candidate
	}
	return cand.IsGreaterThan(cur)
}

// NormalizeVersion removes the 'v' prefix if present.
func NormalizeVersion(s string) string {
	return strings.TrimPrefix(s, "v")
}
