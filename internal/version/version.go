package version

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Version represents an editor release such as "2022.3.10f1"
type Version struct {
	Major    int
	Minor    int
	Patch    int
	Stream   string // Release stream letter: a (alpha), b (beta), f (final), p (patch)
	Revision int
}

// streamRank orders release streams; unknown letters sort before alpha
var streamRank = map[string]int{
	"a": 1,
	"b": 2,
	"c": 3,
	"f": 4,
	"p": 5,
	"x": 0,
}

// Parse parses an editor version string into a Version struct. The stream and
// revision suffix is optional, so "2021.3.4" parses as well.
func Parse(versionStr string) (*Version, error) {
	if versionStr == "" {
		return nil, fmt.Errorf("version cannot be empty")
	}

	parts := strings.Split(versionStr, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("invalid version format: expected x.y.z[fN], got %s", versionStr)
	}

	major, err := strconv.Atoi(parts[0])
	if err != nil || major < 0 {
		return nil, fmt.Errorf("invalid major version: %s", parts[0])
	}

	minor, err := strconv.Atoi(parts[1])
	if err != nil || minor < 0 {
		return nil, fmt.Errorf("invalid minor version: %s", parts[1])
	}

	// Split "10f1" into patch, stream and revision
	last := parts[2]
	idx := strings.IndexFunc(last, func(r rune) bool { return r < '0' || r > '9' })
	patchStr, stream, revisionStr := last, "", ""
	if idx != -1 {
		patchStr = last[:idx]
		stream = last[idx : idx+1]
		revisionStr = last[idx+1:]
	}

	patch, err := strconv.Atoi(patchStr)
	if err != nil || patch < 0 {
		return nil, fmt.Errorf("invalid patch version: %s", last)
	}

	revision := 0
	if stream != "" {
		if _, known := streamRank[stream]; !known {
			return nil, fmt.Errorf("invalid release stream %q in %s", stream, versionStr)
		}
		revision, err = strconv.Atoi(revisionStr)
		if err != nil || revision < 0 {
			return nil, fmt.Errorf("invalid revision: %s", last)
		}
	}

	return &Version{
		Major:    major,
		Minor:    minor,
		Patch:    patch,
		Stream:   stream,
		Revision: revision,
	}, nil
}

// String returns the string representation of the version
func (v *Version) String() string {
	result := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)

	if v.Stream != "" {
		result += fmt.Sprintf("%s%d", v.Stream, v.Revision)
	}

	return result
}

// MajorMinor returns "2022.3" for "2022.3.10f1", the form written to a
// template's "unity" field
func (v *Version) MajorMinor() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare compares two versions and returns:
// -1 if v < other
//
//	0 if v == other
//	1 if v > other
func (v *Version) Compare(other *Version) int {
	if c := compareInt(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareInt(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareInt(v.Patch, other.Patch); c != 0 {
		return c
	}
	if c := compareInt(streamRank[v.Stream], streamRank[other.Stream]); c != 0 {
		return c
	}
	return compareInt(v.Revision, other.Revision)
}

func compareInt(a, b int) int {
	switch {
	case a > b:
		return 1
	case a < b:
		return -1
	default:
		return 0
	}
}

// IsGreaterThan returns true if v > other
func (v *Version) IsGreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// IsLessThan returns true if v < other
func (v *Version) IsLessThan(other *Version) bool {
	return v.Compare(other) < 0
}

// IsEqual returns true if v == other
func (v *Version) IsEqual(other *Version) bool {
	return v.Compare(other) == 0
}

// CompareVersions compares two version strings and returns:
// -1 if version1 < version2
//
//	0 if version1 == version2
//	1 if version1 > version2
func CompareVersions(version1, version2 string) (int, error) {
	v1, err := Parse(version1)
	if err != nil {
		return 0, fmt.Errorf("invalid version1 %s: %w", version1, err)
	}

	v2, err := Parse(version2)
	if err != nil {
		return 0, fmt.Errorf("invalid version2 %s: %w", version2, err)
	}

	return v1.Compare(v2), nil
}

// IsValidVersion checks if a string is a valid editor version
func IsValidVersion(versionStr string) bool {
	_, err := Parse(versionStr)
	return err == nil
}

// MajorMinor returns the "major.minor" prefix of versionStr, or versionStr
// unchanged when it does not parse
func MajorMinor(versionStr string) string {
	v, err := Parse(versionStr)
	if err != nil {
		return versionStr
	}
	return v.MajorMinor()
}

// SortDescending sorts version strings newest first. Strings that do not parse
// go last in lexical order.
func SortDescending(versions []string) {
	sort.SliceStable(versions, func(i, j int) bool {
		vi, errI := Parse(versions[i])
		vj, errJ := Parse(versions[j])
		switch {
		case errI != nil && errJ != nil:
			return versions[i] < versions[j]
		case errI != nil:
			return false
		case errJ != nil:
			return true
		default:
			return vi.IsGreaterThan(vj)
		}
	})
}
