// Package version implements strict parsing and ordering of manifest
// version strings of the form MAJOR.MINOR.PATCH with an optional fourth
// numeric BUILD segment.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a parsed manifest version. A missing BUILD segment orders the
// same as an explicit zero.
type Version struct {
	Major uint64
	Minor uint64
	Patch uint64
	Build uint64

	raw string
}

// Parse parses s strictly. Anything other than three or four dot-separated
// decimal segments is rejected; malformed versions must never silently
// compare as equal or lesser.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 3 || len(parts) > 4 {
		return Version{}, fmt.Errorf("invalid version %q: expected MAJOR.MINOR.PATCH[.BUILD]", s)
	}

	var segs [4]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return Version{}, fmt.Errorf("invalid version %q: segment %q is not a number", s, p)
		}
		segs[i] = n
	}

	return Version{
		Major: segs[0],
		Minor: segs[1],
		Patch: segs[2],
		Build: segs[3],
		raw:   s,
	}, nil
}

// Compare returns -1, 0 or 1 when v is ordered before, equal to or after o.
func (v Version) Compare(o Version) int {
	for _, d := range [4][2]uint64{
		{v.Major, o.Major},
		{v.Minor, o.Minor},
		{v.Patch, o.Patch},
		{v.Build, o.Build},
	} {
		if d[0] < d[1] {
			return -1
		}
		if d[0] > d[1] {
			return 1
		}
	}
	return 0
}

// LessOrEqual reports whether v orders before or equal to o.
func (v Version) LessOrEqual(o Version) bool {
	return v.Compare(o) <= 0
}

// String returns the original string passed to Parse.
func (v Version) String() string {
	if v.raw != "" {
		return v.raw
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}
