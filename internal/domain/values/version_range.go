package values

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// UnpinnedVersion marks a package that opted out of version pinning.
// Re-installing such a package always replaces the previous copy.
const UnpinnedVersion = "0.0.0"

// VersionRange represents a semantic version constraint ("^1.2.0",
// ">=2.0.0 <3.0.0", ...). The empty range accepts any version.
type VersionRange struct {
	raw        string
	constraint *semver.Constraints
}

// NewVersionRange parses a version range. An empty or whitespace-only
// string yields the empty range.
func NewVersionRange(spec string) (VersionRange, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return VersionRange{}, nil
	}
	c, err := semver.NewConstraint(spec)
	if err != nil {
		return VersionRange{}, fmt.Errorf("invalid version range %q: %w", spec, err)
	}
	return VersionRange{raw: spec, constraint: c}, nil
}

// MustNewVersionRange parses a version range or panics
func MustNewVersionRange(spec string) VersionRange {
	vr, err := NewVersionRange(spec)
	if err != nil {
		panic(err)
	}
	return vr
}

// IsEmpty returns true when no constraint was given.
func (r VersionRange) IsEmpty() bool {
	return r.constraint == nil
}

// String returns the original range expression.
func (r VersionRange) String() string {
	return r.raw
}

// Satisfies reports whether the given version falls inside the range.
// The empty range is satisfied by every version; the unpinned sentinel
// 0.0.0 satisfies nothing, so unpinned installs are always replaced.
func (r VersionRange) Satisfies(v *semver.Version) bool {
	if v == nil {
		return false
	}
	if v.String() == UnpinnedVersion {
		return false
	}
	if r.constraint == nil {
		return true
	}
	return r.constraint.Check(v)
}

// BestMatch picks the highest version in available that satisfies the
// range, or an error when none does.
func (r VersionRange) BestMatch(available []*semver.Version) (*semver.Version, error) {
	var best *semver.Version
	for _, v := range available {
		if v == nil || !r.Satisfies(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no version satisfies range %q", r.raw)
	}
	return best, nil
}
