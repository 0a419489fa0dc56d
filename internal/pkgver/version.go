// Package pkgver implements the ordered-version and requirement-predicate
// primitives spec.md's data model calls Version and Requirement.
//
// PyPI's release-number grammar (PEP 440) is not semver, but it is close
// enough — dotted numeric releases, optional pre/post/dev segments — that
// normalizing into semver's shape and delegating comparison to
// github.com/Masterminds/semver/v3 (the library
// input-output-hk-catalyst-forge-libs/schemas uses for its own version
// compatibility checks) is the idiomatic Go choice: it gives us a battle
// tested total order and a constraint-intersection grammar for free,
// instead of hand-rolling either.
package pkgver

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version is an ordered release identifier. Equality and ordering are
// stable after normalization, satisfying spec.md's Version invariants.
type Version struct {
	raw string
	sv  *semver.Version
}

var segmentRE = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*$`)

// ParseVersion normalizes a PyPI-shaped version string into semver form
// and parses it.
//
// Normalization rules:
//   - A bare dotted-integer release ("1", "1.0", "1.2.3.4") is padded or
//     truncated to exactly three numeric components for semver, with any
//     fourth-and-later component folded into the build metadata so it
//     still participates in String() round-trips.
//   - Pre-release markers (a, b, rc, dev) are passed through as semver
//     prerelease identifiers unchanged; semver's prerelease ordering
//     (lexicographic within the same numeric core) is an acceptable
//     approximation of PEP 440 ordering for the resolver's purposes.
func ParseVersion(s string) (Version, error) {
	norm := strings.TrimSpace(s)
	if norm == "" {
		return Version{}, fmt.Errorf("pkgver: empty version string")
	}

	normalized := normalizeToSemver(norm)
	sv, err := semver.NewVersion(normalized)
	if err != nil {
		return Version{}, fmt.Errorf("pkgver: parsing version %q (normalized %q): %w", s, normalized, err)
	}
	return Version{raw: s, sv: sv}, nil
}

// normalizeToSemver pads a dotted-numeric release to three components and
// leaves any pre-release/build suffix attached.
func normalizeToSemver(s string) string {
	core := s
	suffix := ""
	for i, r := range s {
		if r == '-' || r == '+' {
			core = s[:i]
			suffix = s[i:]
			break
		}
	}
	if !segmentRE.MatchString(core) {
		// Not a plain dotted-numeric core (e.g. "1.0a1"); let semver attempt
		// the raw string as-is rather than guessing further.
		return s
	}
	parts := strings.Split(core, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	if len(parts) > 3 {
		// Fold extra components into build metadata so they are preserved
		// but do not break semver's three-component core.
		extra := strings.Join(parts[3:], ".")
		parts = parts[:3]
		if suffix == "" {
			suffix = "+" + extra
		} else {
			suffix = suffix + "." + extra
		}
	}
	return strings.Join(parts, ".") + suffix
}

// Compare returns -1, 0, or 1 per the standard ordering contract.
func (v Version) Compare(other Version) int {
	return v.sv.Compare(other.sv)
}

// String returns the original, un-normalized version string.
func (v Version) String() string {
	return v.raw
}

// Semver exposes the underlying normalized semver.Version for callers that
// need to build constraints directly (e.g. the resolver's candidate
// filtering).
func (v Version) Semver() *semver.Version {
	return v.sv
}

// SortVersionsDescending sorts versions highest-first, matching the
// resolver's "candidates enumerated highest-first" rule (spec.md §4.2).
func SortVersionsDescending(versions []Version) {
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].Compare(versions[j]) > 0
	})
}
