// Package workspace implements the Workspace Aggregator (spec.md §4.9):
// given a root manifest and its member manifests, it validates member
// structure and unions their dependency lists into the root Requirement
// set the resolver solves over.
package workspace

import (
	"sort"

	"pybun/internal/pkgver"
)

// Manifest is the dependency-relevant slice of one project's manifest:
// its name and its declared PEP 508-lite dependency strings.
type Manifest struct {
	Name         string
	Dependencies []string
}

// Member is one workspace member: its path relative to the workspace
// root, and its loaded manifest.
type Member struct {
	Path     string
	Manifest Manifest
}

// Aggregate validates root and members for structural conflicts, then
// unions every declared dependency string across root and all members
// into root Requirements for the resolver.
//
// Unlike the original's merged_dependencies (which deduplicates by name
// and keeps only the first dependency string seen per name, so a later,
// differently-constrained member never gets a say), this keeps every
// individual requirement string as its own root Requirement. The
// resolver's PredicateSet already intersects multiple roots sharing a
// name (exactly as it does for a root requirement and a transitive one);
// routing distinct member constraints through that same machinery is
// what lets conflicting predicates "intersect" per spec.md §4.9 instead
// of one member silently winning.
func Aggregate(root Manifest, members []Member) ([]pkgver.Requirement, error) {
	if err := validateMembers(root, members); err != nil {
		return nil, err
	}

	var declared []string
	declared = append(declared, root.Dependencies...)
	for _, m := range members {
		declared = append(declared, m.Manifest.Dependencies...)
	}

	roots := make([]pkgver.Requirement, 0, len(declared))
	for _, raw := range declared {
		name, constraint, err := pkgver.ParseRequirementString(raw)
		if err != nil {
			return nil, err
		}
		roots = append(roots, pkgver.NewRootRequirement(name, constraint))
	}
	return roots, nil
}

// validateMembers rejects duplicate member paths, duplicate member names,
// and a member name colliding with the root project's own name — all
// structural conflicts the resolver should never have to discover mid-solve.
func validateMembers(root Manifest, members []Member) error {
	seenPaths := make(map[string]bool, len(members))
	seenNames := make(map[string]bool, len(members))

	for _, m := range members {
		if seenPaths[m.Path] {
			return errDuplicateMemberPath(m.Path)
		}
		seenPaths[m.Path] = true

		name := pkgver.NormalizeName(m.Manifest.Name)
		if name == pkgver.NormalizeName(root.Name) {
			return errMemberNameCollidesWithRoot(m.Manifest.Name)
		}
		if seenNames[name] {
			return errDuplicateMemberName(m.Manifest.Name)
		}
		seenNames[name] = true
	}
	return nil
}

// MemberPaths returns members' paths sorted, for deterministic logging and
// diagnostics.
func MemberPaths(members []Member) []string {
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Path
	}
	sort.Strings(out)
	return out
}
