// Package resolver implements the backtracking dependency solver: given a
// set of top-level requirements and a metadata oracle, it produces a
// ResolvedSet or a structured E_RESOLVE_MISSING / E_RESOLVE_CONFLICT
// failure (spec.md §4.2).
package resolver

import (
	"context"

	"pybun/internal/index"
)

// Source is the seam spec.md §9 requires: "the index client is abstracted
// behind a metadata(name) -> PackageMetadata seam so tests substitute a
// static fixture". *index.Client satisfies this directly; resolver tests
// use a hand-rolled fixture instead.
type Source interface {
	Metadata(ctx context.Context, name string) (index.PackageMetadata, error)
	VersionDetail(ctx context.Context, name, version string) (index.VersionMetadata, error)
}

// ResolvedEntry is one package's final decision (spec.md §3 ResolvedSet
// element).
type ResolvedEntry struct {
	Name         string
	Version      string
	Distribution index.Distribution
}

// ResolvedSet is the solver's successful output: each name appears once,
// every requirement in the transitive closure is satisfied by exactly one
// version.
type ResolvedSet []ResolvedEntry

// Strings renders "name==version" for each entry, sorted by name, for use
// in the lockfile and the resolver-inputs digest.
func (rs ResolvedSet) Strings() []string {
	out := make([]string, len(rs))
	for i, e := range rs {
		out[i] = e.Name + "==" + e.Version
	}
	return out
}
