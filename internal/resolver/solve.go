package resolver

import (
	"context"
	"sort"

	"pybun/internal/index"
	"pybun/internal/pkgver"
)

// decision records which version the solver picked for a package name,
// together with that version's fetched detail (requirements and
// distributions).
type decision struct {
	version pkgver.Version
	detail  index.VersionMetadata
}

// solver holds the mutable state of one Resolve call.
type solver struct {
	ctx       context.Context
	source    Source
	predicate map[string]*pkgver.PredicateSet
	decided   map[string]decision
	pending   []pkgver.Requirement
}

// Resolve runs the backtracking solver over roots, returning a
// deterministic ResolvedSet or a structured E_RESOLVE_MISSING /
// E_RESOLVE_CONFLICT error (spec.md §4.2).
//
// The solver is deterministic: candidates are always considered
// version-descending, and when a package's active predicate set becomes
// unsatisfiable against its already-chosen version, the solver attempts a
// local re-decision against the next-highest remaining candidate before
// giving up — a simplified form of conflict-directed backjumping that
// jumps straight to the implicated package's own decision rather than
// walking the full chronological decision stack.
func Resolve(ctx context.Context, roots []pkgver.Requirement, source Source) (ResolvedSet, error) {
	s := &solver{
		ctx:       ctx,
		source:    source,
		predicate: make(map[string]*pkgver.PredicateSet),
		decided:   make(map[string]decision),
		pending:   append([]pkgver.Requirement(nil), roots...),
	}

	for len(s.pending) > 0 {
		req := s.pending[0]
		s.pending = s.pending[1:]
		if err := s.apply(req); err != nil {
			return nil, err
		}
	}

	return s.buildResolvedSet(), nil
}

// apply folds req into its package's predicate set and ensures the
// package has a decision consistent with the updated set.
func (s *solver) apply(req pkgver.Requirement) error {
	name := pkgver.NormalizeName(req.Name)
	set, ok := s.predicate[name]
	if !ok {
		set = &pkgver.PredicateSet{Name: name}
		s.predicate[name] = set
	}
	set.Add(req)

	if existing, isDecided := s.decided[name]; isDecided {
		ok, err := set.Satisfies(existing.version)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		return s.redecide(name, set)
	}

	// Before committing to a candidate, pull in every other requirement for
	// this package already sitting in the queue. Without this, a root
	// requirement and an already-derived transitive requirement for the
	// same package (e.g. "bar==1.0.0" alongside a pending "bar>=2,<3")
	// would be decided against one at a time, and a genuine conflict
	// between them would report only the chain that happened to be
	// processed first instead of both.
	s.absorbPending(name, set)
	return s.decide(name, set)
}

// absorbPending folds every currently queued requirement for name into
// set and removes them from the pending queue, preserving the relative
// order of everything else.
func (s *solver) absorbPending(name string, set *pkgver.PredicateSet) {
	kept := s.pending[:0:0]
	for _, p := range s.pending {
		if pkgver.NormalizeName(p.Name) == name {
			set.Add(p)
			continue
		}
		kept = append(kept, p)
	}
	s.pending = kept
}

// decide picks the highest candidate satisfying set and enqueues its
// dependencies, for a package with no prior decision.
func (s *solver) decide(name string, set *pkgver.PredicateSet) error {
	md, err := s.source.Metadata(s.ctx, name)
	if err != nil {
		return err
	}
	if len(md.Versions) == 0 {
		return errMissing(name, nil)
	}

	candidates, err := s.candidatesSatisfying(md, set)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return errConflict(name, set.Chains())
	}

	chosen := candidates[0]
	detail, err := s.source.VersionDetail(s.ctx, name, chosen.String())
	if err != nil {
		return err
	}

	s.decided[name] = decision{version: chosen, detail: detail}
	return s.enqueueDependencies(anchor(set), detail)
}

// redecide attempts to find a different candidate for an already-decided
// package whose predicate set a newly-added requirement just broke.
func (s *solver) redecide(name string, set *pkgver.PredicateSet) error {
	md, err := s.source.Metadata(s.ctx, name)
	if err != nil {
		return err
	}

	candidates, err := s.candidatesSatisfying(md, set)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return errConflict(name, set.Chains())
	}

	chosen := candidates[0]
	detail, err := s.source.VersionDetail(s.ctx, name, chosen.String())
	if err != nil {
		return err
	}

	s.decided[name] = decision{version: chosen, detail: detail}
	return s.enqueueDependencies(anchor(set), detail)
}

// anchor returns the requirement whose provenance chain dependency
// expansion should extend: the most recently added requirement in the
// set, which is whichever one triggered the decide/redecide call.
func anchor(set *pkgver.PredicateSet) pkgver.Requirement {
	return set.Requirements[len(set.Requirements)-1]
}

// candidatesSatisfying returns md's versions that satisfy set, sorted
// version-descending (spec.md §4.2's deterministic tie-break rule).
func (s *solver) candidatesSatisfying(md index.PackageMetadata, set *pkgver.PredicateSet) ([]pkgver.Version, error) {
	var candidates []pkgver.Version
	for raw := range md.Versions {
		v, err := pkgver.ParseVersion(raw)
		if err != nil {
			continue
		}
		ok, err := set.Satisfies(v)
		if err != nil {
			return nil, err
		}
		if ok {
			candidates = append(candidates, v)
		}
	}
	pkgver.SortVersionsDescending(candidates)
	return candidates, nil
}

// enqueueDependencies derives and enqueues requirements for each of a
// chosen version's declared dependencies, extending anchor's provenance
// chain by one hop per dependency.
func (s *solver) enqueueDependencies(anchorReq pkgver.Requirement, detail index.VersionMetadata) error {
	for _, raw := range detail.Requires {
		depName, constraint, err := pkgver.ParseRequirementString(raw)
		if err != nil {
			return err
		}
		s.pending = append(s.pending, anchorReq.Derive(depName, constraint))
	}
	return nil
}

// buildResolvedSet renders the final decisions into a ResolvedSet sorted
// by package name.
func (s *solver) buildResolvedSet() ResolvedSet {
	out := make(ResolvedSet, 0, len(s.decided))
	for name, d := range s.decided {
		var dist index.Distribution
		if len(d.detail.Distributions) > 0 {
			dist = d.detail.Distributions[0]
		}
		out = append(out, ResolvedEntry{Name: name, Version: d.version.String(), Distribution: dist})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
