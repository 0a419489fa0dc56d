package pkgver

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"pybun/internal/schema"
)

// Requirement is a single predicate on a named package, carrying the
// provenance chain that produced it (spec.md's Requirement entity).
type Requirement struct {
	Name       string
	Constraint string
	Provenance schema.ProvenanceChain
}

// NewRootRequirement builds a requirement with a one-element provenance
// chain rooted at the invocation itself.
func NewRootRequirement(name, constraint string) Requirement {
	return Requirement{
		Name:       name,
		Constraint: constraint,
		Provenance: schema.ProvenanceChain{{Package: "root", Requirement: name + constraint}},
	}
}

// Derive builds a requirement discovered while expanding parent@version,
// extending the parent's provenance chain by one hop.
func (r Requirement) Derive(name, constraint string) Requirement {
	chain := make(schema.ProvenanceChain, len(r.Provenance)+1)
	copy(chain, r.Provenance)
	chain[len(r.Provenance)] = schema.ProvenanceStep{Package: r.Name, Requirement: name + constraint}
	return Requirement{Name: name, Constraint: constraint, Provenance: chain}
}

// PredicateSet is the conjunction of every predicate applied to one
// package name so far, per spec.md's Requirement invariant.
type PredicateSet struct {
	Name       string
	Requirements []Requirement
}

// Add appends a requirement to the set. The caller must ensure req.Name
// matches the set's Name.
func (p *PredicateSet) Add(req Requirement) {
	p.Requirements = append(p.Requirements, req)
}

// Constraints builds the combined semver constraint representing the AND
// of every requirement's predicate currently in the set. An empty set has
// no constraint (matches anything).
func (p *PredicateSet) Constraints() (*semver.Constraints, error) {
	if len(p.Requirements) == 0 {
		return nil, nil
	}
	parts := make([]string, 0, len(p.Requirements))
	for _, r := range p.Requirements {
		c := normalizeConstraint(r.Constraint)
		if c == "" || c == "*" {
			continue
		}
		parts = append(parts, c)
	}
	if len(parts) == 0 {
		return nil, nil
	}
	combined := strings.Join(parts, ",")
	cs, err := semver.NewConstraint(combined)
	if err != nil {
		return nil, fmt.Errorf("pkgver: combining constraints %q: %w", combined, err)
	}
	return cs, nil
}

// Satisfies reports whether v matches every predicate currently active
// for this package.
func (p *PredicateSet) Satisfies(v Version) (bool, error) {
	cs, err := p.Constraints()
	if err != nil {
		return false, err
	}
	if cs == nil {
		return true, nil
	}
	return cs.Check(v.sv), nil
}

// Chains returns the provenance chain of every requirement in the set,
// used to build a ConflictTree when the set becomes unsatisfiable.
func (p *PredicateSet) Chains() []schema.ProvenanceChain {
	out := make([]schema.ProvenanceChain, 0, len(p.Requirements))
	for _, r := range p.Requirements {
		out = append(out, r.Provenance)
	}
	return out
}

// operatorRunes are the characters that can start a version predicate,
// used to split "foo==1.0.0" / "bar>=2,<3" style strings from a CLI
// --require flag or a manifest dependency line into (name, constraint).
const operatorRunes = "=<>!~^"

// ParseRequirementString splits a PEP 508-lite dependency string such as
// "foo==1.0.0" or "bar>=2,<3" into a normalized package name and the raw
// constraint text. A bare name with no operator ("foo") yields an empty
// constraint, matching any version.
func ParseRequirementString(s string) (name, constraint string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "", fmt.Errorf("pkgver: empty requirement")
	}
	idx := strings.IndexAny(s, operatorRunes)
	if idx < 0 {
		return NormalizeName(s), "", nil
	}
	return NormalizeName(s[:idx]), strings.TrimSpace(s[idx:]), nil
}

// NormalizeName lowercases and collapses separator runs, matching PyPI's
// package-name normalization rule (spec.md's PackageName invariant).
func NormalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastSep := false
	for _, r := range name {
		isSep := r == '-' || r == '_' || r == '.'
		if isSep {
			if !lastSep && b.Len() > 0 {
				b.WriteByte('-')
			}
			lastSep = true
			continue
		}
		b.WriteRune(r)
		lastSep = false
	}
	return strings.TrimRight(b.String(), "-")
}

// normalizeConstraint rewrites PEP 440's "==" exact-match operator to the
// "=" operator semver.NewConstraint expects; every other operator
// (>=, <=, >, <, !=, ~, ^) is already shared vocabulary between the two
// grammars.
func normalizeConstraint(c string) string {
	c = strings.TrimSpace(c)
	return strings.ReplaceAll(c, "==", "=")
}

// Strings returns each requirement's raw predicate string, useful for
// error messages and the resolver-inputs digest stored in a Lock.
func (p *PredicateSet) Strings() []string {
	out := make([]string, 0, len(p.Requirements))
	for _, r := range p.Requirements {
		out = append(out, r.Name+r.Constraint)
	}
	return out
}
