package command

import (
	"context"
	"strconv"

	"pybun/internal/pkgver"
	"pybun/internal/resolver"
	"pybun/internal/schema"
)

// ResolveOptions mirrors the `resolve` RPC tool (spec.md §4.8): solve a
// requirement set against an index without downloading or writing a
// lock. There is no CLI verb for this in spec.md §6 — `install` always
// resolves and installs together — but the RPC surface exposes the
// solve step on its own so a caller can preview a resolution's shape
// before committing to it.
type ResolveOptions struct {
	Requires  []string
	IndexPath string
}

// ResolveDetail is the envelope detail for `resolve`.
type ResolveDetail struct {
	Summary  string   `json:"summary"`
	Packages []string `json:"packages"`
}

// Resolve runs the resolver alone, emitting the same ResolveStart/Complete
// events Install emits around its own call into resolver.Resolve.
func Resolve(ctx context.Context, deps Deps, opts ResolveOptions) schema.Envelope {
	return run("resolve", func(collector *schema.Collector) (any, error) {
		roots := make([]pkgver.Requirement, 0, len(opts.Requires))
		for _, raw := range opts.Requires {
			name, constraint, err := pkgver.ParseRequirementString(raw)
			if err != nil {
				return nil, errUsage("parsing requirement %q: %v", raw, err)
			}
			roots = append(roots, pkgver.NewRootRequirement(name, constraint))
		}

		source, err := deps.source(opts.IndexPath)
		if err != nil {
			return nil, err
		}

		rootStrings := make([]string, len(roots))
		for i, r := range roots {
			rootStrings[i] = r.Name + r.Constraint
		}

		collector.Emit(schema.EventResolveStart, map[string]any{"roots": rootStrings})
		resolved, err := resolver.Resolve(ctx, roots, source)
		if err != nil {
			return nil, err
		}
		packages := resolved.Strings()
		collector.Emit(schema.EventResolveComplete, map[string]any{"packages": packages})

		return ResolveDetail{
			Summary:  "resolved " + strconv.Itoa(len(packages)) + " package(s)",
			Packages: packages,
		}, nil
	})
}
