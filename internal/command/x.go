package command

import (
	"context"
	"fmt"

	"pybun/internal/pkgver"
	"pybun/internal/runner"
	"pybun/internal/schema"
)

// XOptions mirrors spec.md §6's `x <pkg>[==ver] [-- args…]`: run a
// package's top-level module in an ephemeral, dependency-scoped
// environment without requiring a project manifest — the same
// "declare-and-run" shape pipx/uvx popularized for this ecosystem.
type XOptions struct {
	PackageSpec string
	Args        []string
	WorkingDir  string
}

// XDetail is the envelope detail for `x`.
type XDetail struct {
	Summary  string `json:"summary"`
	Package  string `json:"package"`
	ExitCode int    `json:"exit_code"`
}

// X synthesizes a one-off PEP 723 inline script declaring opts.PackageSpec
// as its sole dependency and hands it to the same runner.Run the `run`
// command uses, via runpy.run_module — so X gets environment reuse
// (identical spec re-run hits the same creation hash), dependency
// resolution, and download verification for free instead of
// reimplementing any of it.
//
// The module name run is the normalized distribution name. Real PyPI
// packages sometimes expose a different importable module name than their
// distribution name (e.g. "pillow" installs "PIL"); spec.md's data model
// has no package->module mapping to consult, so this uses the simplifying
// assumption module == normalized distribution name, the same assumption
// internal/envmanager's ModuleFinder doctor check makes for
// E_ENV_MODULE_MISMATCH.
func X(ctx context.Context, deps Deps, opts XOptions) schema.Envelope {
	return run("x", func(collector *schema.Collector) (any, error) {
		if opts.PackageSpec == "" {
			return nil, errUsage("x: a package is required")
		}
		name, constraint, err := pkgver.ParseRequirementString(opts.PackageSpec)
		if err != nil {
			return nil, errUsage("x: %v", err)
		}

		source, err := deps.source("")
		if err != nil {
			return nil, err
		}

		script := fmt.Sprintf(
			"# /// script\n# dependencies = [%q]\n# ///\nimport runpy\nrunpy.run_module(%q, run_name=\"__main__\")\n",
			name+constraint, name,
		)

		result, err := runner.Run(ctx, collector, runner.Dependencies{
			EnvManager: deps.EnvManager,
			Resolver:   source,
			Downloader: deps.Downloader,
		}, runner.Request{
			InlineCode: script,
			InlineMode: true,
			Args:       opts.Args,
			WorkingDir: opts.WorkingDir,
		})
		if err != nil {
			return nil, err
		}

		return XDetail{
			Summary:  "ran " + name,
			Package:  name,
			ExitCode: result.ExitCode,
		}, nil
	})
}
