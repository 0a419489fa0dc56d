package command

import (
	"context"

	"pybun/internal/runner"
	"pybun/internal/schema"
)

// RunOptions mirrors spec.md §6's
// `run [-c] <script-or-code> [-- args…] [--sandbox [--allow-network]]`.
type RunOptions struct {
	ScriptPath string
	InlineCode string
	InlineMode bool
	Args       []string
	WorkingDir string
	Sandbox    runner.Policy
	// Replace requests process-image replacement on platforms that
	// support it (spec.md §4.6 item 4). See runner.Request.Replace for
	// why this is opt-in rather than the unconditional default.
	Replace bool
}

// RunDetail is the envelope detail for `run`.
type RunDetail struct {
	Summary  string `json:"summary"`
	ExitCode int    `json:"exit_code"`
}

// Run executes a script or inline code through the Script Runner
// (spec.md §4.6), reusing or materializing an isolated environment keyed
// by the script's inline-metadata dependency hash.
func Run(ctx context.Context, deps Deps, opts RunOptions) schema.Envelope {
	return run("run", func(collector *schema.Collector) (any, error) {
		source, err := deps.source("")
		if err != nil {
			return nil, err
		}

		result, err := runner.Run(ctx, collector, runner.Dependencies{
			EnvManager: deps.EnvManager,
			Resolver:   source,
			Downloader: deps.Downloader,
		}, runner.Request{
			ScriptPath: opts.ScriptPath,
			InlineCode: opts.InlineCode,
			InlineMode: opts.InlineMode,
			Args:       opts.Args,
			WorkingDir: opts.WorkingDir,
			Sandbox:    opts.Sandbox,
			Replace:    opts.Replace,
		})
		if err != nil {
			return nil, err
		}

		return RunDetail{Summary: result.Summary, ExitCode: result.ExitCode}, nil
	})
}
