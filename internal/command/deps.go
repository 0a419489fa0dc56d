// Package command is the seam spec.md §6 calls for: one function per CLI
// command (Install, Add, Remove, Run, X, GC, Doctor, McpServe, SelfUpdate),
// each taking a typed options struct and returning a schema.Envelope. Both
// a CLI shell and the RPC server (internal/rpc) call into these functions
// rather than duplicating command logic on either side.
package command

import (
	"time"

	"github.com/google/uuid"

	"pybun/internal/cache"
	"pybun/internal/diagnostic"
	"pybun/internal/download"
	"pybun/internal/envmanager"
	"pybun/internal/index"
	"pybun/internal/profile"
	"pybun/internal/resolver"
	"pybun/internal/schema"
)

// Deps bundles every collaborator a command function needs. Index is the
// resolver.Source the command resolves against when an option does not
// override it with a local fixture (spec.md §6's `--index <path>`).
type Deps struct {
	Cache       cache.Root
	Index       resolver.Source
	Downloader  *download.Downloader
	EnvManager  *envmanager.Manager
	Profile     profile.Config
	ToolVersion string
}

// source picks the resolver.Source a command should solve against:
// indexPath, if set, always wins over Deps.Index (spec.md's concrete
// scenario 1 drives `install` against a local fixture file instead of
// whatever live index the process was otherwise configured with).
func (d Deps) source(indexPath string) (resolver.Source, error) {
	if indexPath != "" {
		return loadFixtureSource(indexPath)
	}
	return d.Index, nil
}

// loadFixtureSource adapts index.FixtureSource into the resolver.Source
// interface's shape for callers in this package.
func loadFixtureSource(path string) (resolver.Source, error) {
	return index.FixtureSource(path)
}

// run is the shared envelope-building skeleton every command function
// uses: allocate a trace_id and Collector, emit CommandStart/CommandEnd,
// run body, and translate any error into the envelope's diagnostics[] via
// internal/diagnostic — generalized from the teacher's single top-level
// CLI entrypoint (allocate one *trace.Recorder / exit-code mapping per
// invocation) to "one helper every command function shares" rather than
// duplicating the skeleton nine times.
func run(name string, body func(collector *schema.Collector) (any, error)) schema.Envelope {
	start := time.Now()
	collector := schema.NewCollector()
	traceID := uuid.New().String()

	collector.Emit(schema.EventCommandStart, map[string]any{"command": name})

	detail, err := body(collector)

	status := schema.StatusOK
	if err != nil {
		diagnostic.Record(collector, err)
		status = schema.StatusError
	} else if collector.HasErrors() {
		// A command (doctor, in practice) can record non-fatal diagnostics
		// along the way without returning an error from body — the
		// envelope still has to reflect that something was wrong.
		status = schema.StatusError
	}

	collector.Emit(schema.EventCommandEnd, map[string]any{"command": name})
	return collector.Build(name, status, detail, traceID, start)
}
