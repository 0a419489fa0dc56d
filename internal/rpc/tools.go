package rpc

import (
	"context"
	"encoding/json"

	"pybun/internal/command"
	"pybun/internal/runner"
	"pybun/internal/schema"
)

// Tool describes one callable RPC tool for tools/list.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// toolDefs is the fixed tool catalog spec.md §4.8 names: resolve, install,
// run, gc, doctor.
var toolDefs = []Tool{
	{Name: "resolve", Description: "solve a requirement set against an index without installing"},
	{Name: "install", Description: "resolve, download, and lock a project's dependencies"},
	{Name: "run", Description: "run a script or inline code in a dependency-scoped environment"},
	{Name: "gc", Description: "evict least-recently-used cache entries"},
	{Name: "doctor", Description: "run non-destructive environment and cache health checks"},
}

// callToolParams is tools/call's params shape.
type callToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// resolveArgs/installArgs/runArgs/gcArgs/doctorArgs are each tool's
// argument shape, with JSON tags matching the RPC-facing field names
// spec.md §6's flag surface implies (snake_case, matching the envelope's
// own convention) rather than the Go-internal Options structs'
// CamelCase field names.
type resolveArgs struct {
	Requires  []string `json:"requires"`
	IndexPath string   `json:"index_path"`
}

type installArgs struct {
	ManifestPath string   `json:"manifest_path"`
	Requires     []string `json:"requires"`
	IndexPath    string   `json:"index_path"`
	LockPath     string   `json:"lock_path"`
	WorkingDir   string   `json:"working_dir"`
}

type runArgs struct {
	ScriptPath   string   `json:"script_path"`
	InlineCode   string   `json:"inline_code"`
	Inline       bool     `json:"inline"`
	Args         []string `json:"args"`
	WorkingDir   string   `json:"working_dir"`
	Sandbox      bool     `json:"sandbox"`
	AllowNetwork bool     `json:"allow_network"`
}

type gcArgs struct {
	MaxSizeBytes int64 `json:"max_size_bytes"`
	DryRun       bool  `json:"dry_run"`
}

type doctorArgs struct {
	WorkingDir string `json:"working_dir"`
	LockPath   string `json:"lock_path"`
}

// callTool dispatches a decoded tools/call request into the matching
// internal/command function, exactly as SPEC_FULL.md §6.8 requires: "every
// tool call dispatches into the same internal/command functions the thin
// CLI shell would call."
func callTool(ctx context.Context, deps command.Deps, params callToolParams) (schema.Envelope, error) {
	switch params.Name {
	case "resolve":
		var a resolveArgs
		if err := unmarshalArgs(params.Arguments, &a); err != nil {
			return schema.Envelope{}, err
		}
		return command.Resolve(ctx, deps, command.ResolveOptions{Requires: a.Requires, IndexPath: a.IndexPath}), nil

	case "install":
		var a installArgs
		if err := unmarshalArgs(params.Arguments, &a); err != nil {
			return schema.Envelope{}, err
		}
		return command.Install(ctx, deps, command.InstallOptions{
			ManifestPath: a.ManifestPath,
			Requires:     a.Requires,
			IndexPath:    a.IndexPath,
			LockPath:     a.LockPath,
			WorkingDir:   a.WorkingDir,
		}), nil

	case "run":
		var a runArgs
		if err := unmarshalArgs(params.Arguments, &a); err != nil {
			return schema.Envelope{}, err
		}
		return command.Run(ctx, deps, command.RunOptions{
			ScriptPath: a.ScriptPath,
			InlineCode: a.InlineCode,
			InlineMode: a.Inline,
			Args:       a.Args,
			WorkingDir: a.WorkingDir,
			Sandbox:    runner.Policy{Active: a.Sandbox, AllowNetwork: a.AllowNetwork},
		}), nil

	case "gc":
		var a gcArgs
		if err := unmarshalArgs(params.Arguments, &a); err != nil {
			return schema.Envelope{}, err
		}
		return command.GC(ctx, deps, command.GCOptions{MaxSizeBytes: a.MaxSizeBytes, DryRun: a.DryRun}), nil

	case "doctor":
		var a doctorArgs
		if err := unmarshalArgs(params.Arguments, &a); err != nil {
			return schema.Envelope{}, err
		}
		return command.Doctor(ctx, deps, command.DoctorOptions{WorkingDir: a.WorkingDir, LockPath: a.LockPath}), nil

	default:
		return schema.Envelope{}, &unknownToolError{name: params.Name}
	}
}

func unmarshalArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

type unknownToolError struct{ name string }

func (e *unknownToolError) Error() string { return "rpc: unknown tool " + e.name }
