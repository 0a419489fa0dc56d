// Command pybun is a minimal flag-based shell over internal/command,
// sufficient to drive the toolchain from a terminal and prove the
// CLI/RPC dispatch seam works. The full flag surface spec.md §6 lists
// (--format, --verbose, --quiet, --profile, per-command flags beyond
// what's wired below) is explicitly out of scope (spec.md §1): this
// shell exists to exercise internal/command and internal/rpc, not to
// replace a real argument parser.
//
// Modeled on samgonzalezalberto-script-weaver/cmd/scriptweaver/main.go's
// shape: parse argv into an invocation, execute, translate the result
// into a process exit code — simplified here to one stdlib "flag"
// FlagSet per subcommand instead of a hand-rolled invocation parser,
// since internal/cli's hand-rolled parser belongs to a different CLI (a
// task-graph runner) this repo does not carry forward.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"

	"pybun/internal/cache"
	"pybun/internal/command"
	"pybun/internal/diagnostic"
	"pybun/internal/download"
	"pybun/internal/envmanager"
	"pybun/internal/index"
	"pybun/internal/profile"
	"pybun/internal/rpc"
	"pybun/internal/runner"
	"pybun/internal/schema"
)

const toolVersion = "0.1.0"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: pybun <install|add|remove|run|x|gc|doctor|mcp|self-update> [flags]")
		return 2
	}

	deps, err := buildDeps()
	if err != nil {
		fmt.Fprintln(os.Stderr, "pybun: ", err)
		return 74
	}

	ctx := context.Background()
	var envelope schema.Envelope

	switch args[0] {
	case "install":
		fs := flag.NewFlagSet("install", flag.ExitOnError)
		manifest := fs.String("manifest", "pyproject.toml", "project manifest path")
		indexPath := fs.String("index", "", "local index fixture path")
		lock := fs.String("lock", "", "lock output path")
		fs.Parse(args[1:])
		envelope = command.Install(ctx, deps, command.InstallOptions{
			ManifestPath: *manifest,
			IndexPath:    *indexPath,
			LockPath:     *lock,
		})

	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		manifest := fs.String("manifest", "pyproject.toml", "project manifest path")
		indexPath := fs.String("index", "", "local index fixture path")
		fs.Parse(args[1:])
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "usage: pybun add <pkg>")
			return 2
		}
		envelope = command.Add(ctx, deps, command.AddOptions{ManifestPath: *manifest, Package: fs.Arg(0), IndexPath: *indexPath})

	case "remove":
		fs := flag.NewFlagSet("remove", flag.ExitOnError)
		manifest := fs.String("manifest", "pyproject.toml", "project manifest path")
		indexPath := fs.String("index", "", "local index fixture path")
		fs.Parse(args[1:])
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "usage: pybun remove <pkg>")
			return 2
		}
		envelope = command.Remove(ctx, deps, command.RemoveOptions{ManifestPath: *manifest, Package: fs.Arg(0), IndexPath: *indexPath})

	case "run":
		fs := flag.NewFlagSet("run", flag.ExitOnError)
		inline := fs.String("c", "", "inline code to run instead of a script path")
		sandbox := fs.Bool("sandbox", false, "deny subprocess/socket syscalls during the run")
		allowNetwork := fs.Bool("allow-network", false, "permit network syscalls under --sandbox")
		fs.Parse(args[1:])
		var inlineSet bool
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "c" {
				inlineSet = true
			}
		})
		opts := command.RunOptions{
			InlineCode: *inline,
			InlineMode: inlineSet,
			Sandbox:    runner.Policy{Active: *sandbox, AllowNetwork: *allowNetwork},
			Args:       fs.Args(),
		}
		if !opts.InlineMode {
			if fs.NArg() < 1 {
				fmt.Fprintln(os.Stderr, "usage: pybun run [-c code] <script> [-- args...]")
				return 2
			}
			opts.ScriptPath = fs.Arg(0)
			opts.Args = fs.Args()[1:]
		}
		envelope = command.Run(ctx, deps, opts)

	case "x":
		fs := flag.NewFlagSet("x", flag.ExitOnError)
		fs.Parse(args[1:])
		if fs.NArg() < 1 {
			fmt.Fprintln(os.Stderr, "usage: pybun x <pkg>[==ver] [-- args...]")
			return 2
		}
		envelope = command.X(ctx, deps, command.XOptions{PackageSpec: fs.Arg(0), Args: fs.Args()[1:]})

	case "gc":
		fs := flag.NewFlagSet("gc", flag.ExitOnError)
		maxSize := fs.Int64("max-size", command.DefaultGCBudgetBytes, "cache size budget in bytes")
		dryRun := fs.Bool("dry-run", false, "report what would be evicted without deleting")
		fs.Parse(args[1:])
		envelope = command.GC(ctx, deps, command.GCOptions{MaxSizeBytes: *maxSize, DryRun: *dryRun})

	case "doctor":
		fs := flag.NewFlagSet("doctor", flag.ExitOnError)
		lock := fs.String("lock", "", "lock path to check installed modules against")
		fs.Parse(args[1:])
		wd, _ := os.Getwd()
		envelope = command.Doctor(ctx, deps, command.DoctorOptions{WorkingDir: wd, LockPath: *lock})

	case "mcp":
		fs := flag.NewFlagSet("mcp", flag.ExitOnError)
		stdio := fs.Bool("stdio", false, "serve over stdin/stdout")
		fs.Parse(args[1:])
		if !*stdio {
			fmt.Fprintln(os.Stderr, "usage: pybun mcp serve --stdio")
			return 2
		}
		server := rpc.NewServer(deps, "pybun", toolVersion)
		envelope = command.McpServe(ctx, server, command.McpServeOptions{In: os.Stdin, Out: os.Stdout})

	case "self-update":
		fs := flag.NewFlagSet("self-update", flag.ExitOnError)
		manifestPath := fs.String("manifest", "", "release manifest path or URL")
		dryRun := fs.Bool("dry-run", false, "report the selected asset without downloading")
		fs.Parse(args[1:])
		envelope = command.SelfUpdate(ctx, deps, command.SelfUpdateOptions{ManifestPath: *manifestPath, DryRun: *dryRun})

	default:
		fmt.Fprintln(os.Stderr, "pybun: unknown command", args[0])
		return 2
	}

	encoded, err := json.Marshal(envelope)
	if err != nil {
		fmt.Fprintln(os.Stderr, "pybun: encoding envelope:", err)
		return 1
	}
	fmt.Println(string(encoded))

	if len(envelope.Diagnostics) > 0 {
		return diagnostic.ExitCode(envelope.Diagnostics[0])
	}
	if envelope.Status == schema.StatusCancelled {
		return 1
	}
	return 0
}

// buildDeps wires every collaborator command.Deps bundles. It opens one
// badger.DB and hands it to the index client's revalidation store only;
// the environment manager gets no discovery store, so interpreter
// discovery is not cached between invocations.
func buildDeps() (command.Deps, error) {
	root, err := cache.DefaultRoot()
	if err != nil {
		return command.Deps{}, err
	}
	if err := root.Ensure(); err != nil {
		return command.Deps{}, err
	}

	db, err := badger.Open(badger.DefaultOptions(filepath.Join(root.Dir, "metadata.badger")).WithLogger(nil))
	if err != nil {
		return command.Deps{}, fmt.Errorf("opening metadata store: %w", err)
	}

	profileName := profile.DetectName()
	profileCfg, err := profile.Load(filepath.Join(root.Dir, "profile.yaml"), profileName)
	if err != nil {
		return command.Deps{}, err
	}

	offline := os.Getenv("PYBUN_OFFLINE") != ""
	idxStore := index.NewStore(db)
	baseURL := os.Getenv("PYBUN_INDEX_URL")
	if baseURL == "" {
		baseURL = "https://pypi.org/simple"
	}
	idxClient := index.NewClient(baseURL, http.DefaultClient, idxStore, offline)

	downloader := download.New(root, nil)
	envManager := envmanager.NewManager(root)

	return command.Deps{
		Cache:       root,
		Index:       idxClient,
		Downloader:  downloader,
		EnvManager:  envManager,
		Profile:     profileCfg,
		ToolVersion: toolVersion,
	}, nil
}
