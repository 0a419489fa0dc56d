package runner

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"pybun/internal/download"
	"pybun/internal/envmanager"
	"pybun/internal/index"
	"pybun/internal/pkgver"
	"pybun/internal/resolver"
	"pybun/internal/schema"
)

// Request describes one invocation of the runner: either a script path or
// inline code, never both.
type Request struct {
	ScriptPath string
	InlineCode string
	// InlineMode distinguishes "-c ''" (run an empty program, exit 0)
	// from "no script and no -c" (E_SCRIPT_NOT_FOUND): InlineCode alone
	// cannot carry that distinction once it's the empty string.
	InlineMode bool
	Args       []string
	WorkingDir string
	Sandbox    Policy

	// Replace selects process-image replacement on platforms that support
	// it (spec.md §4.6 item 4). It is mutually exclusive with ever seeing
	// RunExit/CommandEnd events or a final envelope from this process: a
	// successful exec(2) never returns. Callers that must return a
	// structured result — the RPC server, `doctor`, any --format=json
	// invocation — set this false and get ordinary spawn-and-wait.
	Replace bool
}

// Result is the runner's outcome for a completed (non-replaced) run.
type Result struct {
	ExitCode int
	Summary  string
}

// Dependencies collects the runner's collaborators. EnvManager and
// Resolver may be nil when the script declares no inline dependencies.
type Dependencies struct {
	EnvManager *envmanager.Manager
	Resolver   resolver.Source
	Downloader *download.Downloader
}

// Run executes req end to end: read script, parse preamble, resolve and
// materialize an environment on a dependency miss, hand off to the
// interpreter, and report the outcome. Events are emitted onto collector
// in the order spec.md §4.6 pins: CommandStart is the caller's
// responsibility (it precedes script detection); Run itself emits
// ResolveStart/Complete, InstallStart/Complete, RunStart, and — only on
// the spawn-and-wait path — RunExit.
func Run(ctx context.Context, collector *schema.Collector, deps Dependencies, req Request) (Result, error) {
	content, scriptPath, summary, err := loadSource(req)
	if err != nil {
		return Result{}, err
	}

	interp, err := envmanager.Discover(ctx, req.WorkingDir)
	if err != nil {
		return Result{}, err
	}

	meta, err := ParseMetadata(content)
	if err != nil {
		return Result{}, err
	}

	var sitePackages string
	if meta != nil && len(meta.Dependencies) > 0 {
		sitePackages, err = materializeEnvironment(ctx, collector, deps, interp, meta.Dependencies)
		if err != nil {
			return Result{}, err
		}
	}

	argv := buildArgv(interp.Path, scriptPath, req)

	childEnv := os.Environ()
	if sitePackages != "" {
		childEnv = setEnv(childEnv, "PYTHONPATH", prependPath(sitePackages, os.Getenv("PYTHONPATH")))
	}
	if req.Sandbox.Active {
		sandboxDir, err := os.MkdirTemp("", "pybun-sandbox-")
		if err != nil {
			return Result{}, err
		}
		defer os.RemoveAll(sandboxDir)
		extra, err := applySandbox(sandboxDir, req.Sandbox, getEnv(childEnv, "PYTHONPATH"))
		if err != nil {
			return Result{}, err
		}
		for _, kv := range extra {
			if key, value, ok := splitEnv(kv); ok {
				childEnv = setEnv(childEnv, key, value)
			}
		}
	}

	collector.Emit(schema.EventRunStart, map[string]any{"interpreter": interp.Path})

	if req.Replace && canReplaceProcess {
		if err := execReplace(interp.Path, argv, childEnv); err != nil {
			return Result{}, err
		}
		// Unreachable on a successful exec: the process image is gone.
		return Result{}, nil
	}

	exitCode, err := spawnAndWait(ctx, interp.Path, argv[1:], req.WorkingDir, childEnv)
	if err != nil {
		return Result{}, err
	}

	collector.Emit(schema.EventRunExit, map[string]any{"code": exitCode})
	return Result{ExitCode: exitCode, Summary: summary}, nil
}

// loadSource returns the script's text content, the path to hand to the
// interpreter (empty for inline code), and the envelope detail summary.
func loadSource(req Request) (content string, scriptPath string, summary string, err error) {
	if req.InlineMode {
		return req.InlineCode, "", "executed inline code", nil
	}
	if req.ScriptPath == "" {
		return "", "", "", errScriptNotFound("")
	}
	data, readErr := os.ReadFile(req.ScriptPath)
	if readErr != nil {
		return "", "", "", errScriptNotFound(req.ScriptPath)
	}
	return string(data), req.ScriptPath, "executed script", nil
}

// buildArgv renders the interpreter invocation: argv[0] is always the
// interpreter path, matching the shape syscall.Exec and exec.Command both
// expect.
func buildArgv(interpPath, scriptPath string, req Request) []string {
	argv := []string{interpPath}
	if scriptPath == "" {
		argv = append(argv, "-c", req.InlineCode)
	} else {
		argv = append(argv, scriptPath)
	}
	argv = append(argv, req.Args...)
	return argv
}

// spawnAndWait runs the interpreter as a child process and waits for it,
// returning its exit code. Forwarded cancellation terminates the process
// (spec.md §5's cancellation model); the process group is not used here
// because, unlike the teacher's deterministic task Executor, a user script
// may legitimately spawn its own children that the sandbox — not this
// function — is responsible for policing.
func spawnAndWait(ctx context.Context, interpPath string, args []string, workingDir string, env []string) (int, error) {
	cmd := exec.CommandContext(ctx, interpPath, args...)
	cmd.Dir = workingDir
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return 0, fmt.Errorf("failed to execute interpreter: %w", err)
}

// materializeEnvironment returns the site-packages directory the spawned
// interpreter should see for declared, resolving and downloading
// dependencies and unpacking them into a fresh environment only on a
// cache miss — emitting ResolveStart/Complete and InstallStart/Complete
// only then, per spec.md's concrete scenario 5 ("second invocation
// reuses the environment (no install events emitted)").
//
// The existence check (Lookup) runs before resolution, not after: it
// needs only the sorted requirement strings, so a cache hit costs
// nothing beyond a stat. Only a miss resolves against the index,
// downloads the selected distributions, and finally calls Ensure with
// their distribution info so it can unzip the cached blobs into
// site-packages — Ensure cannot unpack what it has not been told to
// fetch, so this ordering is load-bearing, not stylistic.
func materializeEnvironment(ctx context.Context, collector *schema.Collector, deps Dependencies, interp envmanager.Interpreter, declared []string) (string, error) {
	if deps.EnvManager == nil {
		return "", nil
	}

	if env, ok, err := deps.EnvManager.Lookup(interp, declared); err != nil {
		return "", err
	} else if ok {
		return env.SitePackages(), nil
	}

	collector.Emit(schema.EventResolveStart, nil)
	roots := make([]pkgver.Requirement, 0, len(declared))
	for _, raw := range declared {
		name, constraint, err := pkgver.ParseRequirementString(raw)
		if err != nil {
			return "", err
		}
		roots = append(roots, pkgver.NewRootRequirement(name, constraint))
	}
	resolved, err := resolver.Resolve(ctx, roots, deps.Resolver)
	if err != nil {
		return "", err
	}
	collector.Emit(schema.EventResolveComplete, map[string]any{"packages": resolved.Strings()})

	var dists []index.Distribution
	if deps.Downloader != nil {
		collector.Emit(schema.EventInstallStart, nil)
		downloadReqs := make([]download.Request, len(resolved))
		for i, entry := range resolved {
			downloadReqs[i] = download.Request{
				Name:         entry.Name,
				Version:      entry.Version,
				Distribution: entry.Distribution,
			}
		}
		results, err := deps.Downloader.FetchAll(ctx, downloadReqs)
		if err != nil {
			return "", err
		}
		dists = make([]index.Distribution, len(results))
		for i, r := range results {
			dists[i] = r.Distribution
		}
		collector.Emit(schema.EventInstallComplete, map[string]any{"count": len(downloadReqs)})
	}

	env, _, err := deps.EnvManager.Ensure(interp, declared, dists)
	if err != nil {
		return "", err
	}
	return env.SitePackages(), nil
}
