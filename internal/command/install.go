package command

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"pybun/internal/download"
	"pybun/internal/envmanager"
	"pybun/internal/index"
	"pybun/internal/lockfile"
	"pybun/internal/pkgver"
	"pybun/internal/resolver"
	"pybun/internal/schema"
	"pybun/internal/workspace"
)

// InstallOptions mirrors spec.md §6's `install [--require <req>…]
// [--index <path>] [--lock <path>]`, plus the workspace members a root
// manifest may declare (spec.md §4.9).
type InstallOptions struct {
	ManifestPath     string
	Requires         []string
	IndexPath        string
	LockPath         string
	WorkingDir       string
	WorkspaceMembers []workspace.Member
}

// InstallDetail is the envelope's command-specific detail for `install`.
type InstallDetail struct {
	Summary  string   `json:"summary"`
	Packages []string `json:"packages"`
	LockPath string   `json:"lock_path"`
}

// Install resolves opts' declared dependencies, downloads the selected
// distributions into the content-addressed cache, and writes a
// deterministic lock (spec.md §4.4). Re-running Install with an
// unchanged manifest and index produces a byte-identical lock (spec.md
// §8's round-trip property) because resolveAndLock's inputs digest and
// the resolver itself are both deterministic.
func Install(ctx context.Context, deps Deps, opts InstallOptions) schema.Envelope {
	return run("install", func(collector *schema.Collector) (any, error) {
		roots, err := installRoots(opts)
		if err != nil {
			return nil, err
		}

		lock, err := resolveAndLock(ctx, deps, collector, opts.IndexPath, opts.WorkingDir, roots)
		if err != nil {
			return nil, err
		}

		lockPath := opts.LockPath
		if lockPath == "" {
			lockPath = defaultLockPath(opts)
		}
		if err := writeLock(lockPath, lock); err != nil {
			return nil, err
		}

		if deps.Profile.GCAfterInstall {
			// Best-effort: an opportunistic GC pass after install must
			// never turn a successful install into a failed command.
			_, _ = gcOpportunistic(deps)
		}

		names := lockPackageStrings(lock)
		return InstallDetail{
			Summary:  "resolved and installed " + fmt.Sprint(len(names)) + " package(s)",
			Packages: names,
			LockPath: lockPath,
		}, nil
	})
}

// installRoots assembles the root requirements Install resolves against:
// opts.Requires always apply; a manifest (and its workspace members, if
// any) contribute the rest, unioned via internal/workspace exactly as
// spec.md §4.9 describes.
func installRoots(opts InstallOptions) ([]pkgver.Requirement, error) {
	var roots []pkgver.Requirement
	for _, raw := range opts.Requires {
		name, constraint, err := pkgver.ParseRequirementString(raw)
		if err != nil {
			return nil, errUsage("parsing --require %q: %v", raw, err)
		}
		roots = append(roots, pkgver.NewRootRequirement(name, constraint))
	}

	if opts.ManifestPath == "" {
		return roots, nil
	}

	rootManifest, memberReqs, err := loadManifestTree(opts.ManifestPath, opts.WorkspaceMembers)
	if err != nil {
		return nil, err
	}
	_ = rootManifest
	roots = append(roots, memberReqs...)
	return roots, nil
}

// resolveAndLock runs the resolver against source and the downloader
// against its result, emitting ResolveStart/Complete and
// InstallStart/Complete in the order spec.md §4.6 pins, materializes the
// resolved set into an environment keyed by the locked package==version
// strings (so a `run` of a script declaring the same pinned set reuses
// the exact environment this install produced instead of re-resolving
// its own hash), and returns the resulting deterministic Lock. Shared by
// Install, Add, and Remove, all three of which must leave a consistent
// lock — and now a consistent, importable environment — behind.
func resolveAndLock(ctx context.Context, deps Deps, collector *schema.Collector, indexPath, workingDir string, roots []pkgver.Requirement) (lockfile.Lock, error) {
	source, err := deps.source(indexPath)
	if err != nil {
		return lockfile.Lock{}, err
	}

	rootStrings := make([]string, 0, len(roots))
	for _, r := range roots {
		rootStrings = append(rootStrings, r.Name+r.Constraint)
	}

	collector.Emit(schema.EventResolveStart, map[string]any{"roots": rootStrings})
	resolved, err := resolver.Resolve(ctx, roots, source)
	if err != nil {
		return lockfile.Lock{}, err
	}
	collector.Emit(schema.EventResolveComplete, map[string]any{"packages": resolved.Strings()})

	collector.Emit(schema.EventInstallStart, nil)
	if deps.Downloader != nil && len(resolved) > 0 {
		downloadReqs := make([]download.Request, len(resolved))
		for i, entry := range resolved {
			downloadReqs[i] = download.Request{Name: entry.Name, Version: entry.Version, Distribution: entry.Distribution}
		}
		results, err := deps.Downloader.FetchAll(ctx, downloadReqs)
		if err != nil {
			return lockfile.Lock{}, err
		}
		if err := materializeResolvedEnvironment(ctx, deps, workingDir, resolved, results); err != nil {
			return lockfile.Lock{}, err
		}
	}
	collector.Emit(schema.EventInstallComplete, map[string]any{"count": len(resolved)})

	lock := lockfile.Lock{
		SchemaVersion:        lockfile.SchemaVersion,
		PlatformTags:         []string{platformTag()},
		Packages:             make([]lockfile.Package, len(resolved)),
		ResolverInputsDigest: lockfile.InputsDigest(rootStrings),
	}
	for i, entry := range resolved {
		lock.Packages[i] = lockfile.Package{
			Name:      entry.Name,
			Version:   entry.Version,
			Wheel:     entry.Distribution.URL,
			SHA256:    entry.Distribution.SHA256,
			Signature: entry.Distribution.Signature,
		}
	}
	lock.Canonicalize()
	return lock, nil
}

// materializeResolvedEnvironment unpacks resolved's distributions into the
// environment keyed by their pinned "name==version" strings — the same
// hash checkLockedModules recomputes from a written lock's packages — so
// `doctor --lock` run immediately after a successful install finds a
// populated site-packages rather than reporting every package as
// E_ENV_MODULE_MISMATCH against an environment nothing ever created.
func materializeResolvedEnvironment(ctx context.Context, deps Deps, workingDir string, resolved resolver.ResolvedSet, results []download.Result) error {
	if deps.EnvManager == nil {
		return nil
	}
	interp, err := envmanager.Discover(ctx, workingDir)
	if err != nil {
		// No interpreter to materialize an environment for yet: install
		// still produced a valid, reproducible lock, so this is not fatal
		// to Install itself — `run`/`doctor` will surface the missing
		// interpreter when they need one.
		return nil
	}

	requirements := make([]string, len(resolved))
	for i, entry := range resolved {
		requirements[i] = entry.Name + "==" + entry.Version
	}
	dists := make([]index.Distribution, len(results))
	for i, r := range results {
		dists[i] = r.Distribution
	}

	_, _, err = deps.EnvManager.Ensure(interp, requirements, dists)
	return err
}

// lockPackageStrings renders each locked package as "name==version", in
// the lock's own (already-canonicalized, name-sorted) order, for envelope
// details across install/add/remove.
func lockPackageStrings(lock lockfile.Lock) []string {
	out := make([]string, len(lock.Packages))
	for i, p := range lock.Packages {
		out[i] = p.Name + "==" + p.Version
	}
	return out
}

func platformTag() string {
	return runtime.GOOS + "-" + runtime.GOARCH
}

func defaultLockPath(opts InstallOptions) string {
	dir := opts.WorkingDir
	if opts.ManifestPath != "" {
		dir = filepath.Dir(opts.ManifestPath)
	}
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "pybun.lock")
}

func writeLock(path string, lock lockfile.Lock) error {
	data, err := lockfile.Encode(lock)
	if err != nil {
		return errIO("encoding lock: %v", err)
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errIO("creating lock directory %s: %v", dir, err)
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return errIO("creating temp lock file: %v", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return errIO("writing lock: %v", err)
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return errIO("closing lock temp file: %v", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errIO("renaming lock into place: %v", err)
	}
	committed = true
	return nil
}
