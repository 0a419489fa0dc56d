package command

import (
	"context"

	"pybun/internal/manifest"
	"pybun/internal/pkgver"
	"pybun/internal/schema"
	"pybun/internal/workspace"
)

// AddOptions mirrors spec.md §6's `add <pkg>`.
type AddOptions struct {
	ManifestPath     string
	Package          string
	IndexPath        string
	LockPath         string
	WorkingDir       string
	WorkspaceMembers []workspace.Member
}

// AddDetail is the envelope detail for `add`.
type AddDetail struct {
	Summary  string   `json:"summary"`
	Package  string   `json:"package"`
	Packages []string `json:"packages"`
	LockPath string   `json:"lock_path"`
}

// Add declares a new dependency in the project manifest, re-resolves the
// full dependency set, and rewrites the lock — the manifest and the lock
// never drift apart after a successful Add.
func Add(ctx context.Context, deps Deps, opts AddOptions) schema.Envelope {
	return run("add", func(collector *schema.Collector) (any, error) {
		if opts.Package == "" {
			return nil, errUsage("add: a package is required")
		}

		proj, err := manifest.Load(opts.ManifestPath)
		if err != nil {
			return nil, errIO("loading manifest %s: %v", opts.ManifestPath, err)
		}
		if err := proj.AddDependency(opts.Package); err != nil {
			return nil, errUsage("add: %v", err)
		}
		if err := proj.Save(); err != nil {
			return nil, errIO("saving manifest %s: %v", opts.ManifestPath, err)
		}

		root := workspace.Manifest{Name: proj.Name(), Dependencies: proj.Dependencies()}
		roots, err := workspace.Aggregate(root, opts.WorkspaceMembers)
		if err != nil {
			return nil, err
		}

		lock, err := resolveAndLock(ctx, deps, collector, opts.IndexPath, opts.WorkingDir, roots)
		if err != nil {
			return nil, err
		}

		lockPath := opts.LockPath
		if lockPath == "" {
			lockPath = defaultLockPath(InstallOptions{ManifestPath: opts.ManifestPath, WorkingDir: opts.WorkingDir})
		}
		if err := writeLock(lockPath, lock); err != nil {
			return nil, err
		}

		name := manifest.ExtractPackageName(opts.Package)
		return AddDetail{
			Summary:  "added " + name,
			Package:  name,
			Packages: lockPackageStrings(lock),
			LockPath: lockPath,
		}, nil
	})
}

// RemoveOptions mirrors spec.md §6's `remove <pkg>`.
type RemoveOptions struct {
	ManifestPath     string
	Package          string
	IndexPath        string
	LockPath         string
	WorkingDir       string
	WorkspaceMembers []workspace.Member
}

// RemoveDetail is the envelope detail for `remove`.
type RemoveDetail struct {
	Summary  string   `json:"summary"`
	Package  string   `json:"package"`
	Packages []string `json:"packages"`
	LockPath string   `json:"lock_path"`
}

// Remove drops a dependency from the project manifest, then re-resolves
// and rewrites the lock exactly as Add does.
func Remove(ctx context.Context, deps Deps, opts RemoveOptions) schema.Envelope {
	return run("remove", func(collector *schema.Collector) (any, error) {
		if opts.Package == "" {
			return nil, errUsage("remove: a package is required")
		}

		proj, err := manifest.Load(opts.ManifestPath)
		if err != nil {
			return nil, errIO("loading manifest %s: %v", opts.ManifestPath, err)
		}
		name := pkgver.NormalizeName(opts.Package)
		if !proj.RemoveDependency(name) {
			return nil, errUsage("remove: %s is not a declared dependency", opts.Package)
		}
		if err := proj.Save(); err != nil {
			return nil, errIO("saving manifest %s: %v", opts.ManifestPath, err)
		}

		root := workspace.Manifest{Name: proj.Name(), Dependencies: proj.Dependencies()}
		roots, err := workspace.Aggregate(root, opts.WorkspaceMembers)
		if err != nil {
			return nil, err
		}

		lock, err := resolveAndLock(ctx, deps, collector, opts.IndexPath, opts.WorkingDir, roots)
		if err != nil {
			return nil, err
		}

		lockPath := opts.LockPath
		if lockPath == "" {
			lockPath = defaultLockPath(InstallOptions{ManifestPath: opts.ManifestPath, WorkingDir: opts.WorkingDir})
		}
		if err := writeLock(lockPath, lock); err != nil {
			return nil, err
		}

		return RemoveDetail{
			Summary:  "removed " + name,
			Package:  name,
			Packages: lockPackageStrings(lock),
			LockPath: lockPath,
		}, nil
	})
}
