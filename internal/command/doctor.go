package command

import (
	"context"
	"os"

	"pybun/internal/envmanager"
	"pybun/internal/lockfile"
	"pybun/internal/schema"
)

// DoctorOptions mirrors spec.md §6's `doctor`.
type DoctorOptions struct {
	WorkingDir string
	LockPath   string
}

// DoctorDetail is the envelope detail for `doctor`.
type DoctorDetail struct {
	Summary            string   `json:"summary"`
	InterpreterPath    string   `json:"interpreter_path,omitempty"`
	InterpreterSource  string   `json:"interpreter_source,omitempty"`
	CacheDir           string   `json:"cache_dir"`
	MismatchedPackages []string `json:"mismatched_packages,omitempty"`
}

// Doctor runs the non-destructive health checks spec.md §6 groups under
// one command: interpreter discovery, cache root health, and — when a
// lock is present — whether every locked package's top-level module is
// actually importable from the environment that lock would reuse.
//
// Unlike every other command function, Doctor keeps going after a
// sub-check fails: each failure is recorded as a non-fatal diagnostic via
// collector.Diagnose rather than returned as body's error, so one missing
// interpreter doesn't hide an unrelated cache permission problem. run()
// already promotes the envelope's status to error when any diagnostic was
// recorded, even though body itself returns (detail, nil).
func Doctor(ctx context.Context, deps Deps, opts DoctorOptions) schema.Envelope {
	return run("doctor", func(collector *schema.Collector) (any, error) {
		collector.Emit(schema.EventDoctorStart, nil)

		detail := DoctorDetail{CacheDir: deps.Cache.Dir}

		if err := deps.Cache.Ensure(); err != nil {
			collector.Diagnose(schema.Diagnostic{
				Kind:    schema.KindIO,
				Code:    schema.CodeInstallIO,
				Message: "cache root is not usable: " + err.Error(),
				Hint:    "check permissions on " + deps.Cache.Dir + " or set PYBUN_CACHE_DIR",
			})
		}

		interp, err := envmanager.Discover(ctx, opts.WorkingDir)
		interpreterFound := err == nil
		if err != nil {
			if d, ok := err.(schema.Diagnoser); ok {
				collector.Diagnose(d.Diagnostic())
			}
		} else {
			detail.InterpreterPath = interp.Path
			detail.InterpreterSource = string(interp.Source)
		}

		if opts.LockPath != "" && interpreterFound {
			mismatches, err := checkLockedModules(deps, opts.LockPath)
			if err != nil {
				collector.Diagnose(schema.Diagnostic{
					Kind:    schema.KindIO,
					Code:    schema.CodeIOGeneric,
					Message: "reading lock " + opts.LockPath + ": " + err.Error(),
				})
			}
			for _, m := range mismatches {
				collector.Diagnose(m.Diagnostic())
				detail.MismatchedPackages = append(detail.MismatchedPackages, m.Package)
			}
		}

		summary := "all checks passed"
		if collector.HasErrors() {
			summary = "issues found"
		}
		detail.Summary = summary

		collector.Emit(schema.EventDoctorComplete, map[string]any{"issues": len(collector.Diagnostics())})
		return detail, nil
	})
}

// checkLockedModules loads lockPath and checks each locked package's
// importability from the environment its own requirement set would
// reuse (envmanager.CreationHash is deterministic in the requirement
// strings, so this needs no environment materialization of its own).
func checkLockedModules(deps Deps, lockPath string) ([]*envmanager.ModuleMismatchError, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}
	lock, err := lockfile.Decode(data)
	if err != nil {
		return nil, err
	}
	if len(lock.Packages) == 0 {
		return nil, nil
	}

	requirements := make([]string, len(lock.Packages))
	packageToModule := make(map[string]string, len(lock.Packages))
	for i, p := range lock.Packages {
		requirements[i] = p.Name + "==" + p.Version
		packageToModule[p.Name] = p.Name
	}

	hash := envmanager.CreationHash(requirements)
	sitePackages := envmanager.SitePackagesDir(deps.Cache.EnvPath(hash))
	finder := envmanager.NewModuleFinder(sitePackages)
	return finder.CheckInstalled(packageToModule), nil
}
