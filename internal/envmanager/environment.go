package envmanager

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"pybun/internal/cache"
	"pybun/internal/index"
)

// CreationHash computes the deterministic identity spec.md §4.5 defines
// ("hash(sorted(requirements_as_strings))"), length-prefixing each
// requirement the way samgonzalezalberto-script-weaver's
// core.TaskHasher.ComputeHash length-prefixes its own sorted components
// to prevent ambiguity between adjacent fields.
func CreationHash(requirements []string) string {
	sorted := make([]string, len(requirements))
	copy(sorted, requirements)
	sort.Strings(sorted)

	h := sha256.New()
	writeField := func(data []byte) {
		var length [8]byte
		n := uint64(len(data))
		for i := 7; i >= 0; i-- {
			length[i] = byte(n)
			n >>= 8
		}
		h.Write(length[:])
		h.Write(data)
	}
	for _, r := range sorted {
		writeField([]byte(r))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Deps is the small on-disk record spec.md §4.5 asks for alongside each
// environment: `{deps, last_used}`.
type Deps struct {
	Requirements []string `json:"requirements"`
	LastUsed     int64    `json:"last_used"`
}

// Environment is a materialized isolated environment rooted under the
// cache's envs/ subtree, keyed by CreationHash.
type Environment struct {
	Root            string
	InterpreterPath string
	CreationHash    string
}

// SitePackages is where this environment's distributions are unpacked —
// the one spelling of the "site-packages" directory name every
// Ensure/Lookup caller and internal/command/doctor.go's checkLockedModules
// share.
func (e Environment) SitePackages() string {
	return SitePackagesDir(e.Root)
}

// SitePackagesDir returns the site-packages directory inside an
// environment rooted at envRoot.
func SitePackagesDir(envRoot string) string {
	return filepath.Join(envRoot, "site-packages")
}

// Manager creates and reuses isolated environments.
type Manager struct {
	Cache cache.Root
}

func NewManager(root cache.Root) *Manager {
	return &Manager{Cache: root}
}

// Lookup reports whether an environment already exists for requirements,
// without creating or installing anything — the cheap half of Ensure,
// callable before resolution and download even run so a cache hit never
// pays for either (spec.md's concrete scenario 5: "second invocation
// reuses the environment").
func (m *Manager) Lookup(interp Interpreter, requirements []string) (Environment, bool, error) {
	hash := CreationHash(requirements)
	root := m.Cache.EnvPath(hash)
	depsPath := filepath.Join(root, "deps.json")

	if _, err := os.Stat(depsPath); err != nil {
		if os.IsNotExist(err) {
			return Environment{}, false, nil
		}
		return Environment{}, false, fmt.Errorf("envmanager: checking environment %s: %w", hash, err)
	}
	if err := m.touchLastUsed(depsPath); err != nil {
		return Environment{}, false, err
	}
	return Environment{Root: root, InterpreterPath: interp.Path, CreationHash: hash}, true, nil
}

// Ensure returns the environment for the given sorted requirement set,
// creating it if no environment with that creation hash exists yet
// (spec.md §4.5: "Reuse is keyed by hash(...); created on miss"). On a
// miss, dists' cached blobs are unzipped into the new environment's
// site-packages before deps.json is written, so a crash or a failed
// unpack during materialization never leaves behind a deps.json that
// would make a later Lookup report an environment as ready when its
// site-packages is actually empty or partial.
func (m *Manager) Ensure(interp Interpreter, requirements []string, dists []index.Distribution) (Environment, bool, error) {
	if env, ok, err := m.Lookup(interp, requirements); err != nil || ok {
		return env, ok, err
	}

	hash := CreationHash(requirements)
	root := m.Cache.EnvPath(hash)

	if err := installDistributions(m.Cache, SitePackagesDir(root), dists); err != nil {
		return Environment{}, false, err
	}

	depsPath := filepath.Join(root, "deps.json")
	deps := Deps{Requirements: append([]string(nil), requirements...), LastUsed: nowUnix()}
	sort.Strings(deps.Requirements)
	if err := writeJSONAtomic(depsPath, deps); err != nil {
		return Environment{}, false, fmt.Errorf("envmanager: writing deps record: %w", err)
	}
	return Environment{Root: root, InterpreterPath: interp.Path, CreationHash: hash}, false, nil
}

// touchLastUsed updates deps.json's last_used field, skipping the write
// when the stored value is within LastUsedRateLimit — the same
// rate-limiting rule Store.Touch applies to the badger-backed discovery
// record, applied here to the per-environment file.
func (m *Manager) touchLastUsed(depsPath string) error {
	data, err := os.ReadFile(depsPath)
	if err != nil {
		return err
	}
	var deps Deps
	if err := json.Unmarshal(data, &deps); err != nil {
		return err
	}
	now := nowUnix()
	if time.Duration(now-deps.LastUsed)*time.Second < LastUsedRateLimit {
		return nil
	}
	deps.LastUsed = now
	return writeJSONAtomic(depsPath, deps)
}

func nowUnix() int64 { return time.Now().Unix() }

func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
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
		return err
	}
	_ = tmp.Sync()
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	committed = true
	return nil
}
