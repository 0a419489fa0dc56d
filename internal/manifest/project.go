// Package manifest reads and writes a project's pyproject.toml-shaped
// dependency list: the [project.dependencies] array internal/command's
// Add/Remove/Install operate on.
//
// Grounded on original_source/src/project.rs's Project type — discover
// (walk up for pyproject.toml), load/save, add_dependency (dedupe by
// package name, keep the new constraint, sort for determinism),
// remove_dependency, has_dependency — ported to go-toml/v2's generic
// map decoding since Go has no direct counterpart to the Rust toml
// crate's mutable toml::Value tree.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"pybun/internal/pkgver"
)

// Filename is the manifest file project.rs reads and writes.
const Filename = "pyproject.toml"

// Project is a loaded pyproject.toml, kept as a generic table so sections
// this package does not understand (build-system, tool.*, etc.) round-trip
// unchanged across Add/Remove/Save.
type Project struct {
	Path string
	raw  map[string]any
}

// New creates an empty, not-yet-saved Project at path with an empty
// [project] table, mirroring Project::new.
func New(path string) *Project {
	return &Project{
		Path: path,
		raw: map[string]any{
			"project": map[string]any{"dependencies": []any{}},
		},
	}
}

// Load reads and parses path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: reading %s: %w", path, err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("manifest: parsing %s: %w", path, err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	return &Project{Path: path, raw: raw}, nil
}

// Discover walks upward from startDir looking for pyproject.toml, the
// same upward search Project::discover performs.
func Discover(startDir string) (*Project, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, Filename)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return Load(candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, fmt.Errorf("manifest: no %s found above %s", Filename, startDir)
		}
		dir = parent
	}
}

// Root is the directory containing the manifest.
func (p *Project) Root() string {
	dir := filepath.Dir(p.Path)
	if dir == "" {
		return "."
	}
	return dir
}

// Name is the project's declared name, or "" if absent.
func (p *Project) Name() string {
	proj, _ := p.raw["project"].(map[string]any)
	if proj == nil {
		return ""
	}
	name, _ := proj["name"].(string)
	return name
}

// Dependencies returns [project.dependencies] as declared, in file order.
func (p *Project) Dependencies() []string {
	proj, _ := p.raw["project"].(map[string]any)
	if proj == nil {
		return nil
	}
	arr, _ := proj["dependencies"].([]any)
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// HasDependency reports whether name (compared after PyPI-style
// normalization) already appears among the declared dependencies.
func (p *Project) HasDependency(name string) bool {
	target := pkgver.NormalizeName(name)
	for _, dep := range p.Dependencies() {
		depName, _, err := pkgver.ParseRequirementString(dep)
		if err == nil && depName == target {
			return true
		}
	}
	return false
}

// AddDependency inserts dep into [project.dependencies], replacing any
// existing entry for the same package name and re-sorting the array for
// deterministic output — Project::add_dependency's exact behavior.
func (p *Project) AddDependency(dep string) error {
	name, _, err := pkgver.ParseRequirementString(dep)
	if err != nil {
		return fmt.Errorf("manifest: %w", err)
	}

	proj := p.ensureProjectTable()
	deps := p.Dependencies()

	kept := deps[:0:0]
	for _, existing := range deps {
		existingName, _, err := pkgver.ParseRequirementString(existing)
		if err == nil && existingName == name {
			continue
		}
		kept = append(kept, existing)
	}
	kept = append(kept, dep)
	sort.Strings(kept)

	proj["dependencies"] = toAnySlice(kept)
	return nil
}

// RemoveDependency drops every entry whose normalized package name
// matches name, returning whether anything was removed.
func (p *Project) RemoveDependency(name string) bool {
	target := pkgver.NormalizeName(name)
	proj := p.ensureProjectTable()
	deps := p.Dependencies()

	kept := deps[:0:0]
	removed := false
	for _, existing := range deps {
		existingName, _, err := pkgver.ParseRequirementString(existing)
		if err == nil && existingName == target {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	proj["dependencies"] = toAnySlice(kept)
	return removed
}

func (p *Project) ensureProjectTable() map[string]any {
	proj, ok := p.raw["project"].(map[string]any)
	if !ok {
		proj = map[string]any{}
		p.raw["project"] = proj
	}
	return proj
}

// Save writes the manifest back to Path.
func (p *Project) Save() error {
	data, err := toml.Marshal(p.raw)
	if err != nil {
		return fmt.Errorf("manifest: encoding %s: %w", p.Path, err)
	}
	if err := os.WriteFile(p.Path, data, 0o644); err != nil {
		return fmt.Errorf("manifest: writing %s: %w", p.Path, err)
	}
	return nil
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// ExtractPackageName returns the bare package name portion of a
// requirement string, stripping any version predicate — exposed for
// callers outside this package that need the same splitting rule
// project.rs's extract_package_name applies.
func ExtractPackageName(dep string) string {
	name, _, err := pkgver.ParseRequirementString(dep)
	if err != nil {
		return strings.TrimSpace(dep)
	}
	return name
}
