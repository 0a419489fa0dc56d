package index

import (
	"encoding/json"
	"fmt"
	"os"

	"pybun/internal/pkgver"
)

// fixtureDoc is the on-disk shape of a local index fixture: every package
// the fixture knows about, fully expanded (no lazy per-version fetch,
// since there is nothing to fetch — it is already all on disk). spec.md
// §6 requires the index client to "accept both a local JSON fixture (for
// tests and offline) and the public index's JSON form"; this is the
// fixture form, the one the literal end-to-end scenarios in spec.md §8
// drive with `--index fixtures/index.json`.
type fixtureDoc struct {
	Packages map[string]fixturePackage `json:"packages"`
}

type fixturePackage struct {
	Versions map[string]VersionMetadata `json:"versions"`
}

// LoadFixture parses a local index fixture file into a Snapshot, ready to
// back a FrozenSource. Every version in the fixture is pre-populated into
// Snapshot.Versions, not lazily — a fixture file has no network to defer
// to.
func LoadFixture(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, errMalformed(path, err)
	}

	var doc fixtureDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, errMalformed(path, err)
	}

	snap := NewSnapshot()
	for rawName, pkg := range doc.Packages {
		name := pkgver.NormalizeName(rawName)
		versions := make(map[string]VersionMetadata, len(pkg.Versions))
		for v, vm := range pkg.Versions {
			versions[v] = vm
			snap.RecordVersion(name, v, vm)
		}
		snap.Record(name, PackageMetadata{Name: name, Versions: versions})
	}
	return snap, nil
}

// FixtureSource builds a FrozenSource directly from a fixture file path,
// the convenience entry point internal/command's Install uses for
// `--index <path>`.
func FixtureSource(path string) (*FrozenSource, error) {
	snap, err := LoadFixture(path)
	if err != nil {
		return nil, fmt.Errorf("index: loading fixture %s: %w", path, err)
	}
	return &FrozenSource{Snapshot: snap}, nil
}
