package index

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
)

// Snapshot pins a frozen view of whatever metadata a resolve actually
// touched, so "two resolver runs over the same inputs and index snapshot
// produce identical ResolvedSets" (spec.md §8) is checkable against a
// fixed input rather than a live, possibly-moving index.
//
// The distillation's source material documents test-output snapshotting
// (original_source/src/snapshot.rs), not an index snapshot; there is no
// literal Rust counterpart for this concept. What is carried over is the
// shape — a versioned, deterministically-serialized record keyed by name
// — generalized from "named test output" to "named package metadata",
// because spec.md §8's testable property needs exactly that and
// src/once_map.rs (SPEC_FULL.md §11) already establishes that pinning a
// single fetch per key during a resolve is the idiomatic mechanism here.
type Snapshot struct {
	Version  int                        `json:"version"`
	Packages map[string]PackageMetadata `json:"packages"`
	Versions map[string]VersionMetadata `json:"versions"`
}

// SnapshotVersion is the current snapshot schema version.
const SnapshotVersion = 1

// NewSnapshot builds an empty, ready-to-record snapshot.
func NewSnapshot() Snapshot {
	return Snapshot{
		Version:  SnapshotVersion,
		Packages: map[string]PackageMetadata{},
		Versions: map[string]VersionMetadata{},
	}
}

// Record stores name's metadata (the version list, not yet per-version
// detail) into the snapshot. Safe to call more than once for the same
// name; later calls overwrite, matching "the metadata the resolver
// actually touched" rather than a first-write-wins log.
func (s Snapshot) Record(name string, md PackageMetadata) {
	s.Packages[name] = md
}

// RecordVersion stores one resolved version's detail (requires[],
// distributions[]) keyed by "name@version".
func (s Snapshot) RecordVersion(name, version string, vm VersionMetadata) {
	s.Versions[name+"@"+version] = vm
}

// Encode renders the snapshot as canonical JSON: sorted map keys (Go's
// encoding/json already sorts map[string]... keys on marshal) and no
// floating fields, so two snapshots built from the same touched set
// serialize byte-identically regardless of call order.
func (s Snapshot) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// DecodeSnapshot parses a previously-encoded snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, err
	}
	if s.Packages == nil {
		s.Packages = map[string]PackageMetadata{}
	}
	if s.Versions == nil {
		s.Versions = map[string]VersionMetadata{}
	}
	return s, nil
}

// RecordingClient wraps a *Client and mirrors every successful
// Metadata/VersionDetail call it serves into a Snapshot, so a caller can
// resolve once live and keep exactly what the resolver touched for later
// replay against FrozenSource.
type RecordingClient struct {
	*Client
	Snapshot Snapshot
}

// NewRecordingClient wraps client with a fresh, empty Snapshot.
func NewRecordingClient(client *Client) *RecordingClient {
	return &RecordingClient{Client: client, Snapshot: NewSnapshot()}
}

func (r *RecordingClient) Metadata(ctx context.Context, name string) (PackageMetadata, error) {
	md, err := r.Client.Metadata(ctx, name)
	if err != nil {
		return md, err
	}
	r.Snapshot.Record(name, md)
	return md, nil
}

func (r *RecordingClient) VersionDetail(ctx context.Context, name, version string) (VersionMetadata, error) {
	vm, err := r.Client.VersionDetail(ctx, name, version)
	if err != nil {
		return vm, err
	}
	r.Snapshot.RecordVersion(name, version, vm)
	return vm, nil
}

// FrozenSource serves resolver.Source calls entirely out of a previously
// captured Snapshot, touching no network and no live cache — the
// mechanism that makes "the same index" a reproducible input across two
// otherwise-independent resolve calls.
type FrozenSource struct {
	Snapshot Snapshot
}

func (f *FrozenSource) Metadata(ctx context.Context, name string) (PackageMetadata, error) {
	md, ok := f.Snapshot.Packages[name]
	if !ok {
		return PackageMetadata{}, errOffline(name)
	}
	return md, nil
}

func (f *FrozenSource) VersionDetail(ctx context.Context, name, version string) (VersionMetadata, error) {
	vm, ok := f.Snapshot.Versions[name+"@"+version]
	if !ok {
		return VersionMetadata{}, errOffline(name + "@" + version)
	}
	return vm, nil
}

// Names returns every package name the snapshot recorded, sorted, for
// deterministic logging.
func (s Snapshot) Names() []string {
	out := make([]string, 0, len(s.Packages))
	for name := range s.Packages {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
