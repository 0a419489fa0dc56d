// Package release implements the release manifest spec.md §6 describes
// ({version, channel, release_url, assets[], release_notes?}), consumed
// by internal/command's SelfUpdate.
//
// Grounded on original_source/src/release_manifest.rs's ReleaseManifest /
// ReleaseAsset / ReleaseSignature, trimmed of the sbom/provenance
// attachment fields (original_source/src/sbom.rs is already supplemented
// into internal/lockfile directly from a Lock, so a second SBOM
// attachment path on the release manifest itself would be a second
// source of truth for the same document) and of published_at (spec.md's
// §6 shape does not carry it).
package release

import (
	"encoding/json"
	"fmt"
)

// Signature is an asset's detached signature reference.
type Signature struct {
	Type      string `json:"type"`
	Value     string `json:"value"`
	PublicKey string `json:"public_key,omitempty"`
}

// Asset is one downloadable artifact for a specific target platform tag,
// e.g. "linux-amd64" or "darwin-arm64".
type Asset struct {
	Name      string     `json:"name"`
	Target    string     `json:"target"`
	URL       string     `json:"url"`
	SHA256    string     `json:"sha256"`
	Signature *Signature `json:"signature,omitempty"`
}

// Manifest is the release manifest document spec.md §6 pins.
type Manifest struct {
	Version      string  `json:"version"`
	Channel      string  `json:"channel"`
	ReleaseURL   string  `json:"release_url,omitempty"`
	Assets       []Asset `json:"assets"`
	ReleaseNotes string  `json:"release_notes,omitempty"`
}

// Parse decodes a manifest document's raw bytes.
func Parse(data []byte) (Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("release: parsing manifest: %w", err)
	}
	return m, nil
}

// SelectAsset returns the first asset matching target, mirroring
// ReleaseManifest's "pick the asset for my platform" lookup — self_update.rs
// resolves this the same way, by exact target string match.
func (m Manifest) SelectAsset(target string) (Asset, bool) {
	for _, a := range m.Assets {
		if a.Target == target {
			return a, true
		}
	}
	return Asset{}, false
}
