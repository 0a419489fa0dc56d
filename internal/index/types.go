// Package index implements the package index client: fetching per-package
// version lists and per-version metadata, with revalidation caching and
// request coalescing, grounded on jinterlante1206-AleutianLocal's
// services/trace/cache (singleflight.Group for dedup) and
// services/trace/storage/badger (embedded revalidation store).
package index

// Distribution is one installable artifact for a package version
// (spec.md §3 Distribution entity).
type Distribution struct {
	PlatformTag string `json:"platform_tag"`
	Kind        string `json:"kind"` // "prebuilt" or "source"
	URL         string `json:"url"`
	SHA256      string `json:"sha256"`
	Signature   string `json:"signature,omitempty"`
}

// VersionMetadata is the per-version record inside a PackageMetadata.
type VersionMetadata struct {
	Requires      []string       `json:"requires"`
	Distributions []Distribution `json:"distributions"`
	Yanked        bool           `json:"yanked,omitempty"`
	Hash          string         `json:"hash"`
	Signature     string         `json:"signature,omitempty"`
}

// PackageMetadata is a package's full version set and per-version
// requirement lists (spec.md §3 PackageMetadata entity). Versions is keyed
// by the raw version string as published by the index.
type PackageMetadata struct {
	Name     string                     `json:"name"`
	Versions map[string]VersionMetadata `json:"versions"`
}

// versionIndexDoc is the top-level JSON record the index serves at
// GET /<name>/ — just the version list, without per-version detail.
// The client fetches this first and lazily fetches per-version metadata
// only for versions the resolver actually considers.
type versionIndexDoc struct {
	Name     string   `json:"name"`
	Versions []string `json:"versions"`
}

// versionDetailDoc is the per-version record the index serves at
// GET /<name>/<version>/.
type versionDetailDoc struct {
	Requires      []string       `json:"requires"`
	Distributions []Distribution `json:"distributions"`
	Yanked        bool           `json:"yanked,omitempty"`
	Hash          string         `json:"hash"`
	Signature     string         `json:"signature,omitempty"`
}
