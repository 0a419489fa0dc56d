package command

import (
	"context"
	"os"
	"strings"

	"pybun/internal/download"
	"pybun/internal/index"
	"pybun/internal/release"
	"pybun/internal/schema"
)

// SelfUpdateOptions mirrors spec.md §6's `self-update [--manifest <path-or-url>]
// [--dry-run]`.
type SelfUpdateOptions struct {
	ManifestPath string
	DryRun       bool
}

// SelfUpdateDetail is the envelope detail for `self-update`.
type SelfUpdateDetail struct {
	Summary     string `json:"summary"`
	Version     string `json:"version"`
	Target      string `json:"target"`
	AssetSHA256 string `json:"asset_sha256,omitempty"`
	DryRun      bool   `json:"dry_run"`
}

// SelfUpdate fetches a release manifest, selects the asset for the
// running platform, and — unless opts.DryRun — downloads and verifies it
// through the same internal/download verification path every package
// distribution goes through, by describing the release asset as a
// one-off download.Request: a release asset and a package distribution
// are both "a URL plus a sha256 and an optional signature", so there is
// no reason for self-update to hand-roll a second verify-and-store path.
func SelfUpdate(ctx context.Context, deps Deps, opts SelfUpdateOptions) schema.Envelope {
	return run("self-update", func(collector *schema.Collector) (any, error) {
		if opts.ManifestPath == "" {
			return nil, errUsage("self-update: a manifest path or URL is required")
		}

		data, err := readManifestBytes(ctx, deps, opts.ManifestPath)
		if err != nil {
			return nil, err
		}
		manifest, err := release.Parse(data)
		if err != nil {
			return nil, errIO("parsing release manifest: %v", err)
		}

		target := platformTag()
		asset, ok := manifest.SelectAsset(target)
		if !ok {
			return nil, errUsage("self-update: no release asset for target %s", target)
		}

		detail := SelfUpdateDetail{
			Summary: "found " + manifest.Version + " for " + target,
			Version: manifest.Version,
			Target:  target,
			DryRun:  opts.DryRun,
		}
		if opts.DryRun {
			return detail, nil
		}

		dist := index.Distribution{URL: asset.URL, SHA256: asset.SHA256}
		if asset.Signature != nil {
			dist.Signature = asset.Signature.Value
		}
		results, err := deps.Downloader.FetchAll(ctx, []download.Request{
			{Name: "pybun", Version: manifest.Version, Distribution: dist},
		})
		if err != nil {
			return nil, err
		}

		detail.Summary = "downloaded and verified " + manifest.Version
		detail.AssetSHA256 = results[0].SHA256
		return detail, nil
	})
}

// readManifestBytes loads a release manifest either from the local
// filesystem or, if manifestPath parses as an http(s) URL, through the
// downloader's own Fetcher seam (the same one FetchAll uses for
// distributions), so self-update exercises no separate HTTP client.
func readManifestBytes(ctx context.Context, deps Deps, manifestPath string) ([]byte, error) {
	if isHTTPURL(manifestPath) {
		data, err := deps.Downloader.Fetch.Fetch(ctx, manifestPath)
		if err != nil {
			return nil, errIO("fetching release manifest %s: %v", manifestPath, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, errIO("reading release manifest %s: %v", manifestPath, err)
	}
	return data, nil
}

func isHTTPURL(path string) bool {
	return strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
}
