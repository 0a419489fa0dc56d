package command

import (
	"pybun/internal/manifest"
	"pybun/internal/pkgver"
	"pybun/internal/workspace"
)

// loadManifestTree loads the root project manifest at path and unions its
// dependencies with any workspace members already loaded by the caller
// (cmd/pybun resolves workspace member paths against the filesystem;
// this package only aggregates the already-loaded manifests, mirroring
// how internal/workspace itself stays filesystem-agnostic).
func loadManifestTree(path string, members []workspace.Member) (workspace.Manifest, []pkgver.Requirement, error) {
	proj, err := manifest.Load(path)
	if err != nil {
		return workspace.Manifest{}, nil, errIO("loading manifest %s: %v", path, err)
	}

	root := workspace.Manifest{Name: proj.Name(), Dependencies: proj.Dependencies()}
	roots, err := workspace.Aggregate(root, members)
	if err != nil {
		return workspace.Manifest{}, nil, err
	}
	return root, roots, nil
}
