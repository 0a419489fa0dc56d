// Package cache implements the content-addressed store spec.md §4.3
// describes: a data root holding packages/, envs/, artifacts/, build/,
// and logs/ subtrees, with crash-safe atomic writes.
//
// Directly generalizes samgonzalezalberto-script-weaver's
// internal/core.FileCache (temp-dir-then-rename commit) from one
// hash-sharded task-result layout to this root's five named subtrees.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// Root is the data root: $HOME/.cache/pybun by default, overridable by
// PYBUN_CACHE_DIR (spec.md §4.3).
type Root struct {
	Dir string
}

// Subtree names under Root.Dir, matching spec.md §4.3 exactly.
const (
	SubtreePackages  = "packages"
	SubtreeEnvs      = "envs"
	SubtreeArtifacts = "artifacts"
	SubtreeBuild     = "build"
	SubtreeLogs      = "logs"
)

// DefaultRoot resolves the data root from PYBUN_CACHE_DIR, falling back to
// $HOME/.cache/pybun.
func DefaultRoot() (Root, error) {
	if dir := os.Getenv("PYBUN_CACHE_DIR"); dir != "" {
		return Root{Dir: dir}, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return Root{}, fmt.Errorf("cache: resolving home directory: %w", err)
	}
	return Root{Dir: filepath.Join(home, ".cache", "pybun")}, nil
}

// Ensure creates every subtree under the root, if missing.
func (r Root) Ensure() error {
	for _, sub := range []string{SubtreePackages, SubtreeEnvs, SubtreeArtifacts, SubtreeBuild, SubtreeLogs} {
		if err := os.MkdirAll(filepath.Join(r.Dir, sub), 0o755); err != nil {
			return fmt.Errorf("cache: creating %s subtree: %w", sub, err)
		}
	}
	return nil
}

// BlobPath returns the path a content-addressed blob with the given
// sha256 hex digest would live at under packages/, sharded by the first
// two hex characters the same way the teacher shards task-result entries.
func (r Root) BlobPath(sha256Hex string) string {
	return filepath.Join(r.Dir, SubtreePackages, sha256Hex[:2], sha256Hex)
}

// EnvPath returns the path an environment keyed by creation hash lives at
// under envs/.
func (r Root) EnvPath(creationHash string) string {
	return filepath.Join(r.Dir, SubtreeEnvs, creationHash)
}

// Has reports whether a blob with the given hex digest is present.
func (r Root) Has(sha256Hex string) (bool, error) {
	_, err := os.Stat(r.BlobPath(sha256Hex))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("cache: checking blob %s: %w", sha256Hex, err)
}

// Get reads a cached blob's bytes. Returns (nil, false, nil) on a miss.
func (r Root) Get(sha256Hex string) ([]byte, bool, error) {
	data, err := os.ReadFile(r.BlobPath(sha256Hex))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: reading blob %s: %w", sha256Hex, err)
	}
	return data, true, nil
}

// Put stores data at its content-addressed path, computing the sha256
// digest itself so the invariant "path == sha256(contents)" can never be
// violated by a caller passing a mismatched hash.
//
// Writes follow the teacher's create-temp-file-then-rename commit: a crash
// mid-write leaves either nothing or the old blob at the canonical path,
// never a partial one. Concurrent writers of the same blob are idempotent
// because the content (and therefore the digest and the path) is
// identical.
func (r Root) Put(data []byte) (sha256Hex string, err error) {
	sum := sha256.Sum256(data)
	digest := hex.EncodeToString(sum[:])
	path := r.BlobPath(digest)

	if has, err := r.Has(digest); err == nil && has {
		return digest, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cache: creating blob shard dir: %w", err)
	}
	if err := writeFileAtomic(dir, path, data, 0o644); err != nil {
		return "", fmt.Errorf("cache: writing blob %s: %w", digest, err)
	}
	return digest, nil
}

// writeFileAtomic writes data to path via a temp file in dir, fsyncs, and
// renames into place — the teacher's internal/core.writeFileAtomic,
// unchanged in shape.
func writeFileAtomic(dir, path string, data []byte, perm os.FileMode) error {
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
	if err := tmp.Chmod(perm); err != nil {
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
