package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
)

func TestRoot_Put_IsContentAddressedAndIdempotent(t *testing.T) {
	root := Root{Dir: t.TempDir()}
	if err := root.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	data := []byte("hello pybun")
	sum := sha256.Sum256(data)
	want := hex.EncodeToString(sum[:])

	digest, err := root.Put(data)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if digest != want {
		t.Fatalf("want digest %s, got %s", want, digest)
	}

	// Second write of identical content must be a no-op that still reports
	// the same digest.
	digest2, err := root.Put(data)
	if err != nil {
		t.Fatalf("second put: %v", err)
	}
	if digest2 != digest {
		t.Fatalf("digest changed on re-put: %s vs %s", digest, digest2)
	}

	got, ok, err := root.Get(digest)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected blob to be present")
	}
	if string(got) != string(data) {
		t.Fatalf("content mismatch: got %q", got)
	}
}

func TestRoot_Get_MissingBlobReportsNotFound(t *testing.T) {
	root := Root{Dir: t.TempDir()}
	_, ok, err := root.Get("0000000000000000000000000000000000000000000000000000000000000000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestRoot_Put_NeverLeavesATempFileBehindOnSuccess(t *testing.T) {
	root := Root{Dir: t.TempDir()}
	if err := root.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	digest, err := root.Put([]byte("payload"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	shardDir := filepath.Dir(root.BlobPath(digest))
	entries, err := os.ReadDir(shardDir)
	if err != nil {
		t.Fatalf("reading shard dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly 1 file in shard dir, got %d", len(entries))
	}
}
