package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pybun/internal/cache"
	"pybun/internal/schema"
)

func writeAgedBlob(t *testing.T, root cache.Root, name string, size int, age time.Duration) {
	t.Helper()
	dir := filepath.Join(root.Dir, cache.SubtreePackages, name[:2])
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func TestGC_DryRunReportsWithoutDeleting(t *testing.T) {
	root := cache.Root{Dir: t.TempDir()}
	writeAgedBlob(t, root, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 100, 2*time.Hour)

	envelope := GC(context.Background(), Deps{Cache: root}, GCOptions{MaxSizeBytes: 10, DryRun: true})

	if envelope.Status != schema.StatusOK {
		t.Fatalf("expected ok status, got %s: %+v", envelope.Status, envelope.Diagnostics)
	}
	detail := envelope.Detail.(GCDetail)
	if !detail.DryRun {
		t.Fatalf("expected dry_run detail to be true")
	}
	if len(detail.Evicted) == 0 {
		t.Fatalf("expected at least one eviction candidate")
	}

	entries, err := os.ReadDir(filepath.Join(root.Dir, cache.SubtreePackages, "aa"))
	if err != nil {
		t.Fatalf("reading blob dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("dry-run GC should not have deleted the blob")
	}
}

func TestGC_RealRunEvictsUntilUnderBudget(t *testing.T) {
	root := cache.Root{Dir: t.TempDir()}
	writeAgedBlob(t, root, "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", 100, 2*time.Hour)
	writeAgedBlob(t, root, "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb", 100, time.Hour)

	envelope := GC(context.Background(), Deps{Cache: root}, GCOptions{MaxSizeBytes: 100, DryRun: false})

	detail := envelope.Detail.(GCDetail)
	if detail.RemainingSize > 100 {
		t.Fatalf("expected remaining size <= 100, got %d", detail.RemainingSize)
	}
	if len(detail.Evicted) != 1 {
		t.Fatalf("expected exactly 1 eviction, got %d", len(detail.Evicted))
	}
}
