package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pybun/internal/cache"
	"pybun/internal/lockfile"
	"pybun/internal/schema"
)

func TestDoctor_ReportsCacheIOFailure(t *testing.T) {
	// A Root whose Dir is actually a regular file makes Ensure's MkdirAll
	// fail, exercising the non-fatal cache-health diagnostic path without
	// needing a broken filesystem.
	blocked := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocked, []byte("x"), 0o644); err != nil {
		t.Fatalf("writing blocker file: %v", err)
	}

	envelope := Doctor(context.Background(), Deps{Cache: cache.Root{Dir: blocked}}, DoctorOptions{})

	if envelope.Status != schema.StatusError {
		t.Fatalf("expected error status, got %s", envelope.Status)
	}
	detail := envelope.Detail.(DoctorDetail)
	if detail.Summary != "issues found" {
		t.Fatalf("expected issues-found summary, got %q", detail.Summary)
	}

	var sawInstallIO bool
	for _, d := range envelope.Diagnostics {
		if d.Code == schema.CodeInstallIO {
			sawInstallIO = true
		}
	}
	if !sawInstallIO {
		t.Fatalf("expected a %s diagnostic, got %+v", schema.CodeInstallIO, envelope.Diagnostics)
	}
}

func TestDoctor_EmitsStartAndCompleteEvents(t *testing.T) {
	root := cache.Root{Dir: t.TempDir()}
	envelope := Doctor(context.Background(), Deps{Cache: root}, DoctorOptions{WorkingDir: t.TempDir()})

	if len(envelope.Events) < 2 {
		t.Fatalf("expected at least DoctorStart/DoctorComplete events, got %d", len(envelope.Events))
	}
	if envelope.Events[0].Kind != schema.EventCommandStart {
		t.Fatalf("expected first event CommandStart, got %s", envelope.Events[0].Kind)
	}
	var sawStart, sawComplete bool
	for _, e := range envelope.Events {
		switch e.Kind {
		case schema.EventDoctorStart:
			sawStart = true
		case schema.EventDoctorComplete:
			sawComplete = true
		}
	}
	if !sawStart || !sawComplete {
		t.Fatalf("expected DoctorStart and DoctorComplete events, got %+v", envelope.Events)
	}
}

func TestCheckLockedModules_EmptyLockHasNoMismatches(t *testing.T) {
	root := cache.Root{Dir: t.TempDir()}
	lockPath := filepath.Join(t.TempDir(), "pybun.lock")
	data, err := lockfile.Encode(lockfile.Lock{SchemaVersion: 1})
	if err != nil {
		t.Fatalf("encoding empty lock: %v", err)
	}
	if err := os.WriteFile(lockPath, data, 0o644); err != nil {
		t.Fatalf("writing lock: %v", err)
	}

	mismatches, err := checkLockedModules(Deps{Cache: root}, lockPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("expected no mismatches for an empty lock, got %v", mismatches)
	}
}

func TestCheckLockedModules_MissingSitePackagesReportsEveryPackage(t *testing.T) {
	root := cache.Root{Dir: t.TempDir()}
	lockPath := filepath.Join(t.TempDir(), "pybun.lock")
	data, err := lockfile.Encode(lockfile.Lock{
		SchemaVersion: 1,
		Packages: []lockfile.Package{
			{Name: "foo", Version: "1.0.0", SHA256: "deadbeef"},
			{Name: "bar", Version: "2.1.0", SHA256: "deadbeef"},
		},
	})
	if err != nil {
		t.Fatalf("encoding lock: %v", err)
	}
	if err := os.WriteFile(lockPath, data, 0o644); err != nil {
		t.Fatalf("writing lock: %v", err)
	}

	mismatches, err := checkLockedModules(Deps{Cache: root}, lockPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mismatches) != 2 {
		t.Fatalf("expected 2 mismatches against an empty environment, got %d: %v", len(mismatches), mismatches)
	}
}
