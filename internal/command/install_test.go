package command

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pybun/internal/cache"
	"pybun/internal/download"
	"pybun/internal/envmanager"
	"pybun/internal/schema"
)

func buildWheelFixture(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, contents := range files {
		f, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := f.Write([]byte(contents)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

type installFakeFetcher struct {
	bodies map[string][]byte
}

func (f *installFakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("install fake fetcher: no body for " + url)
	}
	return body, nil
}

// TestInstall_ThenDoctorLockFindsNoMismatches is the literal round trip a
// reviewer asked for: a real Install materializing an environment, then a
// real Doctor --lock against that same lock reporting every package
// importable instead of E_ENV_MODULE_MISMATCH.
func TestInstall_ThenDoctorLockFindsNoMismatches(t *testing.T) {
	fakeInterpreterForInstall(t)

	body := buildWheelFixture(t, map[string]string{"foo/__init__.py": "VALUE = 1\n"})
	digest := hexDigest(body)

	fixturePath := filepath.Join(t.TempDir(), "index.json")
	fixture := `{
  "packages": {
    "foo": {"versions": {"1.0.0": {"requires": [], "hash": "h1", "distributions": [
      {"platform_tag": "any", "kind": "prebuilt", "url": "https://example.test/foo.whl", "sha256": "` + digest + `"}
    ]}}}
  }
}`
	if err := os.WriteFile(fixturePath, []byte(fixture), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	root := cache.Root{Dir: t.TempDir()}
	if err := root.Ensure(); err != nil {
		t.Fatalf("ensure cache: %v", err)
	}
	downloader := &download.Downloader{
		Cache: root,
		Fetch: &installFakeFetcher{bodies: map[string][]byte{"https://example.test/foo.whl": body}},
	}

	workingDir := t.TempDir()
	deps := Deps{
		Cache:      root,
		Downloader: downloader,
		EnvManager: envmanager.NewManager(root),
	}

	lockPath := filepath.Join(t.TempDir(), "pybun.lock")
	installEnvelope := Install(context.Background(), deps, InstallOptions{
		Requires:   []string{"foo==1.0.0"},
		IndexPath:  fixturePath,
		LockPath:   lockPath,
		WorkingDir: workingDir,
	})
	if installEnvelope.Status != schema.StatusOK {
		t.Fatalf("expected install ok, got %s: %+v", installEnvelope.Status, installEnvelope.Diagnostics)
	}

	doctorEnvelope := Doctor(context.Background(), deps, DoctorOptions{
		WorkingDir: workingDir,
		LockPath:   lockPath,
	})
	if doctorEnvelope.Status != schema.StatusOK {
		t.Fatalf("expected doctor ok after install, got %s: %+v", doctorEnvelope.Status, doctorEnvelope.Diagnostics)
	}
	detail, ok := doctorEnvelope.Detail.(DoctorDetail)
	if !ok {
		t.Fatalf("expected DoctorDetail, got %T", doctorEnvelope.Detail)
	}
	if len(detail.MismatchedPackages) != 0 {
		t.Fatalf("expected no mismatched packages after install, got %v", detail.MismatchedPackages)
	}
	for _, d := range doctorEnvelope.Diagnostics {
		if d.Code == schema.CodeEnvModuleMismatch {
			t.Fatalf("expected no %s diagnostic after install, got %+v", schema.CodeEnvModuleMismatch, d)
		}
	}
}

func hexDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// fakeInterpreterForInstall points PYBUN_PYTHON at a throwaway shell
// script so envmanager.Discover succeeds without a real CPython present.
func fakeInterpreterForInstall(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fakepython")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write fake interpreter: %v", err)
	}
	t.Setenv("PYBUN_PYTHON", path)
	return path
}
