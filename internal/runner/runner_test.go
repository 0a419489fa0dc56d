package runner

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"pybun/internal/cache"
	"pybun/internal/download"
	"pybun/internal/envmanager"
	"pybun/internal/index"
	"pybun/internal/schema"
)

// fakeInterpreter writes a tiny shell script standing in for a Python
// interpreter and points PYBUN_PYTHON at it, so these tests never need a
// real CPython on the machine running them.
func fakeInterpreter(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake interpreter script is a shell script")
	}
	path := filepath.Join(t.TempDir(), "fakepython")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write fake interpreter: %v", err)
	}
	t.Setenv("PYBUN_PYTHON", path)
	return path
}

func TestRun_MissingScriptReturnsScriptNotFoundError(t *testing.T) {
	fakeInterpreter(t, "exit 0\n")
	collector := schema.NewCollector()

	_, err := Run(context.Background(), collector, Dependencies{}, Request{
		ScriptPath: filepath.Join(t.TempDir(), "missing.py"),
		WorkingDir: t.TempDir(),
	})
	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if rerr.Diagnostic().Code != schema.CodeScriptNotFound {
		t.Fatalf("unexpected code: %s", rerr.Diagnostic().Code)
	}
}

func TestRun_InlineModeWithEmptyBodyExitsZero(t *testing.T) {
	fakeInterpreter(t, "exit 0\n")
	collector := schema.NewCollector()

	result, err := Run(context.Background(), collector, Dependencies{}, Request{
		InlineMode: true,
		InlineCode: "",
		WorkingDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("expected exit 0, got %d", result.ExitCode)
	}
	if result.Summary != "executed inline code" {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}
}

func TestRun_SpawnAndWaitPropagatesNonZeroExitCode(t *testing.T) {
	fakeInterpreter(t, "exit 7\n")
	collector := schema.NewCollector()

	result, err := Run(context.Background(), collector, Dependencies{}, Request{
		InlineMode: true,
		InlineCode: "import sys; sys.exit(7)",
		WorkingDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.ExitCode != 7 {
		t.Fatalf("expected exit 7, got %d", result.ExitCode)
	}

	events := collector.Events()
	if len(events) != 2 || events[0].Kind != schema.EventRunStart || events[1].Kind != schema.EventRunExit {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestRun_NoDeclaredDependenciesSkipsEnvManager(t *testing.T) {
	fakeInterpreter(t, "exit 0\n")
	collector := schema.NewCollector()

	script := filepath.Join(t.TempDir(), "plain.py")
	if err := os.WriteFile(script, []byte("print('hi')\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	_, err := Run(context.Background(), collector, Dependencies{}, Request{
		ScriptPath: script,
		WorkingDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}

// fixtureSource is a minimal resolver.Source fixture, mirroring the one in
// internal/resolver's own tests.
type fixtureSource struct {
	dist index.Distribution
}

func (f *fixtureSource) Metadata(ctx context.Context, name string) (index.PackageMetadata, error) {
	return index.PackageMetadata{Name: name, Versions: map[string]index.VersionMetadata{
		"1.0.0": {Distributions: []index.Distribution{f.dist}},
	}}, nil
}

func (f *fixtureSource) VersionDetail(ctx context.Context, name, version string) (index.VersionMetadata, error) {
	return index.VersionMetadata{Distributions: []index.Distribution{f.dist}}, nil
}

type fakeFetcher struct {
	bodies map[string][]byte
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("fake fetcher: no body for " + url)
	}
	return body, nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func buildWheel(t *testing.T, files map[string]string) []byte {
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

func TestRun_ScriptWithDependenciesResolvesAndInstallsOnMiss(t *testing.T) {
	fakeInterpreter(t, "exit 0\n")

	body := buildWheel(t, map[string]string{"foo/__init__.py": "VALUE = 1\n"})
	digest := sha256Hex(body)
	dist := index.Distribution{URL: "https://example.test/foo.whl", SHA256: digest, Kind: "prebuilt"}

	root := cache.Root{Dir: t.TempDir()}
	if err := root.Ensure(); err != nil {
		t.Fatalf("ensure cache: %v", err)
	}
	fetcher := &fakeFetcher{bodies: map[string][]byte{dist.URL: body}}
	downloader := &download.Downloader{Cache: root, Fetch: fetcher}

	script := filepath.Join(t.TempDir(), "script.py")
	content := "# /// script\n# dependencies = [\"foo==1.0.0\"]\n# ///\nprint('hi')\n"
	if err := os.WriteFile(script, []byte(content), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	collector := schema.NewCollector()
	deps := Dependencies{
		EnvManager: envmanager.NewManager(root),
		Resolver:   &fixtureSource{dist: dist},
		Downloader: downloader,
	}

	if _, err := Run(context.Background(), collector, deps, Request{ScriptPath: script, WorkingDir: t.TempDir()}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected exactly 1 fetch on first run, got %d", fetcher.calls)
	}

	hash := envmanager.CreationHash([]string{"foo==1.0.0"})
	sitePackages := envmanager.SitePackagesDir(root.EnvPath(hash))
	if _, err := os.Stat(filepath.Join(sitePackages, "foo", "__init__.py")); err != nil {
		t.Fatalf("expected foo to be unpacked into site-packages: %v", err)
	}

	kinds := make([]schema.EventKind, 0)
	for _, ev := range collector.Events() {
		kinds = append(kinds, ev.Kind)
	}
	wantPrefix := []schema.EventKind{schema.EventResolveStart, schema.EventResolveComplete, schema.EventInstallStart, schema.EventInstallComplete, schema.EventRunStart, schema.EventRunExit}
	if len(kinds) != len(wantPrefix) {
		t.Fatalf("unexpected event sequence: %v", kinds)
	}
	for i, k := range wantPrefix {
		if kinds[i] != k {
			t.Fatalf("event %d: want %s, got %s", i, k, kinds[i])
		}
	}

	// Second invocation reuses the environment: no resolve/install events.
	collector2 := schema.NewCollector()
	if _, err := Run(context.Background(), collector2, deps, Request{ScriptPath: script, WorkingDir: t.TempDir()}); err != nil {
		t.Fatalf("run (reuse): %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected no additional fetch on reuse, got %d total calls", fetcher.calls)
	}
	for _, ev := range collector2.Events() {
		if ev.Kind == schema.EventResolveStart || ev.Kind == schema.EventInstallStart {
			t.Fatalf("expected no resolve/install events on reuse, got %s", ev.Kind)
		}
	}
}

func TestRun_WiresPYTHONPATHToMaterializedSitePackages(t *testing.T) {
	capture := filepath.Join(t.TempDir(), "pythonpath.txt")
	fakeInterpreter(t, "printf '%s' \"$PYTHONPATH\" > "+capture+"\nexit 0\n")

	body := buildWheel(t, map[string]string{"foo/__init__.py": "VALUE = 1\n"})
	digest := sha256Hex(body)
	dist := index.Distribution{URL: "https://example.test/foo.whl", SHA256: digest, Kind: "prebuilt"}

	root := cache.Root{Dir: t.TempDir()}
	if err := root.Ensure(); err != nil {
		t.Fatalf("ensure cache: %v", err)
	}
	downloader := &download.Downloader{Cache: root, Fetch: &fakeFetcher{bodies: map[string][]byte{dist.URL: body}}}

	script := filepath.Join(t.TempDir(), "script.py")
	content := "# /// script\n# dependencies = [\"foo==1.0.0\"]\n# ///\nprint('hi')\n"
	if err := os.WriteFile(script, []byte(content), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	collector := schema.NewCollector()
	deps := Dependencies{
		EnvManager: envmanager.NewManager(root),
		Resolver:   &fixtureSource{dist: dist},
		Downloader: downloader,
	}
	if _, err := Run(context.Background(), collector, deps, Request{ScriptPath: script, WorkingDir: t.TempDir()}); err != nil {
		t.Fatalf("run: %v", err)
	}

	got, err := os.ReadFile(capture)
	if err != nil {
		t.Fatalf("reading captured PYTHONPATH: %v", err)
	}
	hash := envmanager.CreationHash([]string{"foo==1.0.0"})
	wantSitePackages := envmanager.SitePackagesDir(root.EnvPath(hash))
	if string(got) != wantSitePackages {
		t.Fatalf("expected PYTHONPATH to be %q, got %q", wantSitePackages, got)
	}
}
