package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func TestProject_AddDependency_DedupesAndSorts(t *testing.T) {
	dir := t.TempDir()
	p := New(filepath.Join(dir, Filename))

	if err := p.AddDependency("zeta>=1.0"); err != nil {
		t.Fatal(err)
	}
	if err := p.AddDependency("alpha==2.0.0"); err != nil {
		t.Fatal(err)
	}
	if err := p.AddDependency("zeta>=2.0"); err != nil {
		t.Fatal(err)
	}

	deps := p.Dependencies()
	if len(deps) != 2 {
		t.Fatalf("expected 2 deps after re-adding zeta, got %v", deps)
	}
	if deps[0] != "alpha==2.0.0" || deps[1] != "zeta>=2.0" {
		t.Fatalf("expected sorted deps with updated zeta constraint, got %v", deps)
	}
}

func TestProject_RemoveDependency(t *testing.T) {
	dir := t.TempDir()
	p := New(filepath.Join(dir, Filename))
	_ = p.AddDependency("requests>=2.28.0")

	if !p.HasDependency("requests") {
		t.Fatal("expected requests to be present")
	}
	if !p.RemoveDependency("Requests") {
		t.Fatal("expected removal to report true")
	}
	if p.HasDependency("requests") {
		t.Fatal("expected requests to be gone")
	}
}

func TestProject_SaveAndLoad_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, Filename)
	p := New(path)
	_ = p.AddDependency("requests>=2.28.0")

	if err := p.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Dependencies()) != 1 || loaded.Dependencies()[0] != "requests>=2.28.0" {
		t.Fatalf("unexpected deps after round trip: %v", loaded.Dependencies())
	}
}

func TestDiscover_WalksUpward(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	p := New(filepath.Join(root, Filename))
	_ = p.AddDependency("requests")
	if err := p.Save(); err != nil {
		t.Fatal(err)
	}

	found, err := Discover(sub)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if found.Path != filepath.Join(root, Filename) {
		t.Fatalf("expected to find manifest at root, got %s", found.Path)
	}
}
