package runner

import "testing"

func TestParseMetadata_ParsesRequiresPythonAndDependencies(t *testing.T) {
	script := `#!/usr/bin/env python3
# /// script
# requires-python = ">=3.11"
# dependencies = [
#   "requests>=2.28.0",
#   "numpy",
# ]
# ///

import requests
print("hello")
`
	meta, err := ParseMetadata(script)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if meta == nil {
		t.Fatalf("expected metadata")
	}
	if meta.RequiresPython != ">=3.11" {
		t.Fatalf("unexpected requires-python: %q", meta.RequiresPython)
	}
	if len(meta.Dependencies) != 2 || meta.Dependencies[0] != "requests>=2.28.0" || meta.Dependencies[1] != "numpy" {
		t.Fatalf("unexpected dependencies: %v", meta.Dependencies)
	}
}

func TestParseMetadata_NoBlockReturnsNil(t *testing.T) {
	meta, err := ParseMetadata("print('hello')\n")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if meta != nil {
		t.Fatalf("expected nil metadata, got %+v", meta)
	}
}

func TestParseMetadata_EmptyBlockIsValid(t *testing.T) {
	script := "# /// script\n# ///\nprint('no deps')\n"
	meta, err := ParseMetadata(script)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if meta == nil || len(meta.Dependencies) != 0 {
		t.Fatalf("expected empty metadata, got %+v", meta)
	}
}

func TestParseMetadata_IgnoresContentAfterBlock(t *testing.T) {
	script := `# /// script
# dependencies = ["numpy"]
# ///
# This is just a comment, not part of the block
# dependencies = ["should-not-parse"]
import numpy
`
	meta, err := ParseMetadata(script)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(meta.Dependencies) != 1 || meta.Dependencies[0] != "numpy" {
		t.Fatalf("unexpected dependencies: %v", meta.Dependencies)
	}
}

func TestHasMetadata(t *testing.T) {
	if !HasMetadata("# /// script\n# ///") {
		t.Fatalf("expected true")
	}
	if HasMetadata("print('hello')") {
		t.Fatalf("expected false")
	}
}
