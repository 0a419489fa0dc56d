package release

import "testing"

func TestParse_And_SelectAsset(t *testing.T) {
	doc := `{
		"version": "1.2.3",
		"channel": "stable",
		"assets": [
			{"name": "pybun-linux-amd64.tar.gz", "target": "linux-amd64", "url": "https://example/a", "sha256": "abc"},
			{"name": "pybun-darwin-arm64.tar.gz", "target": "darwin-arm64", "url": "https://example/b", "sha256": "def"}
		]
	}`

	m, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.Version != "1.2.3" || m.Channel != "stable" {
		t.Fatalf("unexpected manifest: %+v", m)
	}

	asset, ok := m.SelectAsset("linux-amd64")
	if !ok {
		t.Fatal("expected to find linux-amd64 asset")
	}
	if asset.SHA256 != "abc" {
		t.Fatalf("unexpected asset: %+v", asset)
	}

	if _, ok := m.SelectAsset("windows-amd64"); ok {
		t.Fatal("expected no match for unknown target")
	}
}
