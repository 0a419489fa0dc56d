package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"pybun/internal/schema"
)

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.json")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

const scenario1Fixture = `{
  "packages": {
    "foo": {"versions": {"1.0.0": {"requires": ["bar>=2,<3"], "hash": "h1", "distributions": []}}},
    "bar": {
      "versions": {
        "2.1.0": {"requires": [], "hash": "h2", "distributions": [{"platform_tag": "any", "kind": "source", "url": "file:///bar-2.1.0", "sha256": "deadbeef"}]},
        "2.0.0": {"requires": [], "hash": "h3", "distributions": [{"platform_tag": "any", "kind": "source", "url": "file:///bar-2.0.0", "sha256": "deadbeef"}]}
      }
    }
  }
}`

func TestResolve_PicksHighestSatisfyingVersion(t *testing.T) {
	path := writeFixture(t, scenario1Fixture)
	deps := Deps{}

	envelope := Resolve(context.Background(), deps, ResolveOptions{
		Requires:  []string{"foo==1.0.0"},
		IndexPath: path,
	})

	if envelope.Status != schema.StatusOK {
		t.Fatalf("expected ok status, got %s: %+v", envelope.Status, envelope.Diagnostics)
	}
	detail, ok := envelope.Detail.(ResolveDetail)
	if !ok {
		t.Fatalf("expected ResolveDetail, got %T", envelope.Detail)
	}
	if len(detail.Packages) != 2 {
		t.Fatalf("expected 2 resolved packages, got %d: %v", len(detail.Packages), detail.Packages)
	}
	if detail.Packages[0] != "bar==2.1.0" || detail.Packages[1] != "foo==1.0.0" {
		t.Fatalf("expected bar==2.1.0 (highest satisfying >=2,<3) and foo==1.0.0, got %v", detail.Packages)
	}
}

func TestResolve_MissingPackageProducesErrorEnvelope(t *testing.T) {
	// A name absent from a frozen fixture surfaces as the index's own
	// "no cached metadata and offline" failure, not the resolver's
	// E_RESOLVE_MISSING — the fixture source has no network to distinguish
	// "unlisted" from "not fetched yet", so index.FrozenSource.Metadata
	// treats every miss as E_INDEX_OFFLINE_MISS.
	path := writeFixture(t, scenario1Fixture)
	deps := Deps{}

	envelope := Resolve(context.Background(), deps, ResolveOptions{
		Requires:  []string{"nonexistent==1.0.0"},
		IndexPath: path,
	})

	if envelope.Status != schema.StatusError {
		t.Fatalf("expected error status, got %s", envelope.Status)
	}
	if len(envelope.Diagnostics) == 0 {
		t.Fatalf("expected at least one diagnostic")
	}
	if envelope.Diagnostics[0].Code != schema.CodeIndexOfflineMiss {
		t.Fatalf("expected %s, got %s", schema.CodeIndexOfflineMiss, envelope.Diagnostics[0].Code)
	}
}

func TestResolve_BadRequirementStringIsUsageError(t *testing.T) {
	deps := Deps{}
	envelope := Resolve(context.Background(), deps, ResolveOptions{Requires: []string{""}})

	if envelope.Status != schema.StatusError {
		t.Fatalf("expected error status, got %s", envelope.Status)
	}
	if envelope.Diagnostics[0].Code != schema.CodeUsageBadArgs {
		t.Fatalf("expected usage error, got %s", envelope.Diagnostics[0].Code)
	}
}

func TestResolve_EmitsCommandStartAndEndEvents(t *testing.T) {
	path := writeFixture(t, scenario1Fixture)
	deps := Deps{}
	envelope := Resolve(context.Background(), deps, ResolveOptions{Requires: []string{"foo==1.0.0"}, IndexPath: path})

	if len(envelope.Events) < 2 {
		t.Fatalf("expected at least CommandStart/CommandEnd, got %d events", len(envelope.Events))
	}
	if envelope.Events[0].Kind != schema.EventCommandStart {
		t.Fatalf("expected first event to be CommandStart, got %s", envelope.Events[0].Kind)
	}
	last := envelope.Events[len(envelope.Events)-1]
	if last.Kind != schema.EventCommandEnd {
		t.Fatalf("expected last event to be CommandEnd, got %s", last.Kind)
	}
}
