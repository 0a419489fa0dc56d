// Package lockfile implements the deterministic lock spec.md §4.4
// describes: a schema-versioned, round-trippable record of a resolved
// set, with a canonical JSON encoding as the source of truth and a YAML
// text projection for human reading.
//
// The canonical-encoding approach is grounded on
// samgonzalezalberto-script-weaver/internal/trace.ExecutionTrace: a
// hand-rolled MarshalJSON that fixes field order and omits absent
// optional fields, paired with a Canonicalize step that sorts the
// contained slice before encoding, so that "identical inputs produce
// byte-identical output" (spec.md §4.4) holds regardless of map
// iteration or insertion order.
package lockfile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
)

// SchemaVersion is the current lock schema version. Bump only when the
// on-disk shape changes in a way old readers cannot tolerate.
const SchemaVersion = 1

// Package is one resolved entry in the lock.
type Package struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Wheel     string `json:"wheel"`
	SHA256    string `json:"sha256"`
	Signature string `json:"signature,omitempty"`
}

// Lock is the deterministic record of a single resolution, round-tripped
// by Encode/Decode (spec.md §4.4: schema version, platform tags,
// ResolvedSet, wheel selection, optional release manifest reference).
type Lock struct {
	SchemaVersion        int       `json:"schema_version"`
	PlatformTags         []string  `json:"platform_tags"`
	Packages             []Package `json:"packages"`
	ResolverInputsDigest string    `json:"resolver_inputs_digest"`
	ReleaseManifestRef   string    `json:"release_manifest_ref,omitempty"`
}

// Canonicalize sorts Packages by name and normalizes empty slices to nil
// so two logically identical locks encode to identical bytes regardless
// of the order their entries were produced in.
func (l *Lock) Canonicalize() {
	if l == nil {
		return
	}
	if len(l.PlatformTags) == 0 {
		l.PlatformTags = nil
	} else {
		tags := make([]string, len(l.PlatformTags))
		copy(tags, l.PlatformTags)
		sort.Strings(tags)
		l.PlatformTags = tags
	}
	if len(l.Packages) == 0 {
		l.Packages = nil
		return
	}
	pkgs := make([]Package, len(l.Packages))
	copy(pkgs, l.Packages)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	l.Packages = pkgs
}

// MarshalJSON fixes field order explicitly rather than relying on struct
// tag declaration order, the same discipline
// trace.ExecutionTrace.MarshalJSON applies, so the canonical encoding is
// stable even if the struct's fields are ever reordered for readability.
func (l Lock) MarshalJSON() ([]byte, error) {
	if l.SchemaVersion == 0 {
		return nil, errors.New("lockfile: schema_version is required")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')

	buf.WriteString(`"schema_version":`)
	sv, _ := json.Marshal(l.SchemaVersion)
	buf.Write(sv)

	buf.WriteString(`,"platform_tags":`)
	tags := l.PlatformTags
	if tags == nil {
		tags = []string{}
	}
	tb, _ := json.Marshal(tags)
	buf.Write(tb)

	buf.WriteString(`,"packages":[`)
	for i, p := range l.Packages {
		if i > 0 {
			buf.WriteByte(',')
		}
		pb, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		buf.Write(pb)
	}
	buf.WriteString(`]`)

	buf.WriteString(`,"resolver_inputs_digest":`)
	rid, _ := json.Marshal(l.ResolverInputsDigest)
	buf.Write(rid)

	if l.ReleaseManifestRef != "" {
		buf.WriteString(`,"release_manifest_ref":`)
		rmr, _ := json.Marshal(l.ReleaseManifestRef)
		buf.Write(rmr)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Encode produces the canonical byte encoding: Canonicalize, then the
// fixed-field-order MarshalJSON above.
func Encode(l Lock) ([]byte, error) {
	l.Canonicalize()
	return json.Marshal(l)
}

// Decode parses a canonical encoding back into a Lock.
func Decode(data []byte) (Lock, error) {
	var l Lock
	if err := json.Unmarshal(data, &l); err != nil {
		return Lock{}, err
	}
	return l, nil
}

// InputsDigest computes the resolver-inputs digest spec.md's "identical
// inputs + identical index snapshot ⇒ identical lock" invariant needs:
// a sha256 over the sorted, newline-joined root requirement strings.
// Callers pass the same requirement strings the resolver was given, not
// its internal derived state.
func InputsDigest(rootRequirements []string) string {
	sorted := make([]string, len(rootRequirements))
	copy(sorted, rootRequirements)
	sort.Strings(sorted)
	sum := sha256.New()
	for _, r := range sorted {
		sum.Write([]byte(r))
		sum.Write([]byte{'\n'})
	}
	return hex.EncodeToString(sum.Sum(nil))
}
