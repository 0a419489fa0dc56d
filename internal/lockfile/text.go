package lockfile

import "gopkg.in/yaml.v3"

// textLock mirrors Lock field-for-field for the YAML projection; yaml.v3
// doesn't honor MarshalJSON, so a parallel type keeps the same key names
// without fighting the canonical JSON encoder's custom marshaling.
type textLock struct {
	SchemaVersion        int       `yaml:"schema_version"`
	PlatformTags         []string  `yaml:"platform_tags,omitempty"`
	Packages             []Package `yaml:"packages"`
	ResolverInputsDigest string    `yaml:"resolver_inputs_digest"`
	ReleaseManifestRef   string    `yaml:"release_manifest_ref,omitempty"`
}

// ToYAML renders a human-reading projection (spec.md's `--format=text`
// path). It is read-only: PyBun never parses a lock back out of YAML,
// only out of the canonical JSON form, so there is no FromYAML here.
func ToYAML(l Lock) ([]byte, error) {
	l.Canonicalize()
	return yaml.Marshal(textLock{
		SchemaVersion:        l.SchemaVersion,
		PlatformTags:         l.PlatformTags,
		Packages:             l.Packages,
		ResolverInputsDigest: l.ResolverInputsDigest,
		ReleaseManifestRef:   l.ReleaseManifestRef,
	})
}
