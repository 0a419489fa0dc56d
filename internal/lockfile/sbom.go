package lockfile

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// CycloneDX-shaped SBOM generation, supplementing spec.md's lockfile with
// the software-bill-of-materials feature original_source/src/sbom.rs
// implements but spec.md's distillation drops. The resolved set already
// carries everything a CycloneDX "application + file components" BOM
// needs (name, version, sha256), so this is a pure projection of Lock,
// not a second source of truth.
type sbomTool struct {
	Vendor  string `json:"vendor"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type sbomHash struct {
	Algorithm string `json:"alg"`
	Content   string `json:"content"`
}

type sbomComponent struct {
	BomRef  string     `json:"bom-ref"`
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Version string     `json:"version,omitempty"`
	PURL    string     `json:"purl,omitempty"`
	Hashes  []sbomHash `json:"hashes,omitempty"`
}

type sbomMetadata struct {
	Tools     []sbomTool     `json:"tools,omitempty"`
	Component *sbomComponent `json:"component,omitempty"`
}

// SBOM is a CycloneDX 1.5 bill-of-materials document.
type SBOM struct {
	BomFormat    string        `json:"bomFormat"`
	SpecVersion  string        `json:"specVersion"`
	Version      int           `json:"version"`
	SerialNumber string        `json:"serialNumber"`
	Metadata     sbomMetadata  `json:"metadata"`
	Components   []sbomComponent `json:"components"`
}

// BuildSBOM renders l's resolved set as a CycloneDX document. projectName
// and projectVersion describe the consuming project, not PyBun itself.
func BuildSBOM(l Lock, projectName, projectVersion, toolVersion string) SBOM {
	l.Canonicalize()

	if projectName == "" {
		projectName = "unknown-project"
	}
	if projectVersion == "" {
		projectVersion = "0.0.0"
	}

	components := make([]sbomComponent, 0, len(l.Packages))
	for _, p := range l.Packages {
		c := sbomComponent{
			BomRef:  fmt.Sprintf("pkg:%s@%s", p.Name, p.Version),
			Name:    p.Name,
			Type:    "library",
			Version: p.Version,
			PURL:    fmt.Sprintf("pkg:pypi/%s@%s", p.Name, p.Version),
		}
		if p.SHA256 != "" {
			c.Hashes = []sbomHash{{Algorithm: "SHA-256", Content: p.SHA256}}
		}
		components = append(components, c)
	}

	return SBOM{
		BomFormat:    "CycloneDX",
		SpecVersion:  "1.5",
		Version:      1,
		SerialNumber: "urn:uuid:" + uuid.New().String(),
		Metadata: sbomMetadata{
			Tools: []sbomTool{{Vendor: "PyBun", Name: "pybun", Version: toolVersion}},
			Component: &sbomComponent{
				BomRef:  projectName,
				Name:    projectName,
				Type:    "application",
				Version: projectVersion,
				PURL:    fmt.Sprintf("pkg:generic/%s@%s", projectName, projectVersion),
			},
		},
		Components: components,
	}
}

// ToJSON renders the SBOM as pretty-printed JSON, the form
// original_source/src/sbom.rs writes to disk.
func (s SBOM) ToJSON() ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
