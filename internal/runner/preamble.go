// Package runner implements the Script Runner (spec.md §4.6): it detects
// an inline PEP 723 metadata block, resolves and reuses an isolated
// environment keyed by the block's dependency hash, hands off execution to
// the interpreter, and optionally injects a sandbox policy.
package runner

import (
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// startMarker and endMarker delimit the embedded TOML block, exactly as in
// PEP 723: a run of comment lines opened by "# /// script" and closed by
// "# ///". No library in the retrieval pack parses this comment-fenced
// shape, so the fence-stripping loop is hand-written; the TOML body inside
// the fence is decoded with go-toml/v2 rather than a hand-rolled parser.
const (
	startMarker = "# /// script"
	endMarker   = "# ///"
)

// Metadata is the parsed content of a script's inline preamble.
type Metadata struct {
	RequiresPython string   `toml:"requires-python"`
	Dependencies   []string `toml:"dependencies"`
}

// HasMetadata reports whether content contains a PEP 723 block, without
// parsing it.
func HasMetadata(content string) bool {
	return strings.Contains(content, startMarker)
}

// ParseMetadata extracts and decodes the PEP 723 block from content. It
// returns (nil, nil) when no block is present — that is not an error, it
// is the common case of a script with no inline dependencies.
func ParseMetadata(content string) (*Metadata, error) {
	block, found := extractBlock(content)
	if !found {
		return nil, nil
	}

	var meta Metadata
	if strings.TrimSpace(block) == "" {
		return &meta, nil
	}
	if err := toml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// extractBlock scans content line by line for the fenced comment block and
// returns the embedded TOML with the leading "# " comment prefix stripped.
// Mirrors the teacher-adjacent original's extract_metadata_block: a line
// that does not start with "#" ends the block, matching "metadata must be
// the terminal element in a comment run" from the PEP.
func extractBlock(content string) (string, bool) {
	var lines []string
	inBlock := false
	found := false

scan:
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if !inBlock && trimmed == startMarker {
			inBlock = true
			found = true
			continue
		}
		if !inBlock {
			continue
		}
		if trimmed == endMarker {
			break scan
		}

		switch {
		case strings.HasPrefix(trimmed, "# "):
			lines = append(lines, trimmed[2:])
		case strings.HasPrefix(trimmed, "#"):
			lines = append(lines, trimmed[1:])
		default:
			break scan
		}
	}

	if !found {
		return "", false
	}
	return strings.Join(lines, "\n"), true
}
