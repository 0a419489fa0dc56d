package download

import (
	"fmt"

	"pybun/internal/schema"
)

// Error is raised when a fetched distribution fails hash or signature
// verification (spec.md §4.3: "on mismatch the file is deleted and
// E_DOWNLOAD_VERIFY is raised").
type Error struct {
	Name    string
	Version string
	Reason  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("download: %s@%s failed verification: %s", e.Name, e.Version, e.Reason)
}

func (e *Error) Diagnostic() schema.Diagnostic {
	return schema.Diagnostic{
		Kind:    schema.KindDownload,
		Code:    schema.CodeDownloadVerify,
		Message: e.Error(),
		Hint:    "the fetched bytes were not written to the cache; re-run to re-fetch from the index, or check that the distribution's publisher signature is trusted",
	}
}

func errHashMismatch(name, version, want, got string) *Error {
	return &Error{Name: name, Version: version, Reason: fmt.Sprintf("sha256 mismatch: want %s, got %s", want, got)}
}

func errSignatureMismatch(name, version string) *Error {
	return &Error{Name: name, Version: version, Reason: "ed25519 signature did not verify against the trusted public key"}
}
