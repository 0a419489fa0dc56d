package index

import "pybun/internal/schema"

// Error is the index client's structured failure type. It implements
// schema.Diagnoser so internal/diagnostic can translate it into the
// envelope's diagnostics[] without a central type switch, mirroring the
// teacher's *state.WorkspaceFailureError / errors.As dispatch.
type Error struct {
	Code    schema.Code
	Name    string
	Message string
	Hint    string
}

func (e *Error) Error() string {
	if e.Name != "" {
		return e.Message + " (" + e.Name + ")"
	}
	return e.Message
}

func (e *Error) Diagnostic() schema.Diagnostic {
	return schema.Diagnostic{
		Kind:    schema.KindIndex,
		Code:    e.Code,
		Message: e.Error(),
		Hint:    e.Hint,
	}
}

func errOffline(name string) error {
	return &Error{
		Code:    schema.CodeIndexOfflineMiss,
		Name:    name,
		Message: "no cached metadata for " + name + " and the client is offline",
		Hint:    "drop --offline or pre-warm the cache while online",
	}
}

func errNetwork(name string, cause error) error {
	return &Error{
		Code:    schema.CodeIndexNetwork,
		Name:    name,
		Message: "fetching metadata for " + name + " failed: " + cause.Error(),
		Hint:    "check connectivity to the index, or retry with --offline if a cached copy exists",
	}
}

func errMalformed(name string, cause error) error {
	return &Error{
		Code:    schema.CodeIndexMalformed,
		Name:    name,
		Message: "index returned a malformed payload for " + name + ": " + cause.Error(),
	}
}
