package runner

import "pybun/internal/schema"

// Error is the runner's own diagnosable failure: a script path that does
// not resolve to a file (spec.md §4.7's E_SCRIPT_NOT_FOUND).
type Error struct {
	Path string
}

func (e *Error) Error() string {
	return "script not found: " + e.Path
}

func (e *Error) Diagnostic() schema.Diagnostic {
	return schema.Diagnostic{
		Kind:    schema.KindRuntime,
		Code:    schema.CodeScriptNotFound,
		Message: e.Error(),
		Hint:    "pass -c for inline code or a valid path",
	}
}

func errScriptNotFound(path string) *Error {
	return &Error{Path: path}
}
