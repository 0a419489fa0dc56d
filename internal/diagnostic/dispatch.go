// Package diagnostic is the single place that turns a component error
// into the envelope's diagnostic entry and a process exit code. It
// dispatches on the schema.Diagnoser interface instead of a central type
// switch, the same way the teacher's CLI layer dispatches on
// *state.WorkspaceFailureError / *state.GraphFailureError via errors.As.
package diagnostic

import (
	"errors"

	"pybun/internal/schema"
)

// Translate walks err's chain for a schema.Diagnoser and returns its
// Diagnostic. If nothing in the chain implements Diagnoser, it falls back
// to a generic io diagnostic carrying err's message — every command must
// still emit an envelope (spec.md §7), even for an error type this
// package has never seen.
func Translate(err error) schema.Diagnostic {
	if err == nil {
		return schema.Diagnostic{}
	}

	var d schema.Diagnoser
	if errors.As(err, &d) {
		return d.Diagnostic()
	}

	return schema.Diagnostic{
		Kind:    schema.KindIO,
		Code:    schema.CodeIOGeneric,
		Message: err.Error(),
	}
}

// Record translates err, appends the diagnostic to collector, and returns
// it so the caller can also drive exit-code selection without calling
// Translate twice.
func Record(collector *schema.Collector, err error) schema.Diagnostic {
	d := Translate(err)
	collector.Diagnose(d)
	return d
}

// ExitCode maps a diagnostic code to the process exit code spec.md §6
// pins: 0 ok, 1 generic error, 2 usage error, 64 resolver conflict, 65
// verification failure, 74 I/O error. Codes not named here (a missing
// package, a missing interpreter, a denied syscall, ...) are ordinary
// failures and exit 1.
func ExitCode(d schema.Diagnostic) int {
	switch d.Code {
	case schema.CodeResolveConflict:
		return 64
	case schema.CodeDownloadVerify:
		return 65
	case schema.CodeUsageBadArgs:
		return 2
	case schema.CodeIOGeneric, schema.CodeInstallIO, schema.CodeInstallPermission:
		return 74
	case "":
		return 0
	default:
		return 1
	}
}
