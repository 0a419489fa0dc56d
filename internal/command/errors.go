package command

import (
	"fmt"

	"pybun/internal/schema"
)

// usageError and ioError are internal/command's own small diagnosable
// error types, for failures that originate in command-level plumbing
// (a malformed --require flag, a lock file that can't be written) rather
// than in any one collaborator package — the same
// "implement schema.Diagnoser, let internal/diagnostic dispatch by
// interface" shape every other package in this repo follows.
type usageError struct{ message string }

func (e *usageError) Error() string { return e.message }

func (e *usageError) Diagnostic() schema.Diagnostic {
	return schema.Diagnostic{Kind: schema.KindUsage, Code: schema.CodeUsageBadArgs, Message: e.message}
}

func errUsage(format string, args ...any) error {
	return &usageError{message: fmt.Sprintf(format, args...)}
}

type ioError struct{ message string }

func (e *ioError) Error() string { return e.message }

func (e *ioError) Diagnostic() schema.Diagnostic {
	return schema.Diagnostic{Kind: schema.KindIO, Code: schema.CodeIOGeneric, Message: e.message}
}

func errIO(format string, args ...any) error {
	return &ioError{message: fmt.Sprintf(format, args...)}
}
