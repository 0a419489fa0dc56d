package resolver

import "pybun/internal/schema"

// Error is the resolver's structured failure type, translated into the
// envelope's diagnostics[] by internal/diagnostic via the schema.Diagnoser
// interface.
type Error struct {
	diagnostic schema.Diagnostic
}

func (e *Error) Error() string { return e.diagnostic.Message }

func (e *Error) Diagnostic() schema.Diagnostic { return e.diagnostic }

func errMissing(name string, available []string) error {
	return &Error{diagnostic: schema.Diagnostic{
		Kind:              schema.KindResolve,
		Code:              schema.CodeResolveMissing,
		Message:           "required package " + name + " is not listed by the index",
		Hint:              "check the package name, or that the index configured has this package",
		AvailableVersions: available,
	}}
}

func errConflict(name string, chains []schema.ProvenanceChain) error {
	return &Error{diagnostic: schema.Diagnostic{
		Kind:    schema.KindResolve,
		Code:    schema.CodeResolveConflict,
		Message: "no version of " + name + " satisfies every active requirement",
		Hint:    "relax one of the conflicting constraints shown in the chain tree",
		Tree:    &schema.ConflictTree{Package: name, Chains: chains},
	}}
}
