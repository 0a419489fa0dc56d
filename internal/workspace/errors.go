package workspace

import "pybun/internal/schema"

// Error reports a structural problem in a workspace's member set — caught
// before the resolver ever runs, the same "reject upfront, don't discover
// mid-solve" posture the teacher's dag.NewTaskGraph takes toward duplicate
// names and unknown edges. There is no dedicated workspace diagnostic kind
// in spec.md's taxonomy, so these surface as usage errors: a malformed
// workspace is an invocation problem, not a resolve/index/download failure.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Diagnostic() schema.Diagnostic {
	return schema.Diagnostic{
		Kind:    schema.KindUsage,
		Code:    schema.CodeUsageBadArgs,
		Message: e.Message,
	}
}

func errDuplicateMemberPath(path string) *Error {
	return &Error{Message: "duplicate workspace member path: " + path}
}

func errDuplicateMemberName(name string) *Error {
	return &Error{Message: "duplicate workspace member name: " + name}
}

func errMemberNameCollidesWithRoot(name string) *Error {
	return &Error{Message: "workspace member name collides with root project name: " + name}
}
