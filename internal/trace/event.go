// Package trace models call-boundary events delivered by the host
// instrumentation hook and maintains per-thread call stacks for a
// profiling session.
package trace

import (
	"fmt"
	"path/filepath"
	"time"
)

// Direction indicates whether a call boundary was entered or exited.
type Direction int

const (
	// Enter marks the start of a call.
	Enter Direction = iota
	// Exit marks the completion of a call.
	Exit
)

// FunctionIdentity uniquely names a callable for the duration of a run.
// Two calls to syntactically the same function produce the same identity
// regardless of call site, so it serves as the aggregation key.
type FunctionIdentity struct {
	// Scope is the enclosing scope (module, package, type) of the callable.
	Scope string
	// Name is the callable's own name.
	Name string
	// File is the originating source file. Empty for builtins.
	File string
}

// String renders the stable report identifier, e.g. "app.handler() [app.py]".
func (id FunctionIdentity) String() string {
	if id.File == "" {
		return fmt.Sprintf("%s.%s()", id.Scope, id.Name)
	}
	return fmt.Sprintf("%s.%s() [%s]", id.Scope, id.Name, filepath.Base(id.File))
}

// IsZero reports whether the identity is unset.
func (id FunctionIdentity) IsZero() bool {
	return id.Scope == "" && id.Name == "" && id.File == ""
}

// Event is a single call-boundary notification from the instrumentation
// hook. Events of one thread are strictly ordered and well nested; no
// ordering is guaranteed across threads.
type Event struct {
	Direction Direction
	Function  FunctionIdentity
	// Thread identifies the logical thread of control (native thread or
	// cooperative task) that produced the event.
	Thread uint64
	// Time is a high-resolution timestamp taken at the call boundary.
	Time time.Time
	// Builtin marks calls into native/builtin callables, which carry no
	// source file.
	Builtin bool
}

// Hook is the push-style callback surface the host execution environment
// exposes. The host delivers one Event per call and return for the exact
// duration the hook is attached.
type Hook interface {
	// Attach installs the callback. Events must not be delivered before
	// Attach returns.
	Attach(fn func(Event)) error
	// Detach removes the callback. No events may be delivered after
	// Detach returns.
	Detach() error
}
