// Package env implements the immutable, chained binding environment that
// threads variable and function scope through the evaluator (spec §3
// "Environment", §4.4 user-defined functions).
package env

import "github.com/jqturbo/jqturbo/value"

// FuncDef is a (name, arity)-keyed function binding. Body and Params are
// opaque to env; it only needs enough to resolve a call by name/arity and
// hand the callsite back the closure's defining environment.
type FuncDef struct {
	Name    string
	Params  []string
	Body    any // *filter.Node, kept as `any` to avoid an import cycle
	Closure *Env
}

// Env is a persistent, singly-linked scope chain. Lookups walk innermost
// first; binding a name that shadows an outer one never mutates the
// parent frame, so closures captured before the shadowing bind still see
// the old value (spec's "user-defined functions with late-bound filter
// params vs call-by-value $-params" needs this: a function's captured
// defining environment must not be perturbed by a caller's own bindings).
type Env struct {
	parent *Env

	varName  string
	varValue value.Value

	fn *FuncDef

	// callDepth counts user-defined-function invocations (not definitions
	// or parameter bindings) on the path from the root to this frame. It
	// is propagated by every constructor below and only ever incremented
	// by PushCall, which is the sole call site that represents "a
	// function body is about to run" (spec §4.4's depth-budget
	// enforcement for recursive defs).
	callDepth int

	// inputs/ENV are looked up by walking to the root frame, since they
	// are process-wide rather than lexically scoped.
	inputs func() (value.Value, bool)
	osEnv  map[string]string
}

// Root constructs the base environment: no bindings, wired to the input
// generator (for `input`/`inputs`) and the process environment table
// (for `env`/`$ENV`).
func Root(inputs func() (value.Value, bool), osEnv map[string]string) *Env {
	return &Env{inputs: inputs, osEnv: osEnv}
}

// WithVar returns a child environment binding $name to v.
func (e *Env) WithVar(name string, v value.Value) *Env {
	return &Env{parent: e, varName: name, varValue: v, callDepth: e.callDepth}
}

// WithFunc returns a child environment binding fn under its own
// (name, arity) key, with fn.Closure set to that returned Env so the
// function's body can see itself and recurse (spec §4.4).
func (e *Env) WithFunc(fn FuncDef) *Env {
	child := &Env{parent: e, fn: &fn, callDepth: e.callDepth}
	child.fn.Closure = child
	return child
}

// WithAlias returns a child environment binding fn under (name, arity)
// without rewriting fn.Closure to itself — unlike WithFunc, which always
// makes a definition see itself for recursion. Used for filter-parameter
// aliases, which must evaluate in the call site's environment, not the
// callee's, and therefore need a fixed, externally supplied Closure.
func (e *Env) WithAlias(fn FuncDef) *Env {
	return &Env{parent: e, fn: &fn, callDepth: e.callDepth}
}

// PushCall returns a child environment with the call-depth counter
// incremented by one, for use at the single point a user-defined
// function's body is about to be evaluated (eval/funcs.go's
// callUserFunc). ok is false once limit has already been reached, in
// which case the caller should fail instead of evaluating the body —
// this is what turns unbounded def recursion (e.g. `def f: f; f`) into a
// catchable runtime error instead of a native stack overflow.
func (e *Env) PushCall(limit int) (child *Env, ok bool) {
	if e.callDepth >= limit {
		return e, false
	}
	return &Env{parent: e, callDepth: e.callDepth + 1}, true
}

// LookupVar searches innermost-first for $name.
func (e *Env) LookupVar(name string) (value.Value, bool) {
	for f := e; f != nil; f = f.parent {
		if f.varName == name {
			return f.varValue, true
		}
	}
	return value.Value{}, false
}

// LookupFunc searches innermost-first for a function matching
// (name, arity).
func (e *Env) LookupFunc(name string, arity int) (FuncDef, bool) {
	for f := e; f != nil; f = f.parent {
		if f.fn != nil && f.fn.Name == name && len(f.fn.Params) == arity {
			return *f.fn, true
		}
	}
	return FuncDef{}, false
}

// Inputs returns the shared `input`/`inputs` generator, found by walking
// to the root frame.
func (e *Env) Inputs() func() (value.Value, bool) {
	f := e
	for f.parent != nil {
		f = f.parent
	}
	return f.inputs
}

// OSEnv returns the process environment table used by `env`/`$ENV`.
func (e *Env) OSEnv() map[string]string {
	f := e
	for f.parent != nil {
		f = f.parent
	}
	return f.osEnv
}
