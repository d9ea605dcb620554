// Package eval implements the materializing, generator-semantics
// evaluator over value.Value trees (spec §4.4), including path/assignment
// machinery, the builtin function table, format-string encoders, regex
// builtins, and tostream/fromstream (spec §4.10, §4.11).
package eval

import (
	"fmt"

	"github.com/jqturbo/jqturbo/value"
)

// ErrState is the explicit error/break slot threaded through every Eval
// call in place of Go's usual error return: jq's generator semantics need
// a channel can both *emit values* and *fail*, and failure must be
// catchable mid-stream by the nearest enclosing try/?///label, which a
// plain (value, error) pair can't express once multiple values have
// already been emitted through Emit.
type ErrState struct {
	// Val is the jq-level value associated with a runtime error (what
	// `error(...)` was called with, or a synthesized type-error message).
	Val value.Value

	// Label is set instead of Val for a `break $label` signal; IsBreak
	// reports true in that case. Label propagation stops at the matching
	// `label $name | ...` node and is otherwise fatal.
	Label string
}

func (e *ErrState) Error() string {
	if e == nil {
		return ""
	}
	if e.Label != "" {
		return fmt.Sprintf("break to unknown label $%s", e.Label)
	}
	if e.Val.Type() == value.String {
		return e.Val.Str()
	}
	return value.Format(e.Val, false)
}

// IsBreak reports whether e is a break-to-label signal rather than an
// error value.
func (e *ErrState) IsBreak() bool { return e != nil && e.Label != "" }

// Errorf builds an ErrState carrying a string error message.
func Errorf(format string, args ...any) *ErrState {
	return &ErrState{Val: value.NewString(fmt.Sprintf(format, args...))}
}

// ErrorValue builds an ErrState carrying an arbitrary jq value, as thrown
// by the `error(v)` builtin (jq errors are not limited to strings).
func ErrorValue(v value.Value) *ErrState { return &ErrState{Val: v} }

// BreakSignal builds the ErrState used to unwind to a `label $name`.
func BreakSignal(name string) *ErrState { return &ErrState{Label: name} }

// FromTypeError adapts a value.TypeError (or any error) raised by the
// value package's arithmetic/field/index operations into an ErrState.
func FromTypeError(err error) *ErrState {
	return &ErrState{Val: value.NewString(err.Error())}
}

// firstSentinel is a label value no real `label $name` can bind to (jq
// label names come from the lexer's $var rule, which never produces a
// NUL byte), used to unwind a generator after its first output without
// that unwind looking like a real label break.
const firstSentinel = "\x00first"

// Emit is the continuation a generator-semantics node calls once per
// output value. Returning a non-nil ErrState from Emit asks the producer
// to stop early (used by `first`, `limit`, and label/break unwinding) and
// that ErrState is propagated back out of the producing node's Eval call.
type Emit func(value.Value) *ErrState
