// Package fastpath implements the NDJSON fast-path shape recognizer
// (spec §4.8) and the whole-document passthrough dispatcher (spec
// §4.6): a closed, documented set of filter shapes that the NDJSON
// worker (or the single-document entry point) can answer directly from
// raw JSON bytes, without running the flat or general evaluator for
// every line.
//
// Recognition and evaluation are split on purpose. Recognize walks the
// filter AST once at startup and returns a Shape descriptor; Eval then
// runs that descriptor against each line's bytes. A line on which Eval
// can't produce a confident answer (type mismatch, parse error) returns
// ok=false and the caller falls through to the flat evaluator, per
// spec's "fast-path failures... fall through to the general path
// without producing output themselves".
package fastpath

import (
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/value"
)

// Kind identifies one of the closed set of recognized shapes (spec
// §4.8's "non-exhaustive enumeration").
type Kind int

const (
	// FieldChain is '.a.b.c' (or '.', an empty chain): emit the
	// resulting subtree.
	FieldChain Kind = iota
	// SelectCompare is 'select(<path> OP <literal>)', optionally piped
	// into a projection: emit the projection's result (or the whole
	// line, if there is none) for lines where the comparison holds.
	SelectCompare
	// SelectStringPred is 'select(<path> | pred(arg))' for
	// startswith/endswith/contains/test.
	SelectStringPred
	// MultiFieldObj is '{k1: <path1>, k2: <path2>, ...}'.
	MultiFieldObj
	// MultiFieldArr is '[<path1>, <path2>, ...]'.
	MultiFieldArr
	// Length/Type/Has are the nullary builtins, optionally prefixed by a
	// field chain ('.a.b | length'). Keys/KeysUnsorted are deliberately
	// not fast-pathed: answering them needs full key enumeration over
	// simdjson-go's DOM, which this package doesn't exercise (see
	// eval.go's scope note) — they run through the flat evaluator's own
	// zero-copy Nav.Keys instead (spec §4.9).
	Length
	Type
	Has
)

// Shape is the recognizer's output: enough information to evaluate the
// filter against one line's raw bytes without re-walking the AST.
type Shape struct {
	Kind Kind

	// Path is the field chain from the root, used by FieldChain, Length,
	// Type, Has and as the compared/tested field for
	// SelectCompare/SelectStringPred.
	Path []string

	// SelectCompare fields.
	Op      filter.CompareOp
	Literal value.Value

	// SelectStringPred fields.
	Pred    string // "test", "startswith", "endswith", "contains"
	PredArg string

	// Then is the optional projection piped after a select (nil means
	// emit the whole line).
	Then *Shape

	// MultiFieldObj/MultiFieldArr fields.
	ObjFields []ObjField
	ArrPaths  [][]string

	// Has field.
	HasKey string
}

// ObjField is one key of a MultiFieldObj shape.
type ObjField struct {
	Key  string
	Path []string
}

// Recognize attempts to match ast against the closed shape set. It
// returns ok=false for anything outside that set, in which case the
// caller should use the flat evaluator instead (spec's "closed, small,
// documented set").
func Recognize(ast filter.Node) (Shape, bool) {
	switch t := ast.(type) {
	case filter.FuncCall:
		return recognizeNullaryOrSelect(t)
	case filter.Pipe:
		return recognizePipe(t)
	case filter.ArrayConstruct:
		return recognizeMultiFieldArr(t)
	case filter.ObjectConstruct:
		return recognizeMultiFieldObj(t)
	}
	if path, ok := asFieldChain(ast); ok {
		return Shape{Kind: FieldChain, Path: path}, true
	}
	return Shape{}, false
}

// asFieldChain recognizes '.', '.a', '.a.b', ... as a flattened list of
// field names, the only path shape the fast-path evaluator walks.
func asFieldChain(n filter.Node) ([]string, bool) {
	switch t := n.(type) {
	case filter.Identity:
		return nil, true
	case filter.Field:
		return []string{t.Name}, true
	case filter.Pipe:
		l, ok := asFieldChain(t.L)
		if !ok {
			return nil, false
		}
		r, ok := asFieldChain(t.R)
		if !ok {
			return nil, false
		}
		return append(l, r...), true
	default:
		return nil, false
	}
}

func recognizeNullaryOrSelect(t filter.FuncCall) (Shape, bool) {
	switch t.Name {
	case "length":
		if len(t.Args) == 0 {
			return Shape{Kind: Length}, true
		}
	case "type":
		if len(t.Args) == 0 {
			return Shape{Kind: Type}, true
		}
	case "has":
		if len(t.Args) == 1 {
			if lit, ok := t.Args[0].(filter.Literal); ok && lit.Value.Type() == value.String {
				return Shape{Kind: Has, HasKey: lit.Value.Str()}, true
			}
		}
	case "select":
		if len(t.Args) == 1 {
			return recognizeSelect(t.Args[0])
		}
	}
	return Shape{}, false
}

func recognizeSelect(cond filter.Node) (Shape, bool) {
	switch c := cond.(type) {
	case filter.Compare:
		path, ok := asFieldChain(c.L)
		if !ok {
			return Shape{}, false
		}
		lit, ok := c.R.(filter.Literal)
		if !ok {
			return Shape{}, false
		}
		return Shape{Kind: SelectCompare, Path: path, Op: c.Op, Literal: lit.Value}, true
	case filter.Pipe:
		path, ok := asFieldChain(c.L)
		if !ok {
			return Shape{}, false
		}
		call, ok := c.R.(filter.FuncCall)
		if !ok || len(call.Args) != 1 {
			return Shape{}, false
		}
		lit, ok := call.Args[0].(filter.Literal)
		if !ok || lit.Value.Type() != value.String {
			return Shape{}, false
		}
		switch call.Name {
		case "test", "startswith", "endswith", "contains":
			return Shape{Kind: SelectStringPred, Path: path, Pred: call.Name, PredArg: lit.Value.Str()}, true
		}
	}
	return Shape{}, false
}

func recognizePipe(t filter.Pipe) (Shape, bool) {
	if path, ok := asFieldChain(t); ok {
		return Shape{Kind: FieldChain, Path: path}, true
	}

	// '<path> | length/type/has(...)' — L is a field chain (possibly
	// empty, i.e. Identity), R is a nullary builtin.
	if path, ok := asFieldChain(t.L); ok {
		if call, ok := t.R.(filter.FuncCall); ok {
			switch call.Name {
			case "length":
				if len(call.Args) == 0 {
					return Shape{Kind: Length, Path: path}, true
				}
			case "type":
				if len(call.Args) == 0 {
					return Shape{Kind: Type, Path: path}, true
				}
			case "has":
				if len(call.Args) == 1 {
					if lit, ok := call.Args[0].(filter.Literal); ok && lit.Value.Type() == value.String {
						return Shape{Kind: Has, Path: path, HasKey: lit.Value.Str()}, true
					}
				}
			}
		}
	}

	// 'select(...) | projection' — project only the lines that pass.
	if call, ok := t.L.(filter.FuncCall); ok && call.Name == "select" && len(call.Args) == 1 {
		base, ok := recognizeSelect(call.Args[0])
		if !ok {
			return Shape{}, false
		}
		then, ok := Recognize(t.R)
		if !ok {
			return Shape{}, false
		}
		base.Then = &then
		return base, true
	}

	return Shape{}, false
}

func recognizeMultiFieldObj(t filter.ObjectConstruct) (Shape, bool) {
	fields := make([]ObjField, len(t.Entries))
	for i, e := range t.Entries {
		if e.KeyExpr != nil || e.Value == nil {
			return Shape{}, false
		}
		path, ok := asFieldChain(e.Value)
		if !ok {
			return Shape{}, false
		}
		fields[i] = ObjField{Key: e.KeyName, Path: path}
	}
	return Shape{Kind: MultiFieldObj, ObjFields: fields}, true
}

func recognizeMultiFieldArr(t filter.ArrayConstruct) (Shape, bool) {
	var items []filter.Node
	switch b := t.Body.(type) {
	case nil:
		return Shape{Kind: MultiFieldArr, ArrPaths: nil}, true
	case filter.Comma:
		items = b.Items
	default:
		items = []filter.Node{b}
	}
	paths := make([][]string, len(items))
	for i, it := range items {
		path, ok := asFieldChain(it)
		if !ok {
			return Shape{}, false
		}
		paths[i] = path
	}
	return Shape{Kind: MultiFieldArr, ArrPaths: paths}, true
}
