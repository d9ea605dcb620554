package fastpath

import (
	"encoding/json"

	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/flateval"
	"github.com/jqturbo/jqturbo/flatbuf"
	"github.com/jqturbo/jqturbo/value"
)

// Mode carries the output flags that bear on whether a whole-document
// passthrough is safe to apply (spec §4.6: "disabled when semantic-
// changing flags are set").
type Mode struct {
	Compact    bool
	Slurp      bool
	RawInput   bool
	SortKeys   bool
	JoinOutput bool
}

func (m Mode) semanticsChanged() bool {
	return m.Slurp || m.RawInput || m.SortKeys || m.JoinOutput
}

type passKind int

const (
	passNone passKind = iota
	passIdentity
	passField
	passLength
	passKeys
)

// passShape is the passthrough dispatcher's own small recognizer. It is
// deliberately narrower than Shape/Recognize: passthrough only ever
// produces output by copying bytes or delegating to Nav's zero-copy
// accessors, so it only recognizes the handful of AST shapes that can be
// answered that way (identity, a bare field chain, and a field chain
// piped into length/keys).
type passShape struct {
	kind passKind
	path []string
}

func recognizePassthrough(ast filter.Node) (passShape, bool) {
	if _, isIdentity := ast.(filter.Identity); isIdentity {
		return passShape{kind: passIdentity}, true
	}
	if path, ok := asFieldChain(ast); ok {
		return passShape{kind: passField, path: path}, true
	}
	pipe, ok := ast.(filter.Pipe)
	if !ok {
		return passShape{}, false
	}
	path, ok := asFieldChain(pipe.L)
	if !ok {
		return passShape{}, false
	}
	call, ok := pipe.R.(filter.FuncCall)
	if !ok || len(call.Args) != 0 {
		return passShape{}, false
	}
	switch call.Name {
	case "length":
		return passShape{kind: passLength, path: path}, true
	case "keys", "keys_unsorted":
		return passShape{kind: passKeys, path: path}, true
	}
	return passShape{}, false
}

// Output is a passthrough result: exactly one of Raw or Value is set.
// Raw is ready-to-emit JSON text (used verbatim, with a trailing
// newline); Value still needs to go through the normal output writer so
// it picks up whatever pretty/colorized/sort-keys formatting the
// surrounding run is using.
type Output struct {
	Raw     []byte
	Value   value.Value
	IsValue bool
}

// Passthrough attempts to answer ast against one NDJSON line without
// building a value.Value tree for it (spec §4.6). It returns ok=false
// whenever the shape falls outside its closed set, a semantics-changing
// mode flag is set, or the line's shape doesn't match what ast expects
// (e.g. a named field hops through a non-object) — in every such case
// the caller is expected to fall back to the flat or general evaluator
// and this function produces no output of its own.
func Passthrough(ast filter.Node, mode Mode, line []byte) (Output, bool) {
	if mode.semanticsChanged() {
		return Output{}, false
	}
	shape, ok := recognizePassthrough(ast)
	if !ok {
		return Output{}, false
	}

	switch shape.kind {
	case passIdentity:
		if !mode.Compact {
			return Output{}, false
		}
		return identityCompact(line)
	case passField:
		if !mode.Compact {
			return Output{}, false
		}
		return fieldCompact(line, shape.path)
	case passLength:
		return fieldLength(line, shape.path)
	case passKeys:
		return fieldKeys(line, shape.path)
	default:
		return Output{}, false
	}
}

// identityCompact copies line into a new buffer with its insignificant
// whitespace removed, the literal
// reading of "stream the minified bytes": no DOM, no navigator, just a
// bytes-to-bytes pass. Grounded on encoding/json.Compact, the standard
// library's own minifier; nothing in the dependency set offers one (the
// SIMD parser and the compression codecs are for different concerns).
func identityCompact(line []byte) (Output, bool) {
	var buf []byte
	w := compactBuffer{dst: &buf}
	if err := json.Compact(w, line); err != nil {
		return Output{}, false
	}
	return Output{Raw: buf}, true
}

// compactBuffer adapts a []byte accumulator to io.Writer for
// json.Compact, which writes to an io.Writer rather than returning a
// slice directly.
type compactBuffer struct {
	dst *[]byte
}

func (w compactBuffer) Write(p []byte) (int, error) {
	*w.dst = append(*w.dst, p...)
	return len(p), nil
}

// fieldCompact navigates to path and re-emits that subtree as compact
// JSON text, copying bytes straight out of the flat buffer
// (flatbuf.Buffer.AppendCompactJSON) instead of materializing a
// value.Value. Declines (ok=false) when path hops through a non-object,
// matching the rest of the fast path's type-mismatch-falls-back
// contract.
func fieldCompact(line []byte, path []string) (Output, bool) {
	buf, err := flatbuf.BuildFromJSON(line)
	if err != nil {
		return Output{}, false
	}
	nav := flateval.NewNav(buf)
	for _, seg := range path {
		sub, isNull, typeErr := nav.GetField(seg)
		if typeErr {
			return Output{}, false
		}
		if isNull {
			return Output{Raw: []byte("null")}, true
		}
		nav = sub
	}
	raw, _ := nav.AppendCompactJSON(nil)
	return Output{Raw: raw}, true
}

// fieldLength and fieldKeys answer '<path> | length' and
// '<path> | keys'/'keys_unsorted' for any output mode: the result is a
// number or a short array of strings, small enough that letting the
// normal output writer format it costs nothing, so the win here is
// purely skipping the general evaluator and a full materialization of
// the line for a single field.
func fieldLength(line []byte, path []string) (Output, bool) {
	nav, ok := navigate(line, path)
	if !ok {
		return Output{}, false
	}
	n, err := nav.Length()
	if err != nil {
		return Output{}, false
	}
	return Output{Value: n, IsValue: true}, true
}

func fieldKeys(line []byte, path []string) (Output, bool) {
	nav, ok := navigate(line, path)
	if !ok {
		return Output{}, false
	}
	keys, err := nav.Keys()
	if err != nil {
		return Output{}, false
	}
	return Output{Value: keys, IsValue: true}, true
}

func navigate(line []byte, path []string) (flateval.Nav, bool) {
	buf, err := flatbuf.BuildFromJSON(line)
	if err != nil {
		return flateval.Nav{}, false
	}
	nav := flateval.NewNav(buf)
	for _, seg := range path {
		sub, isNull, typeErr := nav.GetField(seg)
		if typeErr {
			return flateval.Nav{}, false
		}
		if isNull {
			return flateval.Nav{}, true // zero Nav is synthetic null, Length/Keys handle it
		}
		nav = sub
	}
	return nav, true
}
