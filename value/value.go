// Package value implements the tagged-union JSON value used throughout the
// filter evaluator: a single representation for null, booleans, integers,
// doubles (with optional preserved source text), strings, arrays and
// objects.
//
// Arrays and objects hold their elements in a shared slice. Evaluator code
// that needs to mutate a value (assignment operators, reduce/foreach
// accumulators) must call Clone first; Value itself never mutates shared
// backing storage in place. This is the copy-on-write discipline described
// in the design notes: cheap fan-out for Comma/Pipe, cheap mutation when a
// caller actually owns the only reference.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Type identifies the dynamic type of a Value.
type Type uint8

const (
	Null Type = iota
	Bool
	Int
	Double
	String
	Array
	Object
)

func (t Type) String() string {
	switch t {
	case Null:
		return "null"
	case Bool:
		return "boolean"
	case Int, Double:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Entry is a single (key, value) pair inside an Object. Order is
// significant and duplicate keys are permitted during construction, as
// required by the data model: identity filters must round-trip key order
// byte-exact.
type Entry struct {
	Key   string
	Value Value
}

// Value is the tagged union. Zero value is JSON null.
type Value struct {
	typ Type

	b bool
	i int64
	f float64

	// raw holds the original textual form of a Double as read from input,
	// e.g. "75.80". It is cleared by any arithmetic operation that touches
	// the number, per the number-text-preservation contract.
	raw string

	s string

	arr *[]Value
	obj *[]Entry
}

// NewNull returns the null value.
func NewNull() Value { return Value{typ: Null} }

// NewBool wraps a boolean.
func NewBool(b bool) Value { return Value{typ: Bool, b: b} }

// NewInt wraps a signed 64-bit integer.
func NewInt(i int64) Value { return Value{typ: Int, i: i} }

// NewDouble wraps a float64 with no preserved source text (the result of
// arithmetic, for instance).
func NewDouble(f float64) Value { return Value{typ: Double, f: f} }

// NewDoubleText wraps a float64 alongside the original source text it was
// parsed from, so output can round-trip it exactly.
func NewDoubleText(f float64, raw string) Value { return Value{typ: Double, f: f, raw: raw} }

// NewNumberFromText parses a numeric literal exactly as the lexer captured
// it. Literals with no fractional part or exponent and that fit in an
// int64 become Int; everything else becomes a Double with the original
// text preserved for round-tripping (spec §4.3).
func NewNumberFromText(text string) Value {
	if !strings.ContainsAny(text, ".eE") {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return NewInt(i)
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return NewDouble(0)
	}
	return NewDoubleText(f, text)
}

// NewString wraps a UTF-8 string.
func NewString(s string) Value { return Value{typ: String, s: s} }

// NewArray wraps a slice of values. The slice is taken by reference: the
// caller must not mutate it afterwards without going through Value's own
// copy-on-write helpers.
func NewArray(elems []Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{typ: Array, arr: &elems}
}

// NewObject wraps a slice of entries, preserving order and duplicate keys.
func NewObject(entries []Entry) Value {
	if entries == nil {
		entries = []Entry{}
	}
	return Value{typ: Object, obj: &entries}
}

// Type reports the dynamic type of v.
func (v Value) Type() Type { return v.typ }

func (v Value) IsNull() bool { return v.typ == Null }

// Truthy implements jq's truthiness: everything except null and false is
// truthy.
func (v Value) Truthy() bool {
	switch v.typ {
	case Null:
		return false
	case Bool:
		return v.b
	default:
		return true
	}
}

func (v Value) Bool() bool { return v.b }

// AsFloat returns the numeric value as a float64 regardless of whether it
// is stored as Int or Double.
func (v Value) AsFloat() float64 {
	if v.typ == Int {
		return float64(v.i)
	}
	return v.f
}

// AsInt returns the numeric value truncated to int64. Only valid when
// Type() is Int or Double.
func (v Value) AsInt() int64 {
	if v.typ == Int {
		return v.i
	}
	return int64(v.f)
}

// RawText returns the preserved source text for a Double, and whether one
// is present.
func (v Value) RawText() (string, bool) {
	if v.typ == Double && v.raw != "" {
		return v.raw, true
	}
	return "", false
}

func (v Value) Str() string { return v.s }

// Elems returns the backing slice for an Array. Callers must not retain a
// mutable reference beyond the current evaluation step without Clone.
func (v Value) Elems() []Value {
	if v.arr == nil {
		return nil
	}
	return *v.arr
}

// Entries returns the backing slice for an Object.
func (v Value) Entries() []Entry {
	if v.obj == nil {
		return nil
	}
	return *v.obj
}

// Len reports jq's notion of length: element/entry count for arrays and
// objects, UTF-8 codepoint count for strings, absolute value for numbers,
// 0 for null. Booleans are a type error in jq and must be rejected by the
// caller before calling Len.
func (v Value) Len() (int64, error) {
	switch v.typ {
	case Null:
		return 0, nil
	case String:
		n := int64(0)
		for range v.s {
			n++
		}
		return n, nil
	case Array:
		return int64(len(v.Elems())), nil
	case Object:
		return int64(len(v.Entries())), nil
	case Int:
		if v.i < 0 {
			return -v.i, nil
		}
		return v.i, nil
	case Double:
		f := v.f
		if f < 0 {
			f = -f
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("%s (%v) has no length", v.typ, v)
	}
}

// Field looks up a named field on an object, returning the first matching
// entry's value (jq semantics: later duplicates are shadowed for lookup,
// but both survive in Entries for round-tripping). Looking up a field on
// null yields null; any other type is a TypeError.
func (v Value) Field(name string) (Value, error) {
	switch v.typ {
	case Null:
		return NewNull(), nil
	case Object:
		for _, e := range v.Entries() {
			if e.Key == name {
				return e.Value, nil
			}
		}
		return NewNull(), nil
	default:
		return Value{}, &TypeError{Msg: fmt.Sprintf("Cannot index %s with %q", v.typ, name)}
	}
}

// Index looks up an array element by (possibly negative) index.
func (v Value) Index(i int64) (Value, error) {
	switch v.typ {
	case Null:
		return NewNull(), nil
	case Array:
		elems := v.Elems()
		n := int64(len(elems))
		if i < 0 {
			i += n
		}
		if i < 0 || i >= n {
			return NewNull(), nil
		}
		return elems[i], nil
	default:
		return Value{}, &TypeError{Msg: fmt.Sprintf("Cannot index %s with number", v.typ)}
	}
}

// TypeError is raised by Value operations that hit a type mismatch; it
// flows through eval.ErrState like any other runtime error.
type TypeError struct{ Msg string }

func (e *TypeError) Error() string { return e.Msg }

// Equal implements jq's structural equality: numbers compare by value
// across Int/Double, objects compare ignoring key order and duplicate
// shadowing (last write wins), arrays compare element-wise.
func Equal(a, b Value) bool {
	return Compare(a, b) == 0
}

// typeOrder implements jq's total order across types:
// null < false < true < numbers < strings < arrays < objects.
func typeOrder(v Value) int {
	switch v.typ {
	case Null:
		return 0
	case Bool:
		if v.b {
			return 2
		}
		return 1
	case Int, Double:
		return 3
	case String:
		return 4
	case Array:
		return 5
	case Object:
		return 6
	}
	return 7
}

// Compare implements jq's total order, returning -1, 0 or 1.
func Compare(a, b Value) int {
	oa, ob := typeOrder(a), typeOrder(b)
	if oa != ob {
		if oa < ob {
			return -1
		}
		return 1
	}
	switch a.typ {
	case Null:
		return 0
	case Bool:
		return 0 // already ordered by typeOrder (false=1, true=2)
	case Int, Double:
		fa, fb := a.AsFloat(), b.AsFloat()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case String:
		switch {
		case a.s < b.s:
			return -1
		case a.s > b.s:
			return 1
		default:
			return 0
		}
	case Array:
		ea, eb := a.Elems(), b.Elems()
		for i := 0; i < len(ea) && i < len(eb); i++ {
			if c := Compare(ea[i], eb[i]); c != 0 {
				return c
			}
		}
		switch {
		case len(ea) < len(eb):
			return -1
		case len(ea) > len(eb):
			return 1
		default:
			return 0
		}
	case Object:
		// Compare by sorted keys first, then by values in that key order.
		ka := sortedKeys(a)
		kb := sortedKeys(b)
		for i := 0; i < len(ka) && i < len(kb); i++ {
			if ka[i] < kb[i] {
				return -1
			}
			if ka[i] > kb[i] {
				return 1
			}
		}
		if len(ka) != len(kb) {
			if len(ka) < len(kb) {
				return -1
			}
			return 1
		}
		for _, k := range ka {
			va, _ := a.Field(k)
			vb, _ := b.Field(k)
			if c := Compare(va, vb); c != 0 {
				return c
			}
		}
		return 0
	}
	return 0
}

func sortedKeys(v Value) []string {
	entries := v.Entries()
	seen := make(map[string]bool, len(entries))
	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if !seen[e.Key] {
			seen[e.Key] = true
			keys = append(keys, e.Key)
		}
	}
	sort.Strings(keys)
	return keys
}

// SortedEntries returns v's entries sorted by key (for `keys`/`-S`). v
// must be an Object.
func SortedEntries(v Value) []Entry {
	keys := sortedKeys(v)
	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		val, _ := v.Field(k)
		out = append(out, Entry{Key: k, Value: val})
	}
	return out
}

// Clone performs a shallow copy of the top-level container: Array/Object
// get a fresh backing slice (so appends/mutations don't alias the
// original), scalars are returned unchanged since Value is already a
// value type for them.
func Clone(v Value) Value {
	switch v.typ {
	case Array:
		elems := append([]Value(nil), v.Elems()...)
		return NewArray(elems)
	case Object:
		entries := append([]Entry(nil), v.Entries()...)
		return NewObject(entries)
	default:
		return v
	}
}
