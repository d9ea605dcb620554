// Package flateval implements the lazy flat evaluator (spec §4.5): a
// navigator over a flatbuf.Buffer (spec §4.9) plus an alternate compiled
// form of the evaluator that walks the buffer directly for a closed set
// of "flat-safe" filter shapes, materializing a value.Value only at
// output points. Anything outside that set is materialized once and
// handed to the full eval package evaluator, so Evaluator.Eval is a
// correct front-end for every filter, optimized or not.
//
// Grounded on iterator/streamiterator.go's Advance/Done/CurrentValue
// navigation shape, adapted from a channel-backed token stream to
// offset-arithmetic over an in-memory flatbuf.Buffer: GetField/GetIndex
// mirror get_field/get_index from spec §4.9, and Iterate returns the
// cheap (buffer pointer, offset) pairs that stand in for the teacher's
// per-element Collection.Advance/CurrentValue cursor.
package flateval

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/jqturbo/jqturbo/flatbuf"
	"github.com/jqturbo/jqturbo/value"
)

// Nav is an immutable view into a flat buffer at a specific offset. The
// zero value represents a synthetic null (no buffer bytes to point at)
// for field/index lookups that miss — this lets every Nav-producing
// node keep returning Nav instead of falling back to value.Value just to
// represent "absent". Views are freely copyable.
type Nav struct {
	buf *flatbuf.Buffer
	off int
}

// NewNav returns a Nav at the root of buf.
func NewNav(buf *flatbuf.Buffer) Nav { return Nav{buf: buf, off: 0} }

// Tag reports the token tag at the navigator's position; a synthetic
// (zero-value) Nav reports TagNull.
func (n Nav) Tag() flatbuf.Tag {
	if n.buf == nil {
		return flatbuf.TagNull
	}
	return n.buf.Tag(n.off)
}

// TypeName reports jq's type name for the navigator's position, computed
// from the tag alone (no materialization needed).
func (n Nav) TypeName() string {
	switch n.Tag() {
	case flatbuf.TagNull:
		return "null"
	case flatbuf.TagBool:
		return "boolean"
	case flatbuf.TagInt, flatbuf.TagDouble:
		return "number"
	case flatbuf.TagString:
		return "string"
	case flatbuf.TagArrayStart:
		return "array"
	case flatbuf.TagObjectStart:
		return "object"
	default:
		return "unknown"
	}
}

// Truthy implements jq's truthiness (everything but null and false) by
// inspecting the tag/bool payload only, without materializing.
func (n Nav) Truthy() bool {
	switch n.Tag() {
	case flatbuf.TagNull:
		return false
	case flatbuf.TagBool:
		b, _ := n.buf.ReadBool(n.off)
		return b
	default:
		return true
	}
}

// Materialize converts the navigator's position into a value.Value,
// walking and allocating the subtree (spec §4.9: "Materialization to a
// Value walks the subtree and allocates").
func (n Nav) Materialize() (value.Value, error) {
	if n.buf == nil {
		return value.NewNull(), nil
	}
	v, _, err := n.buf.MaterializeAt(n.off)
	return v, err
}

// AppendCompactJSON appends the navigator's value to dst as compact JSON
// text, copying string/number payloads straight out of the buffer
// (flatbuf.Buffer.AppendCompactJSON) instead of materializing a
// value.Value first — what the passthrough dispatcher (package fastpath,
// spec §4.6) uses to re-emit a named subtree untouched.
func (n Nav) AppendCompactJSON(dst []byte) ([]byte, int) {
	if n.buf == nil {
		return append(dst, "null"...), 0
	}
	return n.buf.AppendCompactJSON(dst, n.off)
}

// GetField looks up a named field (spec §4.9's get_field: a linear scan
// over the object's entries, zero-copy string compare). isNull is true
// when the field is absent or the navigator's value is null (both
// produce jq's "null" result); typeErr is true when the value is neither
// an object nor null.
func (n Nav) GetField(key string) (sub Nav, isNull bool, typeErr bool) {
	switch n.Tag() {
	case flatbuf.TagNull:
		return Nav{}, true, false
	case flatbuf.TagObjectStart:
		count, pos := n.buf.ChildCount(n.off)
		for i := uint32(0); i < count; i++ {
			kbytes, valOff := n.buf.ReadStringBytes(pos)
			if string(kbytes) == key {
				return Nav{buf: n.buf, off: valOff}, false, false
			}
			pos = n.buf.ValueEnd(valOff)
		}
		return Nav{}, true, false
	default:
		return Nav{}, false, true
	}
}

// GetIndex looks up an array element by a possibly-negative index (spec
// §4.9's get_index).
func (n Nav) GetIndex(i int64) (sub Nav, isNull bool, typeErr bool) {
	switch n.Tag() {
	case flatbuf.TagNull:
		return Nav{}, true, false
	case flatbuf.TagArrayStart:
		count, pos := n.buf.ChildCount(n.off)
		idx := i
		if idx < 0 {
			idx += int64(count)
		}
		if idx < 0 || idx >= int64(count) {
			return Nav{}, true, false
		}
		for j := int64(0); j < idx; j++ {
			pos = n.buf.ValueEnd(pos)
		}
		return Nav{buf: n.buf, off: pos}, false, false
	default:
		return Nav{}, false, true
	}
}

// Iterate returns a Nav per array element or per object value, in
// insertion order, skipping past each child's byte extent via ValueEnd
// rather than materializing it. It errors for anything but an array or
// object, matching the full evaluator's Iterate semantics.
func (n Nav) Iterate() ([]Nav, error) {
	switch n.Tag() {
	case flatbuf.TagArrayStart:
		count, pos := n.buf.ChildCount(n.off)
		out := make([]Nav, 0, count)
		for i := uint32(0); i < count; i++ {
			out = append(out, Nav{buf: n.buf, off: pos})
			pos = n.buf.ValueEnd(pos)
		}
		return out, nil
	case flatbuf.TagObjectStart:
		count, pos := n.buf.ChildCount(n.off)
		out := make([]Nav, 0, count)
		for i := uint32(0); i < count; i++ {
			_, valOff := n.buf.ReadStringBytes(pos)
			out = append(out, Nav{buf: n.buf, off: valOff})
			pos = n.buf.ValueEnd(valOff)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("Cannot iterate over %s", n.TypeName())
	}
}

// Length implements the "length" builtin directly off the tag/prefix
// bytes: array/object length is the O(1) child-count prefix, string
// length is a codepoint count over the raw bytes, and number length is
// the absolute value — none of it requires building a value.Value tree.
func (n Nav) Length() (value.Value, error) {
	switch n.Tag() {
	case flatbuf.TagNull:
		return value.NewInt(0), nil
	case flatbuf.TagString:
		s, _ := n.buf.ReadString(n.off)
		return value.NewInt(int64(utf8.RuneCountInString(s))), nil
	case flatbuf.TagArrayStart, flatbuf.TagObjectStart:
		count, _ := n.buf.ChildCount(n.off)
		return value.NewInt(int64(count)), nil
	case flatbuf.TagInt:
		i, _ := n.buf.ReadInt(n.off)
		if i < 0 {
			i = -i
		}
		return value.NewInt(i), nil
	case flatbuf.TagDouble:
		f, _, _ := n.buf.ReadDouble(n.off)
		if f < 0 {
			f = -f
		}
		return value.NewDouble(f), nil
	default:
		return value.Value{}, fmt.Errorf("%s has no length", n.TypeName())
	}
}

// Keys implements the "keys" builtin (sorted object keys) directly off
// the key bytes, without materializing the object's values.
func (n Nav) Keys() (value.Value, error) {
	if n.Tag() != flatbuf.TagObjectStart {
		return value.Value{}, fmt.Errorf("%s (%s) has no keys", n.TypeName(), n.TypeName())
	}
	count, pos := n.buf.ChildCount(n.off)
	keys := make([]string, 0, count)
	for i := uint32(0); i < count; i++ {
		k, valOff := n.buf.ReadString(pos)
		keys = append(keys, k)
		pos = n.buf.ValueEnd(valOff)
	}
	sort.Strings(keys)
	elems := make([]value.Value, len(keys))
	for i, k := range keys {
		elems[i] = value.NewString(k)
	}
	return value.NewArray(elems), nil
}
