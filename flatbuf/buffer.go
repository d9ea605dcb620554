// Package flatbuf implements the flat token buffer encoding (spec §3
// "Flat token buffer"): a linear byte sequence representing one parsed
// JSON document, laid out so that scalars carry their payload inline and
// containers carry a child/entry count so a reader can skip their
// contents without recursing.
//
// This package owns the wire format and two ways to fill it: a streaming
// Builder for callers that already have structured values, and
// BuildFromJSON for turning raw JSON text into a buffer directly,
// without first building a value.Value tree. Navigating an existing
// buffer field-by-field (get_field, get_index, lazy iteration) is
// flateval's job; this package exposes only the raw tag/offset
// primitives that navigation is built from.
package flatbuf

import (
	"encoding/binary"
	"math"
)

// Tag identifies the kind of token encoded at a given buffer offset.
type Tag byte

const (
	TagNull Tag = iota
	TagBool
	TagInt
	TagDouble
	TagString
	TagArrayStart
	TagArrayEnd
	TagObjectStart
	TagObjectEnd
)

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "Null"
	case TagBool:
		return "Bool"
	case TagInt:
		return "Int"
	case TagDouble:
		return "Double"
	case TagString:
		return "String"
	case TagArrayStart:
		return "ArrayStart"
	case TagArrayEnd:
		return "ArrayEnd"
	case TagObjectStart:
		return "ObjectStart"
	case TagObjectEnd:
		return "ObjectEnd"
	default:
		return "Unknown"
	}
}

// Buffer is an immutable linear encoding of one JSON document. The zero
// value is not usable; construct one with New, BuildFromJSON, or a
// Builder's Bytes.
type Buffer struct {
	data []byte
}

// New wraps bytes already holding a well-formed flat encoding, e.g.
// produced by a Builder or copied from another Buffer.
func New(data []byte) *Buffer { return &Buffer{data: data} }

// Bytes returns the raw encoded bytes.
func (b *Buffer) Bytes() []byte { return b.data }

// Len reports the size of the encoded buffer in bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Tag reports the token tag at off.
func (b *Buffer) Tag(off int) Tag { return Tag(b.data[off]) }

// ReadBool reads a Bool token's payload at off (off must point at the
// TagBool byte) and returns the offset following it.
func (b *Buffer) ReadBool(off int) (bool, int) {
	return b.data[off+1] != 0, off + 2
}

// ReadInt reads an Int token's 8-byte little-endian payload.
func (b *Buffer) ReadInt(off int) (int64, int) {
	u := binary.LittleEndian.Uint64(b.data[off+1 : off+9])
	return int64(u), off + 9
}

// ReadDouble reads a Double token's IEEE-754 payload and its preserved
// source text, if any (empty when the value came from arithmetic rather
// than input text, per the number-text-preservation contract in §4.3).
func (b *Buffer) ReadDouble(off int) (f float64, raw string, next int) {
	bits := binary.LittleEndian.Uint64(b.data[off+1 : off+9])
	f = math.Float64frombits(bits)
	n := binary.LittleEndian.Uint32(b.data[off+9 : off+13])
	rawStart := off + 13
	raw = string(b.data[rawStart : rawStart+int(n)])
	return f, raw, rawStart + int(n)
}

// ReadString reads a String token's length-prefixed UTF-8 payload.
func (b *Buffer) ReadString(off int) (string, int) {
	n := binary.LittleEndian.Uint32(b.data[off+1 : off+5])
	start := off + 5
	return string(b.data[start : start+int(n)]), start + int(n)
}

// ReadStringBytes reads a String token's payload as a byte slice backed
// directly by the buffer, for callers that only need to compare it (e.g.
// flateval's object key lookup) and want to avoid the allocation a
// string conversion would otherwise force. Relies on the compiler's
// special case for `string(byteSlice) == literal` comparisons staying
// allocation-free.
func (b *Buffer) ReadStringBytes(off int) ([]byte, int) {
	n := binary.LittleEndian.Uint32(b.data[off+1 : off+5])
	start := off + 5
	return b.data[start : start+int(n)], start + int(n)
}

// ChildCount reads an ArrayStart/ObjectStart token's count prefix,
// returning the offset where the first child (or key, for objects)
// begins.
func (b *Buffer) ChildCount(off int) (uint32, int) {
	return binary.LittleEndian.Uint32(b.data[off+1 : off+5]), off + 5
}

// ValueEnd returns the offset immediately past the value encoded at off,
// skipping over any children without materializing them (spec §4.9:
// "computing the byte extent of the current value so iteration can skip
// past it without recursing into children").
func (b *Buffer) ValueEnd(off int) int {
	switch b.Tag(off) {
	case TagNull:
		return off + 1
	case TagBool:
		return off + 2
	case TagInt:
		return off + 9
	case TagDouble:
		n := binary.LittleEndian.Uint32(b.data[off+9 : off+13])
		return off + 13 + int(n)
	case TagString:
		n := binary.LittleEndian.Uint32(b.data[off+1 : off+5])
		return off + 5 + int(n)
	case TagArrayStart:
		count, pos := b.ChildCount(off)
		for i := uint32(0); i < count; i++ {
			pos = b.ValueEnd(pos)
		}
		return pos + 1 // past ArrayEnd
	case TagObjectStart:
		count, pos := b.ChildCount(off)
		for i := uint32(0); i < count; i++ {
			_, pos = b.ReadString(pos) // key
			pos = b.ValueEnd(pos)      // value
		}
		return pos + 1 // past ObjectEnd
	default:
		return off + 1
	}
}
