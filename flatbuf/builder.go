package flatbuf

import (
	"encoding/binary"
	"math"
)

// Builder assembles a flat token buffer with a single streaming pass.
// Container child/entry counts are not known until the container closes,
// so Builder reserves a 4-byte placeholder when a container opens and
// backpatches it in place at EndArray/EndObject — this keeps encoding
// one-pass instead of building a token list and a buffer separately,
// following the "keep the raw literal bytes, decode lazily" philosophy
// of the teacher's token encoding, adapted to a single linear buffer.
type Builder struct {
	buf   []byte
	stack []frame
}

type frame struct {
	countOff int
	count    uint32
}

// Bytes returns the encoded buffer built so far. Calling it with open
// containers (unbalanced Begin/End calls) returns a malformed buffer.
func (b *Builder) Bytes() []byte { return b.buf }

func (b *Builder) valueComplete() {
	if n := len(b.stack); n > 0 {
		b.stack[n-1].count++
	}
}

// Null appends a Null token.
func (b *Builder) Null() {
	b.buf = append(b.buf, byte(TagNull))
	b.valueComplete()
}

// Bool appends a Bool token.
func (b *Builder) Bool(v bool) {
	b.buf = append(b.buf, byte(TagBool))
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
	b.valueComplete()
}

// Int appends an Int token.
func (b *Builder) Int(i int64) {
	b.buf = append(b.buf, byte(TagInt))
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(i))
	b.buf = append(b.buf, tmp[:]...)
	b.valueComplete()
}

// Double appends a Double token, carrying raw alongside it so output can
// round-trip the original source text (e.g. "75.80"). Pass "" when f did
// not come from input text (the result of arithmetic, for instance).
func (b *Builder) Double(f float64, raw string) {
	b.buf = append(b.buf, byte(TagDouble))
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(f))
	b.buf = append(b.buf, tmp[:]...)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(raw)))
	b.buf = append(b.buf, lenBuf[:]...)
	b.buf = append(b.buf, raw...)
	b.valueComplete()
}

// String appends a String token as a value (counts toward the enclosing
// container's child/entry count). Use Key for object keys, which do not
// count independently — the following value completes the entry.
func (b *Builder) String(s string) {
	b.appendString(s)
	b.valueComplete()
}

// Key appends a String token as an object key.
func (b *Builder) Key(s string) {
	b.appendString(s)
}

func (b *Builder) appendString(s string) {
	b.buf = append(b.buf, byte(TagString))
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(s)))
	b.buf = append(b.buf, lenBuf[:]...)
	b.buf = append(b.buf, s...)
}

// BeginArray opens an ArrayStart token; must be matched by EndArray.
func (b *Builder) BeginArray() {
	b.buf = append(b.buf, byte(TagArrayStart))
	off := len(b.buf)
	b.buf = append(b.buf, 0, 0, 0, 0)
	b.stack = append(b.stack, frame{countOff: off})
}

// EndArray closes the innermost open array, patching its child count.
func (b *Builder) EndArray() {
	b.closeContainer(TagArrayEnd)
}

// BeginObject opens an ObjectStart token; must be matched by EndObject.
func (b *Builder) BeginObject() {
	b.buf = append(b.buf, byte(TagObjectStart))
	off := len(b.buf)
	b.buf = append(b.buf, 0, 0, 0, 0)
	b.stack = append(b.stack, frame{countOff: off})
}

// EndObject closes the innermost open object, patching its entry count.
func (b *Builder) EndObject() {
	b.closeContainer(TagObjectEnd)
}

func (b *Builder) closeContainer(endTag Tag) {
	n := len(b.stack)
	fr := b.stack[n-1]
	b.stack = b.stack[:n-1]
	binary.LittleEndian.PutUint32(b.buf[fr.countOff:fr.countOff+4], fr.count)
	b.buf = append(b.buf, byte(endTag))
	b.valueComplete()
}
