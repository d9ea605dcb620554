package flatbuf

import (
	"encoding/json"
	"strconv"
)

// AppendCompactJSON appends the value at off to dst as compact JSON text
// (no surrounding whitespace), copying string and number payloads
// straight out of the buffer instead of building a value.Value tree
// first. It returns the extended slice and the offset past the value,
// same convention as ValueEnd. This is what lets the passthrough
// dispatcher (package fastpath, spec §4.6) re-emit a named subtree
// without ever materializing it.
//
// Grounded on jsonencoder.go's switch-on-token-kind writer shape, adapted
// to recurse over a single linear buffer instead of a channel of tokens.
func (b *Buffer) AppendCompactJSON(dst []byte, off int) ([]byte, int) {
	switch b.Tag(off) {
	case TagNull:
		return append(dst, "null"...), off + 1
	case TagBool:
		v, next := b.ReadBool(off)
		if v {
			return append(dst, "true"...), next
		}
		return append(dst, "false"...), next
	case TagInt:
		v, next := b.ReadInt(off)
		return strconv.AppendInt(dst, v, 10), next
	case TagDouble:
		f, raw, next := b.ReadDouble(off)
		if raw != "" {
			return append(dst, raw...), next
		}
		return strconv.AppendFloat(dst, f, 'g', -1, 64), next
	case TagString:
		s, next := b.ReadString(off)
		return appendJSONString(dst, s), next
	case TagArrayStart:
		count, pos := b.ChildCount(off)
		dst = append(dst, '[')
		for i := uint32(0); i < count; i++ {
			if i > 0 {
				dst = append(dst, ',')
			}
			dst, pos = b.AppendCompactJSON(dst, pos)
		}
		dst = append(dst, ']')
		return dst, pos + 1 // past ArrayEnd
	case TagObjectStart:
		count, pos := b.ChildCount(off)
		dst = append(dst, '{')
		for i := uint32(0); i < count; i++ {
			if i > 0 {
				dst = append(dst, ',')
			}
			var key string
			key, pos = b.ReadString(pos)
			dst = appendJSONString(dst, key)
			dst = append(dst, ':')
			dst, pos = b.AppendCompactJSON(dst, pos)
		}
		dst = append(dst, '}')
		return dst, pos + 1 // past ObjectEnd
	default:
		return dst, off + 1
	}
}

// appendJSONString appends s as a quoted, escaped JSON string literal.
// Delegates escaping to encoding/json rather than hand-rolling it: no
// library in the dependency set implements JSON string escaping, and a
// hand-rolled version risks missing one of the control-character or
// lone-surrogate edge cases encoding/json already gets right.
func appendJSONString(dst []byte, s string) []byte {
	b, _ := json.Marshal(s)
	return append(dst, b...)
}
