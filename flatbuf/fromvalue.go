package flatbuf

import "github.com/jqturbo/jqturbo/value"

// BuildFromValue encodes v directly into a flat token buffer. Production
// buffers come from BuildFromJSON; this path exists for round-tripping
// values the
// evaluator already materialized (tests, and any future caller that
// needs to hand a Value back to flat-buffer-consuming code).
func BuildFromValue(v value.Value) []byte {
	var b Builder
	appendValue(&b, v)
	return b.Bytes()
}

func appendValue(b *Builder, v value.Value) {
	switch v.Type() {
	case value.Null:
		b.Null()
	case value.Bool:
		b.Bool(v.Bool())
	case value.Int:
		b.Int(v.AsInt())
	case value.Double:
		raw, _ := v.RawText()
		b.Double(v.AsFloat(), raw)
	case value.String:
		b.String(v.Str())
	case value.Array:
		b.BeginArray()
		for _, e := range v.Elems() {
			appendValue(b, e)
		}
		b.EndArray()
	case value.Object:
		b.BeginObject()
		for _, e := range v.Entries() {
			b.Key(e.Key)
			appendValue(b, e.Value)
		}
		b.EndObject()
	}
}
