package flatbuf

import (
	"fmt"

	"github.com/jqturbo/jqturbo/value"
)

// Value materializes the entire buffer into a value.Value tree, walking
// the subtree and allocating as spec §4.9 describes for full
// materialization (as opposed to flateval's lazy field-at-a-time
// navigation).
func (b *Buffer) Value() (value.Value, error) {
	v, _, err := b.valueAt(0)
	return v, err
}

// MaterializeAt materializes the value starting at an arbitrary offset,
// for flateval's Nav.Materialize, which navigates to positions other
// than the buffer root.
func (b *Buffer) MaterializeAt(off int) (value.Value, int, error) {
	return b.valueAt(off)
}

func (b *Buffer) valueAt(off int) (value.Value, int, error) {
	switch b.Tag(off) {
	case TagNull:
		return value.NewNull(), off + 1, nil
	case TagBool:
		bv, next := b.ReadBool(off)
		return value.NewBool(bv), next, nil
	case TagInt:
		iv, next := b.ReadInt(off)
		return value.NewInt(iv), next, nil
	case TagDouble:
		f, raw, next := b.ReadDouble(off)
		if raw == "" {
			return value.NewDouble(f), next, nil
		}
		return value.NewDoubleText(f, raw), next, nil
	case TagString:
		s, next := b.ReadString(off)
		return value.NewString(s), next, nil
	case TagArrayStart:
		count, pos := b.ChildCount(off)
		elems := make([]value.Value, 0, count)
		for i := uint32(0); i < count; i++ {
			var v value.Value
			var err error
			v, pos, err = b.valueAt(pos)
			if err != nil {
				return value.Value{}, 0, err
			}
			elems = append(elems, v)
		}
		if b.Tag(pos) != TagArrayEnd {
			return value.Value{}, 0, fmt.Errorf("flatbuf: malformed array at offset %d", off)
		}
		return value.NewArray(elems), pos + 1, nil
	case TagObjectStart:
		count, pos := b.ChildCount(off)
		entries := make([]value.Entry, 0, count)
		for i := uint32(0); i < count; i++ {
			if b.Tag(pos) != TagString {
				return value.Value{}, 0, fmt.Errorf("flatbuf: object key is not a string at offset %d", pos)
			}
			key, kpos := b.ReadString(pos)
			var v value.Value
			var err error
			v, pos, err = b.valueAt(kpos)
			if err != nil {
				return value.Value{}, 0, err
			}
			entries = append(entries, value.Entry{Key: key, Value: v})
		}
		if b.Tag(pos) != TagObjectEnd {
			return value.Value{}, 0, fmt.Errorf("flatbuf: malformed object at offset %d", off)
		}
		return value.NewObject(entries), pos + 1, nil
	default:
		return value.Value{}, 0, fmt.Errorf("flatbuf: unknown tag %d at offset %d", b.Tag(off), off)
	}
}
