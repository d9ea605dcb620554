package fastpath

import (
	"strings"

	"github.com/dlclark/regexp2"
	simdjson "github.com/minio/simdjson-go"

	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/flatbuf"
	"github.com/jqturbo/jqturbo/value"
)

// Eval runs shape against one line's raw JSON bytes, using simdjson-go's
// DOM to walk straight to the fields the shape needs. ok is false when
// the fast path can't confidently answer for this line (a field access
// through a non-object, a leaf type it doesn't materialize, or a parse
// failure); the caller then falls back to the flat evaluator, per spec
// §4.8's "fast-path failures... fall through to the general path
// without producing output themselves".
//
// Scope: this evaluator only materializes scalar (string/number/bool/
// null) leaf values directly from the DOM. A FieldChain or projection
// whose result is itself an array or object declines (ok=false) rather
// than hand-rolling simdjson-go's array/nested-object iteration API on
// top of a single-document parse per line — the flat evaluator already
// handles that case with zero-allocation navigation of its own (spec
// §4.9), so nothing is lost by falling back there for composite results.
// A select with no projection is the one exception: its result is the
// whole line, which is materialized through flatbuf.BuildFromJSON.
func Eval(shape Shape, line []byte) ([]value.Value, bool) {
	pj, err := simdjson.Parse(line, nil)
	if err != nil {
		return nil, false
	}
	root := pj.Iter()
	if root.Advance() != simdjson.TypeRoot {
		return nil, false
	}
	var tmp simdjson.Iter
	typ, cur, err := root.Root(&tmp)
	if err != nil || typ == simdjson.TypeNone {
		return nil, false
	}

	switch shape.Kind {
	case FieldChain:
		v, ok := resolveScalar(typ, cur, shape.Path)
		if !ok {
			return nil, false
		}
		return []value.Value{v}, true

	case Length:
		v, ok := resolveScalar(typ, cur, shape.Path)
		if !ok {
			return nil, false
		}
		n, err := v.Len()
		if err != nil {
			return nil, false
		}
		return []value.Value{value.NewInt(n)}, true

	case Type:
		leafTyp, _, isNull, ok := walk(typ, cur, shape.Path)
		if !ok {
			return nil, false
		}
		if isNull {
			return []value.Value{value.NewString("null")}, true
		}
		return []value.Value{value.NewString(jqTypeName(leafTyp))}, true

	case Has:
		leafTyp, leafIt, isNull, ok := walk(typ, cur, shape.Path)
		if !ok {
			return nil, false
		}
		if isNull || leafTyp != simdjson.TypeObject {
			return nil, false
		}
		obj, err := leafIt.Object(nil)
		if err != nil {
			return nil, false
		}
		var elem simdjson.Element
		return []value.Value{value.NewBool(obj.FindKey(shape.HasKey, &elem) != nil)}, true

	case SelectCompare:
		v, ok := resolveScalar(typ, cur, shape.Path)
		if !ok {
			return nil, false
		}
		pass := compareHolds(shape.Op, value.Compare(v, shape.Literal))
		if !pass {
			return nil, true
		}
		return project(shape.Then, typ, cur, line)

	case SelectStringPred:
		v, ok := resolveScalar(typ, cur, shape.Path)
		if !ok || v.Type() != value.String {
			return nil, false
		}
		pass, ok := stringPredHolds(shape.Pred, v.Str(), shape.PredArg)
		if !ok {
			return nil, false
		}
		if !pass {
			return nil, true
		}
		return project(shape.Then, typ, cur, line)

	case MultiFieldObj:
		entries := make([]value.Entry, len(shape.ObjFields))
		for i, f := range shape.ObjFields {
			v, ok := resolveScalar(typ, cur, f.Path)
			if !ok {
				return nil, false
			}
			entries[i] = value.Entry{Key: f.Key, Value: v}
		}
		return []value.Value{value.NewObject(entries)}, true

	case MultiFieldArr:
		elems := make([]value.Value, len(shape.ArrPaths))
		for i, p := range shape.ArrPaths {
			v, ok := resolveScalar(typ, cur, p)
			if !ok {
				return nil, false
			}
			elems[i] = v
		}
		return []value.Value{value.NewArray(elems)}, true

	default:
		return nil, false
	}
}

func project(then *Shape, typ simdjson.Type, cur *simdjson.Iter, line []byte) ([]value.Value, bool) {
	if then == nil {
		buf, err := flatbuf.BuildFromJSON(line)
		if err != nil {
			return nil, false
		}
		v, err := buf.Value()
		if err != nil {
			return nil, false
		}
		return []value.Value{v}, true
	}
	switch then.Kind {
	case FieldChain:
		v, ok := resolveScalar(typ, cur, then.Path)
		if !ok {
			return nil, false
		}
		return []value.Value{v}, true
	default:
		return nil, false
	}
}

func compareHolds(op filter.CompareOp, cmp int) bool {
	switch op {
	case filter.CmpEq:
		return cmp == 0
	case filter.CmpNe:
		return cmp != 0
	case filter.CmpLt:
		return cmp < 0
	case filter.CmpLe:
		return cmp <= 0
	case filter.CmpGt:
		return cmp > 0
	case filter.CmpGe:
		return cmp >= 0
	default:
		return false
	}
}

func stringPredHolds(pred, s, arg string) (bool, bool) {
	switch pred {
	case "startswith":
		return strings.HasPrefix(s, arg), true
	case "endswith":
		return strings.HasSuffix(s, arg), true
	case "contains":
		return strings.Contains(s, arg), true
	case "test":
		re, err := regexp2.Compile(arg, 0)
		if err != nil {
			return false, false
		}
		m, err := re.MatchString(s)
		if err != nil {
			return false, false
		}
		return m, true
	default:
		return false, false
	}
}

// walk descends path from (typ, it), stopping at the first missing key
// (jq semantics: a missing field, and every further hop through it,
// resolves to null) or the first non-object hop (ok=false, a type
// mismatch the caller should fall back on).
func walk(typ simdjson.Type, it *simdjson.Iter, path []string) (leafTyp simdjson.Type, leafIt *simdjson.Iter, isNull bool, ok bool) {
	curTyp, curIt := typ, it
	for _, key := range path {
		if curTyp == simdjson.TypeNull {
			return simdjson.TypeNull, nil, true, true
		}
		if curTyp != simdjson.TypeObject {
			return 0, nil, false, false
		}
		obj, err := curIt.Object(nil)
		if err != nil {
			return 0, nil, false, false
		}
		var elem simdjson.Element
		if obj.FindKey(key, &elem) == nil {
			return simdjson.TypeNull, nil, true, true
		}
		curTyp = elem.Type
		curIt = &elem.Iter
	}
	return curTyp, curIt, curTyp == simdjson.TypeNull, true
}

// resolveScalar walks path and materializes the leaf as a value.Value,
// declining (ok=false) for object/array leaves (see the package doc
// comment's scope note).
func resolveScalar(typ simdjson.Type, it *simdjson.Iter, path []string) (value.Value, bool) {
	leafTyp, leafIt, isNull, ok := walk(typ, it, path)
	if !ok {
		return value.Value{}, false
	}
	if isNull {
		return value.NewNull(), true
	}
	switch leafTyp {
	case simdjson.TypeString:
		s, err := leafIt.String()
		if err != nil {
			return value.Value{}, false
		}
		return value.NewString(s), true
	case simdjson.TypeInt:
		n, err := leafIt.Int()
		if err != nil {
			return value.Value{}, false
		}
		return value.NewInt(n), true
	case simdjson.TypeFloat:
		f, err := leafIt.Float()
		if err != nil {
			return value.Value{}, false
		}
		return value.NewDouble(f), true
	case simdjson.TypeBool:
		b, err := leafIt.Bool()
		if err != nil {
			return value.Value{}, false
		}
		return value.NewBool(b), true
	default:
		return value.Value{}, false
	}
}

func jqTypeName(t simdjson.Type) string {
	switch t {
	case simdjson.TypeNull:
		return "null"
	case simdjson.TypeString:
		return "string"
	case simdjson.TypeInt, simdjson.TypeFloat:
		return "number"
	case simdjson.TypeBool:
		return "boolean"
	case simdjson.TypeObject:
		return "object"
	case simdjson.TypeArray:
		return "array"
	default:
		return "unknown"
	}
}
