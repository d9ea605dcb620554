package eval

import (
	"math"
	"sort"
	"strings"

	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/value"
)

func mathFloor(f float64) float64 { return math.Floor(f) }
func mathCeil(f float64) float64  { return math.Ceil(f) }
func mathRound(f float64) float64 { return math.Round(f) }
func mathSqrt(f float64) float64  { return math.Sqrt(f) }
func mathPow(base, exp float64) float64 { return math.Pow(base, exp) }

// builtinFn implements one builtin (name, arity) pair. args are the
// call's already-compiled argument filters; each must be Eval'd against
// whatever input the builtin's semantics call for (usually the builtin's
// own `in`, sometimes ignored for 0-output builtins like `empty`).
type builtinFn func(args []node, in value.Value, en *env.Env, out Emit) *ErrState

type builtinKey struct {
	name  string
	arity int
}

// builtinTable holds every primitive not expressible by composing other
// builtins inside the AST itself (spec §4: "builtin function table").
// Grounded on flat_eval.rs's closed per-name match arms (length/type/
// keys/not), extended to the full set this evaluator exposes.
var builtinTable map[builtinKey]builtinFn

func init() {
	builtinTable = map[builtinKey]builtinFn{
		{"length", 0}:        biLength,
		{"keys", 0}:          biKeys(true),
		{"keys_unsorted", 0}: biKeys(false),
		{"type", 0}:          biType,
		{"not", 0}:           biNot,
		{"has", 1}:           biHas,
		{"contains", 1}:      biContains,
		{"inside", 1}:        biInside,
		{"add", 0}:           biAdd,
		{"map", 1}:           biMap,
		{"select", 1}:        biSelect,
		{"range", 1}:         biRange1,
		{"range", 2}:         biRange2,
		{"range", 3}:         biRange3,
		{"tostring", 0}:      biToString,
		{"tonumber", 0}:      biToNumber,
		{"empty", 0}:         biEmpty,
		{"error", 0}:         biError0,
		{"error", 1}:         biError1,
		{"recurse", 0}:       biRecurse0,
		{"recurse", 1}:       biRecurse1,
		{"paths", 0}:         biPaths,
		{"getpath", 1}:       biGetpath,
		{"setpath", 2}:       biSetpath,
		{"delpaths", 1}:      biDelpaths,
		{"to_entries", 0}:    biToEntries,
		{"from_entries", 0}:  biFromEntries,
		{"sort", 0}:          biSort,
		{"sort_by", 1}:       biSortBy,
		{"group_by", 1}:      biGroupBy,
		{"unique", 0}:        biUnique,
		{"unique_by", 1}:     biUniqueBy,
		{"min", 0}:           biMin,
		{"max", 0}:           biMax,
		{"min_by", 1}:        biMinBy,
		{"max_by", 1}:        biMaxBy,
		{"flatten", 0}:       biFlatten0,
		{"flatten", 1}:       biFlatten1,
		{"any", 0}:           biAny0,
		{"any", 1}:           biAny1,
		{"all", 0}:           biAll0,
		{"all", 1}:           biAll1,
		{"explode", 0}:       biExplode,
		{"implode", 0}:       biImplode,
		{"ltrimstr", 1}:      biLtrimstr,
		{"rtrimstr", 1}:      biRtrimstr,
		{"startswith", 1}:    biStartswith,
		{"endswith", 1}:      biEndswith,
		{"split", 1}:         biSplit,
		{"join", 1}:          biJoin,
		{"floor", 0}:         mathBuiltin(mathFloor),
		{"ceil", 0}:          mathBuiltin(mathCeil),
		{"round", 0}:         mathBuiltin(mathRound),
		{"sqrt", 0}:          mathBuiltin(mathSqrt),
		{"pow", 2}:           biPow,
		{"env", 0}:           biEnv,
		{"input", 0}:         biInput,
		{"inputs", 0}:        biInputs,
		{"first", 1}:         biFirst1,
		{"first", 0}:         biFirst0,
		{"last", 1}:          biLast1,
		{"limit", 2}:         biLimit,
		{"tostream", 0}:      biTostream,
		{"fromstream", 1}:    biFromstream,
	}
}

func biLength(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	n, err := in.Len()
	if err != nil {
		return FromTypeError(err)
	}
	return out(value.NewInt(n))
}

func biKeys(sorted bool) builtinFn {
	return func(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
		if in.Type() != value.Object && in.Type() != value.Array {
			return Errorf("%s (%s) has no keys", in.Type(), value.Describe(in))
		}
		if in.Type() == value.Array {
			elems := in.Elems()
			idx := make([]value.Value, len(elems))
			for i := range elems {
				idx[i] = value.NewInt(int64(i))
			}
			return out(value.NewArray(idx))
		}
		entries := in.Entries()
		if sorted {
			entries = value.SortedEntries(in)
		}
		seen := make(map[string]bool, len(entries))
		keys := make([]value.Value, 0, len(entries))
		for _, e := range entries {
			if seen[e.Key] {
				continue
			}
			seen[e.Key] = true
			keys = append(keys, value.NewString(e.Key))
		}
		return out(value.NewArray(keys))
	}
}

func biType(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return out(value.NewString(in.Type().String()))
}

func biNot(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return out(value.NewBool(!in.Truthy()))
}

func biHas(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(k value.Value) *ErrState {
		switch in.Type() {
		case value.Object:
			for _, e := range in.Entries() {
				if e.Key == k.Str() {
					return out(value.NewBool(true))
				}
			}
			return out(value.NewBool(false))
		case value.Array:
			i := k.AsInt()
			return out(value.NewBool(i >= 0 && i < int64(len(in.Elems()))))
		default:
			return Errorf("Cannot check whether %s has a key", in.Type())
		}
	})
}

func biContains(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(b value.Value) *ErrState {
		ok, err := containsValue(in, b)
		if err != nil {
			return FromTypeError(err)
		}
		return out(value.NewBool(ok))
	})
}

func biInside(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(b value.Value) *ErrState {
		ok, err := containsValue(b, in)
		if err != nil {
			return FromTypeError(err)
		}
		return out(value.NewBool(ok))
	})
}

func containsValue(a, b value.Value) (bool, error) {
	if a.Type() != b.Type() {
		if a.Type() == value.Object || b.Type() == value.Object {
			return false, &value.TypeError{Msg: "object and non-object cannot have their containment checked"}
		}
		return false, &value.TypeError{Msg: a.Type().String() + " and " + b.Type().String() + " cannot have their containment checked"}
	}
	switch a.Type() {
	case value.String:
		return strings.Contains(a.Str(), b.Str()), nil
	case value.Array:
		for _, be := range b.Elems() {
			found := false
			for _, ae := range a.Elems() {
				if ok, _ := containsValue(ae, be); ok {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		}
		return true, nil
	case value.Object:
		for _, be := range b.Entries() {
			av, err := a.Field(be.Key)
			if err != nil {
				return false, err
			}
			if av.IsNull() && !hasKey(a, be.Key) {
				return false, nil
			}
			if ok, _ := containsValue(av, be.Value); !ok {
				return false, nil
			}
		}
		return true, nil
	default:
		return value.Equal(a, b), nil
	}
}

func hasKey(obj value.Value, key string) bool {
	for _, e := range obj.Entries() {
		if e.Key == key {
			return true
		}
	}
	return false
}

func biAdd(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	acc := value.NewNull()
	switch in.Type() {
	case value.Array:
		for _, e := range in.Elems() {
			v, err := value.Add(acc, e)
			if err != nil {
				return FromTypeError(err)
			}
			acc = v
		}
	case value.Object:
		for _, e := range in.Entries() {
			v, err := value.Add(acc, e.Value)
			if err != nil {
				return FromTypeError(err)
			}
			acc = v
		}
	default:
		return Errorf("Cannot iterate over %s", in.Type())
	}
	return out(acc)
}

func biMap(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	elems, err := iterableElems(in)
	if err != nil {
		return err
	}
	var res []value.Value
	for _, e := range elems {
		if serr := args[0].Eval(e, en, func(v value.Value) *ErrState {
			res = append(res, v)
			return nil
		}); serr != nil {
			return serr
		}
	}
	return out(value.NewArray(res))
}

func iterableElems(in value.Value) ([]value.Value, *ErrState) {
	switch in.Type() {
	case value.Array:
		return in.Elems(), nil
	case value.Object:
		entries := in.Entries()
		out := make([]value.Value, len(entries))
		for i, e := range entries {
			out[i] = e.Value
		}
		return out, nil
	default:
		return nil, Errorf("Cannot iterate over %s", in.Type())
	}
}

func biSelect(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return selectNode{cond: args[0]}.Eval(in, en, out)
}

func biRange1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(upto value.Value) *ErrState {
		return rangeEmit(0, upto.AsFloat(), 1, out)
	})
}

func biRange2(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(from value.Value) *ErrState {
		return args[1].Eval(in, en, func(upto value.Value) *ErrState {
			return rangeEmit(from.AsFloat(), upto.AsFloat(), 1, out)
		})
	})
}

func biRange3(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(from value.Value) *ErrState {
		return args[1].Eval(in, en, func(upto value.Value) *ErrState {
			return args[2].Eval(in, en, func(by value.Value) *ErrState {
				return rangeEmit(from.AsFloat(), upto.AsFloat(), by.AsFloat(), out)
			})
		})
	})
}

func rangeEmit(from, upto, by float64, out Emit) *ErrState {
	if by == 0 {
		return nil
	}
	if by > 0 {
		for v := from; v < upto; v += by {
			if err := out(value.NewDouble(v)); err != nil {
				return err
			}
		}
		return nil
	}
	for v := from; v > upto; v += by {
		if err := out(value.NewDouble(v)); err != nil {
			return err
		}
	}
	return nil
}

func biToString(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	if in.Type() == value.String {
		return out(in)
	}
	return out(value.NewString(value.Format(in, false)))
}

func biToNumber(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	switch in.Type() {
	case value.Int, value.Double:
		return out(in)
	case value.String:
		return out(value.NewNumberFromText(in.Str()))
	default:
		return Errorf("Cannot parse '%s' as number", value.Describe(in))
	}
}

func biEmpty(args []node, in value.Value, en *env.Env, out Emit) *ErrState { return nil }

func biError0(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return ErrorValue(in)
}

func biError1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	v, found, err := firstValue(args[0], in, en)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return ErrorValue(v)
}

func biRecurse0(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return recurseDefaultNode{}.Eval(in, en, out)
}

func biRecurse1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	var rec func(value.Value) *ErrState
	rec = func(v value.Value) *ErrState {
		if err := out(v); err != nil {
			return err
		}
		return args[0].Eval(v, en, rec)
	}
	return rec(in)
}

func biPaths(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	var walk func(v value.Value, path []value.Value) *ErrState
	walk = func(v value.Value, path []value.Value) *ErrState {
		if len(path) > 0 {
			if err := out(value.NewArray(append([]value.Value(nil), path...))); err != nil {
				return err
			}
		}
		switch v.Type() {
		case value.Array:
			for i, e := range v.Elems() {
				if err := walk(e, appendPath(path, value.NewInt(int64(i)))); err != nil {
					return err
				}
			}
		case value.Object:
			for _, e := range v.Entries() {
				if err := walk(e.Value, appendPath(path, value.NewString(e.Key))); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return walk(in, nil)
}

func biGetpath(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(pv value.Value) *ErrState {
		v, err := getpathValue(in, pv.Elems())
		if err != nil {
			return FromTypeError(err)
		}
		return out(v)
	})
}

func biSetpath(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(pv value.Value) *ErrState {
		return args[1].Eval(in, en, func(nv value.Value) *ErrState {
			v, err := setpathValue(in, pv.Elems(), nv)
			if err != nil {
				return FromTypeError(err)
			}
			return out(v)
		})
	})
}

func biDelpaths(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(pv value.Value) *ErrState {
		paths := make([][]value.Value, len(pv.Elems()))
		for i, p := range pv.Elems() {
			paths[i] = p.Elems()
		}
		v, err := delpathsValue(in, paths)
		if err != nil {
			return FromTypeError(err)
		}
		return out(v)
	})
}

func biToEntries(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	if in.Type() != value.Object {
		return Errorf("%s (%s) has no keys", in.Type(), value.Describe(in))
	}
	entries := make([]value.Value, len(in.Entries()))
	for i, e := range in.Entries() {
		entries[i] = value.NewObject([]value.Entry{
			{Key: "key", Value: value.NewString(e.Key)},
			{Key: "value", Value: e.Value},
		})
	}
	return out(value.NewArray(entries))
}

func biFromEntries(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	elems, err := iterableElems(in)
	if err != nil {
		return err
	}
	entries := make([]value.Entry, 0, len(elems))
	for _, e := range elems {
		key, kerr := entryKeyField(e)
		if kerr != nil {
			return FromTypeError(kerr)
		}
		val, verr := firstField(e, "value", "v")
		if verr != nil {
			return FromTypeError(verr)
		}
		entries = append(entries, value.Entry{Key: key, Value: val})
	}
	return out(value.NewObject(entries))
}

func entryKeyField(e value.Value) (string, error) {
	for _, name := range []string{"key", "k", "name", "Name", "Key", "K"} {
		v, err := e.Field(name)
		if err != nil {
			return "", err
		}
		if !v.IsNull() {
			if v.Type() == value.String {
				return v.Str(), nil
			}
			return value.Format(v, false), nil
		}
	}
	return "null", nil
}

func firstField(e value.Value, names ...string) (value.Value, error) {
	for _, name := range names {
		v, err := e.Field(name)
		if err != nil {
			return value.Value{}, err
		}
		if !v.IsNull() {
			return v, nil
		}
	}
	return value.NewNull(), nil
}

func biSort(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	if in.Type() != value.Array {
		return Errorf("%s (%s) cannot be sorted, as it is not an array", in.Type(), value.Describe(in))
	}
	elems := append([]value.Value(nil), in.Elems()...)
	sort.SliceStable(elems, func(i, j int) bool { return value.Compare(elems[i], elems[j]) < 0 })
	return out(value.NewArray(elems))
}

func biSortBy(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	elems, err := iterableElems(in)
	if err != nil {
		return err
	}
	keys, kerr := sortKeysFor(args[0], elems, en)
	if kerr != nil {
		return kerr
	}
	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return value.Compare(keys[idx[i]], keys[idx[j]]) < 0 })
	res := make([]value.Value, len(elems))
	for i, j := range idx {
		res[i] = elems[j]
	}
	return out(value.NewArray(res))
}

func sortKeysFor(keyNode node, elems []value.Value, en *env.Env) ([]value.Value, *ErrState) {
	keys := make([]value.Value, len(elems))
	for i, e := range elems {
		ks, err := collectAll(keyNode, e, en)
		if err != nil {
			return nil, err
		}
		keys[i] = value.NewArray(ks)
	}
	return keys, nil
}

func collectAll(n node, in value.Value, en *env.Env) ([]value.Value, *ErrState) {
	var vs []value.Value
	err := n.Eval(in, en, func(v value.Value) *ErrState {
		vs = append(vs, v)
		return nil
	})
	return vs, err
}

func biGroupBy(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	elems, err := iterableElems(in)
	if err != nil {
		return err
	}
	keys, kerr := sortKeysFor(args[0], elems, en)
	if kerr != nil {
		return kerr
	}
	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return value.Compare(keys[idx[i]], keys[idx[j]]) < 0 })
	var groups []value.Value
	var cur []value.Value
	for n, i := range idx {
		if n > 0 && !value.Equal(keys[idx[n-1]], keys[i]) {
			groups = append(groups, value.NewArray(cur))
			cur = nil
		}
		cur = append(cur, elems[i])
	}
	if len(cur) > 0 {
		groups = append(groups, value.NewArray(cur))
	}
	return out(value.NewArray(groups))
}

func biUnique(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	if in.Type() != value.Array {
		return Errorf("%s (%s) cannot be sorted, as it is not an array", in.Type(), value.Describe(in))
	}
	elems := append([]value.Value(nil), in.Elems()...)
	sort.SliceStable(elems, func(i, j int) bool { return value.Compare(elems[i], elems[j]) < 0 })
	res := dedupSorted(elems)
	return out(value.NewArray(res))
}

func dedupSorted(elems []value.Value) []value.Value {
	var res []value.Value
	for i, e := range elems {
		if i == 0 || !value.Equal(elems[i-1], e) {
			res = append(res, e)
		}
	}
	return res
}

func biUniqueBy(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	elems, err := iterableElems(in)
	if err != nil {
		return err
	}
	keys, kerr := sortKeysFor(args[0], elems, en)
	if kerr != nil {
		return kerr
	}
	idx := make([]int, len(elems))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return value.Compare(keys[idx[i]], keys[idx[j]]) < 0 })
	var res []value.Value
	for n, i := range idx {
		if n == 0 || !value.Equal(keys[idx[n-1]], keys[i]) {
			res = append(res, elems[i])
		}
	}
	return out(value.NewArray(res))
}

func biMin(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return out(extremum(in.Elems(), false))
}

func biMax(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return out(extremum(in.Elems(), true))
}

func extremum(elems []value.Value, wantMax bool) value.Value {
	if len(elems) == 0 {
		return value.NewNull()
	}
	best := elems[0]
	for _, e := range elems[1:] {
		c := value.Compare(e, best)
		if (wantMax && c >= 0) || (!wantMax && c < 0) {
			best = e
		}
	}
	return best
}

func biMinBy(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return extremumBy(args[0], in, en, out, false)
}

func biMaxBy(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return extremumBy(args[0], in, en, out, true)
}

func extremumBy(keyNode node, in value.Value, en *env.Env, out Emit, wantMax bool) *ErrState {
	elems, err := iterableElems(in)
	if err != nil {
		return err
	}
	if len(elems) == 0 {
		return out(value.NewNull())
	}
	keys, kerr := sortKeysFor(keyNode, elems, en)
	if kerr != nil {
		return kerr
	}
	bestIdx := 0
	for i := 1; i < len(elems); i++ {
		c := value.Compare(keys[i], keys[bestIdx])
		if (wantMax && c >= 0) || (!wantMax && c < 0) {
			bestIdx = i
		}
	}
	return out(elems[bestIdx])
}

func biFlatten0(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return out(value.NewArray(flattenElems(in.Elems(), -1)))
}

func biFlatten1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(d value.Value) *ErrState {
		depth := d.AsInt()
		if depth < 0 {
			return Errorf("flatten depth must not be negative")
		}
		return out(value.NewArray(flattenElems(in.Elems(), int(depth))))
	})
}

func flattenElems(elems []value.Value, depth int) []value.Value {
	var res []value.Value
	for _, e := range elems {
		if e.Type() == value.Array && depth != 0 {
			res = append(res, flattenElems(e.Elems(), depth-1)...)
		} else {
			res = append(res, e)
		}
	}
	return res
}

func biAny0(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	for _, e := range in.Elems() {
		if e.Truthy() {
			return out(value.NewBool(true))
		}
	}
	return out(value.NewBool(false))
}

func biAny1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	found := false
	for _, e := range in.Elems() {
		vs, err := collectAll(args[0], e, en)
		if err != nil {
			return err
		}
		for _, v := range vs {
			if v.Truthy() {
				found = true
			}
		}
	}
	return out(value.NewBool(found))
}

func biAll0(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	for _, e := range in.Elems() {
		if !e.Truthy() {
			return out(value.NewBool(false))
		}
	}
	return out(value.NewBool(true))
}

func biAll1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	for _, e := range in.Elems() {
		vs, err := collectAll(args[0], e, en)
		if err != nil {
			return err
		}
		for _, v := range vs {
			if !v.Truthy() {
				return out(value.NewBool(false))
			}
		}
	}
	return out(value.NewBool(true))
}

func biExplode(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	var cps []value.Value
	for _, r := range in.Str() {
		cps = append(cps, value.NewInt(int64(r)))
	}
	return out(value.NewArray(cps))
}

func biImplode(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	var b strings.Builder
	for _, e := range in.Elems() {
		b.WriteRune(rune(e.AsInt()))
	}
	return out(value.NewString(b.String()))
}

func biLtrimstr(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(p value.Value) *ErrState {
		if in.Type() != value.String || p.Type() != value.String {
			return out(in)
		}
		return out(value.NewString(strings.TrimPrefix(in.Str(), p.Str())))
	})
}

func biRtrimstr(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(p value.Value) *ErrState {
		if in.Type() != value.String || p.Type() != value.String {
			return out(in)
		}
		return out(value.NewString(strings.TrimSuffix(in.Str(), p.Str())))
	})
}

func biStartswith(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(p value.Value) *ErrState {
		if in.Type() != value.String || p.Type() != value.String {
			return Errorf("startswith() requires string inputs")
		}
		return out(value.NewBool(strings.HasPrefix(in.Str(), p.Str())))
	})
}

func biEndswith(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(p value.Value) *ErrState {
		if in.Type() != value.String || p.Type() != value.String {
			return Errorf("endswith() requires string inputs")
		}
		return out(value.NewBool(strings.HasSuffix(in.Str(), p.Str())))
	})
}

func biSplit(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(sep value.Value) *ErrState {
		v, err := value.Div(in, sep)
		if err != nil {
			return FromTypeError(err)
		}
		return out(v)
	})
}

func biJoin(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(sep value.Value) *ErrState {
		elems := in.Elems()
		var b strings.Builder
		for i, e := range elems {
			if i > 0 {
				b.WriteString(sep.Str())
			}
			if e.IsNull() {
				continue
			}
			if e.Type() == value.String {
				b.WriteString(e.Str())
			} else {
				b.WriteString(value.Format(e, false))
			}
		}
		return out(value.NewString(b.String()))
	})
}

func biPow(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(base value.Value) *ErrState {
		return args[1].Eval(in, en, func(exp value.Value) *ErrState {
			return out(value.NewDouble(mathPow(base.AsFloat(), exp.AsFloat())))
		})
	})
}

func biEnv(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return varRefNode{name: "ENV"}.Eval(in, en, out)
}

func biInput(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	next := en.Inputs()
	if next == nil {
		return Errorf("No more inputs")
	}
	v, ok := next()
	if !ok {
		return Errorf("No more inputs")
	}
	return out(v)
}

func biInputs(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	next := en.Inputs()
	if next == nil {
		return nil
	}
	for {
		v, ok := next()
		if !ok {
			return nil
		}
		if err := out(v); err != nil {
			return err
		}
	}
}

func biFirst0(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	elems := in.Elems()
	if len(elems) == 0 {
		return Errorf("Cannot index array with number")
	}
	return out(elems[0])
}

func biFirst1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	v, found, err := firstValue(args[0], in, en)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	return out(v)
}

func biLast1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	vs, err := collectAll(args[0], in, en)
	if err != nil {
		return err
	}
	if len(vs) == 0 {
		return nil
	}
	return out(vs[len(vs)-1])
}

func biLimit(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return args[0].Eval(in, en, func(nv value.Value) *ErrState {
		n := nv.AsInt()
		if n <= 0 {
			return nil
		}
		count := int64(0)
		err := args[1].Eval(in, en, func(v value.Value) *ErrState {
			if serr := out(v); serr != nil {
				return serr
			}
			count++
			if count >= n {
				return BreakSignal(firstSentinel)
			}
			return nil
		})
		if err != nil && err.Label == firstSentinel {
			return nil
		}
		return err
	})
}

func biTostream(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return tostreamWalk(in, nil, out)
}

// tostreamWalk emits jq's tostream event pairs: [path, leaf] for every
// scalar/empty-container, and a trailing [path] "close" event after the
// last element of every non-empty container (spec §4.11).
func tostreamWalk(v value.Value, path []value.Value, out Emit) *ErrState {
	switch v.Type() {
	case value.Array:
		elems := v.Elems()
		if len(elems) == 0 {
			return out(value.NewArray([]value.Value{value.NewArray(append([]value.Value(nil), path...)), v}))
		}
		for i, e := range elems {
			if err := tostreamWalk(e, appendPath(path, value.NewInt(int64(i))), out); err != nil {
				return err
			}
		}
		closePath := appendPath(path, value.NewInt(int64(len(elems)-1)))
		return out(value.NewArray([]value.Value{value.NewArray(closePath)}))
	case value.Object:
		entries := v.Entries()
		if len(entries) == 0 {
			return out(value.NewArray([]value.Value{value.NewArray(append([]value.Value(nil), path...)), v}))
		}
		var lastKey string
		for _, e := range entries {
			if err := tostreamWalk(e.Value, appendPath(path, value.NewString(e.Key)), out); err != nil {
				return err
			}
			lastKey = e.Key
		}
		closePath := appendPath(path, value.NewString(lastKey))
		return out(value.NewArray([]value.Value{value.NewArray(closePath)}))
	default:
		return out(value.NewArray([]value.Value{value.NewArray(append([]value.Value(nil), path...)), v}))
	}
}

// biFromstream is the inverse of tostream: it reconstructs documents
// from a stream of tostream-shaped [path, leaf]/[path] events, emitting
// one reconstructed value each time a top-level (depth-0) document
// closes.
func biFromstream(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	var cur value.Value
	have := false
	return args[0].Eval(in, en, func(ev value.Value) *ErrState {
		elems := ev.Elems()
		path := elems[0].Elems()
		if len(elems) == 2 {
			if len(path) == 0 {
				return out(elems[1])
			}
			if !have {
				cur = value.NewNull()
				have = true
			}
			v, err := setpathValue(cur, path, elems[1])
			if err != nil {
				return FromTypeError(err)
			}
			cur = v
			return nil
		}
		if len(path) <= 1 {
			if have {
				v := cur
				have = false
				return out(v)
			}
		}
		return nil
	})
}

func mathBuiltin(f func(float64) float64) builtinFn {
	return func(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
		if !isNumericValue(in) {
			return Errorf("%s (%s) number required", in.Type(), value.Describe(in))
		}
		return out(value.NewDouble(f(in.AsFloat())))
	}
}

func isNumericValue(v value.Value) bool { return v.Type() == value.Int || v.Type() == value.Double }
