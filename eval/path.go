package eval

import (
	"sort"

	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/value"
)

// evalPath walks the closed set of AST shapes the spec recognizes as
// valid path (l-value) expressions (spec: "Paths are lazy — computed
// from the filter structure, not by walking output values"), calling
// emit once per (path, value-at-path) pair. in is the value currently
// navigated to; path accumulates the key/index sequence taken to reach
// it from the assignment's original root.
func evalPath(pn filter.Node, in value.Value, en *env.Env, path []value.Value, emit func(path []value.Value, cur value.Value) *ErrState) *ErrState {
	switch t := pn.(type) {
	case filter.Identity:
		return emit(path, in)
	case filter.RecurseDefault:
		if err := emit(path, in); err != nil {
			return err
		}
		switch in.Type() {
		case value.Array:
			for i, e := range in.Elems() {
				if err := evalPath(pn, e, en, appendPath(path, value.NewInt(int64(i))), emit); err != nil {
					return err
				}
			}
		case value.Object:
			for _, e := range in.Entries() {
				if err := evalPath(pn, e.Value, en, appendPath(path, value.NewString(e.Key)), emit); err != nil {
					return err
				}
			}
		}
		return nil
	case filter.Field:
		v, err := in.Field(t.Name)
		if err != nil {
			if t.OptOk {
				return nil
			}
			return FromTypeError(err)
		}
		return emit(appendPath(path, value.NewString(t.Name)), v)
	case filter.Index:
		keyNode, cerr := compile(t.Key, newCompileCtx())
		if cerr != nil {
			return Errorf("%s", cerr)
		}
		return keyNode.Eval(in, en, func(k value.Value) *ErrState {
			v, err := indexValue(in, k)
			if err != nil {
				if t.OptOk {
					return nil
				}
				return FromTypeError(err)
			}
			return emit(appendPath(path, normalizeIndexKey(in, k)), v)
		})
	case filter.Iterate:
		switch in.Type() {
		case value.Array:
			for i, e := range in.Elems() {
				if err := emit(appendPath(path, value.NewInt(int64(i))), e); err != nil {
					return err
				}
			}
			return nil
		case value.Object:
			for _, e := range in.Entries() {
				if err := emit(appendPath(path, value.NewString(e.Key)), e.Value); err != nil {
					return err
				}
			}
			return nil
		default:
			if t.OptOk {
				return nil
			}
			return Errorf("Cannot iterate over %s", in.Type())
		}
	case filter.Pipe:
		return evalPath(t.L, in, en, path, func(p1 []value.Value, cur1 value.Value) *ErrState {
			return evalPath(t.R, cur1, en, p1, emit)
		})
	case filter.Comma:
		for _, item := range t.Items {
			if err := evalPath(item, in, en, path, emit); err != nil {
				return err
			}
		}
		return nil
	case filter.Alternative:
		any := false
		err := evalPath(t.L, in, en, path, func(p []value.Value, cur value.Value) *ErrState {
			if !cur.Truthy() {
				return nil
			}
			any = true
			return emit(p, cur)
		})
		if err != nil && err.IsBreak() {
			return err
		}
		if any {
			return nil
		}
		return evalPath(t.R, in, en, path, emit)
	case filter.Try:
		err := evalPath(t.Body, in, en, path, emit)
		if err == nil || err.IsBreak() {
			return err
		}
		return nil
	case filter.OptTry:
		err := evalPath(t.Body, in, en, path, emit)
		if err == nil || err.IsBreak() {
			return err
		}
		return nil
	case filter.IfThenElse:
		condNode, cerr := compile(t.Cond, newCompileCtx())
		if cerr != nil {
			return Errorf("%s", cerr)
		}
		return condNode.Eval(in, en, func(c value.Value) *ErrState {
			if c.Truthy() {
				return evalPath(t.Then, in, en, path, emit)
			}
			if t.Else == nil {
				return emit(path, in)
			}
			return evalPath(t.Else, in, en, path, emit)
		})
	case filter.Bind:
		srcNode, cerr := compile(t.Source, newCompileCtx())
		if cerr != nil {
			return Errorf("%s", cerr)
		}
		return srcNode.Eval(in, en, func(v value.Value) *ErrState {
			bound, berr := bindPattern(t.Patterns[0], v, en)
			if berr != nil {
				return berr
			}
			return evalPath(t.Body, in, bound, path, emit)
		})
	case filter.FuncCall:
		return evalPathFuncCall(t, in, en, path, emit)
	default:
		return Errorf("Invalid path expression near attempt to use %T as a path", pn)
	}
}

func evalPathFuncCall(t filter.FuncCall, in value.Value, en *env.Env, path []value.Value, emit func(path []value.Value, cur value.Value) *ErrState) *ErrState {
	switch t.Name {
	case "empty":
		return nil
	case "select":
		if len(t.Args) != 1 {
			return Errorf("select/%d is not defined", len(t.Args))
		}
		condNode, err := compile(t.Args[0], newCompileCtx())
		if err != nil {
			return Errorf("%s", err)
		}
		return condNode.Eval(in, en, func(c value.Value) *ErrState {
			if !c.Truthy() {
				return nil
			}
			return emit(path, in)
		})
	case "recurse":
		switch len(t.Args) {
		case 0:
			return evalPath(filter.RecurseDefault{}, in, en, path, emit)
		case 1:
			var rec func(in value.Value, path []value.Value) *ErrState
			rec = func(in value.Value, path []value.Value) *ErrState {
				if err := emit(path, in); err != nil {
					return err
				}
				return evalPath(t.Args[0], in, en, path, func(p []value.Value, cur value.Value) *ErrState {
					return rec(cur, p)
				})
			}
			return rec(in, path)
		default:
			return Errorf("recurse/%d is not defined", len(t.Args))
		}
	case "getpath":
		if len(t.Args) != 1 {
			return Errorf("getpath/%d is not defined", len(t.Args))
		}
		argNode, err := compile(t.Args[0], newCompileCtx())
		if err != nil {
			return Errorf("%s", err)
		}
		return argNode.Eval(in, en, func(pv value.Value) *ErrState {
			sub := pv.Elems()
			v, gerr := getpathValue(in, sub)
			if gerr != nil {
				return FromTypeError(gerr)
			}
			return emit(appendPath(append([]value.Value(nil), path...), sub...), v)
		})
	default:
		return Errorf("Invalid path expression with result from %s", t.Name)
	}
}

func appendPath(path []value.Value, keys ...value.Value) []value.Value {
	out := make([]value.Value, len(path)+len(keys))
	copy(out, path)
	copy(out[len(path):], keys)
	return out
}

// normalizeIndexKey turns a jq index key (possibly negative for arrays)
// into the path-array element jq itself would record: unchanged for
// string/object keys, wrapped to a non-negative index for arrays.
func normalizeIndexKey(in, k value.Value) value.Value {
	if in.Type() != value.Array || k.Type() == value.String {
		return k
	}
	n := int64(len(in.Elems()))
	i := k.AsInt()
	if i < 0 {
		i += n
	}
	return value.NewInt(i)
}

// getpathValue navigates root by a jq path array, returning null (not an
// error) for a field/index that does not exist, matching getpath's
// documented behavior.
func getpathValue(root value.Value, path []value.Value) (value.Value, error) {
	cur := root
	for _, key := range path {
		if cur.IsNull() {
			return value.NewNull(), nil
		}
		var err error
		if key.Type() == value.String {
			cur, err = cur.Field(key.Str())
		} else {
			cur, err = cur.Index(key.AsInt())
		}
		if err != nil {
			return value.Value{}, err
		}
	}
	return cur, nil
}

// setpathValue returns a new document with root[path] = newVal, creating
// intermediate containers as needed (objects for string keys, arrays
// padded with null for integer keys), per setpath's documented behavior.
func setpathValue(root value.Value, path []value.Value, newVal value.Value) (value.Value, error) {
	if len(path) == 0 {
		return newVal, nil
	}
	key := path[0]
	rest := path[1:]
	if key.Type() == value.String {
		if root.IsNull() {
			root = value.NewObject(nil)
		}
		if root.Type() != value.Object {
			return value.Value{}, &value.TypeError{Msg: "Cannot index " + root.Type().String() + " with \"" + key.Str() + "\""}
		}
		entries := append([]value.Entry(nil), root.Entries()...)
		for i, e := range entries {
			if e.Key == key.Str() {
				nv, err := setpathValue(e.Value, rest, newVal)
				if err != nil {
					return value.Value{}, err
				}
				entries[i] = value.Entry{Key: key.Str(), Value: nv}
				return value.NewObject(entries), nil
			}
		}
		nv, err := setpathValue(value.NewNull(), rest, newVal)
		if err != nil {
			return value.Value{}, err
		}
		entries = append(entries, value.Entry{Key: key.Str(), Value: nv})
		return value.NewObject(entries), nil
	}
	if root.IsNull() {
		root = value.NewArray(nil)
	}
	if root.Type() != value.Array {
		return value.Value{}, &value.TypeError{Msg: "Cannot index " + root.Type().String() + " with number"}
	}
	elems := append([]value.Value(nil), root.Elems()...)
	idx := key.AsInt()
	if idx < 0 {
		idx += int64(len(elems))
		if idx < 0 {
			return value.Value{}, &value.TypeError{Msg: "Out of bounds negative array index"}
		}
	}
	for int64(len(elems)) <= idx {
		elems = append(elems, value.NewNull())
	}
	nv, err := setpathValue(elems[idx], rest, newVal)
	if err != nil {
		return value.Value{}, err
	}
	elems[idx] = nv
	return value.NewArray(elems), nil
}

// delpathValue removes the location named by path from root, leaving
// siblings and array order otherwise intact. Deleting a non-existent
// path is a no-op.
func delpathValue(root value.Value, path []value.Value) (value.Value, error) {
	if len(path) == 0 {
		return value.NewNull(), nil
	}
	key := path[0]
	if len(path) == 1 {
		switch root.Type() {
		case value.Null:
			return root, nil
		case value.Object:
			if key.Type() != value.String {
				return value.Value{}, &value.TypeError{Msg: "Cannot delete field of object with non-string key"}
			}
			out := make([]value.Entry, 0, len(root.Entries()))
			for _, e := range root.Entries() {
				if e.Key != key.Str() {
					out = append(out, e)
				}
			}
			return value.NewObject(out), nil
		case value.Array:
			idx := key.AsInt()
			elems := root.Elems()
			if idx < 0 {
				idx += int64(len(elems))
			}
			if idx < 0 || idx >= int64(len(elems)) {
				return root, nil
			}
			out := make([]value.Value, 0, len(elems)-1)
			out = append(out, elems[:idx]...)
			out = append(out, elems[idx+1:]...)
			return value.NewArray(out), nil
		default:
			return value.Value{}, &value.TypeError{Msg: "Cannot delete field of " + root.Type().String()}
		}
	}
	var child value.Value
	var err error
	if key.Type() == value.String {
		child, err = root.Field(key.Str())
	} else {
		child, err = root.Index(key.AsInt())
	}
	if err != nil || child.IsNull() {
		return root, nil
	}
	newChild, derr := delpathValue(child, path[1:])
	if derr != nil {
		return value.Value{}, derr
	}
	return setpathValue(root, path[:1], newChild)
}

// delpathsValue deletes every path in paths from root, processing
// longer/"larger" paths first so deleting an earlier array element does
// not shift the index recorded by a later path into the same array.
func delpathsValue(root value.Value, paths [][]value.Value) (value.Value, error) {
	sorted := append([][]value.Value(nil), paths...)
	sort.Slice(sorted, func(i, j int) bool {
		return value.Compare(value.NewArray(sorted[i]), value.NewArray(sorted[j])) > 0
	})
	cur := root
	for _, p := range sorted {
		var err error
		cur, err = delpathValue(cur, p)
		if err != nil {
			return value.Value{}, err
		}
	}
	return cur, nil
}

// collectPaths gathers every path produced by pathAst against in, in
// emission order, discarding the per-path value.
func collectPaths(pathAst filter.Node, in value.Value, en *env.Env) ([][]value.Value, *ErrState) {
	var out [][]value.Value
	err := evalPath(pathAst, in, en, nil, func(p []value.Value, _ value.Value) *ErrState {
		out = append(out, append([]value.Value(nil), p...))
		return nil
	})
	return out, err
}

// delNode implements del(path_expr): paths matching path_expr are
// collected against the current input, then removed largest-first (same
// ordering delpathsValue uses) so array deletions don't shift later
// indices out from under each other.
type delNode struct{ pathAst filter.Node }

func (n delNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	paths, perr := collectPaths(n.pathAst, in, en)
	if perr != nil {
		return perr
	}
	doc, err := delpathsValue(in, paths)
	if err != nil {
		return FromTypeError(err)
	}
	return out(doc)
}

// assignNode implements all eight assignment forms (spec §3/§4 Assign
// operators), built around collectPaths/getpathValue/setpathValue.
type assignNode struct {
	pathAst filter.Node
	rhs     node
	kind    filter.AssignKind
}

func compileAssign(t filter.Assign, ctx *compileCtx) (node, error) {
	rhs, err := compile(t.RHS, ctx)
	if err != nil {
		return nil, err
	}
	return assignNode{pathAst: t.Path, rhs: rhs, kind: t.Kind}, nil
}

func (n assignNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	switch n.kind {
	case filter.AssignPlain:
		return n.rhs.Eval(in, en, func(rv value.Value) *ErrState {
			paths, perr := collectPaths(n.pathAst, in, en)
			if perr != nil {
				return perr
			}
			doc := in
			for _, p := range paths {
				var err error
				doc, err = setpathValue(doc, p, rv)
				if err != nil {
					return FromTypeError(err)
				}
			}
			return out(doc)
		})
	case filter.AssignUpdate:
		paths, perr := collectPaths(n.pathAst, in, en)
		if perr != nil {
			return perr
		}
		doc := in
		var deletions [][]value.Value
		for _, p := range paths {
			cur, gerr := getpathValue(doc, p)
			if gerr != nil {
				return FromTypeError(gerr)
			}
			newCur, hasOut, ferr := firstValue(n.rhs, cur, en)
			if ferr != nil {
				return ferr
			}
			if !hasOut {
				deletions = append(deletions, p)
				continue
			}
			var serr error
			doc, serr = setpathValue(doc, p, newCur)
			if serr != nil {
				return FromTypeError(serr)
			}
		}
		if len(deletions) > 0 {
			var derr error
			doc, derr = delpathsValue(doc, deletions)
			if derr != nil {
				return FromTypeError(derr)
			}
		}
		return out(doc)
	default:
		return n.evalArithLike(in, en, out)
	}
}

// evalArithLike implements +=, -=, *=, /=, %=, //=: the RHS is evaluated
// once against the original input, then applied pointwise to every
// matched path's current value.
func (n assignNode) evalArithLike(in value.Value, en *env.Env, out Emit) *ErrState {
	rv, hasOut, ferr := firstValue(n.rhs, in, en)
	if ferr != nil {
		return ferr
	}
	if !hasOut {
		return Errorf("right-hand side of update-assignment produced no value")
	}
	paths, perr := collectPaths(n.pathAst, in, en)
	if perr != nil {
		return perr
	}
	doc := in
	for _, p := range paths {
		cur, gerr := getpathValue(doc, p)
		if gerr != nil {
			return FromTypeError(gerr)
		}
		var newCur value.Value
		var aerr error
		switch n.kind {
		case filter.AssignArithAdd:
			newCur, aerr = value.Add(cur, rv)
		case filter.AssignArithSub:
			newCur, aerr = value.Sub(cur, rv)
		case filter.AssignArithMul:
			newCur, aerr = value.Mul(cur, rv)
		case filter.AssignArithDiv:
			newCur, aerr = value.Div(cur, rv)
		case filter.AssignArithMod:
			newCur, aerr = value.Mod(cur, rv)
		case filter.AssignAlt:
			if cur.Truthy() {
				newCur = cur
			} else {
				newCur = rv
			}
		}
		if aerr != nil {
			return FromTypeError(aerr)
		}
		var serr error
		doc, serr = setpathValue(doc, p, newCur)
		if serr != nil {
			return FromTypeError(serr)
		}
	}
	return out(doc)
}
