package eval

import (
	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/value"
)

// node is a compiled filter AST node. Eval runs the generator over a
// single input value, calling out once per produced value and returning
// whatever ErrState out returns (or one of its own) as soon as the
// generator stops, matching jq's short-circuiting generator semantics.
type node interface {
	Eval(in value.Value, en *env.Env, out Emit) *ErrState
}

// Compile turns a filter AST into an evaluatable node tree. The
// recursion budget for nested Def bodies (spec's depth-budget
// enforcement for recursive defs) is not a compile-time concern — it is
// tracked at call time through env.Env's call-depth counter, pushed once
// per user-defined-function invocation in callUserFunc (eval/funcs.go).
func Compile(n filter.Node) (node, error) {
	return compile(n, newCompileCtx())
}

// compileCtx is threaded through the compile step but carries no state:
// runtime values live in env.Env, and function and label names are
// resolved at run time through env.Env's scope chain, not here.
type compileCtx struct{}

func newCompileCtx() *compileCtx { return &compileCtx{} }

func compile(n filter.Node, ctx *compileCtx) (node, error) {
	switch t := n.(type) {
	case filter.Identity:
		return identityNode{}, nil
	case filter.RecurseDefault:
		return recurseDefaultNode{}, nil
	case filter.Field:
		return fieldNode{name: t.Name, optOk: t.OptOk}, nil
	case filter.Index:
		key, err := compile(t.Key, ctx)
		if err != nil {
			return nil, err
		}
		return indexNode{key: key, optOk: t.OptOk}, nil
	case filter.Slice:
		var from, to node
		var err error
		if t.From != nil {
			if from, err = compile(t.From, ctx); err != nil {
				return nil, err
			}
		}
		if t.To != nil {
			if to, err = compile(t.To, ctx); err != nil {
				return nil, err
			}
		}
		return sliceNode{from: from, to: to, optOk: t.OptOk}, nil
	case filter.Iterate:
		return iterateNode{optOk: t.OptOk}, nil
	case filter.Pipe:
		l, err := compile(t.L, ctx)
		if err != nil {
			return nil, err
		}
		r, err := compile(t.R, ctx)
		if err != nil {
			return nil, err
		}
		return pipeNode{l: l, r: r}, nil
	case filter.Comma:
		items := make([]node, len(t.Items))
		for i, it := range t.Items {
			c, err := compile(it, ctx)
			if err != nil {
				return nil, err
			}
			items[i] = c
		}
		return commaNode{items: items}, nil
	case filter.Alternative:
		l, err := compile(t.L, ctx)
		if err != nil {
			return nil, err
		}
		r, err := compile(t.R, ctx)
		if err != nil {
			return nil, err
		}
		return alternativeNode{l: l, r: r}, nil
	case filter.Try:
		body, err := compile(t.Body, ctx)
		if err != nil {
			return nil, err
		}
		var catch node
		if t.Catch != nil {
			if catch, err = compile(t.Catch, ctx); err != nil {
				return nil, err
			}
		}
		return tryNode{body: body, catch: catch}, nil
	case filter.OptTry:
		body, err := compile(t.Body, ctx)
		if err != nil {
			return nil, err
		}
		return tryNode{body: body, suppress: true}, nil
	case filter.Not:
		body, err := compile(t.Body, ctx)
		if err != nil {
			return nil, err
		}
		return notNode{body: body}, nil
	case filter.Neg:
		body, err := compile(t.Body, ctx)
		if err != nil {
			return nil, err
		}
		return negNode{body: body}, nil
	case filter.Literal:
		return literalNode{v: t.Value}, nil
	case filter.ArrayConstruct:
		var body node
		if t.Body != nil {
			b, err := compile(t.Body, ctx)
			if err != nil {
				return nil, err
			}
			body = b
		}
		return arrayConstructNode{body: body}, nil
	case filter.ObjectConstruct:
		return compileObjectConstruct(t, ctx)
	case filter.Compare:
		l, err := compile(t.L, ctx)
		if err != nil {
			return nil, err
		}
		r, err := compile(t.R, ctx)
		if err != nil {
			return nil, err
		}
		return compareNode{l: l, r: r, op: t.Op}, nil
	case filter.Arith:
		l, err := compile(t.L, ctx)
		if err != nil {
			return nil, err
		}
		r, err := compile(t.R, ctx)
		if err != nil {
			return nil, err
		}
		return arithNode{l: l, r: r, op: t.Op}, nil
	case filter.Bool:
		l, err := compile(t.L, ctx)
		if err != nil {
			return nil, err
		}
		r, err := compile(t.R, ctx)
		if err != nil {
			return nil, err
		}
		return boolNode{l: l, r: r, op: t.Op}, nil
	case filter.Select:
		cond, err := compile(t.Cond, ctx)
		if err != nil {
			return nil, err
		}
		return selectNode{cond: cond}, nil
	case filter.IfThenElse:
		cond, err := compile(t.Cond, ctx)
		if err != nil {
			return nil, err
		}
		then, err := compile(t.Then, ctx)
		if err != nil {
			return nil, err
		}
		var els node = identityNode{}
		if t.Else != nil {
			els, err = compile(t.Else, ctx)
			if err != nil {
				return nil, err
			}
		}
		return ifThenElseNode{cond: cond, then: then, els: els}, nil
	case filter.Bind:
		return compileBind(t, ctx)
	case filter.Reduce:
		return compileReduce(t, ctx)
	case filter.Foreach:
		return compileForeach(t, ctx)
	case filter.Assign:
		return compileAssign(t, ctx)
	case filter.VarRef:
		return varRefNode{name: t.Name}, nil
	case filter.FuncCall:
		if t.Name == "del" && len(t.Args) == 1 {
			return delNode{pathAst: t.Args[0]}, nil
		}
		return compileFuncCall(t, ctx)
	case filter.Def:
		return compileDef(t, ctx)
	case filter.Format:
		return formatNode{name: t.Name}, nil
	case filter.FormatString:
		return compileFormatString(t, ctx)
	case filter.Label:
		body, err := compile(t.Body, ctx)
		if err != nil {
			return nil, err
		}
		return labelNode{name: t.Name, body: body}, nil
	case filter.Break:
		return breakNode{name: t.Name}, nil
	default:
		return nil, Errorf("eval: unsupported AST node %T", n)
	}
}

type identityNode struct{}

func (identityNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return out(in)
}

type literalNode struct{ v value.Value }

func (n literalNode) Eval(_ value.Value, en *env.Env, out Emit) *ErrState {
	return out(n.v)
}

type fieldNode struct {
	name  string
	optOk bool
}

func (n fieldNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	v, err := in.Field(n.name)
	if err != nil {
		if n.optOk {
			return nil
		}
		return FromTypeError(err)
	}
	return out(v)
}

type indexNode struct {
	key   node
	optOk bool
}

func (n indexNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.key.Eval(in, en, func(k value.Value) *ErrState {
		v, err := indexValue(in, k)
		if err != nil {
			if n.optOk {
				return nil
			}
			return FromTypeError(err)
		}
		return out(v)
	})
}

func indexValue(in, k value.Value) (value.Value, error) {
	switch k.Type() {
	case value.String:
		return in.Field(k.Str())
	case value.Int, value.Double:
		return in.Index(k.AsInt())
	case value.Null:
		return value.Value{}, &value.TypeError{Msg: "Cannot index with null"}
	default:
		return value.Value{}, &value.TypeError{Msg: "Cannot index " + in.Type().String() + " with " + k.Type().String()}
	}
}

type sliceNode struct {
	from, to node
	optOk    bool
}

func (n sliceNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	genFrom := n.from
	if genFrom == nil {
		genFrom = literalNode{v: value.NewNull()}
	}
	genTo := n.to
	if genTo == nil {
		genTo = literalNode{v: value.NewNull()}
	}
	return genFrom.Eval(in, en, func(fromV value.Value) *ErrState {
		return genTo.Eval(in, en, func(toV value.Value) *ErrState {
			v, err := sliceValue(in, fromV, toV)
			if err != nil {
				if n.optOk {
					return nil
				}
				return FromTypeError(err)
			}
			return out(v)
		})
	})
}

func sliceValue(in, fromV, toV value.Value) (value.Value, error) {
	switch in.Type() {
	case value.Null:
		return value.NewNull(), nil
	case value.Array:
		elems := in.Elems()
		from, to := sliceBounds(len(elems), fromV, toV)
		return value.NewArray(append([]value.Value(nil), elems[from:to]...)), nil
	case value.String:
		runes := []rune(in.Str())
		from, to := sliceBounds(len(runes), fromV, toV)
		return value.NewString(string(runes[from:to])), nil
	default:
		return value.Value{}, &value.TypeError{Msg: "Cannot index " + in.Type().String() + " with object"}
	}
}

func sliceBounds(n int, fromV, toV value.Value) (int, int) {
	from, to := 0, n
	if !fromV.IsNull() {
		from = clampIndex(fromV.AsInt(), n)
	}
	if !toV.IsNull() {
		to = clampIndex(toV.AsInt(), n)
	}
	if to < from {
		to = from
	}
	return from, to
}

func clampIndex(i int64, n int) int {
	if i < 0 {
		i += int64(n)
	}
	if i < 0 {
		return 0
	}
	if i > int64(n) {
		return n
	}
	return int(i)
}

type iterateNode struct{ optOk bool }

func (n iterateNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	switch in.Type() {
	case value.Array:
		for _, e := range in.Elems() {
			if err := out(e); err != nil {
				return err
			}
		}
		return nil
	case value.Object:
		for _, e := range in.Entries() {
			if err := out(e.Value); err != nil {
				return err
			}
		}
		return nil
	default:
		if n.optOk {
			return nil
		}
		return Errorf("Cannot iterate over %s", in.Type())
	}
}

// recurseDefaultNode implements bare '..': recurse(.[]?) (spec §4.12,
// recurse is sugar built on top of this primitive).
type recurseDefaultNode struct{}

func (recurseDefaultNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	if err := out(in); err != nil {
		return err
	}
	switch in.Type() {
	case value.Array:
		for _, e := range in.Elems() {
			if err := (recurseDefaultNode{}).Eval(e, en, out); err != nil {
				return err
			}
		}
	case value.Object:
		for _, e := range in.Entries() {
			if err := (recurseDefaultNode{}).Eval(e.Value, en, out); err != nil {
				return err
			}
		}
	}
	return nil
}

type pipeNode struct{ l, r node }

func (n pipeNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.l.Eval(in, en, func(v value.Value) *ErrState {
		return n.r.Eval(v, en, out)
	})
}

type commaNode struct{ items []node }

func (n commaNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	for _, item := range n.items {
		if err := item.Eval(in, en, out); err != nil {
			return err
		}
	}
	return nil
}

// alternativeNode implements '//': all truthy outputs of l, or every
// output of r if l produced no truthy values or errored.
type alternativeNode struct{ l, r node }

func (n alternativeNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	any := false
	err := n.l.Eval(in, en, func(v value.Value) *ErrState {
		if !v.Truthy() {
			return nil
		}
		any = true
		return out(v)
	})
	if err != nil && err.IsBreak() {
		return err
	}
	if any {
		return nil
	}
	return n.r.Eval(in, en, out)
}

// tryNode implements 'try BODY catch HANDLER' and the postfix '?'
// (suppress==true, equivalent to 'try BODY').
type tryNode struct {
	body     node
	catch    node
	suppress bool
}

func (n tryNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	err := n.body.Eval(in, en, out)
	if err == nil || err.IsBreak() {
		return err
	}
	if n.suppress || n.catch == nil {
		return nil
	}
	return n.catch.Eval(err.Val, en, out)
}

// notNode implements the 'not' builtin as a dedicated node since it is
// used pervasively enough (select, and/or desugaring checks) to skip a
// function-call indirection.
type notNode struct{ body node }

func (n notNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.body.Eval(in, en, func(v value.Value) *ErrState {
		return out(value.NewBool(!v.Truthy()))
	})
}

type negNode struct{ body node }

func (n negNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.body.Eval(in, en, func(v value.Value) *ErrState {
		r, err := value.Neg(v)
		if err != nil {
			return FromTypeError(err)
		}
		return out(r)
	})
}

type selectNode struct{ cond node }

func (n selectNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.cond.Eval(in, en, func(c value.Value) *ErrState {
		if !c.Truthy() {
			return nil
		}
		return out(in)
	})
}

type ifThenElseNode struct {
	cond, then, els node
}

func (n ifThenElseNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.cond.Eval(in, en, func(c value.Value) *ErrState {
		if c.Truthy() {
			return n.then.Eval(in, en, out)
		}
		return n.els.Eval(in, en, out)
	})
}

type labelNode struct {
	name string
	body node
}

func (n labelNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	child := en.WithVar(labelVarPrefix+n.name, value.NewNull())
	err := n.body.Eval(in, child, out)
	if err != nil && err.IsBreak() && err.Label == n.name {
		return nil
	}
	return err
}

// labelVarPrefix keeps label names out of the ordinary $var namespace in
// env; labels never need a value, only scope-presence, but reusing env's
// chain avoids a second scope-threading mechanism.
const labelVarPrefix = "\x00label:"

type breakNode struct{ name string }

func (n breakNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	if _, ok := en.LookupVar(labelVarPrefix + n.name); !ok {
		return Errorf("$*label-%s is not defined", n.name)
	}
	return BreakSignal(n.name)
}

// firstValue runs n and returns only its first output, short-circuiting
// the rest of the generator. found is false if n produced no output.
func firstValue(n node, in value.Value, en *env.Env) (v value.Value, found bool, errOut *ErrState) {
	err := n.Eval(in, en, func(x value.Value) *ErrState {
		v, found = x, true
		return BreakSignal(firstSentinel)
	})
	if err != nil && err.Label != firstSentinel {
		return value.Value{}, false, err
	}
	return v, found, nil
}

type varRefNode struct{ name string }

func (n varRefNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	switch n.name {
	case "ENV":
		entries := make([]value.Entry, 0, len(en.OSEnv()))
		for k, v := range en.OSEnv() {
			entries = append(entries, value.Entry{Key: k, Value: value.NewString(v)})
		}
		return out(value.NewObject(entries))
	case "__prog_name__":
		return out(value.NewString("jqt"))
	}
	v, ok := en.LookupVar(n.name)
	if !ok {
		return Errorf("$%s is not defined", n.name)
	}
	return out(v)
}
