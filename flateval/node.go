package flateval

import (
	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/eval"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/value"
)

// navNode is a flat-safe node whose every output is itself a subtree of
// its input (spec §4.5's "flat-safe" closed set, restricted further to
// the shapes that preserve navigability). A navNode can sit on the left
// of a flat Pipe without forcing its right side to materialize anything
// until the chain's actual output point, which is the entire point of
// the lazy flat evaluator: a chain like .a.b.c walks three field offsets
// and allocates nothing until the final value is wanted.
type navNode interface {
	Eval(n Nav, en *env.Env, out func(Nav) *eval.ErrState) *eval.ErrState
}

// flatNode is the general flat-safe node: it hands materialized values
// to the caller's Emit. Constructors (array/object literals) and
// nullary builtins that summarize a value (length, type, keys, not)
// synthesize brand-new values that correspond to no offset in the input
// buffer, so they only ever implement flatNode.
type flatNode interface {
	Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState
}

// compiled carries both forms of a flat-safe node. flat is always set;
// nav is set only when every output is provably a subtree of the node's
// input, which is what lets a Pipe's right side stay on the Nav path
// instead of materializing at the seam.
type compiled struct {
	flat flatNode
	nav  navNode
}

// flatten adapts a navNode into a flatNode by materializing each Nav it
// produces, for use wherever a navNode needs to appear where only a
// flatNode is expected (the outward face of Evaluator.Eval, or the right
// side of a Pipe whose own right side isn't Nav-preserving).
func flatten(nn navNode) flatNode { return navAdaptor{nn} }

type navAdaptor struct{ nn navNode }

func (a navAdaptor) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	return a.nn.Eval(n, en, func(sub Nav) *eval.ErrState {
		v, err := sub.Materialize()
		if err != nil {
			return eval.FromTypeError(err)
		}
		return out(v)
	})
}

// compileFlat recognizes the closed set of flat-safe filter shapes (spec
// §4.5) and compiles them to walk a flatbuf.Buffer via Nav instead of
// value.Value. ok is false for anything outside that set; callers fall
// back to materializing the input once and using the full eval
// evaluator.
func compileFlat(n filter.Node) (compiled, bool) {
	switch t := n.(type) {
	case filter.Identity:
		nn := identityNav{}
		return compiled{flat: flatten(nn), nav: nn}, true

	case filter.Field:
		nn := fieldNav{name: t.Name, optOk: t.OptOk}
		return compiled{flat: flatten(nn), nav: nn}, true

	case filter.Index:
		idx, isIdx, key, isKey := literalIndexOrKey(t.Key)
		switch {
		case isKey:
			nn := fieldNav{name: key, optOk: t.OptOk}
			return compiled{flat: flatten(nn), nav: nn}, true
		case isIdx:
			nn := indexNav{idx: idx, optOk: t.OptOk}
			return compiled{flat: flatten(nn), nav: nn}, true
		default:
			return compiled{}, false
		}

	case filter.Iterate:
		nn := iterateNav{optOk: t.OptOk}
		return compiled{flat: flatten(nn), nav: nn}, true

	case filter.Pipe:
		l, ok := compileFlat(t.L)
		if !ok || l.nav == nil {
			return compiled{}, false
		}
		r, ok := compileFlat(t.R)
		if !ok {
			return compiled{}, false
		}
		c := compiled{flat: pipeFlat{l: l.nav, r: r.flat}}
		if r.nav != nil {
			nn := pipeNav{l: l.nav, r: r.nav}
			c.nav = nn
			c.flat = flatten(nn)
		}
		return c, true

	case filter.Comma:
		items := make([]compiled, len(t.Items))
		allNav := true
		for i, it := range t.Items {
			c, ok := compileFlat(it)
			if !ok {
				return compiled{}, false
			}
			items[i] = c
			if c.nav == nil {
				allNav = false
			}
		}
		flats := make([]flatNode, len(items))
		for i, c := range items {
			flats[i] = c.flat
		}
		out := compiled{flat: commaFlat{items: flats}}
		if allNav {
			navs := make([]navNode, len(items))
			for i, c := range items {
				navs[i] = c.nav
			}
			nn := commaNav{items: navs}
			out.nav = nn
			out.flat = flatten(nn)
		}
		return out, true

	case filter.Alternative:
		l, ok := compileFlat(t.L)
		if !ok {
			return compiled{}, false
		}
		r, ok := compileFlat(t.R)
		if !ok {
			return compiled{}, false
		}
		if l.nav != nil && r.nav != nil {
			nn := alternativeNav{l: l.nav, r: r.nav}
			return compiled{flat: flatten(nn), nav: nn}, true
		}
		return compiled{flat: alternativeFlat{l: l.flat, r: r.flat}}, true

	case filter.Try:
		if t.Catch != nil {
			return compiled{}, false
		}
		return compileFlatTry(t.Body)

	case filter.OptTry:
		return compileFlatTry(t.Body)

	case filter.Select:
		cond, ok := compileFlat(t.Cond)
		if !ok {
			return compiled{}, false
		}
		nn := selectNav{cond: cond.flat}
		return compiled{flat: flatten(nn), nav: nn}, true

	case filter.ArrayConstruct:
		if t.Body == nil {
			return compiled{flat: arrayConstructFlat{body: nil}}, true
		}
		body, ok := compileFlat(t.Body)
		if !ok {
			return compiled{}, false
		}
		return compiled{flat: arrayConstructFlat{body: body.flat}}, true

	case filter.ObjectConstruct:
		entries := make([]objectEntryFlat, len(t.Entries))
		for i, e := range t.Entries {
			if e.KeyExpr != nil || e.Value == nil {
				return compiled{}, false
			}
			v, ok := compileFlat(e.Value)
			if !ok {
				return compiled{}, false
			}
			entries[i] = objectEntryFlat{key: e.KeyName, value: v.flat}
		}
		return compiled{flat: objectConstructFlat{entries: entries}}, true

	case filter.Not:
		body, ok := compileFlat(t.Body)
		if !ok {
			return compiled{}, false
		}
		return compiled{flat: notFlat{body: body.flat}}, true

	case filter.FuncCall:
		if len(t.Args) != 0 {
			return compiled{}, false
		}
		switch t.Name {
		case "length":
			return compiled{flat: lengthFlat{}}, true
		case "type":
			return compiled{flat: typeFlat{}}, true
		case "keys":
			return compiled{flat: keysFlat{}}, true
		case "not":
			return compiled{flat: notFlat{body: flatten(identityNav{})}}, true
		}
		return compiled{}, false

	default:
		return compiled{}, false
	}
}

// literalIndexOrKey recognizes the constant index/key shapes a bracket
// suffix parses to: a bare string or int Literal (the lexer folds the
// '-1' of '.[-1]' into a single negative Literal), or a Neg wrapping an
// int Literal.
func literalIndexOrKey(n filter.Node) (idx int64, isIdx bool, key string, isKey bool) {
	switch t := n.(type) {
	case filter.Literal:
		switch t.Value.Type() {
		case value.String:
			return 0, false, t.Value.Str(), true
		case value.Int:
			return t.Value.AsInt(), true, "", false
		}
	case filter.Neg:
		if lit, ok := t.Body.(filter.Literal); ok && lit.Value.Type() == value.Int {
			return -lit.Value.AsInt(), true, "", false
		}
	}
	return 0, false, "", false
}

func compileFlatTry(body filter.Node) (compiled, bool) {
	b, ok := compileFlat(body)
	if !ok {
		return compiled{}, false
	}
	if b.nav != nil {
		nn := tryNav{body: b.nav}
		return compiled{flat: flatten(nn), nav: nn}, true
	}
	return compiled{flat: tryFlat{body: b.flat}}, true
}

// IsFlatSafe reports whether ast falls inside the flat-safe closed set,
// by running compileFlat and discarding the compiled nodes; no Evaluator
// is built.
func IsFlatSafe(ast filter.Node) bool {
	_, ok := compileFlat(ast)
	return ok
}

// --- Nav-preserving node implementations ---

type identityNav struct{}

func (identityNav) Eval(n Nav, en *env.Env, out func(Nav) *eval.ErrState) *eval.ErrState {
	return out(n)
}

type fieldNav struct {
	name  string
	optOk bool
}

func (f fieldNav) Eval(n Nav, en *env.Env, out func(Nav) *eval.ErrState) *eval.ErrState {
	sub, isNull, typeErr := n.GetField(f.name)
	if typeErr {
		if f.optOk {
			return nil
		}
		return eval.Errorf("Cannot index %s with %q", n.TypeName(), f.name)
	}
	if isNull {
		return out(Nav{})
	}
	return out(sub)
}

type indexNav struct {
	idx   int64
	optOk bool
}

func (ix indexNav) Eval(n Nav, en *env.Env, out func(Nav) *eval.ErrState) *eval.ErrState {
	sub, isNull, typeErr := n.GetIndex(ix.idx)
	if typeErr {
		if ix.optOk {
			return nil
		}
		return eval.Errorf("Cannot index %s with number", n.TypeName())
	}
	if isNull {
		return out(Nav{})
	}
	return out(sub)
}

type iterateNav struct{ optOk bool }

func (it iterateNav) Eval(n Nav, en *env.Env, out func(Nav) *eval.ErrState) *eval.ErrState {
	elems, err := n.Iterate()
	if err != nil {
		if it.optOk {
			return nil
		}
		return eval.Errorf("%s", err.Error())
	}
	for _, e := range elems {
		if es := out(e); es != nil {
			return es
		}
	}
	return nil
}

type pipeNav struct {
	l navNode
	r navNode
}

func (p pipeNav) Eval(n Nav, en *env.Env, out func(Nav) *eval.ErrState) *eval.ErrState {
	return p.l.Eval(n, en, func(mid Nav) *eval.ErrState {
		return p.r.Eval(mid, en, out)
	})
}

type commaNav struct{ items []navNode }

func (c commaNav) Eval(n Nav, en *env.Env, out func(Nav) *eval.ErrState) *eval.ErrState {
	for _, it := range c.items {
		if es := it.Eval(n, en, out); es != nil {
			return es
		}
	}
	return nil
}

// alternativeNav mirrors alternativeNode.Eval in the full evaluator: try
// the left side, forwarding only its truthy outputs; fall back to the
// right side only if the left side produced no truthy output at all.
type alternativeNav struct {
	l navNode
	r navNode
}

func (a alternativeNav) Eval(n Nav, en *env.Env, out func(Nav) *eval.ErrState) *eval.ErrState {
	any := false
	es := a.l.Eval(n, en, func(v Nav) *eval.ErrState {
		if !v.Truthy() {
			return nil
		}
		any = true
		return out(v)
	})
	if es != nil && es.IsBreak() {
		return es
	}
	if any {
		return nil
	}
	return a.r.Eval(n, en, out)
}

// tryNav mirrors tryNode.Eval with suppress semantics only (no catch
// clause is representable over Nav, since a catch body runs against the
// constructed error value, not a subtree of the input buffer).
type tryNav struct{ body navNode }

func (t tryNav) Eval(n Nav, en *env.Env, out func(Nav) *eval.ErrState) *eval.ErrState {
	es := t.body.Eval(n, en, out)
	if es == nil || es.IsBreak() {
		return es
	}
	return nil
}

// selectNav mirrors selectNode.Eval: re-emit the original input, never
// the condition's own output, once per truthy condition output.
type selectNav struct{ cond flatNode }

func (s selectNav) Eval(n Nav, en *env.Env, out func(Nav) *eval.ErrState) *eval.ErrState {
	return s.cond.Eval(n, en, func(c value.Value) *eval.ErrState {
		if !c.Truthy() {
			return nil
		}
		return out(n)
	})
}

// --- materializing-only flat nodes ---

type pipeFlat struct {
	l navNode
	r flatNode
}

func (p pipeFlat) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	return p.l.Eval(n, en, func(mid Nav) *eval.ErrState {
		return p.r.Eval(mid, en, out)
	})
}

type commaFlat struct{ items []flatNode }

func (c commaFlat) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	for _, it := range c.items {
		if es := it.Eval(n, en, out); es != nil {
			return es
		}
	}
	return nil
}

type alternativeFlat struct {
	l flatNode
	r flatNode
}

func (a alternativeFlat) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	any := false
	es := a.l.Eval(n, en, func(v value.Value) *eval.ErrState {
		if !v.Truthy() {
			return nil
		}
		any = true
		return out(v)
	})
	if es != nil && es.IsBreak() {
		return es
	}
	if any {
		return nil
	}
	return a.r.Eval(n, en, out)
}

type tryFlat struct{ body flatNode }

func (t tryFlat) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	es := t.body.Eval(n, en, out)
	if es == nil || es.IsBreak() {
		return es
	}
	return nil
}

type arrayConstructFlat struct{ body flatNode }

func (a arrayConstructFlat) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	if a.body == nil {
		return out(value.NewArray(nil))
	}
	var elems []value.Value
	es := a.body.Eval(n, en, func(v value.Value) *eval.ErrState {
		elems = append(elems, v)
		return nil
	})
	if es != nil {
		return es
	}
	return out(value.NewArray(elems))
}

type objectEntryFlat struct {
	key   string
	value flatNode
}

type objectConstructFlat struct{ entries []objectEntryFlat }

func (o objectConstructFlat) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	return o.buildFrom(0, nil, n, en, out)
}

func (o objectConstructFlat) buildFrom(i int, acc []value.Entry, n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	if i == len(o.entries) {
		entries := make([]value.Entry, len(acc))
		copy(entries, acc)
		return out(value.NewObject(entries))
	}
	e := o.entries[i]
	return e.value.Eval(n, en, func(v value.Value) *eval.ErrState {
		return o.buildFrom(i+1, append(acc, value.Entry{Key: e.key, Value: v}), n, en, out)
	})
}

type notFlat struct{ body flatNode }

func (nf notFlat) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	return nf.body.Eval(n, en, func(v value.Value) *eval.ErrState {
		return out(value.NewBool(!v.Truthy()))
	})
}

type lengthFlat struct{}

func (lengthFlat) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	v, err := n.Length()
	if err != nil {
		return eval.Errorf("%s", err.Error())
	}
	return out(v)
}

type typeFlat struct{}

func (typeFlat) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	return out(value.NewString(n.TypeName()))
}

type keysFlat struct{}

func (keysFlat) Eval(n Nav, en *env.Env, out eval.Emit) *eval.ErrState {
	v, err := n.Keys()
	if err != nil {
		return eval.Errorf("%s", err.Error())
	}
	return out(v)
}
