package eval

import (
	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/value"
)

// bindPattern destructures v against pat, extending en with every bound
// variable (spec: 'as' destructuring patterns). Array patterns pad with
// null past the end of v; object patterns look up each key on v (null on
// a null v, matching jq's null-propagating field semantics; a type error
// on any other non-object v).
func bindPattern(pat filter.Pattern, v value.Value, en *env.Env) (*env.Env, *ErrState) {
	switch {
	case pat.Var != "":
		return en.WithVar(pat.Var, v), nil
	case pat.Array != nil:
		elems := v.Elems()
		for i, sub := range pat.Array {
			var ev value.Value
			if i < len(elems) {
				ev = elems[i]
			} else {
				ev = value.NewNull()
			}
			var err *ErrState
			en, err = bindPattern(sub, ev, en)
			if err != nil {
				return nil, err
			}
		}
		return en, nil
	case pat.Object != nil:
		for _, entry := range pat.Object {
			fv, ferr := v.Field(entry.Key)
			if ferr != nil {
				return nil, FromTypeError(ferr)
			}
			if entry.KeyVar {
				en = en.WithVar(entry.Key, fv)
			}
			var err *ErrState
			en, err = bindPattern(entry.Pattern, fv, en)
			if err != nil {
				return nil, err
			}
		}
		return en, nil
	default:
		// Empty pattern ('_' equivalent): binds nothing.
		return en, nil
	}
}

type bindNode struct {
	source  node
	pattern filter.Pattern
	body    node
}

func compileBind(t filter.Bind, ctx *compileCtx) (node, error) {
	src, err := compile(t.Source, ctx)
	if err != nil {
		return nil, err
	}
	body, err := compile(t.Body, ctx)
	if err != nil {
		return nil, err
	}
	// Destructuring alternatives ('?//') are rejected by the parser, so
	// Patterns always has exactly one entry.
	return bindNode{source: src, pattern: t.Patterns[0], body: body}, nil
}

func (n bindNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.source.Eval(in, en, func(v value.Value) *ErrState {
		bound, err := bindPattern(n.pattern, v, en)
		if err != nil {
			return err
		}
		return n.body.Eval(in, bound, out)
	})
}

type reduceNode struct {
	source  node
	pattern filter.Pattern
	init    node
	step    node
}

func compileReduce(t filter.Reduce, ctx *compileCtx) (node, error) {
	src, err := compile(t.Source, ctx)
	if err != nil {
		return nil, err
	}
	init, err := compile(t.Init, ctx)
	if err != nil {
		return nil, err
	}
	step, err := compile(t.Step, ctx)
	if err != nil {
		return nil, err
	}
	return reduceNode{source: src, pattern: t.Pattern, init: init, step: step}, nil
}

// Eval implements jq's 'reduce': the step filter may itself be a
// generator, in which case only its last produced value survives into
// the next iteration (matching the reference interpreter).
func (n reduceNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	var acc value.Value
	haveAcc := false
	if err := n.init.Eval(in, en, func(v value.Value) *ErrState {
		acc = v
		haveAcc = true
		return nil
	}); err != nil {
		return err
	}
	if !haveAcc {
		return nil
	}
	err := n.source.Eval(in, en, func(v value.Value) *ErrState {
		bound, berr := bindPattern(n.pattern, v, en)
		if berr != nil {
			return berr
		}
		var last value.Value
		haveLast := false
		if serr := n.step.Eval(acc, bound, func(sv value.Value) *ErrState {
			last = sv
			haveLast = true
			return nil
		}); serr != nil {
			return serr
		}
		if haveLast {
			acc = last
		} else {
			acc = value.NewNull()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return out(acc)
}

type foreachNode struct {
	source  node
	pattern filter.Pattern
	init    node
	step    node
	extract node // nil means emit the step's own output
}

func compileForeach(t filter.Foreach, ctx *compileCtx) (node, error) {
	src, err := compile(t.Source, ctx)
	if err != nil {
		return nil, err
	}
	init, err := compile(t.Init, ctx)
	if err != nil {
		return nil, err
	}
	step, err := compile(t.Step, ctx)
	if err != nil {
		return nil, err
	}
	var extract node
	if t.Extract != nil {
		extract, err = compile(t.Extract, ctx)
		if err != nil {
			return nil, err
		}
	}
	return foreachNode{source: src, pattern: t.Pattern, init: init, step: step, extract: extract}, nil
}

func (n foreachNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	var acc value.Value
	haveAcc := false
	if err := n.init.Eval(in, en, func(v value.Value) *ErrState {
		acc = v
		haveAcc = true
		return nil
	}); err != nil {
		return err
	}
	if !haveAcc {
		return nil
	}
	return n.source.Eval(in, en, func(v value.Value) *ErrState {
		bound, berr := bindPattern(n.pattern, v, en)
		if berr != nil {
			return berr
		}
		return n.step.Eval(acc, bound, func(sv value.Value) *ErrState {
			acc = sv
			if n.extract == nil {
				return out(sv)
			}
			return n.extract.Eval(sv, bound, out)
		})
	})
}
