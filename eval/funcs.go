package eval

import (
	"strings"

	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/value"
)

type defNode struct {
	name   string
	params []string
	body   node
	rest   node
}

func compileDef(t filter.Def, ctx *compileCtx) (node, error) {
	body, err := compile(t.Body, ctx)
	if err != nil {
		return nil, err
	}
	rest, err := compile(t.Rest, ctx)
	if err != nil {
		return nil, err
	}
	return defNode{name: t.Name, params: t.Params, body: body, rest: rest}, nil
}

// Eval binds the definition into a child environment (env.WithFunc makes
// the binding see itself, so the body can recurse) and evaluates Rest in
// it; the definition itself produces no output.
func (n defNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	child := en.WithFunc(env.FuncDef{Name: n.name, Params: n.params, Body: n.body})
	return n.rest.Eval(in, child, out)
}

type callNode struct {
	name  string
	arity int
	args  []node
}

func compileFuncCall(t filter.FuncCall, ctx *compileCtx) (node, error) {
	args := make([]node, len(t.Args))
	for i, a := range t.Args {
		c, err := compile(a, ctx)
		if err != nil {
			return nil, err
		}
		args[i] = c
	}
	return callNode{name: t.Name, arity: len(t.Args), args: args}, nil
}

// Eval looks up user definitions before builtins, so a local `def`
// correctly shadows a builtin of the same name/arity, matching jq's
// lexical-scoping rules for function definitions.
func (n callNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	if fn, ok := en.LookupFunc(n.name, n.arity); ok {
		return callUserFunc(fn, n.args, in, en, out)
	}
	if b, ok := builtinTable[builtinKey{n.name, n.arity}]; ok {
		return b(n.args, in, en, out)
	}
	return Errorf("%s/%d is not defined", n.name, n.arity)
}

// maxCallDepth bounds nested user-defined-function invocations (spec
// §4.4's depth budget, exercised by boundary scenario `def f: f; f`,
// spec.md §8 #6). It is generous enough not to cut off any legitimate
// jq recursion (folds over large arrays recurse through builtins, not
// defs) while still firing well before the Go call stack itself would
// overflow.
const maxCallDepth = 10000

// callUserFunc binds filter parameters as zero-arity aliases closed over
// the caller's environment (late-bound: re-evaluated against whatever
// "." is current each time the parameter name is referenced inside the
// body) and value parameters ($-prefixed) as ordinary $var bindings,
// fanning out across the cartesian product of each value parameter's
// generator outputs, per spec §4.4.
func callUserFunc(fn env.FuncDef, args []node, in value.Value, callerEnv *env.Env, out Emit) *ErrState {
	bindEnv := fn.Closure
	var valueParamIdx []int
	for i, p := range fn.Params {
		if strings.HasPrefix(p, "$") {
			valueParamIdx = append(valueParamIdx, i)
			continue
		}
		bindEnv = bindEnv.WithAlias(env.FuncDef{Name: p, Params: nil, Body: args[i], Closure: callerEnv})
	}
	body, ok := fn.Body.(node)
	if !ok {
		return Errorf("%s/%d has no body", fn.Name, len(fn.Params))
	}
	pushed, ok := bindEnv.PushCall(maxCallDepth)
	if !ok {
		return Errorf("%s/%d: depth limit exceeded", fn.Name, len(fn.Params))
	}
	return bindValueParams(fn.Params, valueParamIdx, 0, args, in, callerEnv, pushed, func(finalEnv *env.Env) *ErrState {
		return body.Eval(in, finalEnv, out)
	})
}

func bindValueParams(params []string, valueParamIdx []int, idx int, args []node, callerIn value.Value, callerEnv, bindEnv *env.Env, k func(*env.Env) *ErrState) *ErrState {
	if idx == len(valueParamIdx) {
		return k(bindEnv)
	}
	pi := valueParamIdx[idx]
	name := strings.TrimPrefix(params[pi], "$")
	return args[pi].Eval(callerIn, callerEnv, func(v value.Value) *ErrState {
		return bindValueParams(params, valueParamIdx, idx+1, args, callerIn, callerEnv, bindEnv.WithVar(name, v), k)
	})
}
