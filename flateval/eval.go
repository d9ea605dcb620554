package flateval

import (
	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/eval"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/flatbuf"
	"github.com/jqturbo/jqturbo/value"
)

// evalNode holds an eval.Compile result. eval.node is unexported, but
// any value satisfying its method set assigns to this local interface,
// so Evaluator can keep one without eval needing to export it.
type evalNode interface {
	Eval(in value.Value, en *env.Env, out eval.Emit) *eval.ErrState
}

// Evaluator runs a compiled filter against a flatbuf.Buffer. When the
// filter falls inside the flat-safe closed set (spec §4.5), Eval walks
// the buffer directly via Nav, materializing only at actual output
// points. Otherwise it materializes the buffer once up front and
// delegates to the full eval package evaluator, so Eval is always a
// correct way to run any filter over a flat buffer, fast path or not.
type Evaluator struct {
	flat     flatNode
	fallback evalNode
	flatSafe bool
}

// Compile compiles ast for evaluation over flat buffers. It never fails
// because a filter is merely "not flat-safe" — that only routes Eval
// through the materializing fallback; it fails only if the full
// evaluator itself fails to compile ast.
func Compile(ast filter.Node) (*Evaluator, error) {
	if c, ok := compileFlat(ast); ok {
		return &Evaluator{flat: c.flat, flatSafe: true}, nil
	}
	n, err := eval.Compile(ast)
	if err != nil {
		return nil, err
	}
	return &Evaluator{fallback: n}, nil
}

// IsFlatSafe reports whether Eval will run entirely over Nav without an
// upfront full materialization of the input buffer.
func (e *Evaluator) IsFlatSafe() bool { return e.flatSafe }

// Eval runs the compiled filter against buf's root value.
func (e *Evaluator) Eval(buf *flatbuf.Buffer, en *env.Env, out eval.Emit) *eval.ErrState {
	if e.flatSafe {
		return e.flat.Eval(NewNav(buf), en, out)
	}
	v, err := buf.Value()
	if err != nil {
		return eval.FromTypeError(err)
	}
	return e.fallback.Eval(v, en, out)
}
