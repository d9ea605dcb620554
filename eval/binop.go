package eval

import (
	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/value"
)

// Per jq's generator semantics, binary operators evaluate their right
// operand in the outer loop and their left operand in the inner loop
// (e.g. '(1,2) + (10,20)' yields 11,12,21,22), which is why compareNode and
// arithNode below loop r outside l. boolNode short-circuits on its left
// operand, so it loops l outside r.

type compareNode struct {
	l, r node
	op   filter.CompareOp
}

func (n compareNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.r.Eval(in, en, func(rv value.Value) *ErrState {
		return n.l.Eval(in, en, func(lv value.Value) *ErrState {
			c := value.Compare(lv, rv)
			var res bool
			switch n.op {
			case filter.CmpEq:
				res = c == 0
			case filter.CmpNe:
				res = c != 0
			case filter.CmpLt:
				res = c < 0
			case filter.CmpLe:
				res = c <= 0
			case filter.CmpGt:
				res = c > 0
			case filter.CmpGe:
				res = c >= 0
			}
			return out(value.NewBool(res))
		})
	})
}

type arithNode struct {
	l, r node
	op   filter.ArithOp
}

func (n arithNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.r.Eval(in, en, func(rv value.Value) *ErrState {
		return n.l.Eval(in, en, func(lv value.Value) *ErrState {
			res, err := applyArith(n.op, lv, rv)
			if err != nil {
				return FromTypeError(err)
			}
			return out(res)
		})
	})
}

func applyArith(op filter.ArithOp, lv, rv value.Value) (value.Value, error) {
	switch op {
	case filter.ArithAdd:
		return value.Add(lv, rv)
	case filter.ArithSub:
		return value.Sub(lv, rv)
	case filter.ArithMul:
		return value.Mul(lv, rv)
	case filter.ArithDiv:
		return value.Div(lv, rv)
	case filter.ArithMod:
		return value.Mod(lv, rv)
	default:
		return value.Value{}, &value.TypeError{Msg: "unknown arithmetic operator"}
	}
}

// boolNode implements 'and'/'or' with jq's short-circuit-per-branch
// generator semantics: the right side is only evaluated for left outputs
// that don't already settle the result (false for 'and', true for 'or').
type boolNode struct {
	l, r node
	op   filter.BoolOp
}

func (n boolNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.l.Eval(in, en, func(lv value.Value) *ErrState {
		if n.op == filter.BoolAnd && !lv.Truthy() {
			return out(value.NewBool(false))
		}
		if n.op == filter.BoolOr && lv.Truthy() {
			return out(value.NewBool(true))
		}
		return n.r.Eval(in, en, func(rv value.Value) *ErrState {
			return out(value.NewBool(rv.Truthy()))
		})
	})
}
