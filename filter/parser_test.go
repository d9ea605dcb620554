package filter

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFieldChain(t *testing.T) {
	n, err := Parse(".a.b")
	require.NoError(t, err)
	pipe, ok := n.(Pipe)
	require.True(t, ok)
	require.Equal(t, Field{Name: "a"}, pipe.L)
	require.Equal(t, Field{Name: "b"}, pipe.R)
}

func TestParsePrecedencePipeWeakestCommaNext(t *testing.T) {
	n, err := Parse(".a, .b | .c")
	require.NoError(t, err)
	pipe, ok := n.(Pipe)
	require.True(t, ok, "top level should be the pipe, not the comma")
	_, ok = pipe.L.(Comma)
	require.True(t, ok)
}

func TestParseUnaryMinusVsSubtraction(t *testing.T) {
	n, err := Parse(".a - 1")
	require.NoError(t, err)
	arith, ok := n.(Arith)
	require.True(t, ok)
	require.Equal(t, ArithSub, arith.Op)

	n, err = Parse("-1")
	require.NoError(t, err)
	_, isNeg := n.(Neg)
	require.False(t, isNeg)
	lit, ok := n.(Literal)
	require.True(t, ok)
	require.Equal(t, int64(-1), lit.Value.AsInt())
}

func TestParseObjectConstructShorthand(t *testing.T) {
	n, err := Parse("{a, b: .c}")
	require.NoError(t, err)
	obj, ok := n.(ObjectConstruct)
	require.True(t, ok)
	require.Len(t, obj.Entries, 2)
	require.Equal(t, "a", obj.Entries[0].KeyName)
	require.Equal(t, Field{Name: "a"}, obj.Entries[0].Value)
	require.Equal(t, "b", obj.Entries[1].KeyName)
}

func TestParseIfElifElse(t *testing.T) {
	n, err := Parse("if .a then 1 elif .b then 2 else 3 end")
	require.NoError(t, err)
	ite, ok := n.(IfThenElse)
	require.True(t, ok)
	require.Equal(t, Field{Name: "a"}, ite.Cond)
	inner, ok := ite.Else.(IfThenElse)
	require.True(t, ok)
	require.Equal(t, Field{Name: "b"}, inner.Cond)
}

func TestParseReduce(t *testing.T) {
	n, err := Parse("reduce .[] as $x (0; . + $x)")
	require.NoError(t, err)
	red, ok := n.(Reduce)
	require.True(t, ok)
	require.Equal(t, "x", red.Pattern.Var)
}

func TestParseStringInterpolation(t *testing.T) {
	n, err := Parse(`"a\(1+1)b"`)
	require.NoError(t, err)
	fs, ok := n.(FormatString)
	require.True(t, ok)
	require.Len(t, fs.Parts, 3)
	require.Equal(t, "a", fs.Parts[0].Literal)
	require.NotNil(t, fs.Parts[1].Expr)
	require.Equal(t, "b", fs.Parts[2].Literal)
}

func TestParseAssignmentBetweenPipeAndComma(t *testing.T) {
	n, err := Parse(".a = 1, .b")
	require.NoError(t, err)
	assign, ok := n.(Assign)
	require.True(t, ok, "assignment binds looser than comma")
	comma, ok := assign.RHS.(Comma)
	require.True(t, ok)
	require.Len(t, comma.Items, 2)
}

func TestParseFuncDef(t *testing.T) {
	n, err := Parse("def inc($n): . + $n; inc(1)")
	require.NoError(t, err)
	def, ok := n.(Def)
	require.True(t, ok)
	require.Equal(t, "inc", def.Name)
	require.Equal(t, []string{"$n"}, def.Params)
	call, ok := def.Rest.(FuncCall)
	require.True(t, ok)
	require.Equal(t, "inc", call.Name)
}

func TestParseTrailingTokenIsError(t *testing.T) {
	_, err := Parse(".a )")
	require.Error(t, err)
}

func TestParseDestructuringAlternativesRejected(t *testing.T) {
	_, err := Parse(".a as $x ?// $y | $x")
	require.Error(t, err)
}
