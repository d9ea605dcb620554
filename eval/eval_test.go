package eval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/value"
)

func run(t *testing.T, src string, in value.Value) []value.Value {
	t.Helper()
	ast, err := filter.Compile(src)
	require.NoError(t, err)
	n, err := Compile(ast)
	require.NoError(t, err)
	en := env.Root(nil, map[string]string{"HOME": "/home/test"})
	var out []value.Value
	errState := n.Eval(in, en, func(v value.Value) *ErrState {
		out = append(out, v)
		return nil
	})
	require.Nil(t, errState, "unexpected eval error: %v", errState)
	return out
}

func runErr(t *testing.T, src string, in value.Value) *ErrState {
	t.Helper()
	ast, err := filter.Compile(src)
	require.NoError(t, err)
	n, err := Compile(ast)
	require.NoError(t, err)
	en := env.Root(nil, nil)
	return n.Eval(in, en, func(value.Value) *ErrState { return nil })
}

func obj(entries ...value.Entry) value.Value { return value.NewObject(entries) }
func arr(elems ...value.Value) value.Value   { return value.NewArray(elems) }

func TestIdentityAndField(t *testing.T) {
	in := obj(value.Entry{Key: "a", Value: value.NewInt(1)})
	out := run(t, ".", in)
	require.Equal(t, []value.Value{in}, out)

	out = run(t, ".a", in)
	require.Equal(t, []value.Value{value.NewInt(1)}, out)
}

func TestIteratePipeAndComma(t *testing.T) {
	in := arr(value.NewInt(1), value.NewInt(2), value.NewInt(3))
	out := run(t, ".[] | . + 1", in)
	require.Equal(t, []value.Value{value.NewInt(2), value.NewInt(3), value.NewInt(4)}, out)

	out = run(t, "1, 2, 3", value.NewNull())
	require.Len(t, out, 3)
}

func TestArrayAndObjectConstruct(t *testing.T) {
	in := arr(value.NewInt(1), value.NewInt(2))
	out := run(t, "[.[] | . * 2]", in)
	require.Equal(t, []value.Value{arr(value.NewInt(2), value.NewInt(4))}, out)

	out = run(t, `{a: 1, b: .[0]}`, in)
	require.Equal(t, []value.Value{obj(
		value.Entry{Key: "a", Value: value.NewInt(1)},
		value.Entry{Key: "b", Value: value.NewInt(1)},
	)}, out)
}

func TestAlternativeAndTry(t *testing.T) {
	out := run(t, "null // 5", value.NewNull())
	require.Equal(t, []value.Value{value.NewInt(5)}, out)

	out = run(t, ".a?", value.NewInt(1))
	require.Empty(t, out)

	out = run(t, "(1/0)?", value.NewNull())
	require.Empty(t, out)
}

func TestIfThenElse(t *testing.T) {
	out := run(t, "if . > 1 then \"big\" else \"small\" end", value.NewInt(5))
	require.Equal(t, []value.Value{value.NewString("big")}, out)

	out = run(t, "if . > 1 then \"big\" else \"small\" end", value.NewInt(0))
	require.Equal(t, []value.Value{value.NewString("small")}, out)
}

func TestReduceAndForeach(t *testing.T) {
	in := arr(value.NewInt(1), value.NewInt(2), value.NewInt(3))
	out := run(t, "reduce .[] as $x (0; . + $x)", in)
	require.Equal(t, []value.Value{value.NewInt(6)}, out)

	out = run(t, "[foreach .[] as $x (0; . + $x)]", in)
	require.Equal(t, []value.Value{arr(value.NewInt(1), value.NewInt(3), value.NewInt(6))}, out)
}

func TestBindDestructuring(t *testing.T) {
	in := arr(value.NewInt(1), value.NewInt(2))
	out := run(t, ". as [$a, $b] | $a + $b", in)
	require.Equal(t, []value.Value{value.NewInt(3)}, out)
}

func TestAssignmentForms(t *testing.T) {
	in := obj(value.Entry{Key: "a", Value: value.NewInt(1)})
	out := run(t, ".a = 5", in)
	require.Equal(t, []value.Value{obj(value.Entry{Key: "a", Value: value.NewInt(5)})}, out)

	out = run(t, ".a += 1", in)
	require.Equal(t, []value.Value{obj(value.Entry{Key: "a", Value: value.NewInt(2)})}, out)

	out = run(t, "del(.a)", in)
	require.Equal(t, []value.Value{obj()}, out)
}

func TestUserDefinedFunctions(t *testing.T) {
	in := arr(value.NewInt(1), value.NewInt(2), value.NewInt(3))
	out := run(t, "def double: . * 2; [.[] | double]", in)
	require.Equal(t, []value.Value{arr(value.NewInt(2), value.NewInt(4), value.NewInt(6))}, out)

	out = run(t, `def addn(n): . + n; [.[] | addn(10)]`, in)
	require.Equal(t, []value.Value{arr(value.NewInt(11), value.NewInt(12), value.NewInt(13))}, out)
}

func TestBuiltinsLengthKeysSort(t *testing.T) {
	in := arr(value.NewInt(3), value.NewInt(1), value.NewInt(2))
	out := run(t, "length", in)
	require.Equal(t, []value.Value{value.NewInt(3)}, out)

	out = run(t, "sort", in)
	require.Equal(t, []value.Value{arr(value.NewInt(1), value.NewInt(2), value.NewInt(3))}, out)

	o := obj(value.Entry{Key: "b", Value: value.NewInt(1)}, value.Entry{Key: "a", Value: value.NewInt(2)})
	out = run(t, "keys", o)
	require.Equal(t, []value.Value{arr(value.NewString("a"), value.NewString("b"))}, out)
}

func TestBuiltinsMapSelectHas(t *testing.T) {
	in := arr(value.NewInt(1), value.NewInt(2), value.NewInt(3), value.NewInt(4))
	out := run(t, "map(select(. % 2 == 0))", in)
	require.Equal(t, []value.Value{arr(value.NewInt(2), value.NewInt(4))}, out)

	out = run(t, `has("a")`, obj(value.Entry{Key: "a", Value: value.NewNull()}))
	require.Equal(t, []value.Value{value.NewBool(true)}, out)
}

func TestPaths(t *testing.T) {
	in := obj(value.Entry{Key: "a", Value: arr(value.NewInt(1), value.NewInt(2))})
	out := run(t, "[paths]", in)
	require.Equal(t, []value.Value{arr(
		arr(value.NewString("a")),
		arr(value.NewString("a"), value.NewInt(0)),
		arr(value.NewString("a"), value.NewInt(1)),
	)}, out)
}

func TestStringBuiltins(t *testing.T) {
	out := run(t, `split(",")`, value.NewString("a,b,c"))
	require.Equal(t, []value.Value{arr(value.NewString("a"), value.NewString("b"), value.NewString("c"))}, out)

	out = run(t, `ltrimstr("foo")`, value.NewString("foobar"))
	require.Equal(t, []value.Value{value.NewString("bar")}, out)

	out = run(t, `test("^b")`, value.NewString("bar"))
	require.Equal(t, []value.Value{value.NewBool(true)}, out)

	out = run(t, `gsub("a"; "X")`, value.NewString("banana"))
	require.Equal(t, []value.Value{value.NewString("bXnXnX")}, out)
}

func TestFormatEncoders(t *testing.T) {
	out := run(t, `@base64`, value.NewString("hi"))
	require.Equal(t, []value.Value{value.NewString("aGk=")}, out)

	out = run(t, `@csv`, arr(value.NewInt(1), value.NewString("a,b")))
	require.Equal(t, []value.Value{value.NewString(`1,"a,b"`)}, out)
}

func TestTostreamFromstreamRoundTrip(t *testing.T) {
	in := obj(value.Entry{Key: "a", Value: arr(value.NewInt(1), value.NewInt(2))})
	out := run(t, "[fromstream(tostream)]", in)
	require.Equal(t, []value.Value{arr(in)}, out)
}

func TestLabelBreak(t *testing.T) {
	in := arr(value.NewInt(1), value.NewInt(2), value.NewInt(3))
	out := run(t, "label $out | .[] | if . == 2 then ., break $out else . end", in)
	require.Equal(t, []value.Value{value.NewInt(1), value.NewInt(2)}, out)
}

func TestErrorPropagatesAsErrState(t *testing.T) {
	err := runErr(t, `error("boom")`, value.NewNull())
	require.NotNil(t, err)
	require.Equal(t, "boom", err.Error())
}

// Unbounded def recursion must hit the depth budget and come back as a
// catchable ErrState, not crash the process with a native stack overflow
// (spec.md §8 boundary scenario: `def f: f; f` on null).
func TestRecursiveDefHitsDepthLimit(t *testing.T) {
	err := runErr(t, `def f: f; f`, value.NewNull())
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "depth limit")
}
