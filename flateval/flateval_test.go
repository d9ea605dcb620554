package flateval

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/eval"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/flatbuf"
	"github.com/jqturbo/jqturbo/value"
)

// runFlat compiles src and runs it over json's flat-buffer encoding,
// returning the emitted values and whether the compiled filter took the
// flat-safe Nav path.
func runFlat(t *testing.T, src, json string) ([]value.Value, bool) {
	t.Helper()
	ast, err := filter.Compile(src)
	require.NoError(t, err)
	ev, err := Compile(ast)
	require.NoError(t, err)
	buf, err := flatbuf.BuildFromJSON([]byte(json))
	require.NoError(t, err)
	en := env.Root(nil, nil)
	var out []value.Value
	es := ev.Eval(buf, en, func(v value.Value) *eval.ErrState {
		out = append(out, v)
		return nil
	})
	require.Nil(t, es, "unexpected eval error: %v", es)
	return out, ev.IsFlatSafe()
}

// runFull runs src through the full materializing evaluator over the
// same json text, for differential comparison against runFlat.
func runFull(t *testing.T, src, json string) []value.Value {
	t.Helper()
	ast, err := filter.Compile(src)
	require.NoError(t, err)
	n, err := eval.Compile(ast)
	require.NoError(t, err)
	buf, err := flatbuf.BuildFromJSON([]byte(json))
	require.NoError(t, err)
	in, err := buf.Value()
	require.NoError(t, err)
	en := env.Root(nil, nil)
	var out []value.Value
	es := n.Eval(in, en, func(v value.Value) *eval.ErrState {
		out = append(out, v)
		return nil
	})
	require.Nil(t, es)
	return out
}

func requireSameResults(t *testing.T, src, json string) {
	t.Helper()
	flat, _ := runFlat(t, src, json)
	full := runFull(t, src, json)
	require.Len(t, flat, len(full), "src=%q json=%s", src, json)
	for i := range flat {
		require.True(t, value.Equal(flat[i], full[i]), "src=%q json=%s i=%d flat=%#v full=%#v", src, json, i, flat[i], full[i])
	}
}

func TestFlatSafeFieldChain(t *testing.T) {
	requireSameResults(t, ".a.b.c", `{"a": {"b": {"c": 42}}}`)
	_, safe := runFlat(t, ".a.b.c", `{"a": {"b": {"c": 42}}}`)
	require.True(t, safe)
}

func TestFlatSafeMissingFieldIsNull(t *testing.T) {
	requireSameResults(t, ".a.missing", `{"a": {"b": 1}}`)
}

func TestFlatSafeFieldOnNullIsNull(t *testing.T) {
	requireSameResults(t, ".a.b", `{"a": null}`)
}

func TestFlatSafeFieldOnScalarErrors(t *testing.T) {
	ast, err := filter.Compile(".a")
	require.NoError(t, err)
	ev, err := Compile(ast)
	require.NoError(t, err)
	require.True(t, ev.IsFlatSafe())

	buf, err := flatbuf.BuildFromJSON([]byte(`5`))
	require.NoError(t, err)
	en := env.Root(nil, nil)
	es := ev.Eval(buf, en, func(value.Value) *eval.ErrState { return nil })
	require.NotNil(t, es)
}

func TestFlatSafeIterateAndIndex(t *testing.T) {
	requireSameResults(t, ".[]", `[1, 2, 3]`)
	requireSameResults(t, ".[1]", `[10, 20, 30]`)
	requireSameResults(t, ".[-1]", `[10, 20, 30]`)
	requireSameResults(t, ".[5]", `[10, 20, 30]`)
}

func TestFlatSafePipeChainThroughIterate(t *testing.T) {
	requireSameResults(t, ".items[].name", `{"items": [{"name": "a"}, {"name": "b"}]}`)
}

func TestFlatSafeCommaAndSelect(t *testing.T) {
	requireSameResults(t, ".a, .b", `{"a": 1, "b": 2}`)
	requireSameResults(t, ".[] | select(.x)", `[{"x": true, "y": 1}, {"x": false, "y": 2}]`)
}

func TestFlatSafeAlternative(t *testing.T) {
	requireSameResults(t, ".a // .b", `{"a": null, "b": 2}`)
	requireSameResults(t, ".a // .b", `{"a": 1, "b": 2}`)
}

func TestFlatSafeOptTry(t *testing.T) {
	requireSameResults(t, ".a.b?", `{"a": 1}`)
	_, safe := runFlat(t, ".a.b?", `{"a": 1}`)
	require.True(t, safe)
}

func TestTryCatchFallsBackToFullEvaluator(t *testing.T) {
	ast, err := filter.Compile("try error(\"boom\") catch .")
	require.NoError(t, err)
	ev, err := Compile(ast)
	require.NoError(t, err)
	require.False(t, ev.IsFlatSafe())
}

func TestNullaryBuiltins(t *testing.T) {
	requireSameResults(t, "length", `[1, 2, 3]`)
	requireSameResults(t, "length", `"hello"`)
	requireSameResults(t, "length", `null`)
	requireSameResults(t, "type", `{"a": 1}`)
	requireSameResults(t, "keys", `{"b": 1, "a": 2}`)
	requireSameResults(t, "not", `false`)
}

func TestArrayAndObjectConstructAreFlatSafeButNotNavPreserving(t *testing.T) {
	requireSameResults(t, "[.[] ]", `[1, 2, 3]`)
	requireSameResults(t, "{x: .a, y: .b}", `{"a": 1, "b": 2}`)
	_, safe := runFlat(t, "[.[] ]", `[1, 2, 3]`)
	require.True(t, safe)
}

func TestCompareFallsBackToFullEvaluator(t *testing.T) {
	ast, err := filter.Compile(".a == .b")
	require.NoError(t, err)
	ev, err := Compile(ast)
	require.NoError(t, err)
	require.False(t, ev.IsFlatSafe())
	requireSameResults(t, ".a == .b", `{"a": 1, "b": 1}`)
}

func TestNavZeroCopyAccessors(t *testing.T) {
	buf, err := flatbuf.BuildFromJSON([]byte(`{"a": [1, 2, 3], "b": "hi"}`))
	require.NoError(t, err)
	root := NewNav(buf)

	a, isNull, typeErr := root.GetField("a")
	require.False(t, isNull)
	require.False(t, typeErr)
	require.Equal(t, flatbuf.TagArrayStart, a.Tag())

	elems, err := a.Iterate()
	require.NoError(t, err)
	require.Len(t, elems, 3)

	length, err := a.Length()
	require.NoError(t, err)
	require.Equal(t, value.NewInt(3), length)

	keys, err := root.Keys()
	require.NoError(t, err)
	require.True(t, value.Equal(value.NewArray([]value.Value{value.NewString("a"), value.NewString("b")}), keys))

	missing, isNull, typeErr := root.GetField("missing")
	require.True(t, isNull)
	require.False(t, typeErr)
	require.False(t, missing.Truthy())
}
