package fastpath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/eval"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/flatbuf"
	"github.com/jqturbo/jqturbo/flateval"
	"github.com/jqturbo/jqturbo/value"
)

func mustCompile(t *testing.T, src string) filter.Node {
	t.Helper()
	ast, err := filter.Compile(src)
	require.NoError(t, err)
	return ast
}

// runGeneral runs src over line's JSON text through the full materializing
// evaluator, for differential comparison against fastpath.Eval.
func runGeneral(t *testing.T, src string, line []byte) []value.Value {
	t.Helper()
	ev, err := flateval.Compile(mustCompile(t, src))
	require.NoError(t, err)
	buf, err := flatbuf.BuildFromJSON(line)
	require.NoError(t, err)
	en := env.Root(nil, nil)
	var out []value.Value
	es := ev.Eval(buf, en, func(v value.Value) *eval.ErrState {
		out = append(out, v)
		return nil
	})
	require.Nil(t, es)
	return out
}

func requireMatchesGeneral(t *testing.T, src string, line []byte) {
	t.Helper()
	shape, ok := Recognize(mustCompile(t, src))
	require.True(t, ok, "expected %q to be recognized", src)
	fast, ok := Eval(shape, line)
	require.True(t, ok, "expected fast path to answer %q on %s", src, line)
	general := runGeneral(t, src, line)
	require.Len(t, fast, len(general), "src=%q line=%s", src, line)
	for i := range fast {
		require.True(t, value.Equal(fast[i], general[i]), "src=%q line=%s i=%d fast=%#v general=%#v", src, line, i, fast[i], general[i])
	}
}

func TestRecognizeFieldChain(t *testing.T) {
	shape, ok := Recognize(mustCompile(t, ".a.b.c"))
	require.True(t, ok)
	require.Equal(t, FieldChain, shape.Kind)
	require.Equal(t, []string{"a", "b", "c"}, shape.Path)

	shape, ok = Recognize(mustCompile(t, "."))
	require.True(t, ok)
	require.Equal(t, FieldChain, shape.Kind)
	require.Empty(t, shape.Path)
}

func TestRecognizeLengthTypeHas(t *testing.T) {
	shape, ok := Recognize(mustCompile(t, ".a.b | length"))
	require.True(t, ok)
	require.Equal(t, Length, shape.Kind)
	require.Equal(t, []string{"a", "b"}, shape.Path)

	shape, ok = Recognize(mustCompile(t, "type"))
	require.True(t, ok)
	require.Equal(t, Type, shape.Kind)

	shape, ok = Recognize(mustCompile(t, `has("x")`))
	require.True(t, ok)
	require.Equal(t, Has, shape.Kind)
	require.Equal(t, "x", shape.HasKey)
}

func TestRecognizeSelectCompare(t *testing.T) {
	shape, ok := Recognize(mustCompile(t, `select(.status == 200)`))
	require.True(t, ok)
	require.Equal(t, SelectCompare, shape.Kind)
	require.Equal(t, []string{"status"}, shape.Path)
	require.Equal(t, filter.CmpEq, shape.Op)
}

func TestRecognizeSelectStringPred(t *testing.T) {
	shape, ok := Recognize(mustCompile(t, `select(.name | startswith("a"))`))
	require.True(t, ok)
	require.Equal(t, SelectStringPred, shape.Kind)
	require.Equal(t, "startswith", shape.Pred)
	require.Equal(t, "a", shape.PredArg)
}

func TestRecognizeSelectWithProjection(t *testing.T) {
	shape, ok := Recognize(mustCompile(t, `select(.status == 200) | .name`))
	require.True(t, ok)
	require.Equal(t, SelectCompare, shape.Kind)
	require.NotNil(t, shape.Then)
	require.Equal(t, FieldChain, shape.Then.Kind)
	require.Equal(t, []string{"name"}, shape.Then.Path)
}

func TestRecognizeMultiFieldObj(t *testing.T) {
	shape, ok := Recognize(mustCompile(t, "{x: .a, y: .b.c}"))
	require.True(t, ok)
	require.Equal(t, MultiFieldObj, shape.Kind)
	require.Len(t, shape.ObjFields, 2)
	require.Equal(t, "x", shape.ObjFields[0].Key)
	require.Equal(t, []string{"a"}, shape.ObjFields[0].Path)
	require.Equal(t, "y", shape.ObjFields[1].Key)
	require.Equal(t, []string{"b", "c"}, shape.ObjFields[1].Path)
}

func TestRecognizeMultiFieldArr(t *testing.T) {
	shape, ok := Recognize(mustCompile(t, "[.a, .b]"))
	require.True(t, ok)
	require.Equal(t, MultiFieldArr, shape.Kind)
	require.Equal(t, [][]string{{"a"}, {"b"}}, shape.ArrPaths)
}

func TestRecognizeDeclinesOutsideClosedSet(t *testing.T) {
	_, ok := Recognize(mustCompile(t, ".a == .b"))
	require.False(t, ok)
	_, ok = Recognize(mustCompile(t, "map(.x)"))
	require.False(t, ok)
}

func TestEvalFieldChain(t *testing.T) {
	requireMatchesGeneral(t, ".a.b.c", []byte(`{"a": {"b": {"c": 42}}}`))
	requireMatchesGeneral(t, ".a.missing", []byte(`{"a": {"b": 1}}`))
}

func TestEvalFieldOnNullIsNull(t *testing.T) {
	requireMatchesGeneral(t, ".a.b", []byte(`{"a": null}`))
}

func TestEvalFieldThroughNonObjectFallsBack(t *testing.T) {
	shape, ok := Recognize(mustCompile(t, ".a.b"))
	require.True(t, ok)
	_, ok = Eval(shape, []byte(`{"a": 5}`))
	require.False(t, ok)
}

func TestEvalCompositeLeafFallsBack(t *testing.T) {
	shape, ok := Recognize(mustCompile(t, ".a"))
	require.True(t, ok)
	_, ok = Eval(shape, []byte(`{"a": [1, 2, 3]}`))
	require.False(t, ok)
}

func TestEvalLengthTypeHas(t *testing.T) {
	requireMatchesGeneral(t, ".a | length", []byte(`{"a": "hello"}`))
	requireMatchesGeneral(t, ".a | type", []byte(`{"a": null}`))
	requireMatchesGeneral(t, `.a | has("x")`, []byte(`{"a": {"x": 1}}`))
	requireMatchesGeneral(t, `.a | has("x")`, []byte(`{"a": {"y": 1}}`))
}

func TestEvalSelectCompare(t *testing.T) {
	requireMatchesGeneral(t, "select(.status == 200)", []byte(`{"status": 200, "body": "ok"}`))

	shape, ok := Recognize(mustCompile(t, "select(.status == 200)"))
	require.True(t, ok)
	out, ok := Eval(shape, []byte(`{"status": 404, "body": "nope"}`))
	require.True(t, ok)
	require.Empty(t, out)
}

func TestEvalSelectWithProjection(t *testing.T) {
	requireMatchesGeneral(t, "select(.status == 200) | .body", []byte(`{"status": 200, "body": "ok"}`))
}

func TestEvalSelectStringPred(t *testing.T) {
	requireMatchesGeneral(t, `select(.name | startswith("a"))`, []byte(`{"name": "alice"}`))

	shape, ok := Recognize(mustCompile(t, `select(.name | startswith("a"))`))
	require.True(t, ok)
	out, ok := Eval(shape, []byte(`{"name": "bob"}`))
	require.True(t, ok)
	require.Empty(t, out)
}

func TestEvalMultiFieldObj(t *testing.T) {
	requireMatchesGeneral(t, "{x: .a, y: .b}", []byte(`{"a": 1, "b": "two"}`))
}

func TestEvalMultiFieldArr(t *testing.T) {
	requireMatchesGeneral(t, "[.a, .b]", []byte(`{"a": 1, "b": "two"}`))
}

func TestEvalParseErrorFallsBack(t *testing.T) {
	shape, ok := Recognize(mustCompile(t, "."))
	require.True(t, ok)
	_, ok = Eval(shape, []byte(`not json`))
	require.False(t, ok)
}
