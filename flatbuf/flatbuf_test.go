package flatbuf

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jqturbo/jqturbo/value"
)

func TestBuildFromJSONScalars(t *testing.T) {
	cases := map[string]value.Value{
		`null`:   value.NewNull(),
		`true`:   value.NewBool(true),
		`false`:  value.NewBool(false),
		`42`:     value.NewInt(42),
		`-7`:     value.NewInt(-7),
		`"hi"`:   value.NewString("hi"),
		`"a\nb"`: value.NewString("a\nb"),
		`"é"`:    value.NewString("é"),
	}
	for src, want := range cases {
		buf, err := BuildFromJSON([]byte(src))
		require.NoError(t, err, src)
		got, err := buf.Value()
		require.NoError(t, err, src)
		require.True(t, value.Equal(want, got), "%s: got %#v want %#v", src, got, want)
	}
}

func TestBuildFromJSONPreservesDoubleText(t *testing.T) {
	buf, err := BuildFromJSON([]byte(`75.80`))
	require.NoError(t, err)
	v, err := buf.Value()
	require.NoError(t, err)
	require.Equal(t, value.Double, v.Type())
	raw, ok := v.RawText()
	require.True(t, ok)
	require.Equal(t, "75.80", raw)
}

func TestBuildFromJSONNested(t *testing.T) {
	src := `{"a": [1, 2, {"b": "x"}], "c": null}`
	buf, err := BuildFromJSON([]byte(src))
	require.NoError(t, err)
	got, err := buf.Value()
	require.NoError(t, err)

	want := value.NewObject([]value.Entry{
		{Key: "a", Value: value.NewArray([]value.Value{
			value.NewInt(1),
			value.NewInt(2),
			value.NewObject([]value.Entry{{Key: "b", Value: value.NewString("x")}}),
		})},
		{Key: "c", Value: value.NewNull()},
	})
	require.True(t, value.Equal(want, got))
}

func TestBuildFromJSONEmptyContainers(t *testing.T) {
	buf, err := BuildFromJSON([]byte(`{"a": [], "b": {}}`))
	require.NoError(t, err)
	got, err := buf.Value()
	require.NoError(t, err)
	a, _ := got.Field("a")
	require.Equal(t, value.Array, a.Type())
	require.Len(t, a.Elems(), 0)
	b, _ := got.Field("b")
	require.Equal(t, value.Object, b.Type())
	require.Len(t, b.Entries(), 0)
}

func TestBuildFromJSONRejectsTrailingGarbage(t *testing.T) {
	_, err := BuildFromJSON([]byte(`1 2`))
	require.Error(t, err)
}

func TestBuildFromValueRoundTrip(t *testing.T) {
	in := value.NewObject([]value.Entry{
		{Key: "nums", Value: value.NewArray([]value.Value{value.NewInt(1), value.NewDouble(2.5)})},
		{Key: "ok", Value: value.NewBool(true)},
	})
	data := BuildFromValue(in)
	buf := New(data)
	out, err := buf.Value()
	require.NoError(t, err)
	require.True(t, value.Equal(in, out))
}

func TestValueEndSkipsWithoutMaterializing(t *testing.T) {
	buf, err := BuildFromJSON([]byte(`[{"a": [1, 2, 3]}, "tail"]`))
	require.NoError(t, err)

	require.Equal(t, TagArrayStart, buf.Tag(0))
	count, firstElemOff := buf.ChildCount(0)
	require.Equal(t, uint32(2), count)

	afterFirst := buf.ValueEnd(firstElemOff)
	require.Equal(t, TagString, buf.Tag(afterFirst))
	s, afterTail := buf.ReadString(afterFirst)
	require.Equal(t, "tail", s)
	require.Equal(t, TagArrayEnd, buf.Tag(afterTail))
}
