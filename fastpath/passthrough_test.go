package fastpath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jqturbo/jqturbo/value"
)

func TestPassthroughIdentityCompact(t *testing.T) {
	out, ok := Passthrough(mustCompile(t, "."), Mode{Compact: true}, []byte("{\n  \"a\": 1,\n  \"b\": 2\n}"))
	require.True(t, ok)
	require.Equal(t, `{"a":1,"b":2}`, string(out.Raw))
}

func TestPassthroughIdentityDeclinesWithoutCompact(t *testing.T) {
	_, ok := Passthrough(mustCompile(t, "."), Mode{}, []byte(`{"a": 1}`))
	require.False(t, ok)
}

func TestPassthroughIdentityDeclinesWithSemanticFlags(t *testing.T) {
	_, ok := Passthrough(mustCompile(t, "."), Mode{Compact: true, SortKeys: true}, []byte(`{"a": 1}`))
	require.False(t, ok)
	_, ok = Passthrough(mustCompile(t, "."), Mode{Compact: true, Slurp: true}, []byte(`{"a": 1}`))
	require.False(t, ok)
}

func TestPassthroughFieldCompact(t *testing.T) {
	out, ok := Passthrough(mustCompile(t, ".a.b"), Mode{Compact: true}, []byte(`{"a": {"b": {"c": 1, "d": [1, 2]}}}`))
	require.True(t, ok)
	require.Equal(t, `{"c":1,"d":[1,2]}`, string(out.Raw))
}

func TestPassthroughFieldCompactScalar(t *testing.T) {
	out, ok := Passthrough(mustCompile(t, ".a"), Mode{Compact: true}, []byte(`{"a": "hi there"}`))
	require.True(t, ok)
	require.Equal(t, `"hi there"`, string(out.Raw))
}

func TestPassthroughFieldCompactMissingIsNull(t *testing.T) {
	out, ok := Passthrough(mustCompile(t, ".a.missing"), Mode{Compact: true}, []byte(`{"a": {"b": 1}}`))
	require.True(t, ok)
	require.Equal(t, "null", string(out.Raw))
}

func TestPassthroughFieldCompactThroughNonObjectFallsBack(t *testing.T) {
	_, ok := Passthrough(mustCompile(t, ".a.b"), Mode{Compact: true}, []byte(`{"a": 5}`))
	require.False(t, ok)
}

func TestPassthroughLength(t *testing.T) {
	out, ok := Passthrough(mustCompile(t, ".items | length"), Mode{}, []byte(`{"items": [1, 2, 3]}`))
	require.True(t, ok)
	require.True(t, out.IsValue)
	require.True(t, value.Equal(value.NewInt(3), out.Value))
}

func TestPassthroughKeys(t *testing.T) {
	out, ok := Passthrough(mustCompile(t, ".obj | keys"), Mode{}, []byte(`{"obj": {"b": 1, "a": 2}}`))
	require.True(t, ok)
	require.True(t, out.IsValue)
	require.True(t, value.Equal(value.NewArray([]value.Value{value.NewString("a"), value.NewString("b")}), out.Value))
}

func TestPassthroughDeclinesOutsideClosedSet(t *testing.T) {
	_, ok := Passthrough(mustCompile(t, "select(.a)"), Mode{Compact: true}, []byte(`{"a": true}`))
	require.False(t, ok)
}
