package env

import (
	"testing"

	"github.com/jqturbo/jqturbo/value"
	"github.com/stretchr/testify/require"
)

func TestVarShadowingDoesNotLeakToClosure(t *testing.T) {
	root := Root(nil, nil)
	outer := root.WithVar("x", value.NewInt(1))
	closure := outer // captured before shadowing
	inner := outer.WithVar("x", value.NewInt(2))

	v, ok := inner.LookupVar("x")
	require.True(t, ok)
	require.Equal(t, int64(2), v.AsInt())

	v, ok = closure.LookupVar("x")
	require.True(t, ok)
	require.Equal(t, int64(1), v.AsInt())
}

func TestFuncLookupByArity(t *testing.T) {
	root := Root(nil, nil)
	one := root.WithFunc(FuncDef{Name: "f", Params: []string{"a"}})
	two := one.WithFunc(FuncDef{Name: "f", Params: []string{"a", "b"}})

	fn, ok := two.LookupFunc("f", 2)
	require.True(t, ok)
	require.Len(t, fn.Params, 2)

	fn, ok = two.LookupFunc("f", 1)
	require.True(t, ok)
	require.Len(t, fn.Params, 1)

	_, ok = two.LookupFunc("f", 3)
	require.False(t, ok)
}

func TestOSEnvVisibleFromNestedFrame(t *testing.T) {
	root := Root(nil, map[string]string{"HOME": "/root"})
	nested := root.WithVar("x", value.NewInt(1)).WithVar("y", value.NewInt(2))
	require.Equal(t, "/root", nested.OSEnv()["HOME"])
}
