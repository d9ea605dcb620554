package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jqturbo/jqturbo/value"
)

func TestScalarColorIndex(t *testing.T) {
	require.Equal(t, 0, scalarColorIndex(value.Null))
	require.Equal(t, 1, scalarColorIndex(value.Bool))
	require.Equal(t, 2, scalarColorIndex(value.Int))
	require.Equal(t, 2, scalarColorIndex(value.Double))
	require.Equal(t, 3, scalarColorIndex(value.String))
}

func TestPrintScalarNilColorizerIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := &LinePrinter{Writer: &buf}
	var c *Colorizer
	require.NoError(t, c.printScalar(p, value.Int, "42"))
	require.Equal(t, "42", buf.String())
}

func TestPrintScalarColorized(t *testing.T) {
	var buf bytes.Buffer
	p := &LinePrinter{Writer: &buf}
	c := &DefaultColorizer
	require.NoError(t, c.printScalar(p, value.String, `"hi"`))
	want := string(c.ScalarColorCodes[3]) + `"hi"` + string(c.ResetCode)
	require.Equal(t, want, buf.String())
}

func TestPrintKeyColorized(t *testing.T) {
	var buf bytes.Buffer
	p := &LinePrinter{Writer: &buf}
	c := &DefaultColorizer
	require.NoError(t, c.printKey(p, "name", false))
	want := string(c.KeyColorCode) + `"name"` + string(c.ResetCode)
	require.Equal(t, want, buf.String())
}
