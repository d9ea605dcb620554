package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinePrinterIndentDedent(t *testing.T) {
	var buf bytes.Buffer
	p := &LinePrinter{Writer: &buf, IndentSize: 2}
	require.NoError(t, p.PrintBytes([]byte("{")))
	p.Indent()
	require.NoError(t, p.PrintBytes([]byte(`"a": 1`)))
	p.Dedent()
	require.NoError(t, p.PrintBytes([]byte("}")))
	require.Equal(t, "{\n  \"a\": 1\n}", buf.String())
}

func TestLinePrinterNegativeIndentSuppressesNewlines(t *testing.T) {
	var buf bytes.Buffer
	p := &LinePrinter{Writer: &buf, IndentSize: -1}
	require.NoError(t, p.PrintBytes([]byte("{")))
	p.Indent()
	require.NoError(t, p.PrintBytes([]byte(`"a":1`)))
	p.Dedent()
	require.NoError(t, p.PrintBytes([]byte("}")))
	require.Equal(t, `{"a":1}`, buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errWriteFailed }

var errWriteFailed = errWrite{}

type errWrite struct{}

func (errWrite) Error() string { return "write failed" }

func TestLinePrinterStickyError(t *testing.T) {
	p := &LinePrinter{Writer: failingWriter{}}
	require.Error(t, p.PrintBytes([]byte("x")))
	// Once in error state, subsequent calls keep returning the same error
	// without touching the underlying writer again.
	require.Error(t, p.PrintBytes([]byte("y")))
}
