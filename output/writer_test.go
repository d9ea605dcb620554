package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jqturbo/jqturbo/value"
)

func obj(entries ...value.Entry) value.Value { return value.NewObject(entries) }
func entry(k string, v value.Value) value.Entry {
	return value.Entry{Key: k, Value: v}
}

func TestWritePrettyObjectAndArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{Indent: 2})
	v := obj(
		entry("b", value.NewInt(2)),
		entry("a", value.NewArray([]value.Value{value.NewInt(1), value.NewBool(true), value.NewNull()})),
	)
	require.NoError(t, w.Write(v))
	require.Equal(t, "{\n  \"b\": 2,\n  \"a\": [\n    1,\n    true,\n    null\n  ]\n}\n", buf.String())
}

func TestWriteCompact(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{Compact: true})
	v := obj(entry("b", value.NewInt(2)), entry("a", value.NewInt(1)))
	require.NoError(t, w.Write(v))
	require.Equal(t, `{"b":2,"a":1}`+"\n", buf.String())
}

func TestWriteSortKeys(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{Compact: true, SortKeys: true})
	v := obj(entry("b", value.NewInt(2)), entry("a", value.NewInt(1)))
	require.NoError(t, w.Write(v))
	require.Equal(t, `{"a":1,"b":2}`+"\n", buf.String())
}

func TestWriteRawOutputUnquotesTopLevelString(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{RawOutput: true})
	require.NoError(t, w.Write(value.NewString("hello\nworld")))
	require.Equal(t, "hello\nworld\n", buf.String())
}

func TestWriteRawOutputLeavesNonStringQuoted(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{RawOutput: true, Compact: true})
	require.NoError(t, w.Write(value.NewArray([]value.Value{value.NewInt(1)})))
	require.Equal(t, "[1]\n", buf.String())
}

func TestWriteJoinOutputSuppressesTerminator(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{Compact: true, JoinOutput: true})
	require.NoError(t, w.Write(value.NewInt(1)))
	require.NoError(t, w.Write(value.NewInt(2)))
	require.Equal(t, "12", buf.String())
}

func TestWriteRawOutput0NulTerminates(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{RawOutput0: true})
	require.NoError(t, w.Write(value.NewString("a")))
	require.NoError(t, w.Write(value.NewString("b")))
	require.Equal(t, "a\x00b\x00", buf.String())
}

func TestWriteRawOutput0RejectsEmbeddedNul(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{RawOutput0: true})
	err := w.Write(value.NewString("a\x00b"))
	require.Error(t, err)
}

func TestWriteASCIIOutputEscapesNonASCII(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{Compact: true, ASCIIOutput: true})
	require.NoError(t, w.Write(value.NewString("café")))
	require.Equal(t, "\"caf\\u00e9\"\n", buf.String())
}

func TestWriteColorWrapsScalarsAndKeys(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{Compact: true, Color: &DefaultColorizer})
	require.NoError(t, w.Write(obj(entry("a", value.NewInt(1)))))
	out := buf.String()
	require.Contains(t, out, string(DefaultColorizer.KeyColorCode))
	require.Contains(t, out, string(DefaultColorizer.ScalarColorCodes[2])) // number
	require.Contains(t, out, string(DefaultColorizer.ResetCode))
}

func TestWriteNoColorWhenColorizerNil(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{Compact: true})
	require.NoError(t, w.Write(value.NewInt(1)))
	require.Equal(t, "1\n", buf.String())
}

func TestWriteEmptyObjectAndArray(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{Compact: true})
	require.NoError(t, w.Write(obj()))
	require.NoError(t, w.Write(value.NewArray(nil)))
	require.Equal(t, "{}\n[]\n", buf.String())
}

func TestWriteRawTextNumberRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, Options{Compact: true})
	require.NoError(t, w.Write(value.NewDoubleText(75.80, "75.80")))
	require.Equal(t, "75.80\n", buf.String())
}
