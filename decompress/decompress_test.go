package decompress

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"
)

func TestOpenPassesThroughPlainInput(t *testing.T) {
	rc, err := Open(bytes.NewReader([]byte(`{"a": 1}` + "\n")))
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "{\"a\": 1}\n", string(got))
}

func TestOpenPassesThroughShortInput(t *testing.T) {
	rc, err := Open(bytes.NewReader([]byte("1")))
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "1", string(got))
}

func TestOpenDecodesGzip(t *testing.T) {
	want := []byte(`{"a": [1, 2, 3]}` + "\n")
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, err := gw.Write(want)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	rc, err := Open(&buf)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestOpenDecodesZstd(t *testing.T) {
	want := []byte(`{"a": [1, 2, 3]}` + "\n")
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll(want, nil)
	require.NoError(t, enc.Close())

	rc, err := Open(bytes.NewReader(compressed))
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, want, got)
}
