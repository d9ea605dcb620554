// Package decompress implements transparent input decompression (spec
// §6): before the NDJSON/single-document classifier runs, the input
// stream is sniffed for a gzip or zstd magic number and wrapped in the
// matching decompressing reader if one matches, or passed through
// unchanged otherwise.
package decompress

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Open sniffs r's leading bytes and returns a reader over the decoded
// stream, transparently un-gzipping or un-zstding it if the magic number
// matches. Close releases any decoder resources the matched codec holds;
// it is a no-op when nothing needed decoding.
//
// Grounded on cmd/pj/main.go's input-sniffing idiom: read a short prefix,
// decide from it, then stitch the prefix back onto the stream with
// io.MultiReader instead of requiring r to be seekable.
func Open(r io.Reader) (io.ReadCloser, error) {
	start := make([]byte, 4)
	n, err := io.ReadFull(r, start)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	start = start[:n]
	stream := io.MultiReader(bytes.NewReader(start), r)

	switch {
	case bytes.HasPrefix(start, gzipMagic):
		gz, err := gzip.NewReader(stream)
		if err != nil {
			return nil, err
		}
		return gz, nil
	case bytes.HasPrefix(start, zstdMagic):
		zr, err := zstd.NewReader(stream)
		if err != nil {
			return nil, err
		}
		return zstdReadCloser{zr}, nil
	default:
		return io.NopCloser(stream), nil
	}
}

// zstdReadCloser adapts *zstd.Decoder (whose Close takes no error) to
// io.ReadCloser.
type zstdReadCloser struct {
	*zstd.Decoder
}

func (z zstdReadCloser) Close() error {
	z.Decoder.Close()
	return nil
}
