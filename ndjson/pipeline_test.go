package ndjson

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	require.True(t, Detect([]byte("{\"a\":1}\n{\"a\":2}\n")))
	require.True(t, Detect([]byte("[1,2]\n[3,4]\n")))
	require.False(t, Detect([]byte("{\"a\":1}\n")))          // only one line
	require.False(t, Detect([]byte("{\"a\":1}\nnot json\n"))) // second line doesn't start with {/[
	require.False(t, Detect([]byte("")))
}

func upperLine(line []byte, lineNo int) ([]byte, error) {
	return append(bytes.ToUpper(line), '\n'), nil
}

func TestRunPreservesOrder(t *testing.T) {
	var input bytes.Buffer
	const n = 500
	for i := 0; i < n; i++ {
		fmt.Fprintf(&input, "line%d\n", i)
	}

	var out, errs bytes.Buffer
	result, err := Run(context.Background(), &input, &out, &errs, upperLine, Options{Workers: 8, ChunkBytes: 64})
	require.NoError(t, err)
	require.Equal(t, n, result.LinesProcessed)
	require.Equal(t, 0, result.LineErrors)

	var want bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&want, "LINE%d\n", i)
	}
	require.Equal(t, want.String(), out.String())
}

func TestRunReportsPerLineErrorsAndContinues(t *testing.T) {
	var input bytes.Buffer
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&input, "%d\n", i)
	}

	fn := func(line []byte, lineNo int) ([]byte, error) {
		n, err := strconv.Atoi(string(line))
		if err != nil {
			return nil, err
		}
		if n%3 == 0 {
			return nil, fmt.Errorf("divisible by 3")
		}
		return append(line, '\n'), nil
	}

	var out, errs bytes.Buffer
	result, err := Run(context.Background(), &input, &out, &errs, fn, Options{Workers: 4})
	require.NoError(t, err)
	require.Equal(t, 10, result.LinesProcessed)
	require.Equal(t, 4, result.LineErrors) // 0, 3, 6, 9
	require.NotEmpty(t, errs.String())
	require.Equal(t, "1\n2\n4\n5\n7\n8\n", out.String())
}

func TestRunAbortsOnFatalError(t *testing.T) {
	var input bytes.Buffer
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&input, "%d\n", i)
	}

	fn := func(line []byte, lineNo int) ([]byte, error) {
		if lineNo == 5 {
			return nil, &FatalError{Err: fmt.Errorf("out of memory")}
		}
		return append(line, '\n'), nil
	}

	var out, errs bytes.Buffer
	_, err := Run(context.Background(), &input, &out, &errs, fn, Options{Workers: 1, ChunkBytes: 4})
	require.Error(t, err)
}

func TestOptionsNormalizeDefaults(t *testing.T) {
	opts := Options{}.normalize()
	require.Greater(t, opts.Workers, 0)
	require.Equal(t, 256*1024, opts.ChunkBytes)
	require.Equal(t, 2*opts.Workers, opts.ReorderBufferSize)
}
