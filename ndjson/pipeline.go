// Package ndjson implements the parallel NDJSON pipeline (spec §4.7): a
// chunker that splits an input stream into ordered line-boundary chunks,
// a worker pool that runs a caller-supplied per-line function over each
// chunk concurrently, and a reassembler that writes completed chunks to
// the output stream in strict input order.
//
// The pipeline is deliberately ignorant of jq, filters, and JSON — LineFunc
// is the seam where fastpath/flateval/eval and the output writer plug in
// (package cmd/jqt wires it up). This mirrors the teacher's
// StreamSource/StreamTransformer/StreamSink split in token/pipeline.go:
// the channel plumbing doesn't know what a Token means, only how to move
// it from producer to consumer.
package ndjson

import (
	"bufio"
	"container/heap"
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/jqturbo/jqturbo/internal/debug"
	"golang.org/x/sync/errgroup"
)

// LineFunc processes one input line (without its trailing newline) and
// returns the bytes to emit for it. A non-nil error is a per-line
// failure (spec §4.7: "surfaced to stderr... the pipeline continues with
// the next line") and is never fatal to the run; output is empty for a
// failed line.
type LineFunc func(line []byte, lineNo int) ([]byte, error)

// Options configures the pipeline. Zero values choose the spec defaults.
type Options struct {
	// Workers is the size of the worker pool. Zero means
	// runtime.NumCPU() (spec §4.7 point 2: "defaults to hardware
	// concurrency").
	Workers int

	// ChunkBytes is the target chunk size the chunker amortizes worker
	// overhead against. Zero means a 256KiB default.
	ChunkBytes int

	// ReorderBufferSize is the capacity of the channel that carries
	// completed chunks from the workers to the reassembler. Zero means 2x
	// Workers. The reassembler moves every completed chunk off that
	// channel into an unbounded reorder heap, so this does not cap how
	// many chunks can complete ahead of the one it is waiting for.
	ReorderBufferSize int
}

func (o Options) normalize() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.ChunkBytes <= 0 {
		o.ChunkBytes = 256 * 1024
	}
	if o.ReorderBufferSize <= 0 {
		o.ReorderBufferSize = 2 * o.Workers
	}
	return o
}

// Result summarizes a completed run, enough for the caller to pick a
// process exit code (spec §4.7: "the process exit code reflects whether
// any line failed").
type Result struct {
	LinesProcessed int
	LineErrors     int
}

type chunk struct {
	seq   int
	lines [][]byte
	start int // lineNo of lines[0]
}

type chunkResult struct {
	seq     int
	outputs [][]byte // nil entry means that line errored
}

// Run reads NDJSON lines from r, applies fn to each one across a worker
// pool, and writes the results to w in input order. errOut receives one
// line per per-line failure. The returned error is non-nil only for a
// fatal pipeline failure (spec §4.7: "a fatal error from a worker...
// aborts the pipeline") — a write failure to w, or fn itself signaling
// fatality by returning a *FatalError.
func Run(ctx context.Context, r io.Reader, w io.Writer, errOut io.Writer, fn LineFunc, opts Options) (Result, error) {
	opts = opts.normalize()

	g, ctx := errgroup.WithContext(ctx)

	chunks := make(chan chunk, opts.Workers)
	results := make(chan chunkResult, opts.ReorderBufferSize)

	g.Go(func() error {
		defer close(chunks)
		return chunkLines(ctx, r, opts.ChunkBytes, chunks)
	})

	for i := 0; i < opts.Workers; i++ {
		g.Go(func() error {
			return runWorker(ctx, chunks, results, fn)
		})
	}

	// The reassembler's goroutine is not part of the errgroup: it must
	// keep draining results until every worker is done, even if a worker
	// fails, so the workers never block forever on a full results
	// channel during shutdown.
	var result Result
	var reassembleErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, reassembleErr = reassemble(results, w, errOut)
	}()

	workerErr := g.Wait()
	close(results)
	<-done

	if workerErr != nil {
		return result, workerErr
	}
	return result, reassembleErr
}

// FatalError marks a LineFunc error as pipeline-aborting rather than a
// per-line failure.
type FatalError struct{ Err error }

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

func chunkLines(ctx context.Context, r io.Reader, targetBytes int, out chan<- chunk) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	seq := 0
	lineNo := 0
	var pending [][]byte
	pendingStart := 0
	pendingBytes := 0

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		c := chunk{seq: seq, lines: pending, start: pendingStart}
		seq++
		pending = nil
		pendingBytes = 0
		select {
		case out <- c:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...) // scanner reuses its buffer
		if len(pending) == 0 {
			pendingStart = lineNo
		}
		pending = append(pending, line)
		pendingBytes += len(line)
		lineNo++
		if pendingBytes >= targetBytes {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("ndjson: reading input: %w", err)
	}
	return flush()
}

func runWorker(ctx context.Context, chunks <-chan chunk, results chan<- chunkResult, fn LineFunc) error {
	for {
		select {
		case c, ok := <-chunks:
			if !ok {
				return nil
			}
			outputs := make([][]byte, len(c.lines))
			for i, line := range c.lines {
				out, err := fn(line, c.start+i)
				if err != nil {
					var fatal *FatalError
					if errors.As(err, &fatal) {
						return fatal.Err
					}
					outputs[i] = nil
					continue
				}
				outputs[i] = out
			}
			select {
			case results <- chunkResult{seq: c.seq, outputs: outputs}:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// reorderHeap orders pending chunkResults by sequence number so the
// reassembler can always ask "is the next chunk I need here yet?" in
// O(log n). Grounded on the standard container/heap pattern; no pack
// library ships a sequence-numbered reorder buffer, and this is exactly
// the ordering-guarantee machinery the spec calls out as the thing this
// module exists to implement (spec §1), not something to outsource.
type reorderHeap []chunkResult

func (h reorderHeap) Len() int            { return len(h) }
func (h reorderHeap) Less(i, j int) bool  { return h[i].seq < h[j].seq }
func (h reorderHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *reorderHeap) Push(x interface{}) { *h = append(*h, x.(chunkResult)) }
func (h *reorderHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

func reassemble(results <-chan chunkResult, w io.Writer, errOut io.Writer) (Result, error) {
	var res Result
	pending := &reorderHeap{}
	next := 0

	writeChunk := func(c chunkResult) error {
		for _, out := range c.outputs {
			res.LinesProcessed++
			if out == nil {
				res.LineErrors++
				fmt.Fprintf(errOut, "ndjson: line %d: evaluation failed\n", res.LinesProcessed)
				continue
			}
			if _, err := w.Write(out); err != nil {
				return fmt.Errorf("ndjson: writing output: %w", err)
			}
		}
		return nil
	}

	for c := range results {
		heap.Push(pending, c)
		if n := pending.Len(); n > 8 {
			debug.Printf("reorder buffer backlog at %d chunks, waiting for seq %d", n, next)
		}
		for pending.Len() > 0 && (*pending)[0].seq == next {
			popped := heap.Pop(pending).(chunkResult)
			if err := writeChunk(popped); err != nil {
				return res, err
			}
			next++
		}
	}
	return res, nil
}
