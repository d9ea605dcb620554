package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/jqturbo/jqturbo/decompress"
	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/eval"
	"github.com/jqturbo/jqturbo/fastpath"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/flatbuf"
	"github.com/jqturbo/jqturbo/flateval"
	"github.com/jqturbo/jqturbo/ndjson"
	"github.com/jqturbo/jqturbo/output"
	"github.com/jqturbo/jqturbo/value"
)

// Exit codes, spec §6: 0 success, 1 internal error, 2 usage/input error,
// 3 filter parse error (filter.ExitCode), 4 -e set and no truthy output,
// 5 a runtime error raised by the filter itself.
const (
	exitSuccess     = 0
	exitInternal    = 1
	exitUsage       = 2
	exitFilterParse = filter.ExitCode
	exitNoOutput    = 4
	exitRuntime     = 5
)

// flushWriter is the bit of *bufio.Writer that output.NewWriter's
// underlying writer needs to support, so run() can hand it either a real
// buffered writer or an always-already-flushed passthrough depending on
// --unbuffered.
type flushWriter interface {
	io.Writer
	Flush() error
}

// nopFlusher adapts a plain io.Writer (writes land immediately, e.g. an
// os.File) to flushWriter with a no-op Flush, for --unbuffered.
type nopFlusher struct{ io.Writer }

func (nopFlusher) Flush() error { return nil }

// run drives one invocation end to end: compile the filter, open and
// classify the input, wire the right evaluator for the input's shape,
// and drain results through the output writer. It never panics on a
// well-formed config; main's recover is for genuinely unexpected faults.
func run(cfg *config) int {
	src, err := filterSource(cfg)
	if err != nil {
		return fail(exitUsage, err)
	}

	ast, err := filter.Compile(src)
	if err != nil {
		printCompileError(src, err)
		return exitFilterParse
	}

	generalEval, err := eval.Compile(ast)
	if err != nil {
		return fail(exitInternal, err)
	}

	reader, closeInput, err := openInput(cfg)
	if err != nil {
		return fail(exitUsage, err)
	}
	defer closeInput()

	decoded, err := decompress.Open(reader)
	if err != nil {
		return fail(exitUsage, err)
	}
	defer decoded.Close()

	colorizer, stdoutW := output.ResolveStdout(cfg.colorMode())
	// --unbuffered writes straight to stdout so a consumer piping into
	// another process (tail -f style) sees each result immediately,
	// matching the teacher's own "flush after each line when stdout is a
	// terminal" rationale in cmd/pj/main.go, generalized to an explicit
	// flag instead of an isatty check.
	var bufOut flushWriter = nopFlusher{stdoutW}
	if !cfg.unbuffered {
		bufOut = bufio.NewWriter(stdoutW)
	}
	w := output.NewWriter(bufOut, cfg.outputOptions(colorizer))

	osEnv := osEnviron()
	r := &runner{cfg: cfg, writer: w}

	switch {
	case cfg.nullInput:
		stream := newDocStream(decoded, cfg.rawInput)
		en, err := bindArgs(cfg, env.Root(stream.next, osEnv))
		if err != nil {
			bufOut.Flush()
			return fail(exitUsage, err)
		}
		r.env = en
		r.evalOne(generalEval, value.NewNull())
	case cfg.slurp:
		stream := newDocStream(decoded, cfg.rawInput)
		all, err := stream.drain()
		if err != nil {
			bufOut.Flush()
			return fail(exitUsage, err)
		}
		en, err := bindArgs(cfg, env.Root(stream.next, osEnv))
		if err != nil {
			bufOut.Flush()
			return fail(exitUsage, err)
		}
		r.env = en
		r.evalOne(generalEval, value.NewArray(all))
	default:
		br := bufio.NewReaderSize(decoded, 64*1024)
		sample, _ := br.Peek(4096)
		if cfg.forceJSONL || ndjson.Detect(sample) {
			en, err := bindArgs(cfg, env.Root(noInputs, osEnv))
			if err != nil {
				bufOut.Flush()
				return fail(exitUsage, err)
			}
			r.env = en
			flatEval, err := flateval.Compile(ast)
			if err != nil {
				bufOut.Flush()
				return fail(exitInternal, err)
			}
			result, perr := runNDJSON(r, ast, flatEval, br)
			if perr != nil {
				bufOut.Flush()
				return fail(exitInternal, perr)
			}
			if result.LineErrors > 0 {
				r.hadRuntimeError.Store(true)
			}
		} else {
			stream := newDocStream(br, cfg.rawInput)
			en, err := bindArgs(cfg, env.Root(stream.next, osEnv))
			if err != nil {
				bufOut.Flush()
				return fail(exitUsage, err)
			}
			r.env = en
			for {
				v, ok, derr := stream.nextErr()
				if derr != nil {
					bufOut.Flush()
					return fail(exitUsage, derr)
				}
				if !ok {
					break
				}
				r.evalOne(generalEval, v)
			}
		}
	}

	bufOut.Flush()

	if r.hadRuntimeError.Load() {
		return exitRuntime
	}
	if cfg.exitStatus && !r.anyTruthy.Load() {
		return exitNoOutput
	}
	return exitSuccess
}

func fail(code int, err error) int {
	fmt.Fprintln(os.Stderr, "jqt:", err)
	return code
}

func filterSource(cfg *config) (string, error) {
	if cfg.filterFile == "" {
		return cfg.filterSrc, nil
	}
	data, err := os.ReadFile(cfg.filterFile)
	if err != nil {
		return "", fmt.Errorf("reading filter file %q: %w", cfg.filterFile, err)
	}
	return string(data), nil
}

// printCompileError renders a filter.CompileError with a caret under the
// offending byte offset.
func printCompileError(src string, err error) {
	var ce *filter.CompileError
	if errors.As(err, &ce) {
		fmt.Fprintf(os.Stderr, "jqt: error: %s\n", ce.Err)
		fmt.Fprintf(os.Stderr, "%s\n", src)
		fmt.Fprintf(os.Stderr, "%s^\n", strings.Repeat(" ", ce.Pos()))
		return
	}
	fmt.Fprintln(os.Stderr, "jqt: error:", err)
}

func openInput(cfg *config) (io.Reader, func(), error) {
	if len(cfg.inputFiles) == 0 {
		return os.Stdin, func() {}, nil
	}
	files := make([]*os.File, 0, len(cfg.inputFiles))
	readers := make([]io.Reader, 0, len(cfg.inputFiles))
	for _, name := range cfg.inputFiles {
		f, err := os.Open(name)
		if err != nil {
			for _, opened := range files {
				opened.Close()
			}
			return nil, func() {}, fmt.Errorf("opening %q: %w", name, err)
		}
		files = append(files, f)
		readers = append(readers, f)
	}
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}
	return io.MultiReader(readers...), closeAll, nil
}

func osEnviron() map[string]string {
	m := make(map[string]string, 32)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			m[kv[:i]] = kv[i+1:]
		}
	}
	return m
}

func noInputs() (value.Value, bool) { return value.Value{}, false }

// bindArgs wires --arg/--argjson/--rawfile/--slurpfile into en and
// constructs $ARGS the way jq does: $ARGS.named from --arg/--argjson (in
// encounter order, a later duplicate winning through the normal
// innermost-first scope lookup), $ARGS.positional from --args/--jsonargs.
// --rawfile/--slurpfile bindings are plain variables, not part of $ARGS.
func bindArgs(cfg *config, en *env.Env) (*env.Env, error) {
	named := make([]value.Entry, 0, len(cfg.args))
	for _, a := range cfg.args {
		var v value.Value
		if a.json {
			parsed, err := parseJSONArg(a.value)
			if err != nil {
				return nil, fmt.Errorf("--argjson %s: %w", a.name, err)
			}
			v = parsed
		} else {
			v = value.NewString(a.value)
		}
		en = en.WithVar(a.name, v)
		named = append(named, value.Entry{Key: a.name, Value: v})
	}

	for _, rf := range cfg.rawfiles {
		data, err := os.ReadFile(rf.value)
		if err != nil {
			return nil, fmt.Errorf("--rawfile %s: %w", rf.name, err)
		}
		en = en.WithVar(rf.name, value.NewString(string(data)))
	}

	for _, sf := range cfg.slurpFiles {
		data, err := os.ReadFile(sf.value)
		if err != nil {
			return nil, fmt.Errorf("--slurpfile %s: %w", sf.name, err)
		}
		docs, err := decodeAllJSON(data)
		if err != nil {
			return nil, fmt.Errorf("--slurpfile %s: %w", sf.name, err)
		}
		en = en.WithVar(sf.name, value.NewArray(docs))
	}

	positional := make([]value.Value, 0, len(cfg.positional))
	for _, p := range cfg.positional {
		if cfg.positionalMode == positionalJSON {
			v, err := parseJSONArg(p)
			if err != nil {
				return nil, fmt.Errorf("--jsonargs: %w", err)
			}
			positional = append(positional, v)
		} else {
			positional = append(positional, value.NewString(p))
		}
	}

	args := value.NewObject([]value.Entry{
		{Key: "positional", Value: value.NewArray(positional)},
		{Key: "named", Value: value.NewObject(named)},
	})
	return en.WithVar("ARGS", args), nil
}

func parseJSONArg(s string) (value.Value, error) {
	buf, err := flatbuf.BuildFromJSON([]byte(s))
	if err != nil {
		return value.Value{}, err
	}
	return buf.Value()
}

// decodeAllJSON splits data into however many whitespace-separated JSON
// documents it holds (concatenated or newline-delimited — a --slurpfile's
// contents may be either) and materializes each one.
func decodeAllJSON(data []byte) ([]value.Value, error) {
	var docs []value.Value
	rest := bytes.TrimLeft(data, " \t\r\n")
	for len(rest) > 0 {
		buf, n, err := flatbuf.BuildOneFromJSON(rest)
		if err != nil {
			return nil, err
		}
		v, err := buf.Value()
		if err != nil {
			return nil, err
		}
		docs = append(docs, v)
		rest = bytes.TrimLeft(rest[n:], " \t\r\n")
	}
	return docs, nil
}

// docStream reads successive whitespace-separated top-level JSON values
// out of r, used by every path outside the NDJSON pipeline (-n's Inputs
// feed, -s's slurp-then-run, and the plain sequential single-document
// loop). It buffers r fully up front: unlike package ndjson, which is
// the throughput-sensitive path and streams chunk by chunk without ever
// holding the whole input in memory, these paths are either inherently
// whole-input (slurp) or not performance-critical enough to justify
// incremental re-parsing here.
type docStream struct {
	rest     []byte
	rawInput bool
	lines    []string
	lineIdx  int
}

func newDocStream(r io.Reader, rawInput bool) *docStream {
	data, _ := io.ReadAll(r)
	s := &docStream{rawInput: rawInput}
	if rawInput {
		text := strings.TrimSuffix(string(data), "\n")
		if text != "" {
			s.lines = strings.Split(text, "\n")
		}
		return s
	}
	s.rest = data
	return s
}

// next adapts nextErr to env.Root's (value.Value, bool) Inputs shape,
// which has no error channel; a parse failure midway through an -n/-s
// input stream surfaces once, the first time it's hit, via nextErr's
// caller in run() rather than through the inputs generator itself.
func (s *docStream) next() (value.Value, bool) {
	v, ok, _ := s.nextErr()
	return v, ok
}

func (s *docStream) nextErr() (value.Value, bool, error) {
	if s.rawInput {
		if s.lineIdx >= len(s.lines) {
			return value.Value{}, false, nil
		}
		v := value.NewString(s.lines[s.lineIdx])
		s.lineIdx++
		return v, true, nil
	}
	s.rest = bytes.TrimLeft(s.rest, " \t\r\n")
	if len(s.rest) == 0 {
		return value.Value{}, false, nil
	}
	buf, n, err := flatbuf.BuildOneFromJSON(s.rest)
	if err != nil {
		return value.Value{}, false, fmt.Errorf("parsing input: %w", err)
	}
	v, err := buf.Value()
	if err != nil {
		return value.Value{}, false, fmt.Errorf("parsing input: %w", err)
	}
	s.rest = s.rest[n:]
	return v, true, nil
}

func (s *docStream) drain() ([]value.Value, error) {
	var all []value.Value
	for {
		v, ok, err := s.nextErr()
		if err != nil {
			return nil, err
		}
		if !ok {
			return all, nil
		}
		all = append(all, v)
	}
}

// runner evaluates the compiled filter against successive inputs and
// drains every emitted result through the output writer, tracking the
// bookkeeping -e needs. The three flags are atomic because the NDJSON
// path's worker pool (package ndjson) calls fn, and therefore these
// setters, from multiple goroutines concurrently; the sequential paths
// touch them from a single goroutine, where atomics cost nothing extra.
type runner struct {
	cfg             *config
	env             *env.Env
	writer          *output.Writer
	anyOutput       atomic.Bool
	anyTruthy       atomic.Bool
	hadRuntimeError atomic.Bool
}

// generalNode is the type eval.Compile actually returns (an unexported
// interface within package eval); go lets a caller hold and call it
// through its exported Eval method without being able to name the type.
type generalNode interface {
	Eval(in value.Value, en *env.Env, out eval.Emit) *eval.ErrState
}

func (r *runner) evalOne(n generalNode, in value.Value) {
	errState := n.Eval(in, r.env, func(v value.Value) *eval.ErrState {
		r.anyOutput.Store(true)
		if v.Truthy() {
			r.anyTruthy.Store(true)
		}
		if err := r.writer.Write(v); err != nil {
			return eval.Errorf("writing output: %s", err)
		}
		return nil
	})
	if errState != nil {
		fmt.Fprintln(os.Stderr, "jqt: error:", errState.Error())
		r.hadRuntimeError.Store(true)
	}
}

// runNDJSON drives the parallel pipeline, wiring each line through the
// passthrough dispatcher first, then the fast-path recognizer+evaluator,
// and finally flatEval (which itself falls back to the general evaluator
// when ast isn't flat-safe) — spec §4.6/§4.7's three-tier dispatch.
func runNDJSON(r *runner, ast filter.Node, flatEval *flateval.Evaluator, in io.Reader) (ndjson.Result, error) {
	mode := fastpath.Mode{
		Compact:    r.cfg.compact,
		Slurp:      r.cfg.slurp,
		RawInput:   r.cfg.rawInput,
		SortKeys:   r.cfg.sortKeys,
		JoinOutput: r.cfg.joinOutput,
	}
	shape, hasShape := fastpath.Recognize(ast)
	// -r/--raw-output0 can turn a top-level string result unquoted; Mode
	// doesn't carry that flag (its closed set of passthrough shapes never
	// needs to special-case strings otherwise), so skip passthrough
	// dispatch entirely rather than emit a quoted string.
	allowPassthrough := !r.cfg.rawOutput

	fn := func(line []byte, lineNo int) ([]byte, error) {
		if allowPassthrough {
			if out, ok := fastpath.Passthrough(ast, mode, line); ok {
				return finishFastOutput(r, out)
			}
		}

		if hasShape {
			if vals, ok := fastpath.Eval(shape, line); ok {
				return renderValues(r, vals)
			}
		}

		buf, err := flatbuf.BuildFromJSON(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		var out bytes.Buffer
		lineWriter := output.NewWriter(&out, r.writer.Options())
		var anyTruthy bool
		errState := flatEval.Eval(buf, r.env, func(v value.Value) *eval.ErrState {
			if v.Truthy() {
				anyTruthy = true
			}
			return wrapWriteErr(lineWriter.Write(v))
		})
		if errState != nil {
			return nil, fmt.Errorf("line %d: %s", lineNo, errState.Error())
		}
		if anyTruthy {
			r.anyTruthy.Store(true)
		}
		r.anyOutput.Store(true)
		return out.Bytes(), nil
	}

	return ndjson.Run(context.Background(), in, r.writer.Underlying(), os.Stderr, fn, ndjson.Options{})
}

func finishFastOutput(r *runner, out fastpath.Output) ([]byte, error) {
	r.anyOutput.Store(true)
	if !out.IsValue {
		if s := string(out.Raw); s != "null" && s != "false" {
			r.anyTruthy.Store(true)
		}
		return append(out.Raw, '\n'), nil
	}
	if out.Value.Truthy() {
		r.anyTruthy.Store(true)
	}
	var buf bytes.Buffer
	w := output.NewWriter(&buf, r.writer.Options())
	if err := w.Write(out.Value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderValues(r *runner, vals []value.Value) ([]byte, error) {
	if len(vals) > 0 {
		r.anyOutput.Store(true)
	}
	var buf bytes.Buffer
	w := output.NewWriter(&buf, r.writer.Options())
	for _, v := range vals {
		if v.Truthy() {
			r.anyTruthy.Store(true)
		}
		if err := w.Write(v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func wrapWriteErr(err error) *eval.ErrState {
	if err == nil {
		return nil
	}
	return eval.Errorf("writing output: %s", err)
}

func (cfg *config) colorMode() output.ColorMode {
	switch cfg.color {
	case colorAlways:
		return output.ColorAlways
	case colorNever:
		return output.ColorNever
	default:
		return output.ColorAuto
	}
}

func (cfg *config) outputOptions(colorizer *output.Colorizer) output.Options {
	return output.Options{
		Compact:     cfg.compact,
		Indent:      cfg.indent,
		Tab:         cfg.tab,
		RawOutput:   cfg.rawOutput,
		RawOutput0:  cfg.raw0,
		JoinOutput:  cfg.joinOutput,
		SortKeys:    cfg.sortKeys,
		ASCIIOutput: cfg.asciiOutput,
		Color:       colorizer,
	}
}
