package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jqturbo/jqturbo/value"
)

// Options configures how a Writer renders each result value (spec §6).
type Options struct {
	// Compact selects one-line JSON with no inter-token whitespace (-c).
	// When false, output is pretty-printed with Indent spaces per level.
	Compact bool

	// Indent is the pretty-print indent step. Ignored when Compact is set.
	// Zero still breaks onto new lines with no leading whitespace.
	Indent int

	// Tab selects a single tab character per level instead of Indent
	// spaces (--tab). Ignored when Compact is set.
	Tab bool

	// RawOutput emits a top-level string value's content unquoted and
	// unescaped (-r).
	RawOutput bool

	// RawOutput0 implies RawOutput and NUL-terminates each result instead
	// of newline-terminating it (--raw-output0). Write returns an error
	// for a string result that contains a NUL byte.
	RawOutput0 bool

	// JoinOutput suppresses the terminator between results entirely (-j).
	// RawOutput0 takes precedence if both are set.
	JoinOutput bool

	// SortKeys renders object entries in key order instead of insertion
	// order (-S).
	SortKeys bool

	// ASCIIOutput escapes every non-ASCII rune in string output as \uXXXX
	// (-a).
	ASCIIOutput bool

	// Color, when non-nil, colorizes keys and scalars. A nil Color always
	// renders plain text, which is how -M and the non-terminal default are
	// expressed.
	Color *Colorizer
}

// Writer renders value.Value results to an underlying io.Writer one result
// at a time, matching the teacher's JSONEncoder shape (a Printer plus a
// Colorizer driving a recursive writeValue/writeObject/writeArray) but
// built against value.Value instead of a token stream, since results here
// come from the flat/general evaluators rather than a parse pipeline.
type Writer struct {
	w    io.Writer
	opts Options
}

func NewWriter(w io.Writer, opts Options) *Writer {
	return &Writer{w: w, opts: opts}
}

// Options returns the options this Writer was built with, so a caller
// that needs a second Writer sharing the same rendering mode (the NDJSON
// pipeline builds one short-lived Writer per line, over a per-line
// buffer) doesn't have to thread Options through separately.
func (wr *Writer) Options() Options { return wr.opts }

// Underlying returns the io.Writer this Writer renders onto.
func (wr *Writer) Underlying() io.Writer { return wr.w }

// Write renders one result value and its terminator.
func (wr *Writer) Write(v value.Value) error {
	if (wr.opts.RawOutput || wr.opts.RawOutput0) && v.Type() == value.String {
		if err := wr.writeRawString(v.Str()); err != nil {
			return err
		}
		return wr.writeTerminator()
	}

	indent := wr.opts.Indent
	var unit []byte
	if wr.opts.Tab {
		indent = 1
		unit = tab
	}
	if wr.opts.Compact {
		indent = -1
	}
	p := &LinePrinter{Writer: wr.w, IndentSize: indent, IndentUnit: unit}
	if err := wr.writeValue(p, v); err != nil {
		return err
	}
	return wr.writeTerminator()
}

func (wr *Writer) writeRawString(s string) error {
	if wr.opts.RawOutput0 {
		if strings.ContainsRune(s, 0) {
			return fmt.Errorf("output: raw string contains NUL byte, incompatible with --raw-output0")
		}
	}
	_, err := io.WriteString(wr.w, s)
	return err
}

func (wr *Writer) writeTerminator() error {
	switch {
	case wr.opts.RawOutput0:
		_, err := wr.w.Write([]byte{0})
		return err
	case wr.opts.JoinOutput:
		return nil
	default:
		_, err := wr.w.Write(newline)
		return err
	}
}

func (wr *Writer) compact() bool { return wr.opts.Compact }

func (wr *Writer) writeValue(p Printer, v value.Value) error {
	switch v.Type() {
	case value.Null:
		return wr.opts.Color.printScalar(p, value.Null, "null")
	case value.Bool:
		text := "false"
		if v.Bool() {
			text = "true"
		}
		return wr.opts.Color.printScalar(p, value.Bool, text)
	case value.Int, value.Double:
		return wr.opts.Color.printScalar(p, v.Type(), value.FormatNumber(v))
	case value.String:
		return wr.opts.Color.printScalar(p, value.String, quoteString(v.Str(), wr.opts.ASCIIOutput))
	case value.Array:
		return wr.writeArray(p, v)
	case value.Object:
		return wr.writeObject(p, v)
	default:
		return nil
	}
}

func (wr *Writer) writeArray(p Printer, v value.Value) error {
	if err := p.PrintBytes(openBracket); err != nil {
		return err
	}
	elems := v.Elems()
	for i, e := range elems {
		if i > 0 {
			if err := p.PrintBytes(wr.itemSep()); err != nil {
				return err
			}
			p.NewLine()
		} else {
			p.Indent()
		}
		if err := wr.writeValue(p, e); err != nil {
			return err
		}
	}
	if len(elems) > 0 {
		p.Dedent()
	}
	return p.PrintBytes(closeBracket)
}

func (wr *Writer) writeObject(p Printer, v value.Value) error {
	if err := p.PrintBytes(openBrace); err != nil {
		return err
	}
	entries := v.Entries()
	if wr.opts.SortKeys {
		entries = value.SortedEntries(v)
	}
	for i, e := range entries {
		if i > 0 {
			if err := p.PrintBytes(wr.itemSep()); err != nil {
				return err
			}
			p.NewLine()
		} else {
			p.Indent()
		}
		if err := wr.opts.Color.printKey(p, e.Key, wr.opts.ASCIIOutput); err != nil {
			return err
		}
		if err := p.PrintBytes(wr.keyValueSep()); err != nil {
			return err
		}
		if err := wr.writeValue(p, e.Value); err != nil {
			return err
		}
	}
	if len(entries) > 0 {
		p.Dedent()
	}
	return p.PrintBytes(closeBrace)
}

// itemSep is always a bare comma: in pretty mode the following NewLine
// provides the visual separation, matching the teacher's writeObject/
// writeArray (itemSeparatorBytes), and in compact mode there is no space
// to begin with.
func (wr *Writer) itemSep() []byte {
	return comma
}

func (wr *Writer) keyValueSep() []byte {
	if wr.compact() {
		return colon
	}
	return colonSpace
}

func quoteString(s string, asciiOnly bool) string {
	return `"` + value.EscapeString(s, asciiOnly) + `"`
}

var (
	openBracket  = []byte("[")
	closeBracket = []byte("]")
	openBrace    = []byte("{")
	closeBrace   = []byte("}")
	comma        = []byte(",")
	colon        = []byte(":")
	colonSpace   = []byte(": ")
	tab          = []byte("\t")
)
