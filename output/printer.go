// Package output implements the CLI's result writer (spec §6): compact or
// indented JSON rendering of a value.Value, raw-string mode, NUL-separated
// raw mode, object-key sorting, and ANSI colorization. It is the collaborator
// named but not designed by the core evaluator (spec §1, "output formatting
// ... named where the core depends on them but not designed here").
package output

import (
	"fmt"
	"io"
)

// Printer is the low-level sink a Writer renders onto: indent/dedent/newline
// plus raw byte output. Grounded on printer.go's Printer interface, adapted
// to this package's error-returning style instead of the teacher's
// panic-and-recover (*PrinterError/CatchPrinterError) convention — a single
// CLI invocation has no supervisor to catch a panic partway through a
// document, so a write failure here just propagates as a normal error up
// through Writer.Write.
type Printer interface {
	Indent()
	Dedent()
	NewLine()
	PrintBytes([]byte) error
}

// LinePrinter writes to an io.Writer, indenting by IndentSize copies of
// IndentUnit per level. IndentSize < 0 disables newlines entirely
// (everything on one line, used for compact mode); IndentSize == 0 still
// emits newlines but no indentation. IndentUnit defaults to a single
// space (--indent N); set it to a tab for --tab.
type LinePrinter struct {
	io.Writer
	IndentSize  int
	IndentUnit  []byte
	indentLevel int
	err         error
}

var _ Printer = &LinePrinter{}

func (p *LinePrinter) NewLine() {
	if p.IndentSize < 0 || p.err != nil {
		return
	}
	if err := p.PrintBytes(newline); err != nil {
		return
	}
	unit := p.IndentUnit
	if unit == nil {
		unit = space
	}
	for i := p.IndentSize * p.indentLevel; i > 0; i-- {
		if err := p.PrintBytes(unit); err != nil {
			return
		}
	}
}

func (p *LinePrinter) Indent() {
	p.indentLevel++
	p.NewLine()
}

func (p *LinePrinter) Dedent() {
	p.indentLevel--
	p.NewLine()
}

func (p *LinePrinter) PrintBytes(b []byte) error {
	if p.err != nil {
		return p.err
	}
	_, err := p.Write(b)
	if err != nil {
		p.err = fmt.Errorf("output: write failed: %w", err)
	}
	return p.err
}

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)
