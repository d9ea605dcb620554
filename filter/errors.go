package filter

// ExitCode is the process exit code a failure at this stage should
// produce (spec §6): filter lex/parse errors always exit 3, distinct
// from the usage-error (2) and runtime-error (5) codes used elsewhere in
// the pipeline.
const ExitCode = 3

// CompileError wraps a lex or parse failure with the source text it
// failed against, so callers (cmd/jqt) can render a caret-pointed
// diagnostic without re-threading position bookkeeping.
type CompileError struct {
	Src string
	Err error
}

func (e *CompileError) Error() string { return e.Err.Error() }

func (e *CompileError) Unwrap() error { return e.Err }

// Pos returns the byte offset the underlying Lex/ParseError points at, or
// -1 if the wrapped error carries no position.
func (e *CompileError) Pos() int {
	switch err := e.Err.(type) {
	case *LexError:
		return err.Pos
	case *ParseError:
		return err.Pos
	default:
		return -1
	}
}

// Compile lexes and parses src into a Node, wrapping any failure in a
// CompileError so the caller can print a source-relative diagnostic.
func Compile(src string) (Node, error) {
	n, err := Parse(src)
	if err != nil {
		return nil, &CompileError{Src: src, Err: err}
	}
	return n, nil
}
