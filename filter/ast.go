// Package filter implements the lexer, parser and AST for the jq filter
// language (spec §3 "Filter AST", §4.1, §4.2).
package filter

import "github.com/jqturbo/jqturbo/value"

// Node is any filter AST node.
type Node interface {
	node()
}

type (
	// Identity is the filter '.'.
	Identity struct{}

	// RecurseDefault is the bare '..' filter.
	RecurseDefault struct{}

	// Field is '.name' (or the RHS of a Pipe built from '.a.b').
	Field struct {
		Name   string
		OptOk  bool // '?' suffix
	}

	// Index is '.[expr]' or 'EXPR[expr]'.
	Index struct {
		Target Node // nil means operate on '.' (postfix on previous node handled by parser via Pipe)
		Key    Node
		OptOk  bool
	}

	// Slice is 'EXPR[from:to]'; either bound may be nil.
	Slice struct {
		From, To Node
		OptOk    bool
	}

	// Iterate is 'EXPR[]'.
	Iterate struct {
		OptOk bool
	}

	Pipe struct{ L, R Node }

	Comma struct{ Items []Node }

	Alternative struct{ L, R Node }

	Try struct {
		Body  Node
		Catch Node // nil if no catch clause
	}

	// OptTry is the postfix '?' operator, sugar for try EXPR.
	OptTry struct{ Body Node }

	Not struct{ Body Node } // built as Builtin("not") by parser; kept for completeness

	Neg struct{ Body Node }

	Literal struct{ Value value.Value }

	ArrayConstruct struct{ Body Node } // nil Body means '[]' (empty array)

	ObjectEntry struct {
		// Exactly one of KeyName/KeyExpr is set.
		KeyName string
		KeyExpr Node
		Value   Node // nil means shorthand {name} / {$var}
	}

	ObjectConstruct struct{ Entries []ObjectEntry }

	CompareOp int

	Compare struct {
		L, R Node
		Op   CompareOp
	}

	ArithOp int

	Arith struct {
		L, R Node
		Op   ArithOp
	}

	BoolOp int

	Bool struct {
		L, R Node
		Op   BoolOp
	}

	Select struct{ Cond Node }

	IfThenElse struct {
		Cond Node
		Then Node
		Else Node // nil means identity (no else/elif clause)
	}

	// Bind is 'SOURCE as $a ?// $b ?// ... | BODY'. Patterns holds one
	// destructuring alternative per '?//' branch; the common case is a
	// single simple variable pattern.
	Bind struct {
		Source   Node
		Patterns []Pattern
		Body     Node
	}

	Reduce struct {
		Source  Node
		Pattern Pattern
		Init    Node
		Step    Node
	}

	Foreach struct {
		Source  Node
		Pattern Pattern
		Init    Node
		Step    Node
		Extract Node // nil if no extract clause
	}

	AssignKind int

	Assign struct {
		Path Node
		RHS  Node
		Kind AssignKind
	}

	VarRef struct{ Name string }

	// FuncCall is a call to a builtin or user-defined function.
	FuncCall struct {
		Name string
		Args []Node
	}

	// Def introduces 'def name(params): body; rest'.
	Def struct {
		Name   string
		Params []string // each prefixed with '$' for value params
		Body   Node
		Rest   Node
	}

	// Format is a bare '@name' filter, or the encoding step of a format
	// string when FormatString.Parts use it.
	Format struct{ Name string }

	// FormatString is '@name "literal\(expr)literal"' or a bare
	// interpolated string with no leading @name (Name == "").
	FormatString struct {
		Name  string
		Parts []StringPart
	}

	// Label/Break implement jq's 'label $out | ... break $out'.
	Label struct {
		Name string
		Body Node
	}
	Break struct{ Name string }
)

// StringPart is either a literal chunk or an interpolated expression
// inside a jq string literal.
type StringPart struct {
	Literal string
	Expr    Node // nil for a literal-only part
}

// Pattern is a destructuring pattern for as/reduce/foreach. The common
// case (Var != "") is a plain '$name' binding; Array/Object destructuring
// forms are represented as nested patterns.
type Pattern struct {
	Var    string
	Array  []Pattern
	Object []ObjectPatternEntry
}

type ObjectPatternEntry struct {
	Key     string // literal key name
	KeyVar  bool   // true if the key itself is a $var pattern (desugars to string key equal to var name)
	Pattern Pattern
}

const (
	CmpEq CompareOp = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithMod
)

const (
	BoolAnd BoolOp = iota
	BoolOr
)

const (
	AssignPlain AssignKind = iota // '='
	AssignUpdate                 // '|='
	AssignArithAdd                // '+='
	AssignArithSub                // '-='
	AssignArithMul                // '*='
	AssignArithDiv                // '/='
	AssignArithMod                // '%='
	AssignAlt                     // '//='
)

func (Identity) node()        {}
func (RecurseDefault) node()  {}
func (Field) node()           {}
func (Index) node()           {}
func (Slice) node()           {}
func (Iterate) node()         {}
func (Pipe) node()            {}
func (Comma) node()           {}
func (Alternative) node()     {}
func (Try) node()             {}
func (OptTry) node()          {}
func (Not) node()             {}
func (Neg) node()             {}
func (Literal) node()         {}
func (ArrayConstruct) node()  {}
func (ObjectConstruct) node() {}
func (Compare) node()         {}
func (Arith) node()           {}
func (Bool) node()            {}
func (Select) node()          {}
func (IfThenElse) node()      {}
func (Bind) node()            {}
func (Reduce) node()          {}
func (Foreach) node()         {}
func (Assign) node()          {}
func (VarRef) node()          {}
func (FuncCall) node()        {}
func (Def) node()             {}
func (Format) node()          {}
func (FormatString) node()    {}
func (Label) node()           {}
func (Break) node()           {}
