package eval

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/value"
)

// formatEncoders implements the @name encoders (spec §4.10). Each takes the
// input value and renders its string form; applying one to a non-scalar
// input generally means "render it as JSON first", matching jq's own
// @base64/@csv/etc semantics.
var formatEncoders = map[string]func(value.Value) (string, error){
	"text":    func(v value.Value) (string, error) { return textForm(v), nil },
	"json":    func(v value.Value) (string, error) { return value.Format(v, false), nil },
	"html":    func(v value.Value) (string, error) { return encodeHTML(textForm(v)), nil },
	"uri":     func(v value.Value) (string, error) { return encodeURI(textForm(v)), nil },
	"csv":     encodeCSV,
	"tsv":     encodeTSV,
	"sh":      encodeSh,
	"base64":  func(v value.Value) (string, error) { return base64.StdEncoding.EncodeToString([]byte(textForm(v))), nil },
	"base64d": decodeBase64,
}

func textForm(v value.Value) string {
	if v.Type() == value.String {
		return v.Str()
	}
	return value.Format(v, false)
}

func encodeHTML(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '&':
			b.WriteString("&amp;")
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '\'':
			b.WriteString("&#39;")
		case '"':
			b.WriteString("&quot;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func encodeURI(s string) string {
	return url.QueryEscape(s)
}

func encodeCSV(v value.Value) (string, error) {
	return encodeDelimited(v, ",", func(s string) string {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	})
}

func encodeTSV(v value.Value) (string, error) {
	return encodeDelimited(v, "\t", func(s string) string {
		r := strings.NewReplacer("\\", `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)
		return r.Replace(s)
	})
}

func encodeDelimited(v value.Value, sep string, escapeString func(string) string) (string, error) {
	if v.Type() != value.Array {
		return "", &value.TypeError{Msg: v.Type().String() + " cannot be " + sep + "-separated, only array"}
	}
	parts := make([]string, len(v.Elems()))
	for i, e := range v.Elems() {
		switch e.Type() {
		case value.Null:
			parts[i] = ""
		case value.Bool, value.Int, value.Double:
			parts[i] = value.Format(e, false)
		case value.String:
			parts[i] = escapeString(e.Str())
		default:
			return "", &value.TypeError{Msg: e.Type().String() + " is not valid in a csv/tsv row"}
		}
	}
	return strings.Join(parts, sep), nil
}

func encodeSh(v value.Value) (string, error) {
	quote := func(e value.Value) (string, error) {
		if e.Type() == value.Array || e.Type() == value.Object {
			return "", &value.TypeError{Msg: e.Type().String() + " can not be escaped for shell"}
		}
		s := textForm(e)
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'", nil
	}
	if v.Type() != value.Array {
		return quote(v)
	}
	parts := make([]string, len(v.Elems()))
	for i, e := range v.Elems() {
		s, err := quote(e)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, " "), nil
}

func decodeBase64(v value.Value) (string, error) {
	b, err := base64.StdEncoding.DecodeString(v.Str())
	if err != nil {
		if b2, err2 := base64.RawStdEncoding.DecodeString(v.Str()); err2 == nil {
			return string(b2), nil
		}
		return "", fmt.Errorf("invalid base64 input: %w", err)
	}
	return string(b), nil
}

// formatNode implements a bare '@name' filter: applies the named encoder
// to the current input.
type formatNode struct{ name string }

func (n formatNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	enc, ok := formatEncoders[n.name]
	if !ok {
		return Errorf("%s is not a valid format", n.name)
	}
	s, err := enc(in)
	if err != nil {
		return FromTypeError(err)
	}
	return out(value.NewString(s))
}

// formatStringNode interpolates Parts against the input, applying name's
// encoder (or plain tostring-style formatting when name is "") to each
// interpolated expression's output, fanning out across every combination
// of outputs the interpolated sub-filters produce (jq semantics: a string
// with N interpolations is itself a generator of N-way cartesian joins).
type formatStringNode struct {
	name  string
	parts []stringPartNode
}

type stringPartNode struct {
	literal string
	expr    node // nil for a literal-only part
}

func compileFormatString(t filter.FormatString, ctx *compileCtx) (node, error) {
	parts := make([]stringPartNode, len(t.Parts))
	for i, p := range t.Parts {
		if p.Expr == nil {
			parts[i] = stringPartNode{literal: p.Literal}
			continue
		}
		c, err := compile(p.Expr, ctx)
		if err != nil {
			return nil, err
		}
		parts[i] = stringPartNode{expr: c}
	}
	return formatStringNode{name: t.Name, parts: parts}, nil
}

func (n formatStringNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.evalFrom(0, "", in, en, out)
}

func (n formatStringNode) evalFrom(i int, acc string, in value.Value, en *env.Env, out Emit) *ErrState {
	if i == len(n.parts) {
		return out(value.NewString(acc))
	}
	p := n.parts[i]
	if p.expr == nil {
		return n.evalFrom(i+1, acc+p.literal, in, en, out)
	}
	return p.expr.Eval(in, en, func(v value.Value) *ErrState {
		s, err := n.renderPart(v)
		if err != nil {
			return err
		}
		return n.evalFrom(i+1, acc+s, in, en, out)
	})
}

func (n formatStringNode) renderPart(v value.Value) (string, *ErrState) {
	if n.name == "" {
		return textForm(v), nil
	}
	enc, ok := formatEncoders[n.name]
	if !ok {
		return "", Errorf("%s is not a valid format", n.name)
	}
	s, err := enc(v)
	if err != nil {
		return "", FromTypeError(err)
	}
	return s, nil
}
