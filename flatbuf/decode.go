package flatbuf

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// BuildFromJSON parses a single JSON document from data directly into a
// flat token buffer, emitting Builder calls as it scans instead of first
// constructing a value.Value tree — materializing the intermediate tree
// is exactly the allocation the flat buffer exists to avoid. Grounded on
// encoding/json/decoder.go's hand-rolled recursive-descent style. This is
// the only path that fills a Buffer: simdjson-go's exported surface gives
// named-key lookup (Object.FindKey) but no generic child enumeration, so
// it can answer fastpath's closed shape set directly from its own DOM
// (package fastpath) but can't stand in as a general-purpose Buffer
// source.
func BuildFromJSON(data []byte) (*Buffer, error) {
	buf, n, err := BuildOneFromJSON(data)
	if err != nil {
		return nil, err
	}
	rest := data[n:]
	for _, c := range rest {
		if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
			return nil, fmt.Errorf("flatbuf: trailing data after JSON value at offset %d", n)
		}
	}
	return buf, nil
}

// BuildOneFromJSON parses a single JSON document starting at data[0],
// ignoring (and not requiring the absence of) anything after it, and
// returns how many bytes were consumed. This is what a multi-document
// stream — concatenated or newline-delimited JSON, as seen by --slurpfile
// and the inputs/input builtins outside the NDJSON fast pipeline — scans
// with in a loop: each call resumes at data[n:].
func BuildOneFromJSON(data []byte) (*Buffer, int, error) {
	p := &jsonParser{data: data}
	p.skipSpace()
	if err := p.parseValue(); err != nil {
		return nil, 0, err
	}
	return New(p.b.Bytes()), p.pos, nil
}

type jsonParser struct {
	data []byte
	pos  int
	b    Builder
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.data) {
		switch p.data[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) parseValue() error {
	if p.pos >= len(p.data) {
		return fmt.Errorf("flatbuf: unexpected end of JSON input")
	}
	switch c := p.data[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return err
		}
		p.b.String(s)
		return nil
	case c == 't':
		return p.parseLiteral("true", func() { p.b.Bool(true) })
	case c == 'f':
		return p.parseLiteral("false", func() { p.b.Bool(false) })
	case c == 'n':
		return p.parseLiteral("null", func() { p.b.Null() })
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return fmt.Errorf("flatbuf: unexpected character %q at offset %d", c, p.pos)
	}
}

func (p *jsonParser) parseLiteral(lit string, emit func()) error {
	if p.pos+len(lit) > len(p.data) || string(p.data[p.pos:p.pos+len(lit)]) != lit {
		return fmt.Errorf("flatbuf: invalid literal at offset %d", p.pos)
	}
	p.pos += len(lit)
	emit()
	return nil
}

func (p *jsonParser) parseArray() error {
	p.pos++ // '['
	p.b.BeginArray()
	p.skipSpace()
	if p.pos < len(p.data) && p.data[p.pos] == ']' {
		p.pos++
		p.b.EndArray()
		return nil
	}
	for {
		p.skipSpace()
		if err := p.parseValue(); err != nil {
			return err
		}
		p.skipSpace()
		if p.pos >= len(p.data) {
			return fmt.Errorf("flatbuf: unterminated array")
		}
		switch p.data[p.pos] {
		case ',':
			p.pos++
		case ']':
			p.pos++
			p.b.EndArray()
			return nil
		default:
			return fmt.Errorf("flatbuf: expected ',' or ']' at offset %d", p.pos)
		}
	}
}

func (p *jsonParser) parseObject() error {
	p.pos++ // '{'
	p.b.BeginObject()
	p.skipSpace()
	if p.pos < len(p.data) && p.data[p.pos] == '}' {
		p.pos++
		p.b.EndObject()
		return nil
	}
	for {
		p.skipSpace()
		if p.pos >= len(p.data) || p.data[p.pos] != '"' {
			return fmt.Errorf("flatbuf: expected object key at offset %d", p.pos)
		}
		key, err := p.parseString()
		if err != nil {
			return err
		}
		p.b.Key(key)
		p.skipSpace()
		if p.pos >= len(p.data) || p.data[p.pos] != ':' {
			return fmt.Errorf("flatbuf: expected ':' at offset %d", p.pos)
		}
		p.pos++
		p.skipSpace()
		if err := p.parseValue(); err != nil {
			return err
		}
		p.skipSpace()
		if p.pos >= len(p.data) {
			return fmt.Errorf("flatbuf: unterminated object")
		}
		switch p.data[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			p.b.EndObject()
			return nil
		default:
			return fmt.Errorf("flatbuf: expected ',' or '}' at offset %d", p.pos)
		}
	}
}

// parseNumber matches value.NewNumberFromText's int/double split: an
// integer literal with no fractional part or exponent becomes an Int
// token; everything else (and anything that overflows int64) becomes a
// Double token with the original text preserved.
func (p *jsonParser) parseNumber() error {
	start := p.pos
	if p.data[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
		p.pos++
	}
	isFloat := false
	if p.pos < len(p.data) && p.data[p.pos] == '.' {
		isFloat = true
		p.pos++
		for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
			p.pos++
		}
	}
	if p.pos < len(p.data) && (p.data[p.pos] == 'e' || p.data[p.pos] == 'E') {
		isFloat = true
		p.pos++
		if p.pos < len(p.data) && (p.data[p.pos] == '+' || p.data[p.pos] == '-') {
			p.pos++
		}
		for p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '9' {
			p.pos++
		}
	}
	text := string(p.data[start:p.pos])
	if !isFloat {
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			p.b.Int(i)
			return nil
		}
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("flatbuf: invalid number %q at offset %d: %w", text, start, err)
	}
	p.b.Double(f, text)
	return nil
}

// parseString decodes a JSON string literal into its unescaped UTF-8
// form (flat buffer strings are stored decoded, per the §3 invariant),
// copying unescaped runs verbatim and only allocating per escape.
func (p *jsonParser) parseString() (string, error) {
	start := p.pos
	p.pos++ // opening quote
	var sb strings.Builder
	plainStart := p.pos
	for {
		if p.pos >= len(p.data) {
			return "", fmt.Errorf("flatbuf: unterminated string starting at offset %d", start)
		}
		c := p.data[p.pos]
		if c == '"' {
			sb.Write(p.data[plainStart:p.pos])
			p.pos++
			return sb.String(), nil
		}
		if c == '\\' {
			sb.Write(p.data[plainStart:p.pos])
			p.pos++
			if p.pos >= len(p.data) {
				return "", fmt.Errorf("flatbuf: unterminated escape at offset %d", p.pos)
			}
			switch e := p.data[p.pos]; e {
			case '"', '\\', '/':
				sb.WriteByte(e)
				p.pos++
			case 'b':
				sb.WriteByte('\b')
				p.pos++
			case 'f':
				sb.WriteByte('\f')
				p.pos++
			case 'n':
				sb.WriteByte('\n')
				p.pos++
			case 'r':
				sb.WriteByte('\r')
				p.pos++
			case 't':
				sb.WriteByte('\t')
				p.pos++
			case 'u':
				r, err := p.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				sb.WriteRune(r)
			default:
				return "", fmt.Errorf("flatbuf: invalid escape \\%c at offset %d", e, p.pos)
			}
			plainStart = p.pos
			continue
		}
		p.pos++
	}
}

func (p *jsonParser) parseUnicodeEscape() (rune, error) {
	r1, err := p.readHex4()
	if err != nil {
		return 0, err
	}
	if utf16.IsSurrogate(rune(r1)) && p.pos+1 < len(p.data) && p.data[p.pos] == '\\' && p.data[p.pos+1] == 'u' {
		saved := p.pos
		p.pos += 2
		r2, err := p.readHex4()
		if err == nil {
			if dec := utf16.DecodeRune(rune(r1), rune(r2)); dec != utf8.RuneError {
				return dec, nil
			}
		}
		p.pos = saved
	}
	return rune(r1), nil
}

func (p *jsonParser) readHex4() (int, error) {
	p.pos++ // 'u'
	if p.pos+4 > len(p.data) {
		return 0, fmt.Errorf("flatbuf: truncated \\u escape at offset %d", p.pos)
	}
	n, err := strconv.ParseUint(string(p.data[p.pos:p.pos+4]), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("flatbuf: invalid \\u escape at offset %d: %w", p.pos, err)
	}
	p.pos += 4
	return int(n), nil
}
