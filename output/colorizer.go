package output

import "github.com/jqturbo/jqturbo/value"

// Colorizer wraps scalar and key bytes in ANSI color codes before and a
// reset code after. A nil *Colorizer prints everything uncolored, so
// callers can hold one field and branch on nilness instead of threading a
// separate "color enabled" bool everywhere — the same convention the
// teacher's Colorizer.PrintScalar uses.
//
// Grounded on colorizer.go; ScalarColorCodes is indexed by scalarColorIndex
// instead of token.Scalar.Type() since this package renders a value.Value
// tree, not a token stream, but it is the same four-way split (null,
// bool, number, string) the teacher colorizer uses.
type Colorizer struct {
	KeyColorCode     []byte
	ScalarColorCodes [4][]byte
	ResetCode        []byte
}

// DefaultColorizer mirrors the ANSI codes the teacher's cmd/pj/main.go picks
// ("the colors I chose") for its four scalar kinds plus object keys.
var DefaultColorizer = Colorizer{
	ScalarColorCodes: [4][]byte{dimWhite, yellow, white, green},
	KeyColorCode:     brightBlue,
	ResetCode:        reset,
}

var (
	reset      = []byte("\033[0m")
	yellow     = []byte("\033[33m")
	white      = []byte("\033[37m")
	green      = []byte("\033[32m")
	dimWhite   = []byte("\033[30;2m")
	brightBlue = []byte("\033[34;1m")
)

func scalarColorIndex(t value.Type) int {
	switch t {
	case value.Null:
		return 0
	case value.Bool:
		return 1
	case value.Int, value.Double:
		return 2
	default: // value.String
		return 3
	}
}

// printScalar writes v's text with its color code, or uncolored if c is nil.
func (c *Colorizer) printScalar(p Printer, t value.Type, text string) error {
	if c != nil {
		if err := p.PrintBytes(c.ScalarColorCodes[scalarColorIndex(t)]); err != nil {
			return err
		}
	}
	if err := p.PrintBytes([]byte(text)); err != nil {
		return err
	}
	if c != nil {
		return p.PrintBytes(c.ResetCode)
	}
	return nil
}

// printKey writes a quoted object key with the key color, or uncolored if c
// is nil.
func (c *Colorizer) printKey(p Printer, key string, asciiOnly bool) error {
	quoted := quoteString(key, asciiOnly)
	if c != nil {
		if err := p.PrintBytes(c.KeyColorCode); err != nil {
			return err
		}
	}
	if err := p.PrintBytes([]byte(quoted)); err != nil {
		return err
	}
	if c != nil {
		return p.PrintBytes(c.ResetCode)
	}
	return nil
}
