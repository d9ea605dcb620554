package output

import (
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// ColorMode is the three-state choice between -C, -M, and the terminal-
// detecting default, matching the teacher's -color auto|always|never flag
// (cmd/pj/main.go's -colors/-nocolors pair, generalized to the third "auto"
// state jq itself exposes).
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ResolveStdout decides whether standard output should be colorized:
// ColorAlways/ColorNever are absolute (-C/-M always win), and ColorAuto
// falls back to NO_COLOR (https://no-color.org, spec-mandated) and then to
// whether stdout is a terminal. It returns the Colorizer to use (nil when
// color is off) and an io.Writer wrapping stdout for ANSI passthrough on
// Windows terminals when color is on, grounded on cmd/pj/main.go's
// isatty.IsTerminal + colorable.NewColorableStdout pairing.
func ResolveStdout(mode ColorMode) (*Colorizer, io.Writer) {
	enabled := false
	switch mode {
	case ColorAlways:
		enabled = true
	case ColorNever:
		enabled = false
	default:
		enabled = os.Getenv("NO_COLOR") == "" && isatty.IsTerminal(os.Stdout.Fd())
	}

	if !enabled {
		return nil, os.Stdout
	}
	return &DefaultColorizer, colorable.NewColorableStdout()
}
