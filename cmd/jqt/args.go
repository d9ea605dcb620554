package main

import (
	"fmt"
)

// config holds the parsed invocation surface (spec §6). It is
// hand-parsed rather than built on stdlib flag: several flags
// (--arg/--argjson/--rawfile/--slurpfile) consume two trailing tokens
// each, which flag.FlagSet has no direct support for, and --args/
// --jsonargs need "everything after this point is positional" semantics
// jq itself implements with its own scanner. Grounded on cmd/pj/main.go's
// overall flag shape (bool toggles via closures, a -f/-file path flag,
// color auto-detection) adapted to a hand-rolled loop over os.Args for
// the flags that shape needs but stdlib flag can't express.
type config struct {
	filterSrc   string
	filterFile  string
	compact     bool
	rawOutput   bool
	rawInput    bool
	slurp       bool
	nullInput   bool
	exitStatus  bool
	sortKeys    bool
	joinOutput  bool
	asciiOutput bool
	color       colorChoice
	indent      int
	tab         bool
	forceJSONL  bool
	raw0        bool
	unbuffered  bool

	args     []namedArg // --arg/--argjson bindings, in order
	rawfiles []namedArg // --rawfile NAME PATH
	slurpFiles []namedArg // --slurpfile NAME PATH

	positionalMode positionalMode // --args / --jsonargs
	positional     []string

	inputFiles []string
}

type colorChoice int

const (
	colorAuto colorChoice = iota
	colorAlways
	colorNever
)

type positionalMode int

const (
	positionalNone positionalMode = iota
	positionalRaw
	positionalJSON
)

type namedArg struct {
	name  string
	value string // raw VALUE/PATH/JSON token; interpretation depends on which slice/flag it's in
	json  bool   // set for --argjson bindings within cfg.args
}

// usageError is returned for a malformed invocation (spec exit code 2).
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func parseArgs(argv []string) (*config, error) {
	cfg := &config{indent: 2}

	i := 0
	next := func(flagName string) (string, error) {
		i++
		if i >= len(argv) {
			return "", &usageError{msg: fmt.Sprintf("%s requires an argument", flagName)}
		}
		return argv[i], nil
	}

	haveFilter := false
	for ; i < len(argv); i++ {
		a := argv[i]

		if cfg.positionalMode != positionalNone {
			cfg.positional = append(cfg.positional, a)
			continue
		}

		switch a {
		case "-c", "--compact-output":
			cfg.compact = true
		case "-r", "--raw-output":
			cfg.rawOutput = true
		case "-R", "--raw-input":
			cfg.rawInput = true
		case "-s", "--slurp":
			cfg.slurp = true
		case "-n", "--null-input":
			cfg.nullInput = true
		case "-e", "--exit-status":
			cfg.exitStatus = true
		case "-S", "--sort-keys":
			cfg.sortKeys = true
		case "-j", "--join-output":
			cfg.joinOutput = true
		case "-a", "--ascii-output":
			cfg.asciiOutput = true
		case "-C", "--color-output":
			cfg.color = colorAlways
		case "-M", "--monochrome-output":
			cfg.color = colorNever
		case "--tab":
			cfg.tab = true
		case "--indent":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			n, err := parseIndent(v)
			if err != nil {
				return nil, &usageError{msg: err.Error()}
			}
			cfg.indent = n
		case "--jsonl":
			cfg.forceJSONL = true
		case "--arg":
			name, err := next(a)
			if err != nil {
				return nil, err
			}
			val, err := next(a)
			if err != nil {
				return nil, err
			}
			cfg.args = append(cfg.args, namedArg{name: name, value: val})
		case "--argjson":
			name, err := next(a)
			if err != nil {
				return nil, err
			}
			val, err := next(a)
			if err != nil {
				return nil, err
			}
			cfg.args = append(cfg.args, namedArg{name: name, value: val, json: true})
		case "--rawfile":
			name, err := next(a)
			if err != nil {
				return nil, err
			}
			path, err := next(a)
			if err != nil {
				return nil, err
			}
			cfg.rawfiles = append(cfg.rawfiles, namedArg{name: name, value: path})
		case "--slurpfile":
			name, err := next(a)
			if err != nil {
				return nil, err
			}
			path, err := next(a)
			if err != nil {
				return nil, err
			}
			cfg.slurpFiles = append(cfg.slurpFiles, namedArg{name: name, value: path})
		case "--args":
			cfg.positionalMode = positionalRaw
		case "--jsonargs":
			cfg.positionalMode = positionalJSON
		case "-f", "--from-file":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			cfg.filterFile = v
			haveFilter = true
		case "--raw-output0":
			cfg.raw0 = true
			cfg.rawOutput = true
		case "--unbuffered":
			cfg.unbuffered = true
		case "-h", "--help":
			return nil, &usageError{msg: usageText}
		default:
			if len(a) > 1 && a[0] == '-' && a != "-" {
				if ok := parseCombinedShortFlags(cfg, a); ok {
					continue
				}
				return nil, &usageError{msg: fmt.Sprintf("unknown option: %s", a)}
			}
			if !haveFilter {
				cfg.filterSrc = a
				haveFilter = true
			} else {
				cfg.inputFiles = append(cfg.inputFiles, a)
			}
		}
	}

	if !haveFilter {
		return nil, &usageError{msg: "no filter given\n" + usageText}
	}
	return cfg, nil
}

// parseCombinedShortFlags handles jq's habit of bundling single-char
// flags, e.g. "-cr" for "-c -r". Only flags with no argument are
// bundleable; encountering one that takes an argument mid-bundle is a
// usage error.
func parseCombinedShortFlags(cfg *config, a string) bool {
	if a[0] != '-' || len(a) < 2 || a[1] == '-' {
		return false
	}
	for _, r := range a[1:] {
		switch r {
		case 'c':
			cfg.compact = true
		case 'r':
			cfg.rawOutput = true
		case 'R':
			cfg.rawInput = true
		case 's':
			cfg.slurp = true
		case 'n':
			cfg.nullInput = true
		case 'e':
			cfg.exitStatus = true
		case 'S':
			cfg.sortKeys = true
		case 'j':
			cfg.joinOutput = true
		case 'a':
			cfg.asciiOutput = true
		case 'C':
			cfg.color = colorAlways
		case 'M':
			cfg.color = colorNever
		default:
			return false
		}
	}
	return true
}

func parseIndent(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid --indent value: %q", s)
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

const usageText = `usage: jqt [OPTIONS] FILTER [FILES...]
       jqt [OPTIONS] -f FILTER_FILE [FILES...]

See spec §6 for the full flag reference (-c, -r, -R, -s, -n, -e, -S, -j,
-a, -C/-M, --tab/--indent N, --jsonl, --arg, --argjson, --rawfile,
--slurpfile, --args/--jsonargs, -f, --raw-output0, --unbuffered).`
