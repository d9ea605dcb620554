package eval

import (
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/value"
)

func init() {
	builtinTable[builtinKey{"test", 1}] = biTest1
	builtinTable[builtinKey{"test", 2}] = biTest2
	builtinTable[builtinKey{"match", 1}] = biMatch1
	builtinTable[builtinKey{"match", 2}] = biMatch2
	builtinTable[builtinKey{"capture", 1}] = biCapture1
	builtinTable[builtinKey{"capture", 2}] = biCapture2
	builtinTable[builtinKey{"scan", 1}] = biScan1
	builtinTable[builtinKey{"scan", 2}] = biScan2
	builtinTable[builtinKey{"splits", 1}] = biSplits1
	builtinTable[builtinKey{"splits", 2}] = biSplits2
	builtinTable[builtinKey{"split", 2}] = biSplitRegex2
	builtinTable[builtinKey{"sub", 2}] = biSub2
	builtinTable[builtinKey{"sub", 3}] = biSub3
	builtinTable[builtinKey{"gsub", 2}] = biGsub2
	builtinTable[builtinKey{"gsub", 3}] = biGsub3
}

// regexOpts translates jq's flag-letter string into regexp2 options, per
// oniguruma's documented flags (spec §4.10 "regex builtins"): g is handled
// by the caller (global vs first-match), the rest map onto regexp2.RegexOptions.
func regexOpts(flags string) (regexp2.RegexOptions, bool, error) {
	opts := regexp2.RegexOptions(0)
	global := false
	for _, f := range flags {
		switch f {
		case 'g':
			global = true
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		case 's':
			opts |= regexp2.Singleline
		case 'm':
			opts |= regexp2.Multiline
		case 'n':
			opts |= regexp2.ExplicitCapture
		case 'p':
			opts |= regexp2.Singleline | regexp2.Multiline
		case 'l', 'u':
			// longest-match / unicode-case are not meaningfully distinct
			// under regexp2's engine; accepted for compatibility, no-op.
		default:
			return 0, false, &value.TypeError{Msg: string(f) + " is not a valid modifier string"}
		}
	}
	return opts, global, nil
}

// regexArgs extracts (pattern, flags) from either a plain string argument
// or a two-element [pattern, flags] array, matching jq's overloaded
// test/match/capture/scan/sub/gsub argument forms.
func regexArgs(v value.Value) (pattern, flags string, err error) {
	switch v.Type() {
	case value.String:
		return v.Str(), "", nil
	case value.Array:
		elems := v.Elems()
		if len(elems) == 0 || elems[0].Type() != value.String {
			return "", "", &value.TypeError{Msg: "regex must be a string"}
		}
		pattern = elems[0].Str()
		if len(elems) > 1 && elems[1].Type() == value.String {
			flags = elems[1].Str()
		}
		return pattern, flags, nil
	default:
		return "", "", &value.TypeError{Msg: v.Type().String() + " is not a string"}
	}
}

func compileRegex(pattern, flags string) (*regexp2.Regexp, bool, *ErrState) {
	opts, global, err := regexOpts(flags)
	if err != nil {
		return nil, false, FromTypeError(err)
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, false, Errorf("%s is not a valid regex: %s", pattern, err)
	}
	return re, global, nil
}

// matchObject builds the {offset, length, string, captures} object scan/
// match/capture all share, per jq's documented match object shape.
func matchObject(m *regexp2.Match) value.Value {
	runeLen := len([]rune(m.String()))
	var captures []value.Value
	for _, g := range m.Groups() {
		if g.Name == "0" {
			continue
		}
		name := value.NewNull()
		if _, err := parsePositiveInt(g.Name); err != nil {
			name = value.NewString(g.Name)
		}
		if len(g.Captures) == 0 {
			captures = append(captures, value.NewObject([]value.Entry{
				{Key: "offset", Value: value.NewInt(-1)},
				{Key: "length", Value: value.NewInt(0)},
				{Key: "string", Value: value.NewNull()},
				{Key: "name", Value: name},
			}))
			continue
		}
		c := g.Captures[0]
		captures = append(captures, value.NewObject([]value.Entry{
			{Key: "offset", Value: value.NewInt(int64(c.Index))},
			{Key: "length", Value: value.NewInt(int64(len([]rune(c.String()))))},
			{Key: "string", Value: value.NewString(c.String())},
			{Key: "name", Value: name},
		}))
	}
	return value.NewObject([]value.Entry{
		{Key: "offset", Value: value.NewInt(int64(m.Index))},
		{Key: "length", Value: value.NewInt(int64(runeLen))},
		{Key: "string", Value: value.NewString(m.String())},
		{Key: "captures", Value: value.NewArray(captures)},
	})
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	if s == "" {
		return 0, &value.TypeError{Msg: "not numeric"}
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, &value.TypeError{Msg: "not numeric"}
		}
		n = n*10 + int(r-'0')
	}
	return n, nil
}

func allMatches(re *regexp2.Regexp, s string, global bool) ([]*regexp2.Match, error) {
	var out []*regexp2.Match
	m, err := re.FindStringMatch(s)
	for m != nil && err == nil {
		out = append(out, m)
		if !global {
			break
		}
		m, err = re.FindNextMatch(m)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func evalRegexArgs(args []node, in value.Value, en *env.Env) (pattern, flags string, global bool, errOut *ErrState) {
	var patV, flagsV value.Value
	var havePat, haveFlags bool
	err := args[0].Eval(in, en, func(v value.Value) *ErrState {
		patV, havePat = v, true
		return BreakSignal(firstSentinel)
	})
	if err != nil && err.Label != firstSentinel {
		return "", "", false, err
	}
	if !havePat {
		return "", "", false, Errorf("regex argument required")
	}
	if len(args) > 1 {
		err := args[1].Eval(in, en, func(v value.Value) *ErrState {
			flagsV, haveFlags = v, true
			return BreakSignal(firstSentinel)
		})
		if err != nil && err.Label != firstSentinel {
			return "", "", false, err
		}
	}
	if patV.Type() == value.Array {
		p, f, rerr := regexArgs(patV)
		if rerr != nil {
			return "", "", false, FromTypeError(rerr)
		}
		return p, f, strings.ContainsRune(f, 'g'), nil
	}
	flagsStr := ""
	if haveFlags && flagsV.Type() == value.String {
		flagsStr = flagsV.Str()
	}
	return patV.Str(), flagsStr, strings.ContainsRune(flagsStr, 'g'), nil
}

func biTest1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runTest(args[:1], in, en, out)
}

func biTest2(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runTest(args, in, en, out)
}

func runTest(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	pattern, flags, _, err := evalRegexArgs(args, in, en)
	if err != nil {
		return err
	}
	re, _, cerr := compileRegex(pattern, flags)
	if cerr != nil {
		return cerr
	}
	m, merr := re.FindStringMatch(in.Str())
	if merr != nil {
		return Errorf("%s", merr)
	}
	return out(value.NewBool(m != nil))
}

func biMatch1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runMatch(args[:1], in, en, out)
}

func biMatch2(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runMatch(args, in, en, out)
}

func runMatch(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	pattern, flags, global, err := evalRegexArgs(args, in, en)
	if err != nil {
		return err
	}
	re, g2, cerr := compileRegex(pattern, flags)
	if cerr != nil {
		return cerr
	}
	matches, merr := allMatches(re, in.Str(), global || g2)
	if merr != nil {
		return Errorf("%s", merr)
	}
	for _, m := range matches {
		if err := out(matchObject(m)); err != nil {
			return err
		}
	}
	return nil
}

func biCapture1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runCapture(args[:1], in, en, out)
}

func biCapture2(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runCapture(args, in, en, out)
}

func runCapture(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	pattern, flags, global, err := evalRegexArgs(args, in, en)
	if err != nil {
		return err
	}
	re, g2, cerr := compileRegex(pattern, flags)
	if cerr != nil {
		return cerr
	}
	matches, merr := allMatches(re, in.Str(), global || g2)
	if merr != nil {
		return Errorf("%s", merr)
	}
	for _, m := range matches {
		if err := out(captureObject(m)); err != nil {
			return err
		}
	}
	return nil
}

func captureObject(m *regexp2.Match) value.Value {
	var entries []value.Entry
	for _, g := range m.Groups() {
		if g.Name == "0" {
			continue
		}
		if _, err := parsePositiveInt(g.Name); err == nil {
			continue
		}
		val := value.NewNull()
		if len(g.Captures) > 0 {
			val = value.NewString(g.Captures[0].String())
		}
		entries = append(entries, value.Entry{Key: g.Name, Value: val})
	}
	return value.NewObject(entries)
}

func biScan1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runScan(args[:1], in, en, out)
}

func biScan2(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runScan(args, in, en, out)
}

func runScan(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	pattern, flags, _, err := evalRegexArgs(args, in, en)
	if err != nil {
		return err
	}
	re, _, cerr := compileRegex(pattern, flags)
	if cerr != nil {
		return cerr
	}
	matches, merr := allMatches(re, in.Str(), true)
	if merr != nil {
		return Errorf("%s", merr)
	}
	for _, m := range matches {
		groups := m.Groups()
		if len(groups) == 1 {
			if err := out(value.NewString(m.String())); err != nil {
				return err
			}
			continue
		}
		var caps []value.Value
		for _, g := range groups[1:] {
			if len(g.Captures) == 0 {
				caps = append(caps, value.NewNull())
				continue
			}
			caps = append(caps, value.NewString(g.Captures[0].String()))
		}
		if err := out(value.NewArray(caps)); err != nil {
			return err
		}
	}
	return nil
}

func biSplits1(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runSplits(args[:1], in, en, out)
}

func biSplits2(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runSplits(args, in, en, out)
}

func runSplits(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	parts, err := splitRegex(args, in, en)
	if err != nil {
		return err
	}
	for _, p := range parts {
		if err := out(value.NewString(p)); err != nil {
			return err
		}
	}
	return nil
}

func biSplitRegex2(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	parts, err := splitRegex(args, in, en)
	if err != nil {
		return err
	}
	res := make([]value.Value, len(parts))
	for i, p := range parts {
		res[i] = value.NewString(p)
	}
	return out(value.NewArray(res))
}

func splitRegex(args []node, in value.Value, en *env.Env) ([]string, *ErrState) {
	pattern, flags, _, err := evalRegexArgs(args, in, en)
	if err != nil {
		return nil, err
	}
	re, _, cerr := compileRegex(pattern, flags)
	if cerr != nil {
		return nil, cerr
	}
	matches, merr := allMatches(re, in.Str(), true)
	if merr != nil {
		return nil, Errorf("%s", merr)
	}
	s := in.Str()
	var parts []string
	last := 0
	for _, m := range matches {
		parts = append(parts, s[last:m.Index])
		last = m.Index + m.Length
	}
	parts = append(parts, s[last:])
	return parts, nil
}

func biSub2(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runSub(args[0], args[1], nil, in, en, out, false)
}

func biSub3(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runSub(args[0], args[1], args[2], in, en, out, false)
}

func biGsub2(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runSub(args[0], args[1], nil, in, en, out, true)
}

func biGsub3(args []node, in value.Value, en *env.Env, out Emit) *ErrState {
	return runSub(args[0], args[1], args[2], in, en, out, true)
}

// runSub implements sub/gsub: repl is evaluated once per match against an
// object of the match's named captures (jq semantics: the replacement
// filter's input is {<capture name>: <string>, ...}, not the raw match),
// fanning out across every combination replacement filters produce.
func runSub(patternArg, replArg, flagsArg node, in value.Value, en *env.Env, out Emit, global bool) *ErrState {
	if in.Type() != value.String {
		return Errorf("%s (%s) cannot be matched, as it is not a string", in.Type(), value.Describe(in))
	}
	pattern, flags, patGlobal, err := evalRegexArgsNodes(patternArg, flagsArg, in, en)
	if err != nil {
		return err
	}
	re, g2, cerr := compileRegex(pattern, flags)
	if cerr != nil {
		return cerr
	}
	matches, merr := allMatches(re, in.Str(), global || patGlobal || g2)
	if merr != nil {
		return Errorf("%s", merr)
	}
	if len(matches) == 0 {
		return out(in)
	}
	s := in.Str()
	var buildFrom func(i int, last int, acc string) *ErrState
	buildFrom = func(i, last int, acc string) *ErrState {
		if i == len(matches) {
			return out(value.NewString(acc + s[last:]))
		}
		m := matches[i]
		replIn := captureObject(m)
		return replArg.Eval(replIn, en, func(rv value.Value) *ErrState {
			if rv.Type() != value.String {
				return Errorf("%s (%s) is not a string", rv.Type(), value.Describe(rv))
			}
			next := acc + s[last:m.Index] + rv.Str()
			return buildFrom(i+1, m.Index+m.Length, next)
		})
	}
	return buildFrom(0, 0, "")
}

func evalRegexArgsNodes(patternArg, flagsArg node, in value.Value, en *env.Env) (pattern, flags string, global bool, errOut *ErrState) {
	args := []node{patternArg}
	if flagsArg != nil {
		args = append(args, flagsArg)
	}
	return evalRegexArgs(args, in, en)
}
