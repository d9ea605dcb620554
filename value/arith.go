package value

import (
	"fmt"
	"math"
)

// Add implements jq's '+': numbers add (with overflow promoting Int to
// Double, per the data model), strings concatenate, arrays concatenate,
// objects merge (right wins on duplicate keys), null is the identity for
// any addable type.
func Add(a, b Value) (Value, error) {
	if a.IsNull() {
		return b, nil
	}
	if b.IsNull() {
		return a, nil
	}
	switch {
	case isNumber(a) && isNumber(b):
		return addNumbers(a, b), nil
	case a.typ == String && b.typ == String:
		return NewString(a.s + b.s), nil
	case a.typ == Array && b.typ == Array:
		out := make([]Value, 0, len(a.Elems())+len(b.Elems()))
		out = append(out, a.Elems()...)
		out = append(out, b.Elems()...)
		return NewArray(out), nil
	case a.typ == Object && b.typ == Object:
		out := make([]Entry, 0, len(a.Entries())+len(b.Entries()))
		out = append(out, a.Entries()...)
		out = append(out, b.Entries()...)
		return mergeShadowed(out), nil
	default:
		return Value{}, &TypeError{Msg: fmt.Sprintf("%s (%s) and %s (%s) cannot be added", a.typ, Describe(a), b.typ, Describe(b))}
	}
}

// mergeShadowed keeps only the last entry for each key, in the position of
// its last occurrence — this is what jq's object "+" and "*" do.
func mergeShadowed(entries []Entry) Value {
	idx := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if i, ok := idx[e.Key]; ok {
			out[i] = e
			continue
		}
		idx[e.Key] = len(out)
		out = append(out, e)
	}
	return NewObject(out)
}

// Sub implements '-': numeric subtraction, and array difference (remove
// elements of b from a by equality).
func Sub(a, b Value) (Value, error) {
	switch {
	case isNumber(a) && isNumber(b):
		return subNumbers(a, b), nil
	case a.typ == Array && b.typ == Array:
		out := make([]Value, 0, len(a.Elems()))
		for _, x := range a.Elems() {
			keep := true
			for _, y := range b.Elems() {
				if Equal(x, y) {
					keep = false
					break
				}
			}
			if keep {
				out = append(out, x)
			}
		}
		return NewArray(out), nil
	default:
		return Value{}, &TypeError{Msg: fmt.Sprintf("%s (%s) and %s (%s) cannot be subtracted", a.typ, Describe(a), b.typ, Describe(b))}
	}
}

// Mul implements '*': numeric multiplication, string-repeat (string * int),
// and object deep-merge.
func Mul(a, b Value) (Value, error) {
	switch {
	case isNumber(a) && isNumber(b):
		return mulNumbers(a, b), nil
	case a.typ == String && isNumber(b):
		n := b.AsInt()
		if n <= 0 {
			return NewNull(), nil
		}
		out := make([]byte, 0, len(a.s)*int(n))
		for i := int64(0); i < n; i++ {
			out = append(out, a.s...)
		}
		return NewString(string(out)), nil
	case isNumber(a) && b.typ == String:
		return Mul(b, a)
	case a.typ == Object && b.typ == Object:
		return deepMerge(a, b), nil
	case a.IsNull() || b.IsNull():
		return NewNull(), nil
	default:
		return Value{}, &TypeError{Msg: fmt.Sprintf("%s (%s) and %s (%s) cannot be multiplied", a.typ, Describe(a), b.typ, Describe(b))}
	}
}

func deepMerge(a, b Value) Value {
	out := append([]Entry(nil), a.Entries()...)
	for _, be := range b.Entries() {
		merged := false
		for i, oe := range out {
			if oe.Key != be.Key {
				continue
			}
			if oe.Value.typ == Object && be.Value.typ == Object {
				out[i] = Entry{Key: be.Key, Value: deepMerge(oe.Value, be.Value)}
			} else {
				out[i] = be
			}
			merged = true
			break
		}
		if !merged {
			out = append(out, be)
		}
	}
	return NewObject(out)
}

// Div implements '/': numeric division (always produces Double, even when
// evenly divisible), and string split (string / string).
func Div(a, b Value) (Value, error) {
	switch {
	case isNumber(a) && isNumber(b):
		if b.AsFloat() == 0 {
			return Value{}, &TypeError{Msg: fmt.Sprintf("%s and %s cannot be divided because the divisor is zero", Describe(a), Describe(b))}
		}
		return NewDouble(a.AsFloat() / b.AsFloat()), nil
	case a.typ == String && b.typ == String:
		return NewArray(splitString(a.s, b.s)), nil
	default:
		return Value{}, &TypeError{Msg: fmt.Sprintf("%s (%s) and %s (%s) cannot be divided", a.typ, Describe(a), b.typ, Describe(b))}
	}
}

func splitString(s, sep string) []Value {
	if sep == "" {
		out := make([]Value, 0, len(s))
		for _, r := range s {
			out = append(out, NewString(string(r)))
		}
		return out
	}
	parts := splitAll(s, sep)
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = NewString(p)
	}
	return out
}

func splitAll(s, sep string) []string {
	var out []string
	for {
		i := indexOf(s, sep)
		if i < 0 {
			out = append(out, s)
			return out
		}
		out = append(out, s[:i])
		s = s[i+len(sep):]
	}
}

func indexOf(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return -1
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

// Mod implements '%'. jq truncates both operands to integers.
func Mod(a, b Value) (Value, error) {
	if !isNumber(a) || !isNumber(b) {
		return Value{}, &TypeError{Msg: fmt.Sprintf("%s (%s) and %s (%s) cannot be divided", a.typ, Describe(a), b.typ, Describe(b))}
	}
	bi := b.AsInt()
	if bi == 0 {
		return Value{}, &TypeError{Msg: fmt.Sprintf("%s and %s cannot be divided because the divisor is zero", Describe(a), Describe(b))}
	}
	ai := a.AsInt()
	r := ai % bi
	// jq's modulo keeps the sign of the dividend, matching Go's %.
	return NewInt(r), nil
}

func isNumber(v Value) bool { return v.typ == Int || v.typ == Double }

func addNumbers(a, b Value) Value {
	if a.typ == Int && b.typ == Int {
		sum := a.i + b.i
		// overflow check: if signs of operands match but differ from result
		if (a.i > 0 && b.i > 0 && sum < 0) || (a.i < 0 && b.i < 0 && sum > 0) {
			return NewDouble(float64(a.i) + float64(b.i))
		}
		return NewInt(sum)
	}
	return NewDouble(a.AsFloat() + b.AsFloat())
}

func subNumbers(a, b Value) Value {
	if a.typ == Int && b.typ == Int {
		diff := a.i - b.i
		if (a.i >= 0 && b.i < 0 && diff < 0) || (a.i < 0 && b.i > 0 && diff > 0) {
			return NewDouble(float64(a.i) - float64(b.i))
		}
		return NewInt(diff)
	}
	return NewDouble(a.AsFloat() - b.AsFloat())
}

func mulNumbers(a, b Value) Value {
	if a.typ == Int && b.typ == Int {
		if a.i == 0 || b.i == 0 {
			return NewInt(0)
		}
		prod := a.i * b.i
		if prod/b.i != a.i {
			return NewDouble(float64(a.i) * float64(b.i))
		}
		return NewInt(prod)
	}
	return NewDouble(a.AsFloat() * b.AsFloat())
}

// Neg implements unary '-'.
func Neg(a Value) (Value, error) {
	switch a.typ {
	case Int:
		if a.i == math.MinInt64 {
			return NewDouble(-float64(a.i)), nil
		}
		return NewInt(-a.i), nil
	case Double:
		return NewDouble(-a.f), nil
	default:
		return Value{}, &TypeError{Msg: fmt.Sprintf("%s (%s) cannot be negated", a.typ, Describe(a))}
	}
}

// Describe renders a short debug form of v for error messages, mirroring
// jq's own truncated-value error text.
func Describe(v Value) string {
	s := Format(v, false)
	const limit = 11
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
