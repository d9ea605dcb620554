package eval

import (
	"github.com/jqturbo/jqturbo/env"
	"github.com/jqturbo/jqturbo/filter"
	"github.com/jqturbo/jqturbo/value"
)

type arrayConstructNode struct{ body node }

func (n arrayConstructNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	if n.body == nil {
		return out(value.NewArray(nil))
	}
	var elems []value.Value
	if err := n.body.Eval(in, en, func(v value.Value) *ErrState {
		elems = append(elems, v)
		return nil
	}); err != nil {
		return err
	}
	return out(value.NewArray(elems))
}

type objectEntryNode struct {
	// exactly one of keyName/keyExpr is active.
	keyName string
	keyExpr node
	value   node
}

type objectConstructNode struct{ entries []objectEntryNode }

func compileObjectConstruct(t filter.ObjectConstruct, ctx *compileCtx) (node, error) {
	entries := make([]objectEntryNode, len(t.Entries))
	for i, e := range t.Entries {
		val, err := compile(e.Value, ctx)
		if err != nil {
			return nil, err
		}
		if e.KeyExpr != nil {
			keyExpr, err := compile(e.KeyExpr, ctx)
			if err != nil {
				return nil, err
			}
			entries[i] = objectEntryNode{keyExpr: keyExpr, value: val}
			continue
		}
		entries[i] = objectEntryNode{keyName: e.KeyName, value: val}
	}
	return objectConstructNode{entries: entries}, nil
}

// Eval builds the cartesian product of every entry's (key, value)
// generator pairs, per jq's object-construction generator semantics: a
// multi-valued entry fans out into multiple output objects.
func (n objectConstructNode) Eval(in value.Value, en *env.Env, out Emit) *ErrState {
	return n.evalFrom(0, nil, in, en, out)
}

func (n objectConstructNode) evalFrom(i int, acc []value.Entry, in value.Value, en *env.Env, out Emit) *ErrState {
	if i == len(n.entries) {
		return out(value.NewObject(append([]value.Entry(nil), acc...)))
	}
	e := n.entries[i]
	keyGen := e.keyExpr
	if keyGen == nil {
		keyGen = literalNode{v: value.NewString(e.keyName)}
	}
	return keyGen.Eval(in, en, func(k value.Value) *ErrState {
		if k.Type() != value.String {
			return Errorf("Object keys must be strings")
		}
		return e.value.Eval(in, en, func(v value.Value) *ErrState {
			next := make([]value.Entry, len(acc)+1)
			copy(next, acc)
			next[len(acc)] = value.Entry{Key: k.Str(), Value: v}
			return n.evalFrom(i+1, next, in, en, out)
		})
	})
}
