// Package jsontree models JSON-like data as a small tagged variant and
// provides schema validation and structural diffing over it. Keeping the
// walkers on the tagged form (rather than native map recursion) keeps the
// object/array/scalar handling in one place.
package jsontree

import (
	"encoding/json"
	"sort"
)

// Kind tags a Value node.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// Value is one node of a JSON-like tree.
type Value struct {
	Kind Kind
	Bool bool
	Num  float64
	Str  string
	Arr  []Value
	Obj  map[string]Value
}

// From converts an arbitrary decoded JSON value (maps, slices, scalars) into
// the tagged form. Unrecognized Go types are rendered through encoding/json
// first so that struct inputs behave like their wire representation.
func From(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{Kind: KindNull}
	case bool:
		return Value{Kind: KindBool, Bool: t}
	case float64:
		return Value{Kind: KindNumber, Num: t}
	case float32:
		return Value{Kind: KindNumber, Num: float64(t)}
	case int:
		return Value{Kind: KindNumber, Num: float64(t)}
	case int64:
		return Value{Kind: KindNumber, Num: float64(t)}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{Kind: KindString, Str: t.String()}
		}
		return Value{Kind: KindNumber, Num: f}
	case string:
		return Value{Kind: KindString, Str: t}
	case []any:
		arr := make([]Value, len(t))
		for i, e := range t {
			arr[i] = From(e)
		}
		return Value{Kind: KindArray, Arr: arr}
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			obj[k] = From(e)
		}
		return Value{Kind: KindObject, Obj: obj}
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return Value{Kind: KindNull}
		}
		var decoded any
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return Value{Kind: KindNull}
		}
		return From(decoded)
	}
}

// Interface converts the tagged form back into plain Go values.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num
	case KindString:
		return v.Str
	case KindArray:
		out := make([]any, len(v.Arr))
		for i, e := range v.Arr {
			out[i] = e.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Obj))
		for k, e := range v.Obj {
			out[k] = e.Interface()
		}
		return out
	default:
		return nil
	}
}

// Equal reports deep equality of two values. Object key order is irrelevant;
// array order is significant.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBool:
		return a.Bool == b.Bool
	case KindNumber:
		return a.Num == b.Num
	case KindString:
		return a.Str == b.Str
	case KindArray:
		if len(a.Arr) != len(b.Arr) {
			return false
		}
		for i := range a.Arr {
			if !Equal(a.Arr[i], b.Arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Obj) != len(b.Obj) {
			return false
		}
		for k, av := range a.Obj {
			bv, ok := b.Obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// sortedKeys returns object keys in deterministic order so that walkers emit
// stable output.
func sortedKeys(obj map[string]Value) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
