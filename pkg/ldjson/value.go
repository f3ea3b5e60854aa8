// Package ldjson models structured-data payloads of arbitrary nested shape
// as a tagged recursive value, so analyses can traverse them without dynamic
// type assertions scattered through the code.
package ldjson

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind discriminates the shape of a Value.
type Kind int

const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

// Value is one node of a decoded JSON-LD document.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	a    []Value
	o    map[string]Value
}

// Kind reports the shape of the value.
func (v Value) Kind() Kind { return v.kind }

// Str returns the string payload. Zero value for non-strings.
func (v Value) Str() string { return v.s }

// Num returns the numeric payload. Zero value for non-numbers.
func (v Value) Num() float64 { return v.n }

// BoolVal returns the boolean payload. Zero value for non-booleans.
func (v Value) BoolVal() bool { return v.b }

// Items returns the elements of an array value.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	return v.a
}

// Field looks up a named member of an object value.
func (v Value) Field(name string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	m, ok := v.o[name]
	return m, ok
}

// Keys returns the member names of an object value in sorted order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, 0, len(v.o))
	for k := range v.o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Scalar renders null/bool/number/string values as display text.
// Arrays and objects fall back to canonical JSON.
func (v Value) Scalar() string {
	switch v.kind {
	case Null:
		return "null"
	case Bool:
		return strconv.FormatBool(v.b)
	case Number:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case String:
		return v.s
	default:
		return v.Canonical()
	}
}

// Walk applies fn to v and every nested value, depth first.
func (v Value) Walk(fn func(Value)) {
	fn(v)
	switch v.kind {
	case Array:
		for _, item := range v.a {
			item.Walk(fn)
		}
	case Object:
		for _, key := range v.Keys() {
			v.o[key].Walk(fn)
		}
	}
}

// WalkObjects applies fn to every object value reachable from v, passing the
// object's members keyed by name.
func (v Value) WalkObjects(fn func(map[string]Value)) {
	v.Walk(func(node Value) {
		if node.kind == Object {
			fn(node.o)
		}
	})
}

// Canonical serialises the value as JSON with object keys sorted, suitable
// for text-similarity comparison of structurally equal documents.
func (v Value) Canonical() string {
	raw, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(raw)
}

// Of builds Values for literals, mostly useful in tests.
func Of(x any) Value { return fromAny(x) }

// ObjectOf builds an object value from named members.
func ObjectOf(members map[string]Value) Value {
	o := make(map[string]Value, len(members))
	for k, m := range members {
		o[k] = m
	}
	return Value{kind: Object, o: o}
}

// ArrayOf builds an array value.
func ArrayOf(items ...Value) Value {
	return Value{kind: Array, a: items}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	// encoding/json emits map keys in sorted order, which is exactly the
	// canonical form the grouper relies on.
	return json.Marshal(v.toAny())
}

func fromAny(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return Value{kind: Null}
	case bool:
		return Value{kind: Bool, b: x}
	case float64:
		return Value{kind: Number, n: x}
	case int:
		return Value{kind: Number, n: float64(x)}
	case string:
		return Value{kind: String, s: x}
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			items[i] = fromAny(item)
		}
		return Value{kind: Array, a: items}
	case map[string]any:
		members := make(map[string]Value, len(x))
		for k, m := range x {
			members[k] = fromAny(m)
		}
		return Value{kind: Object, o: members}
	default:
		return Value{kind: String, s: fmt.Sprint(x)}
	}
}

func (v Value) toAny() any {
	switch v.kind {
	case Null:
		return nil
	case Bool:
		return v.b
	case Number:
		return v.n
	case String:
		return v.s
	case Array:
		items := make([]any, len(v.a))
		for i, item := range v.a {
			items[i] = item.toAny()
		}
		return items
	case Object:
		members := make(map[string]any, len(v.o))
		for k, m := range v.o {
			members[k] = m.toAny()
		}
		return members
	default:
		return nil
	}
}
