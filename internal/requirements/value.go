package requirements

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Kind discriminates the variants a condition value can hold.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
	KindList   Kind = "list"
)

// Value is a tagged union of string, number, bool or a list of scalars.
// The zero Value has no kind and never compares equal to anything.
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
	list []Value
}

func String(s string) Value { return Value{kind: KindString, str: s} }
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List builds a list value. Nested lists make the value invalid.
func List(items ...Value) Value {
	cp := make([]Value, len(items))
	copy(cp, items)
	return Value{kind: KindList, list: cp}
}

// Strings is a shorthand for a list of string values.
func Strings(items ...string) Value {
	vs := make([]Value, len(items))
	for i, s := range items {
		vs[i] = String(s)
	}
	return Value{kind: KindList, list: vs}
}

func (v Value) Kind() Kind { return v.kind }

// IsScalar reports whether v holds a string, number or bool.
func (v Value) IsScalar() bool {
	return v.kind == KindString || v.kind == KindNumber || v.kind == KindBool
}

// Valid reports whether v holds a scalar or a list of scalars.
func (v Value) Valid() bool {
	if v.kind != KindList {
		return v.IsScalar()
	}
	for _, item := range v.list {
		if !item.IsScalar() {
			return false
		}
	}
	return true
}

func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }
func (v Value) Num() (float64, bool) { return v.num, v.kind == KindNumber }
func (v Value) BoolVal() (bool, bool) { return v.b, v.kind == KindBool }
func (v Value) Items() ([]Value, bool) { return v.list, v.kind == KindList }

// Equal is strict: kinds must match and no coercion is applied.
func (v Value) Equal(o Value) bool {
	if v.kind == "" || v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == o.str
	case KindNumber:
		return v.num == o.num
	case KindBool:
		return v.b == o.b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// contains reports whether a list value holds an element equal to item.
func (v Value) contains(item Value) bool {
	for _, x := range v.list {
		if x.Equal(item) {
			return true
		}
	}
	return false
}

// Native converts v to plain Go values for expression environments.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, x := range v.list {
			out[i] = x.Native()
		}
		return out
	}
	return nil
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.str)
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindList:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, x := range v.list {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(x.String())
		}
		buf.WriteByte(']')
		return buf.String()
	}
	return "<invalid>"
}

// FromNative converts decoded JSON/YAML data into a Value.
func FromNative(x any) (Value, error) {
	switch t := x.(type) {
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case uint:
		return Number(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(f), nil
	case []any:
		items := make([]Value, 0, len(t))
		for _, e := range t {
			iv, err := FromNative(e)
			if err != nil {
				return Value{}, err
			}
			if !iv.IsScalar() {
				return Value{}, fmt.Errorf("list values may only contain scalars")
			}
			items = append(items, iv)
		}
		return Value{kind: KindList, list: items}, nil
	case []string:
		return Strings(t...), nil
	case nil:
		return Value{}, nil
	}
	return Value{}, fmt.Errorf("unsupported value type %T", x)
}

// MarshalJSON encodes v as its natural JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// UnmarshalJSON decodes a JSON scalar or array of scalars.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return err
	}
	parsed, err := FromNative(x)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// UnmarshalYAML decodes a YAML scalar or sequence of scalars.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	var x any
	if err := node.Decode(&x); err != nil {
		return err
	}
	parsed, err := FromNative(x)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}

// MarshalYAML encodes v as its natural YAML form.
func (v Value) MarshalYAML() (any, error) {
	return v.Native(), nil
}
