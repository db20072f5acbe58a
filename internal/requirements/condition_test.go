package requirements

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewCondition_RejectsBadPairings(t *testing.T) {
	tests := []struct {
		name string
		op   Operator
		v    Value
		ok   bool
	}{
		{"gt number", OpGreaterThan, Number(1), true},
		{"gt string", OpGreaterThan, String("1"), false},
		{"lt bool", OpLessThan, Bool(true), false},
		{"in list", OpIn, Strings("a"), true},
		{"in scalar", OpIn, String("a"), false},
		{"not_in number", OpNotIn, Number(3), false},
		{"contains scalar", OpContains, String("x"), true},
		{"contains list", OpContains, Strings("x"), false},
		{"equals list", OpEquals, Strings("x"), true},
		{"unknown", Operator("like"), String("x"), false},
		{"nested list", OpIn, List(Strings("a")), false},
		{"zero value", OpEquals, Value{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCondition("f", tt.op, tt.v)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}

	_, err := NewCondition(" ", OpEquals, String("x"))
	assert.ErrorIs(t, err, ErrEmptyField)
	_, err = NewCondition("f", "like", String("x"))
	assert.ErrorIs(t, err, ErrUnknownOperator)
}

func TestCondition_Matches(t *testing.T) {
	fields := map[string]Value{
		"name":   String("Acme Trading"),
		"amount": Number(15000),
		"flag":   Bool(true),
		"items":  Strings("business-formation", "audit"),
		"empty":  Strings(),
		"numStr": String("15000"),
	}
	tests := []struct {
		name string
		c    Condition
		want bool
	}{
		{"equals string", Condition{"name", OpEquals, String("Acme Trading")}, true},
		{"equals no coercion", Condition{"numStr", OpEquals, Number(15000)}, false},
		{"equals bool", Condition{"flag", OpEquals, Bool(true)}, true},
		{"equals list order", Condition{"items", OpEquals, Strings("audit", "business-formation")}, false},
		{"equals list", Condition{"items", OpEquals, Strings("business-formation", "audit")}, true},
		{"not_equals", Condition{"name", OpNotEquals, String("Other")}, true},
		{"not_equals kind mismatch", Condition{"amount", OpNotEquals, String("x")}, false},
		{"contains substring", Condition{"name", OpContains, String("Trad")}, true},
		{"contains case sensitive", Condition{"name", OpContains, String("trad")}, false},
		{"contains list element", Condition{"items", OpContains, String("audit")}, true},
		{"contains number in string", Condition{"name", OpContains, Number(1)}, false},
		{"contains on number", Condition{"amount", OpContains, Number(1)}, false},
		{"greater_than", Condition{"amount", OpGreaterThan, Number(10000)}, true},
		{"greater_than equal", Condition{"amount", OpGreaterThan, Number(15000)}, false},
		{"greater_than string field", Condition{"numStr", OpGreaterThan, Number(1)}, false},
		{"less_than", Condition{"amount", OpLessThan, Number(20000)}, true},
		{"in scalar", Condition{"name", OpIn, Strings("Acme Trading", "x")}, true},
		{"in list any", Condition{"items", OpIn, Strings("audit")}, true},
		{"in list none", Condition{"items", OpIn, Strings("tax")}, false},
		{"in kind mismatch", Condition{"amount", OpIn, Strings("15000")}, false},
		{"not_in scalar", Condition{"name", OpNotIn, Strings("x")}, true},
		{"not_in list", Condition{"items", OpNotIn, Strings("audit")}, false},
		{"not_in empty list", Condition{"empty", OpNotIn, Strings("audit")}, true},
		{"in empty list", Condition{"empty", OpIn, Strings("audit")}, false},
		{"unknown field", Condition{"missing", OpNotIn, Strings("a")}, false},
		{"malformed value", Condition{"amount", OpGreaterThan, String("1")}, false},
		{"unknown operator", Condition{"name", "starts_with", String("A")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Matches(fields))
		})
	}
}

func TestCondition_DecodeJSONAndYAML(t *testing.T) {
	var c Condition
	require.NoError(t, json.Unmarshal([]byte(`{"field":"totalAmount","operator":"greater_than","value":10000}`), &c))
	assert.Equal(t, KindNumber, c.Value.Kind())
	assert.NoError(t, c.Validate())

	require.NoError(t, json.Unmarshal([]byte(`{"field":"serviceId","operator":"in","value":["a",1,true]}`), &c))
	items, ok := c.Value.Items()
	require.True(t, ok)
	assert.Equal(t, []Value{String("a"), Number(1), Bool(true)}, items)

	assert.Error(t, json.Unmarshal([]byte(`{"field":"x","operator":"in","value":[["a"]]}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"field":"x","operator":"in","value":{"a":1}}`), &c))

	var y Condition
	require.NoError(t, yaml.Unmarshal([]byte("field: clientType\noperator: equals\nvalue: business\n"), &y))
	assert.True(t, y.Value.Equal(String("business")))

	out, err := json.Marshal(Condition{Field: "f", Operator: OpIn, Value: Strings("a", "b")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"field":"f","operator":"in","value":["a","b"]}`, string(out))
}
