package requirements

import (
	"errors"
	"fmt"
	"strings"
)

// Operator is a condition comparison.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
)

// Operators lists every supported operator.
var Operators = []Operator{OpEquals, OpNotEquals, OpContains, OpGreaterThan, OpLessThan, OpIn, OpNotIn}

// Condition compares one order field against a value.
type Condition struct {
	Field    string   `json:"field" yaml:"field"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    Value    `json:"value" yaml:"value"`
}

var (
	ErrEmptyField      = errors.New("condition field is required")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrInvalidValue    = errors.New("condition value must be a scalar or a list of scalars")
)

// NewCondition builds a condition, rejecting operator/value pairings that can
// never type-check.
func NewCondition(field string, op Operator, v Value) (Condition, error) {
	c := Condition{Field: field, Operator: op, Value: v}
	if err := c.Validate(); err != nil {
		return Condition{}, err
	}
	return c, nil
}

// Validate checks the operator/value pairing.
func (c Condition) Validate() error {
	if strings.TrimSpace(c.Field) == "" {
		return ErrEmptyField
	}
	if !c.Value.Valid() {
		return ErrInvalidValue
	}
	switch c.Operator {
	case OpEquals, OpNotEquals:
		return nil
	case OpContains:
		if !c.Value.IsScalar() {
			return fmt.Errorf("%s requires a scalar value, got %s", c.Operator, c.Value.Kind())
		}
	case OpGreaterThan, OpLessThan:
		if c.Value.Kind() != KindNumber {
			return fmt.Errorf("%s requires a number value, got %s", c.Operator, c.Value.Kind())
		}
	case OpIn, OpNotIn:
		if c.Value.Kind() != KindList {
			return fmt.Errorf("%s requires a list value, got %s", c.Operator, c.Value.Kind())
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownOperator, c.Operator)
	}
	return nil
}

// Matches evaluates the condition against fields. Malformed conditions,
// unknown fields and kind mismatches evaluate to false.
func (c Condition) Matches(fields map[string]Value) bool {
	if c.Validate() != nil {
		return false
	}
	fv, ok := fields[c.Field]
	if !ok || !fv.Valid() {
		return false
	}

	switch c.Operator {
	case OpEquals:
		return fv.Equal(c.Value)
	case OpNotEquals:
		if fv.Kind() != c.Value.Kind() {
			return false
		}
		return !fv.Equal(c.Value)
	case OpContains:
		if s, ok := fv.Str(); ok {
			sub, isStr := c.Value.Str()
			return isStr && strings.Contains(s, sub)
		}
		if fv.Kind() == KindList {
			return fv.contains(c.Value)
		}
		return false
	case OpGreaterThan, OpLessThan:
		n, ok := fv.Num()
		if !ok {
			return false
		}
		want, _ := c.Value.Num()
		if c.Operator == OpGreaterThan {
			return n > want
		}
		return n < want
	case OpIn:
		if fv.Kind() == KindList {
			for _, item := range fv.list {
				if c.Value.contains(item) {
					return true
				}
			}
			return false
		}
		return c.Value.contains(fv)
	case OpNotIn:
		if fv.Kind() == KindList {
			for _, item := range fv.list {
				if c.Value.contains(item) {
					return false
				}
			}
			return true
		}
		return !c.Value.contains(fv)
	}
	return false
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %s", c.Field, c.Operator, c.Value)
}
