// Package variables implements placeholder detection for document templates:
// scanning Handlebars markup for variable tokens, classifying them against the
// system catalog and stored custom variables, and validating submitted data.
package variables

import (
	"strings"
	"unicode"
)

// Type is the value type of a template variable.
type Type string

const (
	TypeText     Type = "text"
	TypeNumber   Type = "number"
	TypeDate     Type = "date"
	TypeCurrency Type = "currency"
	TypeBoolean  Type = "boolean"
	TypeImage    Type = "image"
)

// Valid reports whether t is one of the known variable types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeNumber, TypeDate, TypeCurrency, TypeBoolean, TypeImage:
		return true
	}
	return false
}

// Category tells whether a variable is provided by the platform or by the user.
type Category string

const (
	CategorySystem Category = "system"
	CategoryCustom Category = "custom"
)

// Validation holds optional constraints on a variable's value.
type Validation struct {
	Pattern   string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	MinLength *int     `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int     `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Min       *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// IsZero reports whether no constraint is set.
func (v *Validation) IsZero() bool {
	return v == nil || (v.Pattern == "" && v.MinLength == nil && v.MaxLength == nil && v.Min == nil && v.Max == nil)
}

// Variable describes one placeholder that a template can reference.
type Variable struct {
	Key          string      `json:"key" yaml:"key"`
	Label        string      `json:"label" yaml:"label"`
	Type         Type        `json:"type" yaml:"type"`
	Required     bool        `json:"required" yaml:"required"`
	Category     Category    `json:"category" yaml:"category"`
	DefaultValue *string     `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Validation   *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
	Description  string      `json:"description,omitempty" yaml:"description,omitempty"`
	Group        string      `json:"group,omitempty" yaml:"group,omitempty"`
}

// LabelFromKey turns "clientName" or "client_name" into "Client Name".
func LabelFromKey(key string) string {
	var b strings.Builder
	prevLower := false
	for i, r := range key {
		switch {
		case r == '_' || r == '-':
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			prevLower = false
			continue
		case unicode.IsUpper(r) && prevLower:
			b.WriteByte(' ')
		}
		if i == 0 || b.Len() == 0 || strings.HasSuffix(b.String(), " ") {
			r = unicode.ToUpper(r)
		}
		b.WriteRune(r)
		prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
	}
	return strings.TrimSpace(b.String())
}
