// Package validation collects field violations as stable codes.
package validation

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
)

// Violations maps a field name to a violation code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has one.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Merge copies other into v, prefixing field names.
func (v Violations) Merge(prefix string, other map[string]string) {
	for f, c := range other {
		v.Add(prefix+f, c)
	}
}

// Error lets Violations travel as an error from services to handlers.
type Error struct {
	Violations Violations
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f := range e.Violations {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fmt.Sprintf("validation failed: %s", strings.Join(fields, ", "))
}

// Err returns nil when v is empty.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return &Error{Violations: v}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func RequiredID(field string, id uint, v Violations) {
	if id == 0 {
		v.Add(field, "required")
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v.Add(field, "must_not_be_negative")
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, "out_of_range")
	}
}

func MaxLen(field, value string, n int, v Violations) {
	if len([]rune(value)) > n {
		v.Add(field, "too_long")
	}
}

// Email accepts an empty value; pair it with Required when mandatory.
func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if a, err := mail.ParseAddress(value); err != nil || a.Address != value {
		v.Add(field, "invalid_email")
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	if !slices.Contains(allowed, value) {
		v.Add(field, "invalid_choice")
	}
}
