package variables

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// DataValidation is the outcome of ValidateVariableData.
type DataValidation struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
}

// ValidateVariableData reports which required keys have no usable value in
// data. A key is missing when absent, nil or a blank string.
func ValidateVariableData(requiredKeys []string, data map[string]any) DataValidation {
	missing := []string{}
	for _, key := range requiredKeys {
		if isMissingValue(data[key]) {
			missing = append(missing, key)
		}
	}
	return DataValidation{Valid: len(missing) == 0, Missing: missing}
}

// isMissingValue is true for nil and the empty string only; whitespace is a
// value.
func isMissingValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return x == ""
	case *string:
		return x == nil || *x == ""
	}
	return false
}

func isEmptyValue(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case *string:
		return x == nil || strings.TrimSpace(*x) == ""
	}
	return false
}

// Violation codes returned by CheckValues.
const (
	ViolationInvalidNumber  = "invalid_number"
	ViolationInvalidDate    = "invalid_date"
	ViolationInvalidBoolean = "invalid_boolean"
	ViolationPattern        = "pattern_mismatch"
	ViolationTooShort       = "too_short"
	ViolationTooLong        = "too_long"
	ViolationBelowMin       = "below_min"
	ViolationAboveMax       = "above_max"
)

var dateLayouts = []string{"2006-01-02", time.RFC3339, "02/01/2006"}

// CheckValues validates provided values against each variable's type and
// constraints. Absent or empty values are skipped; use ValidateVariableData
// for presence. The result maps variable key to a violation code.
func CheckValues(vars []Variable, data map[string]any) map[string]string {
	violations := make(map[string]string)
	for _, v := range vars {
		raw, ok := data[v.Key]
		if !ok || isEmptyValue(raw) {
			continue
		}
		if code := checkValue(v, raw); code != "" {
			violations[v.Key] = code
		}
	}
	return violations
}

func checkValue(v Variable, raw any) string {
	switch v.Type {
	case TypeNumber, TypeCurrency:
		n, ok := toFloat(raw)
		if !ok {
			return ViolationInvalidNumber
		}
		if v.Validation != nil {
			if v.Validation.Min != nil && n < *v.Validation.Min {
				return ViolationBelowMin
			}
			if v.Validation.Max != nil && n > *v.Validation.Max {
				return ViolationAboveMax
			}
		}
		return ""
	case TypeBoolean:
		switch x := raw.(type) {
		case bool:
			return ""
		case string:
			if _, err := strconv.ParseBool(x); err == nil {
				return ""
			}
		}
		return ViolationInvalidBoolean
	case TypeDate:
		switch x := raw.(type) {
		case time.Time:
			return ""
		case string:
			for _, layout := range dateLayouts {
				if _, err := time.Parse(layout, x); err == nil {
					return ""
				}
			}
		}
		return ViolationInvalidDate
	}

	s := fmt.Sprint(raw)
	if v.Validation == nil {
		return ""
	}
	n := utf8.RuneCountInString(s)
	if v.Validation.MinLength != nil && n < *v.Validation.MinLength {
		return ViolationTooShort
	}
	if v.Validation.MaxLength != nil && n > *v.Validation.MaxLength {
		return ViolationTooLong
	}
	if v.Validation.Pattern != "" {
		re, err := regexp.Compile(v.Validation.Pattern)
		// An uncompilable stored pattern cannot be satisfied.
		if err != nil || !re.MatchString(s) {
			return ViolationPattern
		}
	}
	return ""
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}
