package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateVariableData(t *testing.T) {
	got := ValidateVariableData([]string{"a", "b"}, map[string]any{"a": "x"})
	assert.Equal(t, DataValidation{Valid: false, Missing: []string{"b"}}, got)

	got = ValidateVariableData([]string{"a", "b", "c", "d"}, map[string]any{
		"a": "",
		"b": nil,
		"c": "   ",
		"d": 0,
	})
	assert.False(t, got.Valid)
	assert.Equal(t, []string{"a", "b"}, got.Missing)

	var blank *string
	spaces := "  "
	got = ValidateVariableData([]string{"p", "q"}, map[string]any{"p": blank, "q": &spaces})
	assert.Equal(t, []string{"p"}, got.Missing)

	got = ValidateVariableData(nil, nil)
	assert.True(t, got.Valid)
	assert.Empty(t, got.Missing)

	got = ValidateVariableData([]string{"flag"}, map[string]any{"flag": false})
	assert.True(t, got.Valid)
}

func TestCheckValues(t *testing.T) {
	minLen, maxLen := 2, 5
	lo, hi := 1.0, 100.0
	vars := []Variable{
		{Key: "qty", Type: TypeNumber, Validation: &Validation{Min: &lo, Max: &hi}},
		{Key: "price", Type: TypeCurrency},
		{Key: "due", Type: TypeDate},
		{Key: "vip", Type: TypeBoolean},
		{Key: "code", Type: TypeText, Validation: &Validation{MinLength: &minLen, MaxLength: &maxLen, Pattern: "^[A-Z]+$"}},
		{Key: "skipped", Type: TypeNumber},
	}

	got := CheckValues(vars, map[string]any{
		"qty":     "250",
		"price":   "12,5",
		"due":     "2025-13-40",
		"vip":     "maybe",
		"code":    "abc",
		"skipped": "",
	})
	assert.Equal(t, map[string]string{
		"qty":   ViolationAboveMax,
		"price": ViolationInvalidNumber,
		"due":   ViolationInvalidDate,
		"vip":   ViolationInvalidBoolean,
		"code":  ViolationPattern,
	}, got)

	got = CheckValues(vars, map[string]any{
		"qty":   42.0,
		"price": "19.99",
		"due":   "2025-06-30",
		"vip":   true,
		"code":  "ABCD",
	})
	assert.Empty(t, got)

	got = CheckValues(vars, map[string]any{"code": "ABCDEFG", "qty": 0})
	assert.Equal(t, ViolationTooLong, got["code"])
	assert.Equal(t, ViolationBelowMin, got["qty"])
}
