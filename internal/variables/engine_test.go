package variables

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]Variable{
		{Key: "currentDate", Type: TypeDate},
		{Key: "orderNumber", Type: TypeText, Required: true},
		{Key: "totalAmount", Type: TypeCurrency, Required: true},
	})
	require.NoError(t, err)
	return c
}

func TestAnalyze_UnknownKeysAreOptionalCustomText(t *testing.T) {
	e := NewEngine(testCatalog(t))

	a := e.Analyze("Hello {{clientName}}, total due {{amount}}", nil)

	require.Len(t, a.Variables, 2)
	assert.Equal(t, "clientName", a.Variables[0].Key)
	assert.Equal(t, "amount", a.Variables[1].Key)
	for _, v := range a.Variables {
		assert.Equal(t, CategoryCustom, v.Category)
		assert.Equal(t, TypeText, v.Type)
		assert.False(t, v.Required)
		assert.True(t, v.Unresolved)
	}
	assert.Equal(t, 0, a.RequiredCount)
	assert.Equal(t, 2, a.CustomCount)
	assert.Equal(t, 0, a.SystemCount)
	assert.Equal(t, 2, a.UnresolvedCount)
}

func TestAnalyze_CatalogWins(t *testing.T) {
	e := NewEngine(testCatalog(t))
	existing := []Variable{{Key: "totalAmount", Type: TypeText, Required: false}}

	a := e.Analyze("{{orderNumber}} {{totalAmount}} {{currentDate}}", existing)

	require.Len(t, a.Variables, 3)
	total := a.Variables[1]
	assert.Equal(t, CategorySystem, total.Category)
	assert.Equal(t, TypeCurrency, total.Type)
	assert.True(t, total.Required)
	assert.Equal(t, 3, a.SystemCount)
	assert.Equal(t, 2, a.RequiredCount)
	assert.Equal(t, []string{"orderNumber", "totalAmount"}, a.RequiredKeys())
}

func TestAnalyze_ExistingThenExtra(t *testing.T) {
	e := NewEngine(testCatalog(t))
	existing := []Variable{{Key: "poNumber", Type: TypeText, Required: true, Label: "PO"}}
	extra := []Variable{
		{Key: "poNumber", Type: TypeNumber},
		{Key: "deliveryDate", Type: TypeDate, Required: true},
	}

	a := e.Analyze("{{poNumber}} {{deliveryDate}} {{note}}", existing, extra)

	require.Len(t, a.Variables, 3)
	assert.Equal(t, TypeText, a.Variables[0].Type)
	assert.Equal(t, "PO", a.Variables[0].Label)
	assert.False(t, a.Variables[0].Unresolved)
	assert.Equal(t, TypeDate, a.Variables[1].Type)
	assert.Equal(t, CategoryCustom, a.Variables[1].Category)
	assert.True(t, a.Variables[2].Unresolved)
	assert.Equal(t, 2, a.RequiredCount)
	assert.Equal(t, 1, a.UnresolvedCount)
	assert.Len(t, a.CustomVariables(), 3)
}

func TestAnalyze_DoesNotMutateInputs(t *testing.T) {
	e := NewEngine(testCatalog(t))
	existing := []Variable{{Key: "x"}}

	e.Analyze("{{x}}", existing)

	assert.Equal(t, Category(""), existing[0].Category)
	assert.Equal(t, Type(""), existing[0].Type)
}

func TestAnalyze_Empty(t *testing.T) {
	a := NewEngine(testCatalog(t)).Analyze("", nil)
	assert.NotNil(t, a.Variables)
	assert.Empty(t, a.Variables)
	assert.Zero(t, a.RequiredCount)
}

func TestMerge_FirstSeenWins(t *testing.T) {
	e := NewEngine(testCatalog(t))
	a := e.Analyze("{{shared}} {{onlyA}}", []Variable{{Key: "shared", Type: TypeNumber, Required: true}})
	b := e.Analyze("{{shared}} {{onlyB}} {{orderNumber}}", []Variable{{Key: "shared", Type: TypeDate}})

	m := Merge(a, b)

	require.Len(t, m.Variables, 4)
	assert.Equal(t, []string{"shared", "onlyA", "onlyB", "orderNumber"}, detectedKeys(m))
	assert.Equal(t, TypeNumber, m.Variables[0].Type)
	assert.True(t, m.Variables[0].Required)

	// counts come from the merged set, not a sum of inputs
	assert.Equal(t, 1, m.SystemCount)
	assert.Equal(t, 3, m.CustomCount)
	assert.Equal(t, 2, m.RequiredCount)
	assert.Equal(t, 2, m.UnresolvedCount)

	require.NotEmpty(t, m.Conflicts)
	assert.Contains(t, m.Conflicts, Conflict{Key: "shared", Field: "type", Kept: "number", Dropped: "date"})
}

func TestMerge_NoDoubleCount(t *testing.T) {
	e := NewEngine(testCatalog(t))
	a := e.Analyze("{{orderNumber}}", nil)

	m := Merge(a, a, a)

	assert.Len(t, m.Variables, 1)
	assert.Equal(t, 1, m.RequiredCount)
	assert.Empty(t, m.Conflicts)
}

func TestMerge_ConditionalUsage(t *testing.T) {
	e := NewEngine(testCatalog(t))
	a := e.Analyze("{{#if x}}{{y}}{{/if}}", nil)
	b := e.Analyze("{{y}}", nil)

	m := Merge(a, b)

	assert.True(t, m.Variables[0].Conditional)
	assert.False(t, m.Variables[1].Conditional)
}

func TestMerge_None(t *testing.T) {
	m := Merge()
	assert.NotNil(t, m.Variables)
	assert.Empty(t, m.Variables)
}

func detectedKeys(a Analysis) []string {
	keys := make([]string, len(a.Variables))
	for i, v := range a.Variables {
		keys[i] = v.Key
	}
	return keys
}
