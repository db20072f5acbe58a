package requirements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func highValueRule() Rule {
	return Rule{
		ID:          2,
		Name:        "High value",
		TriggerType: TriggerAmountThreshold,
		Conditions:  []Condition{{Field: FieldTotalAmount, Operator: OpGreaterThan, Value: Number(10000)}},
		RequiredDocuments: []RequiredDocument{
			{TemplateID: "service-agreement", Name: "Service Agreement"},
		},
		IsMandatory: true,
		Priority:    50,
		IsActive:    true,
	}
}

func TestEvaluate_AmountThreshold(t *testing.T) {
	rules := []Rule{highValueRule()}

	res := Evaluate(OrderContext{TotalAmount: 15000}, rules)
	require.Len(t, res.MatchedRules, 1)
	assert.Equal(t, "High value", res.MatchedRules[0].Name)
	require.Len(t, res.RequiredDocuments, 1)
	assert.Equal(t, ResolvedDocument{
		TemplateID: "service-agreement",
		Name:       "Service Agreement",
		Mandatory:  true,
		RuleID:     2,
		RuleName:   "High value",
	}, res.RequiredDocuments[0])

	res = Evaluate(OrderContext{TotalAmount: 5000}, rules)
	assert.Empty(t, res.MatchedRules)
	assert.NotNil(t, res.RequiredDocuments)
	assert.Empty(t, res.RequiredDocuments)
}

func TestEvaluate_DefaultBusinessFormation(t *testing.T) {
	ctx := OrderContext{SelectedItems: []SelectedItem{{ItemID: "business-formation"}}}
	res := Evaluate(ctx, DefaultRules())

	require.Len(t, res.MatchedRules, 1)
	assert.Equal(t, "Business Formation Documents", res.MatchedRules[0].Name)
	require.Len(t, res.RequiredDocuments, 2)
	for _, d := range res.RequiredDocuments {
		assert.True(t, d.Mandatory)
	}
	assert.Equal(t, []string{"power-of-attorney", "statement-of-intent"}, res.Slugs())
}

func TestEvaluate_KindsRestrictFields(t *testing.T) {
	rules := DefaultRules()

	res := Evaluate(OrderContext{SelectedItems: []SelectedItem{{ItemID: "business-formation", Kind: ItemKindProduct}}}, rules)
	assert.Empty(t, res.MatchedRules)

	res = Evaluate(OrderContext{SelectedItems: []SelectedItem{{ItemID: "company-registration", Kind: ItemKindService}}}, rules)
	assert.Len(t, res.MatchedRules, 1)
}

func TestEvaluate_PriorityOrderAndNoDedupe(t *testing.T) {
	low := highValueRule()
	low.ID, low.Name, low.Priority = 1, "low", 1
	mid1 := highValueRule()
	mid1.ID, mid1.Name, mid1.Priority = 3, "mid-a", 10
	mid2 := highValueRule()
	mid2.ID, mid2.Name, mid2.Priority = 4, "mid-b", 10
	top := highValueRule()
	top.ID, top.Name, top.Priority = 5, "top", 99
	inactive := highValueRule()
	inactive.Name, inactive.IsActive, inactive.Priority = "off", false, 1000

	rules := []Rule{low, mid1, inactive, mid2, top}
	res := Evaluate(OrderContext{TotalAmount: 20000}, rules)

	var names []string
	for _, r := range res.MatchedRules {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"top", "mid-a", "mid-b", "low"}, names)
	assert.Len(t, res.RequiredDocuments, 4)
	assert.Len(t, res.MandatoryDocuments(), 1)
	assert.Equal(t, []string{"service-agreement"}, res.Slugs())

	// input untouched
	assert.Equal(t, "low", rules[0].Name)
}

func TestEvaluate_DocumentMandatoryOverride(t *testing.T) {
	optional := false
	rule := highValueRule()
	rule.RequiredDocuments = append(rule.RequiredDocuments, RequiredDocument{TemplateID: "nda", Name: "NDA", IsMandatory: &optional})

	res := Evaluate(OrderContext{TotalAmount: 10001}, []Rule{rule})
	require.Len(t, res.RequiredDocuments, 2)
	assert.True(t, res.RequiredDocuments[0].Mandatory)
	assert.False(t, res.RequiredDocuments[1].Mandatory)
	require.Len(t, res.MandatoryDocuments(), 1)
	assert.Equal(t, "service-agreement", res.MandatoryDocuments()[0].TemplateID)
}

func TestEvaluate_MalformedRulesNeverMatch(t *testing.T) {
	malformed := highValueRule()
	malformed.Conditions = []Condition{{Field: FieldTotalAmount, Operator: OpGreaterThan, Value: String("10000")}}

	res := Evaluate(OrderContext{TotalAmount: 50000}, []Rule{malformed})
	assert.Empty(t, res.MatchedRules)
}

func TestEvaluate_NoConditionsMatchesEveryOrder(t *testing.T) {
	always := highValueRule()
	always.TriggerType = TriggerProductSelected
	always.Conditions = nil

	res := Evaluate(OrderContext{}, []Rule{always})
	require.Len(t, res.MatchedRules, 1)
	require.Len(t, res.RequiredDocuments, 1)
	assert.Equal(t, "service-agreement", res.RequiredDocuments[0].TemplateID)

	// Saving such a rule is still refused.
	assert.Contains(t, always.Validate(), "triggerConditions")
}

func TestEvaluate_CustomExpression(t *testing.T) {
	custom := Rule{
		ID:                9,
		Name:              "Business clients over 5000",
		TriggerType:       TriggerCustom,
		Expression:        `clientType == "business" && totalAmount > 5000 && "audit" in serviceId`,
		RequiredDocuments: []RequiredDocument{{TemplateID: "kyc", Name: "KYC"}},
		IsActive:          true,
	}
	ctx := OrderContext{
		SelectedItems: []SelectedItem{{ItemID: "audit", Kind: ItemKindService}},
		TotalAmount:   6000,
		ClientType:    "business",
	}
	assert.True(t, Matches(custom, ctx))

	ctx.ClientType = "individual"
	assert.False(t, Matches(custom, ctx))

	broken := custom
	broken.Expression = `totalAmount >`
	assert.False(t, Matches(broken, ctx))

	notBool := custom
	notBool.Expression = `totalAmount + 1`
	assert.False(t, Matches(notBool, ctx))

	// conditions and expression are ANDed
	withCond := custom
	withCond.Expression = `true`
	withCond.Conditions = []Condition{{Field: FieldCurrency, Operator: OpEquals, Value: String("SAR")}}
	assert.False(t, Matches(withCond, ctx))
	ctx.Currency = "SAR"
	assert.True(t, Matches(withCond, ctx))
}

func TestOrderContext_Fields(t *testing.T) {
	ctx := OrderContext{
		SelectedItems: []SelectedItem{
			{ItemID: "p1", Kind: ItemKindProduct},
			{ItemID: "s1", Kind: ItemKindService},
			{ItemID: "x1"},
		},
		TotalAmount: 42,
		Extra: map[string]Value{
			"region":      String("riyadh"),
			"totalAmount": Number(1),
		},
	}
	f := ctx.Fields()
	assert.True(t, f[FieldItemID].Equal(Strings("p1", "s1", "x1")))
	assert.True(t, f[FieldServiceID].Equal(Strings("s1", "x1")))
	assert.True(t, f[FieldProductID].Equal(Strings("p1", "x1")))
	assert.True(t, f[FieldTotalAmount].Equal(Number(42)))
	assert.True(t, f[FieldItemCount].Equal(Number(3)))
	assert.True(t, f["region"].Equal(String("riyadh")))
	_, ok := f[FieldClientType]
	assert.False(t, ok)
}

func TestRule_Validate(t *testing.T) {
	assert.Empty(t, highValueRule().Validate())

	bad := Rule{TriggerType: "whenever"}
	errs := bad.Validate()
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "triggerType")
	assert.Contains(t, errs, "requiredDocuments")
	assert.Contains(t, errs, "triggerConditions")

	custom := Rule{Name: "c", TriggerType: TriggerCustom, RequiredDocuments: []RequiredDocument{{TemplateID: "x"}}}
	assert.Contains(t, custom.Validate(), "expression")
	custom.Expression = "totalAmount > "
	assert.Contains(t, custom.Validate(), "expression")
	custom.Expression = "region == 'north'"
	assert.Empty(t, custom.Validate())
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules([]byte(`
rules:
  - name: off
    triggerType: amount_threshold
    isActive: false
    conditions: [{field: totalAmount, operator: less_than, value: 5}]
    requiredDocuments: [{templateId: a, name: A}]
  - name: on
    triggerType: amount_threshold
    conditions: [{field: totalAmount, operator: less_than, value: 5}]
    requiredDocuments: [{templateId: a, name: A, isMandatory: true}]
`))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.False(t, rules[0].IsActive)
	assert.True(t, rules[1].IsActive)
	require.NotNil(t, rules[1].RequiredDocuments[0].IsMandatory)

	_, err = ParseRules([]byte(`rules: [{name: x, triggerType: amount_threshold, conditions: [{field: totalAmount, operator: greater_than, value: "1"}], requiredDocuments: [{templateId: a}]}]`))
	assert.Error(t, err)

	defaults := DefaultRules()
	require.Len(t, defaults, 2)
	assert.Equal(t, 100, defaults[0].Priority)
	assert.True(t, defaults[0].IsActive)
}
