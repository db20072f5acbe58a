package services

import (
	"errors"
	"testing"

	"github.com/diewo77/go-crm/internal/requirements"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleService_CRUD(t *testing.T) {
	f := newFixture(t)
	svc := NewRuleService(f.db)

	_, err := svc.Create(f.ctx, f.company, RuleInput{Rule: requirements.Rule{TriggerType: "whenever"}})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "required", verr.Violations["name"])
	assert.Equal(t, "invalid", verr.Violations["triggerType"])
	assert.Equal(t, "required", verr.Violations["requiredDocuments"])

	rule, err := svc.Create(f.ctx, f.company, RuleInput{Rule: requirements.Rule{
		Name:        "Individuals sign a waiver",
		TriggerType: requirements.TriggerCustom,
		Conditions: []requirements.Condition{
			{Field: "clientType", Operator: requirements.OpEquals, Value: requirements.String("individual")},
		},
		RequiredDocuments: []requirements.RequiredDocument{{TemplateID: "waiver", Name: "Waiver"}},
		Priority:          200,
	}})
	require.NoError(t, err)
	assert.True(t, rule.IsActive)

	rules, err := svc.List(f.ctx, f.company, false)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, rule.ID, rules[0].ID)

	def := rule.Rule()
	def.Priority = 10
	updated, err := svc.Update(f.ctx, f.company, rule.ID, RuleInput{Rule: def, IsActive: ptr(false)})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, 10, updated.Priority)

	active, err := svc.List(f.ctx, f.company, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	require.NoError(t, svc.Delete(f.ctx, f.company, rule.ID))
	assert.ErrorIs(t, svc.Delete(f.ctx, f.company, rule.ID), ErrNotFound)
	_, err = svc.Get(f.ctx, f.company+1, rules[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRuleService_Evaluate(t *testing.T) {
	f := newFixture(t)
	svc := NewRuleService(f.db)

	small, err := svc.Evaluate(f.ctx, f.company, requirements.OrderContext{TotalAmount: 5000})
	require.NoError(t, err)
	assert.Empty(t, small.MatchedRules)

	large, err := svc.Evaluate(f.ctx, f.company, requirements.OrderContext{TotalAmount: 15000})
	require.NoError(t, err)
	require.Len(t, large.MatchedRules, 1)
	assert.Equal(t, "High Value Order Agreement", large.MatchedRules[0].Name)
	assert.Equal(t, []string{"service-agreement"}, large.Slugs())
}
