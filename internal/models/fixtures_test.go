package models

import "github.com/diewo77/go-crm/internal/requirements"

func rulesFixture() requirements.Rule {
	return requirements.Rule{
		Name:        "High value",
		TriggerType: requirements.TriggerAmountThreshold,
		Conditions: []requirements.Condition{
			{Field: requirements.FieldTotalAmount, Operator: requirements.OpGreaterThan, Value: requirements.Number(10000)},
		},
		RequiredDocuments: []requirements.RequiredDocument{{TemplateID: "service-agreement", Name: "Service Agreement"}},
		IsMandatory:       true,
		Priority:          50,
		IsActive:          true,
	}
}
