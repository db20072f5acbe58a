// Package requirements evaluates document requirement rules against an order.
// Evaluation is pure and fails closed: anything malformed simply does not match.
package requirements

import (
	"fmt"
	"strings"
)

// TriggerType classifies what a rule reacts to.
type TriggerType string

const (
	TriggerProductSelected TriggerType = "product_selected"
	TriggerServiceSelected TriggerType = "service_selected"
	TriggerAmountThreshold TriggerType = "amount_threshold"
	TriggerCustom          TriggerType = "custom"
)

// Valid reports whether t is a known trigger type.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerProductSelected, TriggerServiceSelected, TriggerAmountThreshold, TriggerCustom:
		return true
	}
	return false
}

// RequiredDocument points at a document template by slug.
type RequiredDocument struct {
	TemplateID  string `json:"templateId" yaml:"templateId"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// IsMandatory overrides the rule's flag when set.
	IsMandatory *bool `json:"isMandatory,omitempty" yaml:"isMandatory,omitempty"`
}

// Rule requires documents when all of its conditions hold.
type Rule struct {
	ID                uint               `json:"id" yaml:"id,omitempty"`
	Name              string             `json:"name" yaml:"name"`
	Description       string             `json:"description,omitempty" yaml:"description,omitempty"`
	TriggerType       TriggerType        `json:"triggerType" yaml:"triggerType"`
	Conditions        []Condition        `json:"triggerConditions" yaml:"conditions"`
	RequiredDocuments []RequiredDocument `json:"requiredDocuments" yaml:"requiredDocuments"`
	IsMandatory       bool               `json:"isMandatory" yaml:"isMandatory"`
	Priority          int                `json:"priority" yaml:"priority"`
	IsActive          bool               `json:"isActive" yaml:"-"`
	// Expression is an expr-lang boolean evaluated for custom rules.
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// Validate reports structural problems that would make the rule never match.
// It is used when rules are saved; evaluation never depends on it.
func (r Rule) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "required"
	}
	if !r.TriggerType.Valid() {
		errs["triggerType"] = "invalid"
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			errs[fmt.Sprintf("triggerConditions[%d]", i)] = err.Error()
		}
	}
	if len(r.RequiredDocuments) == 0 {
		errs["requiredDocuments"] = "required"
	}
	for i, d := range r.RequiredDocuments {
		if strings.TrimSpace(d.TemplateID) == "" {
			errs[fmt.Sprintf("requiredDocuments[%d].templateId", i)] = "required"
		}
	}
	if r.TriggerType == TriggerCustom {
		if strings.TrimSpace(r.Expression) == "" && len(r.Conditions) == 0 {
			errs["expression"] = "required"
		} else if r.Expression != "" {
			if err := compileExpression(r.Expression, OrderContext{}.Env()); err != nil {
				errs["expression"] = err.Error()
			}
		}
	} else if len(r.Conditions) == 0 {
		errs["triggerConditions"] = "required"
	}
	return errs
}
