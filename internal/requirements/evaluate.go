package requirements

import (
	"sort"
	"strings"

	"github.com/expr-lang/expr"
)

// ResolvedDocument is a required document annotated with the rule that asked for it.
type ResolvedDocument struct {
	TemplateID  string `json:"templateId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Mandatory   bool   `json:"isMandatory"`
	RuleID      uint   `json:"ruleId"`
	RuleName    string `json:"ruleName"`
}

// Result lists matched rules by priority and the documents they require.
type Result struct {
	MatchedRules      []Rule             `json:"matchedRules"`
	RequiredDocuments []ResolvedDocument `json:"requiredDocuments"`
}

// MandatoryDocuments returns the mandatory documents, one per template slug,
// in first-seen order.
func (r Result) MandatoryDocuments() []ResolvedDocument {
	seen := make(map[string]bool)
	var out []ResolvedDocument
	for _, d := range r.RequiredDocuments {
		if !d.Mandatory || seen[d.TemplateID] {
			continue
		}
		seen[d.TemplateID] = true
		out = append(out, d)
	}
	return out
}

// Slugs returns the distinct template slugs in first-seen order.
func (r Result) Slugs() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range r.RequiredDocuments {
		if seen[d.TemplateID] {
			continue
		}
		seen[d.TemplateID] = true
		out = append(out, d.TemplateID)
	}
	return out
}

// Evaluate returns the active rules whose conditions all hold for ctx.
// The input slice is not modified.
func Evaluate(ctx OrderContext, rules []Rule) Result {
	fields := ctx.Fields()
	var env map[string]any

	res := Result{MatchedRules: []Rule{}, RequiredDocuments: []ResolvedDocument{}}
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if rule.TriggerType == TriggerCustom && strings.TrimSpace(rule.Expression) != "" && env == nil {
			env = ctx.Env()
		}
		if matchRule(rule, fields, env) {
			res.MatchedRules = append(res.MatchedRules, rule)
		}
	}

	sort.SliceStable(res.MatchedRules, func(i, j int) bool {
		return res.MatchedRules[i].Priority > res.MatchedRules[j].Priority
	})

	for _, rule := range res.MatchedRules {
		for _, d := range rule.RequiredDocuments {
			mandatory := rule.IsMandatory
			if d.IsMandatory != nil {
				mandatory = *d.IsMandatory
			}
			res.RequiredDocuments = append(res.RequiredDocuments, ResolvedDocument{
				TemplateID:  d.TemplateID,
				Name:        d.Name,
				Description: d.Description,
				Mandatory:   mandatory,
				RuleID:      rule.ID,
				RuleName:    rule.Name,
			})
		}
	}
	return res
}

// Matches reports whether a single rule applies to ctx, ignoring IsActive.
func Matches(rule Rule, ctx OrderContext) bool {
	return matchRule(rule, ctx.Fields(), ctx.Env())
}

// matchRule ANDs the conditions and, for custom rules, the expression. No
// conditions is an empty conjunction and holds; Rule.Validate keeps such rules
// out of storage.
func matchRule(rule Rule, fields map[string]Value, env map[string]any) bool {
	hasExpr := rule.TriggerType == TriggerCustom && strings.TrimSpace(rule.Expression) != ""
	for _, c := range rule.Conditions {
		if !c.Matches(fields) {
			return false
		}
	}
	if hasExpr {
		return runExpression(rule.Expression, env)
	}
	return true
}

func compileExpression(input string, env map[string]any) error {
	_, err := expr.Compile(input, expr.Env(env), expr.AllowUndefinedVariables(), expr.AsBool())
	return err
}

func runExpression(input string, env map[string]any) bool {
	program, err := expr.Compile(input, expr.Env(env), expr.AllowUndefinedVariables(), expr.AsBool())
	if err != nil {
		return false
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return false
	}
	b, ok := out.(bool)
	return ok && b
}
