package requirements

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultRulesYAML []byte

type rulesFile struct {
	Rules []ruleEntry `yaml:"rules"`
}

// ruleEntry lets an omitted isActive default to true.
type ruleEntry struct {
	Rule     `yaml:",inline"`
	IsActive *bool `yaml:"isActive"`
}

// ParseRules decodes a YAML rules document. Every rule must validate.
func ParseRules(data []byte) ([]Rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	rules := make([]Rule, 0, len(f.Rules))
	for i, e := range f.Rules {
		r := e.Rule
		r.IsActive = e.IsActive == nil || *e.IsActive
		if errs := r.Validate(); len(errs) > 0 {
			return nil, fmt.Errorf("rule %d (%q): invalid %v", i, r.Name, errs)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// DefaultRules returns the rules seeded for every new company.
func DefaultRules() []Rule {
	rules, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(err)
	}
	return rules
}
