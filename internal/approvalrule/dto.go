package approvalrule

import (
	"github.com/shopspring/decimal"
)

type CreateRuleDTO struct {
	Name             string              `json:"name"`
	RuleType         RuleType            `json:"rule_type"`
	Steps            []Step              `json:"steps"`
	ConditionalRules ConditionalRules    `json:"conditional_rules"`
	MinAmount        decimal.Decimal     `json:"min_amount"`
	MaxAmount        decimal.NullDecimal `json:"max_amount"`
	Categories       []string            `json:"categories"`
	IsActive         *bool               `json:"is_active,omitempty"`
}

func (d CreateRuleDTO) ToRule(companyID int64) *Rule {
	active := true
	if d.IsActive != nil {
		active = *d.IsActive
	}
	return &Rule{
		CompanyID:        companyID,
		Name:             d.Name,
		RuleType:         d.RuleType,
		Steps:            d.Steps,
		ConditionalRules: d.ConditionalRules,
		AmountThreshold:  AmountThreshold{Min: d.MinAmount, Max: d.MaxAmount},
		Categories:       d.Categories,
		IsActive:         active,
	}
}

// UpdateRuleDTO is a partial update; nil fields are left alone.
type UpdateRuleDTO struct {
	Name             *string              `json:"name,omitempty"`
	RuleType         *RuleType            `json:"rule_type,omitempty"`
	Steps            *[]Step              `json:"steps,omitempty"`
	ConditionalRules *ConditionalRules    `json:"conditional_rules,omitempty"`
	MinAmount        *decimal.Decimal     `json:"min_amount,omitempty"`
	MaxAmount        *decimal.NullDecimal `json:"max_amount,omitempty"`
	Categories       *[]string            `json:"categories,omitempty"`
	IsActive         *bool                `json:"is_active,omitempty"`
}

func (d UpdateRuleDTO) ApplyTo(r *Rule) {
	if d.Name != nil {
		r.Name = *d.Name
	}
	if d.RuleType != nil {
		r.RuleType = *d.RuleType
	}
	if d.Steps != nil {
		r.Steps = *d.Steps
	}
	if d.ConditionalRules != nil {
		r.ConditionalRules = *d.ConditionalRules
	}
	if d.MinAmount != nil {
		r.AmountThreshold.Min = *d.MinAmount
	}
	if d.MaxAmount != nil {
		r.AmountThreshold.Max = *d.MaxAmount
	}
	if d.Categories != nil {
		r.Categories = *d.Categories
	}
	if d.IsActive != nil {
		r.IsActive = *d.IsActive
	}
}

type RulesResponse struct {
	Rules []*Rule `json:"rules"`
}
