package approvalrule

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	ruleDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/approvalrule"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type RuleType string

const (
	RuleTypeSequential  RuleType = "Sequential"
	RuleTypeConditional RuleType = "Conditional"
	RuleTypeHybrid      RuleType = "Hybrid"
)

func (t RuleType) Valid() bool {
	switch t {
	case RuleTypeSequential, RuleTypeConditional, RuleTypeHybrid:
		return true
	}
	return false
}

type Operator string

const (
	OperatorAnd Operator = "AND"
	OperatorOr  Operator = "OR"
)

// Step is rule-relative; numbering starts at 1.
type Step struct {
	StepNumber int     `json:"step_number"`
	Approvers  []int64 `json:"approvers"`
}

type PercentageRule struct {
	Enabled    bool            `json:"enabled"`
	Percentage decimal.Decimal `json:"percentage"`
}

type SpecificApproverRule struct {
	Enabled   bool    `json:"enabled"`
	Approvers []int64 `json:"approvers"`
}

type HybridRule struct {
	Enabled  bool     `json:"enabled"`
	Operator Operator `json:"operator"`
}

type ConditionalRules struct {
	Percentage       *PercentageRule       `json:"percentage_rule,omitempty"`
	SpecificApprover *SpecificApproverRule `json:"specific_approver_rule,omitempty"`
	Hybrid           *HybridRule           `json:"hybrid_rule,omitempty"`
}

func (c ConditionalRules) PercentageEnabled() bool {
	return c.Percentage != nil && c.Percentage.Enabled
}

func (c ConditionalRules) SpecificApproverEnabled() bool {
	return c.SpecificApprover != nil && c.SpecificApprover.Enabled
}

func (c ConditionalRules) HybridEnabled() bool {
	return c.Hybrid != nil && c.Hybrid.Enabled
}

// AmountThreshold is inclusive on both ends. A null Max is unbounded.
type AmountThreshold struct {
	Min decimal.Decimal     `json:"min"`
	Max decimal.NullDecimal `json:"max"`
}

func (t AmountThreshold) Contains(amount decimal.Decimal) bool {
	if amount.LessThan(t.Min) {
		return false
	}
	if t.Max.Valid && amount.GreaterThan(t.Max.Decimal) {
		return false
	}
	return true
}

type Rule struct {
	ID               int64            `json:"id"`
	CompanyID        int64            `json:"company_id"`
	Name             string           `json:"name"`
	RuleType         RuleType         `json:"rule_type"`
	Steps            []Step           `json:"steps"`
	ConditionalRules ConditionalRules `json:"conditional_rules"`
	AmountThreshold  AmountThreshold  `json:"amount_threshold"`
	Categories       []string         `json:"categories"`
	IsActive         bool             `json:"is_active"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

var (
	ErrRuleNotFound = internal.NewNotFoundError("Approval rule not found", internal.ErrCodeRuleNotFound)
	ErrInvalidRule  = internal.NewValidationError("Invalid approval rule", internal.ErrCodeInvalidRule)
)

// AppliesToCategory treats an empty category list as a wildcard.
func (r *Rule) AppliesToCategory(category string) bool {
	if len(r.Categories) == 0 {
		return true
	}
	for _, c := range r.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}

func (r *Rule) Matches(amount decimal.Decimal, category string) bool {
	return r.AppliesToCategory(category) && r.AmountThreshold.Contains(amount)
}

// IsConditional reports whether decisions consult the conditional rules.
func (r *Rule) IsConditional() bool {
	return r != nil && (r.RuleType == RuleTypeConditional || r.RuleType == RuleTypeHybrid)
}

// SortedSteps returns the steps ordered by step number.
func (r *Rule) SortedSteps() []Step {
	steps := make([]Step, len(r.Steps))
	copy(steps, r.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].StepNumber < steps[j].StepNumber
	})
	return steps
}

// ApproverIDs lists every approver referenced by steps or the specific
// approver rule, without duplicates.
func (r *Rule) ApproverIDs() []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, s := range r.Steps {
		for _, id := range s.Approvers {
			add(id)
		}
	}
	if r.ConditionalRules.SpecificApprover != nil {
		for _, id := range r.ConditionalRules.SpecificApprover.Approvers {
			add(id)
		}
	}
	return ids
}

var hundred = decimal.NewFromInt(100)

// Validate checks the rule's own shape. Approver existence and the category
// catalog are checked by the service.
func (r *Rule) Validate() error {
	var problems []string

	if strings.TrimSpace(r.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !r.RuleType.Valid() {
		problems = append(problems, fmt.Sprintf("rule_type must be one of %s, %s, %s", RuleTypeSequential, RuleTypeConditional, RuleTypeHybrid))
	}

	seenSteps := make(map[int]struct{})
	for _, s := range r.Steps {
		if s.StepNumber < 1 {
			problems = append(problems, fmt.Sprintf("step_number %d must be positive", s.StepNumber))
		}
		if _, dup := seenSteps[s.StepNumber]; dup {
			problems = append(problems, fmt.Sprintf("step_number %d is duplicated", s.StepNumber))
		}
		seenSteps[s.StepNumber] = struct{}{}
		if len(s.Approvers) == 0 {
			problems = append(problems, fmt.Sprintf("step %d needs at least one approver", s.StepNumber))
		}
	}
	// the advancer only ever moves to step+1, so a gap would end the chain early
	for n := 1; n <= len(r.Steps); n++ {
		if _, ok := seenSteps[n]; !ok {
			problems = append(problems, fmt.Sprintf("steps must be numbered 1 to %d without gaps", len(r.Steps)))
			break
		}
	}

	cr := r.ConditionalRules
	if cr.Percentage != nil && cr.Percentage.Enabled {
		if cr.Percentage.Percentage.IsNegative() || cr.Percentage.Percentage.GreaterThan(hundred) {
			problems = append(problems, "percentage must be between 0 and 100")
		}
	}
	if cr.SpecificApprover != nil && cr.SpecificApprover.Enabled && len(cr.SpecificApprover.Approvers) == 0 {
		problems = append(problems, "specific_approver_rule needs at least one approver when enabled")
	}
	if cr.Hybrid != nil && cr.Hybrid.Enabled {
		if cr.Hybrid.Operator != OperatorAnd && cr.Hybrid.Operator != OperatorOr {
			problems = append(problems, "hybrid operator must be AND or OR")
		}
	}
	if r.RuleType == RuleTypeHybrid && !cr.HybridEnabled() {
		problems = append(problems, "hybrid rules need an enabled hybrid_rule")
	}

	if r.AmountThreshold.Min.IsNegative() {
		problems = append(problems, "min_amount must not be negative")
	}
	if r.AmountThreshold.Max.Valid && r.AmountThreshold.Max.Decimal.LessThan(r.AmountThreshold.Min) {
		problems = append(problems, "max_amount must be greater than or equal to min_amount")
	}

	if len(problems) == 0 {
		return nil
	}

	details := internal.ValidationErrors{}
	for _, p := range problems {
		details.Errors = append(details.Errors, internal.ValidationError{Field: "rule", Message: p, Code: string(internal.ErrCodeInvalidRule)})
	}
	return ErrInvalidRule.WithDetails(details)
}

func ToDataModel(r *Rule) *ruleDatamodel.ApprovalRule {
	steps := make([]ruleDatamodel.Step, len(r.Steps))
	for i, s := range r.Steps {
		steps[i] = ruleDatamodel.Step{StepNumber: s.StepNumber, Approvers: s.Approvers}
	}

	var cr ruleDatamodel.ConditionalRules
	if p := r.ConditionalRules.Percentage; p != nil {
		cr.Percentage = &ruleDatamodel.PercentageRule{Enabled: p.Enabled, Percentage: p.Percentage}
	}
	if s := r.ConditionalRules.SpecificApprover; s != nil {
		cr.SpecificApprover = &ruleDatamodel.SpecificApproverRule{Enabled: s.Enabled, Approvers: s.Approvers}
	}
	if h := r.ConditionalRules.Hybrid; h != nil {
		cr.Hybrid = &ruleDatamodel.HybridRule{Enabled: h.Enabled, Operator: string(h.Operator)}
	}

	categories := r.Categories
	if categories == nil {
		categories = []string{}
	}

	return &ruleDatamodel.ApprovalRule{
		ID:               r.ID,
		CompanyID:        r.CompanyID,
		Name:             r.Name,
		RuleType:         string(r.RuleType),
		Steps:            datatypes.NewJSONType(steps),
		ConditionalRules: datatypes.NewJSONType(cr),
		MinAmount:        r.AmountThreshold.Min,
		MaxAmount:        r.AmountThreshold.Max,
		Categories:       datatypes.JSONSlice[string](categories),
		IsActive:         r.IsActive,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

func FromDataModel(m *ruleDatamodel.ApprovalRule) *Rule {
	rawSteps := m.Steps.Data()
	steps := make([]Step, len(rawSteps))
	for i, s := range rawSteps {
		steps[i] = Step{StepNumber: s.StepNumber, Approvers: s.Approvers}
	}

	raw := m.ConditionalRules.Data()
	var cr ConditionalRules
	if p := raw.Percentage; p != nil {
		cr.Percentage = &PercentageRule{Enabled: p.Enabled, Percentage: p.Percentage}
	}
	if s := raw.SpecificApprover; s != nil {
		cr.SpecificApprover = &SpecificApproverRule{Enabled: s.Enabled, Approvers: s.Approvers}
	}
	if h := raw.Hybrid; h != nil {
		cr.Hybrid = &HybridRule{Enabled: h.Enabled, Operator: Operator(strings.ToUpper(h.Operator))}
	}

	return &Rule{
		ID:               m.ID,
		CompanyID:        m.CompanyID,
		Name:             m.Name,
		RuleType:         RuleType(m.RuleType),
		Steps:            steps,
		ConditionalRules: cr,
		AmountThreshold:  AmountThreshold{Min: m.MinAmount, Max: m.MaxAmount},
		Categories:       []string(m.Categories),
		IsActive:         m.IsActive,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
