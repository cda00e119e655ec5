package approvalrule

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

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
	Enabled  bool   `json:"enabled"`
	Operator string `json:"operator"`
}

type ConditionalRules struct {
	Percentage       *PercentageRule       `json:"percentage_rule,omitempty"`
	SpecificApprover *SpecificApproverRule `json:"specific_approver_rule,omitempty"`
	Hybrid           *HybridRule           `json:"hybrid_rule,omitempty"`
}

type ApprovalRule struct {
	ID               int64                                `gorm:"primaryKey"`
	CompanyID        int64                                `gorm:"column:company_id;not null;index"`
	Name             string                               `gorm:"column:name;not null"`
	RuleType         string                               `gorm:"column:rule_type;not null"`
	Steps            datatypes.JSONType[[]Step]           `gorm:"column:steps"`
	ConditionalRules datatypes.JSONType[ConditionalRules] `gorm:"column:conditional_rules"`
	MinAmount        decimal.Decimal                      `gorm:"column:min_amount;type:numeric(18,2);not null;default:0"`
	MaxAmount        decimal.NullDecimal                  `gorm:"column:max_amount;type:numeric(18,2)"`
	Categories       datatypes.JSONSlice[string]          `gorm:"column:categories"`
	IsActive         bool                                 `gorm:"column:is_active;not null"`
	CreatedAt        time.Time                            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                            `gorm:"column:updated_at;autoUpdateTime"`
}

func (ApprovalRule) TableName() string {
	return "approval_rules"
}
