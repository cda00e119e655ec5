package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID                  int64           `gorm:"primaryKey"`
	CompanyID           int64           `gorm:"column:company_id;not null;index"`
	EmployeeID          int64           `gorm:"column:employee_id;not null;index"`
	Amount              decimal.Decimal `gorm:"column:amount;type:numeric(18,2);not null"`
	CurrencyCode        string          `gorm:"column:currency_code;size:3;not null"`
	ConvertedAmount     decimal.Decimal `gorm:"column:converted_amount;type:numeric(18,2);not null"`
	Category            string          `gorm:"column:category;not null"`
	Description         string          `gorm:"column:description;not null"`
	ExpenseDate         time.Time       `gorm:"column:expense_date"`
	Status              string          `gorm:"column:status;not null;index"`
	CurrentApprovalStep int             `gorm:"column:current_approval_step;not null;default:0"`
	ApprovalRuleID      *int64          `gorm:"column:approval_rule_id"`
	FinalApproverID     *int64          `gorm:"column:final_approver_id"`
	FinalApprovalDate   *time.Time      `gorm:"column:final_approval_date"`
	SubmittedAt         time.Time       `gorm:"column:submitted_at"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (Expense) TableName() string {
	return "expenses"
}

// Comment is one entry of an expense's append-only decision log.
type Comment struct {
	ID        int64     `gorm:"primaryKey"`
	ExpenseID int64     `gorm:"column:expense_id;not null;index"`
	UserID    int64     `gorm:"column:user_id;not null"`
	Comment   string    `gorm:"column:comment;not null"`
	Action    string    `gorm:"column:action;not null"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (Comment) TableName() string {
	return "expense_comments"
}
