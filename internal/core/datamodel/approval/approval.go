package approval

import "time"

type Request struct {
	ID         int64      `gorm:"primaryKey"`
	ExpenseID  int64      `gorm:"column:expense_id;not null;index:idx_approval_requests_expense_step,priority:1"`
	ApproverID int64      `gorm:"column:approver_id;not null;index"`
	StepNumber int        `gorm:"column:step_number;not null;index:idx_approval_requests_expense_step,priority:2"`
	Status     string     `gorm:"column:status;not null"`
	Comment    *string    `gorm:"column:comment"`
	ActionDate *time.Time `gorm:"column:action_date"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Request) TableName() string {
	return "approval_requests"
}
