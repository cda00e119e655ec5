package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeExpenseSubmitted    = "expense.submitted"
	EventTypeExpenseStepAdvanced = "expense.step_advanced"
	EventTypeExpenseApproved     = "expense.approved"
	EventTypeExpenseRejected     = "expense.rejected"
	EventTypeExpenseResubmitted  = "expense.resubmitted"
)

// ExpenseEventTypes lists every workflow event, in lifecycle order.
var ExpenseEventTypes = []string{
	EventTypeExpenseSubmitted,
	EventTypeExpenseStepAdvanced,
	EventTypeExpenseApproved,
	EventTypeExpenseRejected,
	EventTypeExpenseResubmitted,
}

// ExpenseEvent reports a committed workflow state change.
type ExpenseEvent struct {
	BaseEvent
	ExpenseID int64  `json:"expense_id"`
	CompanyID int64  `json:"company_id"`
	ActorID   int64  `json:"actor_id"`
	Status    string `json:"status"`
	Step      int    `json:"step"`
}

func NewExpenseEvent(eventType string, expenseID, companyID, actorID int64, status string, step int) *ExpenseEvent {
	return &ExpenseEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"expense_id": expenseID,
				"company_id": companyID,
				"actor_id":   actorID,
				"status":     status,
				"step":       step,
			},
		},
		ExpenseID: expenseID,
		CompanyID: companyID,
		ActorID:   actorID,
		Status:    status,
		Step:      step,
	}
}
