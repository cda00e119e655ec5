package expense

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "In Progress"
	StatusApproved   Status = "Approved"
	StatusRejected   Status = "Rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusApproved, StatusRejected:
		return true
	}
	return false
}

type CommentAction string

const (
	ActionApproved CommentAction = "Approved"
	ActionRejected CommentAction = "Rejected"
	ActionComment  CommentAction = "Comment"
)

// Money is an amount in its original currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

type Comment struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	Text      string        `json:"comment"`
	Action    CommentAction `json:"action"`
	CreatedAt time.Time     `json:"created_at"`
}

type Expense struct {
	ID                  int64           `json:"id"`
	CompanyID           int64           `json:"company_id"`
	EmployeeID          int64           `json:"employee_id"`
	Money               Money           `json:"money"`
	ConvertedAmount     decimal.Decimal `json:"converted_amount"`
	Category            string          `json:"category"`
	Description         string          `json:"description"`
	ExpenseDate         time.Time       `json:"expense_date"`
	Status              Status          `json:"status"`
	CurrentApprovalStep int             `json:"current_approval_step"`
	ApprovalRuleID      *int64          `json:"approval_rule_id,omitempty"`
	FinalApproverID     *int64          `json:"final_approver_id,omitempty"`
	FinalApprovalDate   *time.Time      `json:"final_approval_date,omitempty"`
	SubmittedAt         time.Time       `json:"submitted_at"`
	Comments            []Comment       `json:"comments"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

var (
	ErrExpenseNotFound = internal.ErrExpenseNotFound
	ErrNotInProgress   = internal.NewInvalidStateError("Expense is not awaiting approval", internal.ErrCodeExpenseTerminal)
	ErrNotRejected     = internal.NewInvalidStateError("Only rejected expenses can be edited and resubmitted", internal.ErrCodeExpenseNotRejected)
	ErrCannotDelete    = internal.NewInvalidStateError("Only pending or rejected expenses can be deleted", internal.ErrCodeCannotDeleteExpense)
	ErrConcurrentWrite = internal.NewConflictError("Expense was modified concurrently, retry the request", internal.ErrCodeConcurrentUpdate)
)

func NewExpense(companyID, employeeID int64, d Details, now time.Time) *Expense {
	e := &Expense{
		CompanyID:   companyID,
		EmployeeID:  employeeID,
		Status:      StatusPending,
		SubmittedAt: now,
		Comments:    []Comment{},
	}
	e.ApplyDetails(d)
	return e
}

func (e *Expense) ApplyDetails(d Details) {
	e.Money = Money{Amount: d.Amount, Currency: d.Currency}
	e.ConvertedAmount = d.ConvertedAmount
	e.Category = d.Category
	e.Description = d.Description
	e.ExpenseDate = d.ExpenseDate
}

// Details returns the editable fields.
func (e *Expense) Details() Details {
	return Details{
		Amount:          e.Money.Amount,
		Currency:        e.Money.Currency,
		ConvertedAmount: e.ConvertedAmount,
		Category:        e.Category,
		Description:     e.Description,
		ExpenseDate:     e.ExpenseDate,
	}
}

func (e *Expense) IsTerminal() bool {
	return e.Status == StatusApproved || e.Status == StatusRejected
}

func (e *Expense) IsInProgress() bool {
	return e.Status == StatusInProgress
}

func (e *Expense) CanBeDeleted() bool {
	return e.Status == StatusPending || e.Status == StatusRejected
}

// AppendComment adds an unsaved entry to the log.
func (e *Expense) AppendComment(userID int64, text string, action CommentAction, at time.Time) {
	e.Comments = append(e.Comments, Comment{
		UserID:    userID,
		Text:      text,
		Action:    action,
		CreatedAt: at,
	})
}

// UnsavedComments returns the entries appended since the expense was loaded.
func (e *Expense) UnsavedComments() []Comment {
	var out []Comment
	for _, c := range e.Comments {
		if c.ID == 0 {
			out = append(out, c)
		}
	}
	return out
}

// StartWorkflow records the outcome of request generation.
func (e *Expense) StartWorkflow(ruleID *int64, firstStep int) {
	e.ApprovalRuleID = ruleID
	e.Status = StatusInProgress
	e.CurrentApprovalStep = firstStep
}

// AutoApprove finishes an expense that needs nobody's approval.
func (e *Expense) AutoApprove(ruleID *int64, at time.Time) {
	e.ApprovalRuleID = ruleID
	e.Status = StatusApproved
	e.CurrentApprovalStep = 0
	e.FinalApprovalDate = &at
}

func (e *Expense) AdvanceTo(step int) {
	e.CurrentApprovalStep = step
}

func (e *Expense) Approve(approverID int64, at time.Time) {
	e.Status = StatusApproved
	e.FinalApproverID = &approverID
	e.FinalApprovalDate = &at
}

func (e *Expense) Reject(approverID int64, at time.Time) {
	e.Status = StatusRejected
	e.FinalApproverID = &approverID
	e.FinalApprovalDate = &at
}

// ResetForResubmission applies the edited details and wipes all workflow
// state so the expense can go through generation again.
func (e *Expense) ResetForResubmission(d Details, now time.Time) error {
	if e.Status != StatusRejected {
		return ErrNotRejected
	}
	e.ApplyDetails(d)
	e.Status = StatusPending
	e.CurrentApprovalStep = 0
	e.ApprovalRuleID = nil
	e.FinalApproverID = nil
	e.FinalApprovalDate = nil
	e.Comments = []Comment{}
	e.SubmittedAt = now
	return nil
}

// Guard is the state an update expects to find in storage.
type Guard struct {
	Status Status
	Step   int
}

func (e *Expense) Guard() Guard {
	return Guard{Status: e.Status, Step: e.CurrentApprovalStep}
}

func ToDataModel(e *Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:                  e.ID,
		CompanyID:           e.CompanyID,
		EmployeeID:          e.EmployeeID,
		Amount:              e.Money.Amount,
		CurrencyCode:        e.Money.Currency,
		ConvertedAmount:     e.ConvertedAmount,
		Category:            e.Category,
		Description:         e.Description,
		ExpenseDate:         e.ExpenseDate,
		Status:              string(e.Status),
		CurrentApprovalStep: e.CurrentApprovalStep,
		ApprovalRuleID:      e.ApprovalRuleID,
		FinalApproverID:     e.FinalApproverID,
		FinalApprovalDate:   e.FinalApprovalDate,
		SubmittedAt:         e.SubmittedAt,
		CreatedAt:           e.CreatedAt,
		UpdatedAt:           e.UpdatedAt,
	}
}

func FromDataModel(m *expenseDatamodel.Expense, comments []*expenseDatamodel.Comment) *Expense {
	e := &Expense{
		ID:                  m.ID,
		CompanyID:           m.CompanyID,
		EmployeeID:          m.EmployeeID,
		Money:               Money{Amount: m.Amount, Currency: m.CurrencyCode},
		ConvertedAmount:     m.ConvertedAmount,
		Category:            m.Category,
		Description:         m.Description,
		ExpenseDate:         m.ExpenseDate,
		Status:              Status(m.Status),
		CurrentApprovalStep: m.CurrentApprovalStep,
		ApprovalRuleID:      m.ApprovalRuleID,
		FinalApproverID:     m.FinalApproverID,
		FinalApprovalDate:   m.FinalApprovalDate,
		SubmittedAt:         m.SubmittedAt,
		Comments:            make([]Comment, 0, len(comments)),
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
	for _, c := range comments {
		e.Comments = append(e.Comments, Comment{
			ID:        c.ID,
			UserID:    c.UserID,
			Text:      c.Comment,
			Action:    CommentAction(c.Action),
			CreatedAt: c.CreatedAt,
		})
	}
	return e
}

func CommentToDataModel(expenseID int64, c Comment) *expenseDatamodel.Comment {
	return &expenseDatamodel.Comment{
		ExpenseID: expenseID,
		UserID:    c.UserID,
		Comment:   c.Text,
		Action:    string(c.Action),
		CreatedAt: c.CreatedAt,
	}
}
