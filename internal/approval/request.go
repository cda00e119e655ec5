package approval

import (
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	approvalDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/approval"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

type Decision string

const (
	DecisionApprove Decision = "Approve"
	DecisionReject  Decision = "Reject"
)

// ParseDecision accepts "approve"/"reject" in any case.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved":
		return DecisionApprove, nil
	case "reject", "rejected":
		return DecisionReject, nil
	}
	return "", internal.NewValidationError("decision must be approve or reject", internal.ErrCodeInvalidDecision)
}

// Request asks one approver to decide on one expense at one absolute step.
type Request struct {
	ID         int64      `json:"id"`
	ExpenseID  int64      `json:"expense_id"`
	ApproverID int64      `json:"approver_id"`
	StepNumber int        `json:"step_number"`
	Status     Status     `json:"status"`
	Comment    *string    `json:"comment,omitempty"`
	ActionDate *time.Time `json:"action_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

var (
	ErrRequestNotFound = internal.NewNotFoundError("Approval request not found", internal.ErrCodeRequestNotFound)
	ErrAlreadyDecided  = internal.NewInvalidStateError("Approval request has already been decided", internal.ErrCodeRequestDecided)
)

func NewPendingRequest(expenseID, approverID int64, step int) *Request {
	return &Request{
		ExpenseID:  expenseID,
		ApproverID: approverID,
		StepNumber: step,
		Status:     StatusPending,
	}
}

func (r *Request) IsPending() bool {
	return r.Status == StatusPending
}

// Decide moves the request out of Pending exactly once.
func (r *Request) Decide(d Decision, comment string, at time.Time) error {
	if !r.IsPending() {
		return ErrAlreadyDecided
	}
	switch d {
	case DecisionApprove:
		r.Status = StatusApproved
	case DecisionReject:
		r.Status = StatusRejected
	default:
		return internal.NewValidationError("unknown decision", internal.ErrCodeInvalidDecision)
	}
	if comment != "" {
		c := comment
		r.Comment = &c
	}
	r.ActionDate = &at
	return nil
}

// Set is the full set of requests for one expense.
type Set []*Request

func (s Set) AtStep(step int) Set {
	var out Set
	for _, r := range s {
		if r.StepNumber == step {
			out = append(out, r)
		}
	}
	return out
}

func (s Set) HasStatus(status Status) bool {
	for _, r := range s {
		if r.Status == status {
			return true
		}
	}
	return false
}

// NextStep returns the smallest step number greater than after. Step numbers
// need not be contiguous: a manager step 0 is followed by rule step 2.
func (s Set) NextStep(after int) (int, bool) {
	next, found := 0, false
	for _, r := range s {
		if r.StepNumber > after && (!found || r.StepNumber < next) {
			next, found = r.StepNumber, true
		}
	}
	return next, found
}

// LowestStep returns the smallest step number, or false for an empty set.
func (s Set) LowestStep() (int, bool) {
	if len(s) == 0 {
		return 0, false
	}
	lowest := s[0].StepNumber
	for _, r := range s[1:] {
		if r.StepNumber < lowest {
			lowest = r.StepNumber
		}
	}
	return lowest, true
}

// Approved returns the approver ids that have approved, across all steps.
func (s Set) Approved() map[int64]struct{} {
	out := make(map[int64]struct{})
	for _, r := range s {
		if r.Status == StatusApproved {
			out[r.ApproverID] = struct{}{}
		}
	}
	return out
}

func (s Set) CountStatus(status Status) int {
	n := 0
	for _, r := range s {
		if r.Status == status {
			n++
		}
	}
	return n
}

func (s Set) Find(id int64) *Request {
	for _, r := range s {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// Sorted orders by step then id, the order requests were generated in.
func (s Set) Sorted() Set {
	out := make(Set, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StepNumber != out[j].StepNumber {
			return out[i].StepNumber < out[j].StepNumber
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// PendingItem is an actionable request enriched with expense fields for an
// approver's inbox.
type PendingItem struct {
	RequestID       int64     `json:"request_id" db:"request_id"`
	ExpenseID       int64     `json:"expense_id" db:"expense_id"`
	StepNumber      int       `json:"step_number" db:"step_number"`
	EmployeeID      int64     `json:"employee_id" db:"employee_id"`
	EmployeeName    string    `json:"employee_name" db:"employee_name"`
	Category        string    `json:"category" db:"category"`
	Description     string    `json:"description" db:"description"`
	Amount          string    `json:"amount" db:"amount"`
	CurrencyCode    string    `json:"currency" db:"currency_code"`
	ConvertedAmount string    `json:"converted_amount" db:"converted_amount"`
	SubmittedAt     time.Time `json:"submitted_at" db:"submitted_at"`
	RequestedAt     time.Time `json:"requested_at" db:"requested_at"`
}

func ToDataModel(r *Request) *approvalDatamodel.Request {
	return &approvalDatamodel.Request{
		ID:         r.ID,
		ExpenseID:  r.ExpenseID,
		ApproverID: r.ApproverID,
		StepNumber: r.StepNumber,
		Status:     string(r.Status),
		Comment:    r.Comment,
		ActionDate: r.ActionDate,
		CreatedAt:  r.CreatedAt,
	}
}

func FromDataModel(r *approvalDatamodel.Request) *Request {
	return &Request{
		ID:         r.ID,
		ExpenseID:  r.ExpenseID,
		ApproverID: r.ApproverID,
		StepNumber: r.StepNumber,
		Status:     Status(r.Status),
		Comment:    r.Comment,
		ActionDate: r.ActionDate,
		CreatedAt:  r.CreatedAt,
	}
}

func FromDataModelSlice(rows []*approvalDatamodel.Request) Set {
	out := make(Set, len(rows))
	for i, r := range rows {
		out[i] = FromDataModel(r)
	}
	return out
}
