package workflow

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	"github.com/frahmantamala/expense-approval/internal/expense"
)

// Transition is what a single decision did to the expense.
type Transition int

const (
	TransitionNone Transition = iota
	TransitionAdvanced
	TransitionApproved
	TransitionRejected
)

func (t Transition) String() string {
	switch t {
	case TransitionAdvanced:
		return "advanced"
	case TransitionApproved:
		return "approved"
	case TransitionRejected:
		return "rejected"
	}
	return "none"
}

func (t Transition) Terminal() bool {
	return t == TransitionApproved || t == TransitionRejected
}

// Decision is one approver acting on one request.
type Decision struct {
	Request  *approval.Request
	Decision approval.Decision
	Comment  string
	At       time.Time
}

// Advance applies d to the expense. requests must be the expense's full
// request set and d.Request one of its elements, so the tallies see the new
// status. On error nothing has been mutated.
func Advance(e *expense.Expense, requests approval.Set, rule *approvalrule.Rule, d Decision) (Transition, error) {
	req := d.Request
	// step first: a request left behind by an early conditional approval is
	// still out of turn, not merely late
	if req.StepNumber != e.CurrentApprovalStep {
		return TransitionNone, ErrOutOfOrder
	}
	if !e.IsInProgress() {
		return TransitionNone, expense.ErrNotInProgress
	}
	if !req.IsPending() {
		return TransitionNone, approval.ErrAlreadyDecided
	}

	if err := req.Decide(d.Decision, d.Comment, d.At); err != nil {
		return TransitionNone, err
	}

	text, action := d.Comment, expense.ActionApproved
	if d.Decision == approval.DecisionReject {
		action = expense.ActionRejected
	}
	if text == "" {
		text = string(action)
	}
	e.AppendComment(req.ApproverID, text, action, d.At)

	if d.Decision == approval.DecisionReject {
		e.Reject(req.ApproverID, d.At)
		return TransitionRejected, nil
	}

	if rule.IsConditional() && IsSatisfied(rule, requests) {
		e.Approve(req.ApproverID, d.At)
		return TransitionApproved, nil
	}

	current := requests.AtStep(e.CurrentApprovalStep)
	if current.HasStatus(approval.StatusPending) {
		return TransitionNone, nil
	}
	if current.HasStatus(approval.StatusRejected) {
		e.Reject(req.ApproverID, d.At)
		return TransitionRejected, nil
	}
	if next, ok := requests.NextStep(e.CurrentApprovalStep); ok {
		e.AdvanceTo(next)
		return TransitionAdvanced, nil
	}
	e.Approve(req.ApproverID, d.At)
	return TransitionApproved, nil
}
