package workflow

import (
	"sort"
	"time"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/user"
)

// ManagerStep is the absolute step reserved for the submitter's manager.
const ManagerStep = 0

// Submitter is the slice of the submitting employee the generator needs.
type Submitter struct {
	ID                int64
	ManagerID         *int64
	IsManagerApprover bool
}

func SubmitterFromUser(u *user.User) Submitter {
	return Submitter{ID: u.ID, ManagerID: u.ManagerID, IsManagerApprover: u.IsManagerApprover}
}

func (s Submitter) managerSignsFirst() bool {
	return s.ManagerID != nil && s.IsManagerApprover
}

// Generation is the outcome of request generation for one submission.
type Generation struct {
	Requests  []*approval.Request
	Status    expense.Status
	FirstStep int
	RuleID    *int64
}

func (g Generation) AutoApproved() bool {
	return len(g.Requests) == 0
}

// GenerateRequests builds the approval chain for a submission. It has no side
// effects; the caller applies the result and persists the requests.
func GenerateRequests(rule *approvalrule.Rule, sub Submitter) Generation {
	var (
		reqs   []*approval.Request
		seen   = make(map[[2]int64]struct{})
		offset = 0
	)
	add := func(approverID int64, step int) {
		key := [2]int64{approverID, int64(step)}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		reqs = append(reqs, approval.NewPendingRequest(0, approverID, step))
	}

	if sub.managerSignsFirst() {
		add(*sub.ManagerID, ManagerStep)
		offset = 1
	}

	var ruleID *int64
	if rule != nil {
		id := rule.ID
		ruleID = &id
		for _, step := range rule.SortedSteps() {
			for _, approverID := range step.Approvers {
				add(approverID, offset+step.StepNumber)
			}
		}
	}

	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].StepNumber < reqs[j].StepNumber
	})

	g := Generation{Requests: reqs, RuleID: ruleID, Status: expense.StatusApproved}
	if first, ok := approval.Set(reqs).LowestStep(); ok {
		g.Status = expense.StatusInProgress
		g.FirstStep = first
	}
	return g
}

// ApplyTo moves a Pending expense into the generated state.
func (g Generation) ApplyTo(e *expense.Expense, at time.Time) {
	if g.AutoApproved() {
		e.AutoApprove(g.RuleID, at)
		return
	}
	e.StartWorkflow(g.RuleID, g.FirstStep)
}

// Bind points every generated request at the persisted expense.
func (g Generation) Bind(expenseID int64) {
	for _, r := range g.Requests {
		r.ExpenseID = expenseID
	}
}
