package workflow_test

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/workflow"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type pair struct {
	Approver int64
	Step     int
}

func pairs(reqs []*approval.Request) []pair {
	out := make([]pair, len(reqs))
	for i, r := range reqs {
		out[i] = pair{r.ApproverID, r.StepNumber}
	}
	return out
}

var _ = Describe("GenerateRequests", func() {
	plain := workflow.Submitter{ID: 100}
	withManager := workflow.Submitter{ID: 100, ManagerID: ptr(int64(7)), IsManagerApprover: true}

	It("auto-approves when there is neither a manager step nor a rule", func() {
		gen := workflow.GenerateRequests(nil, plain)
		Expect(gen.AutoApproved()).To(BeTrue())
		Expect(gen.Requests).To(BeEmpty())
		Expect(gen.Status).To(Equal(expense.StatusApproved))
		Expect(gen.RuleID).To(BeNil())
	})

	It("auto-approves a rule with zero steps and records the rule", func() {
		gen := workflow.GenerateRequests(sequentialRule(3), plain)
		Expect(gen.AutoApproved()).To(BeTrue())
		Expect(*gen.RuleID).To(Equal(int64(3)))
	})

	It("ignores a manager who is not flagged as approver", func() {
		sub := workflow.Submitter{ID: 100, ManagerID: ptr(int64(7))}
		gen := workflow.GenerateRequests(nil, sub)
		Expect(gen.AutoApproved()).To(BeTrue())
	})

	It("creates one request per approver at the rule's steps", func() {
		gen := workflow.GenerateRequests(sequentialRule(1, []int64{10}, []int64{20, 30}), plain)
		Expect(pairs(gen.Requests)).To(Equal([]pair{{10, 1}, {20, 2}, {30, 2}}))
		Expect(gen.Status).To(Equal(expense.StatusInProgress))
		Expect(gen.FirstStep).To(Equal(1))
		for _, r := range gen.Requests {
			Expect(r.Status).To(Equal(approval.StatusPending))
		}
	})

	It("puts the manager at step 0 and shifts rule steps by one", func() {
		gen := workflow.GenerateRequests(sequentialRule(1, []int64{10}, []int64{20}), withManager)
		Expect(pairs(gen.Requests)).To(Equal([]pair{{7, 0}, {10, 2}, {20, 3}}))
		Expect(gen.FirstStep).To(Equal(0))
	})

	It("adds the manager step even without a rule", func() {
		gen := workflow.GenerateRequests(nil, withManager)
		Expect(pairs(gen.Requests)).To(Equal([]pair{{7, 0}}))
		Expect(gen.Status).To(Equal(expense.StatusInProgress))
	})

	It("drops a repeated approver within the same step", func() {
		gen := workflow.GenerateRequests(sequentialRule(1, []int64{10, 10, 11}), plain)
		Expect(pairs(gen.Requests)).To(Equal([]pair{{10, 1}, {11, 1}}))
	})

	It("keeps the same approver on different steps", func() {
		gen := workflow.GenerateRequests(sequentialRule(1, []int64{10}, []int64{10}), plain)
		Expect(pairs(gen.Requests)).To(Equal([]pair{{10, 1}, {10, 2}}))
	})

	It("orders requests by step whatever the rule's step order", func() {
		rule := sequentialRule(1, []int64{10}, []int64{20})
		rule.Steps[0], rule.Steps[1] = rule.Steps[1], rule.Steps[0]
		gen := workflow.GenerateRequests(rule, plain)
		Expect(pairs(gen.Requests)).To(Equal([]pair{{10, 1}, {20, 2}}))
	})

	Describe("ApplyTo", func() {
		It("starts the workflow at the first step", func() {
			e := inProgress(0)
			e.Status = expense.StatusPending
			gen := workflow.GenerateRequests(sequentialRule(4, []int64{10}), plain)
			gen.ApplyTo(e, time.Now())
			Expect(e.Status).To(Equal(expense.StatusInProgress))
			Expect(e.CurrentApprovalStep).To(Equal(1))
			Expect(*e.ApprovalRuleID).To(Equal(int64(4)))
		})

		It("sets the final approval date when nothing needs approving", func() {
			e := inProgress(0)
			e.Status = expense.StatusPending
			workflow.GenerateRequests(nil, plain).ApplyTo(e, time.Now())
			Expect(e.Status).To(Equal(expense.StatusApproved))
			Expect(e.FinalApprovalDate).NotTo(BeNil())
			Expect(e.FinalApproverID).To(BeNil())
		})
	})

	It("binds requests to the stored expense", func() {
		gen := workflow.GenerateRequests(sequentialRule(1, []int64{10}, []int64{20}), plain)
		gen.Bind(42)
		for _, r := range gen.Requests {
			Expect(r.ExpenseID).To(Equal(int64(42)))
		}
	})
})
