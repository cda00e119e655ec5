package workflow_test

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/workflow"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Advance", func() {
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	decide := func(e *expense.Expense, set approval.Set, rule *approvalrule.Rule, id int64, d approval.Decision) (workflow.Transition, error) {
		return workflow.Advance(e, set, rule, workflow.Decision{Request: set.Find(id), Decision: d, At: at})
	}

	Describe("guards", func() {
		It("refuses a request whose step is not current and changes nothing", func() {
			e := inProgress(1)
			set := chain(pending(10, 1), pending(20, 2))

			t, err := decide(e, set, nil, 2, approval.DecisionApprove)

			Expect(err).To(MatchError(workflow.ErrOutOfOrder))
			Expect(t).To(Equal(workflow.TransitionNone))
			Expect(set.Find(2).Status).To(Equal(approval.StatusPending))
			Expect(e.Comments).To(BeEmpty())
			Expect(e.CurrentApprovalStep).To(Equal(1))
		})

		It("refuses an out-of-turn reject too", func() {
			e := inProgress(1)
			set := chain(pending(10, 1), pending(20, 2))
			_, err := decide(e, set, nil, 2, approval.DecisionReject)
			Expect(err).To(MatchError(workflow.ErrOutOfOrder))
			Expect(e.Status).To(Equal(expense.StatusInProgress))
		})

		It("refuses a request that was already decided", func() {
			e := inProgress(1)
			set := chain(withStatus(pending(10, 1), approval.StatusApproved), pending(11, 1))
			_, err := decide(e, set, nil, 1, approval.DecisionApprove)
			Expect(err).To(MatchError(approval.ErrAlreadyDecided))
		})

		It("reports a later-step request as out of turn after an early conditional approval", func() {
			rule := percentageRule(1, 50, []int64{10}, []int64{20})
			e := inProgress(1)
			set := chain(pending(10, 1), pending(20, 2))
			t, err := decide(e, set, rule, 1, approval.DecisionApprove)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(workflow.TransitionApproved))

			_, err = decide(e, set, rule, 2, approval.DecisionApprove)
			Expect(err).To(MatchError(workflow.ErrOutOfOrder))
			Expect(set.Find(2).Status).To(Equal(approval.StatusPending))
		})

		It("refuses to act on a terminal expense", func() {
			e := inProgress(1)
			e.Approve(10, at)
			set := chain(pending(11, 1))
			_, err := decide(e, set, nil, 1, approval.DecisionReject)
			Expect(err).To(MatchError(expense.ErrNotInProgress))
			Expect(*e.FinalApproverID).To(Equal(int64(10)))
		})
	})

	Describe("reject", func() {
		DescribeTable("one rejection at the current step rejects the expense",
			func(n int) {
				e := inProgress(1)
				reqs := make([]*approval.Request, n)
				for i := range reqs {
					reqs[i] = pending(int64(10+i), 1)
				}
				set := chain(reqs...)

				t, err := decide(e, set, nil, int64(n), approval.DecisionReject)

				Expect(err).NotTo(HaveOccurred())
				Expect(t).To(Equal(workflow.TransitionRejected))
				Expect(e.Status).To(Equal(expense.StatusRejected))
				Expect(*e.FinalApproverID).To(Equal(int64(10 + n - 1)))
				Expect(e.FinalApprovalDate).NotTo(BeNil())
			},
			Entry("single approver", 1),
			Entry("three approvers", 3),
			Entry("seven approvers", 7),
		)

		It("logs a default comment", func() {
			e := inProgress(1)
			set := chain(pending(10, 1))
			_, err := decide(e, set, nil, 1, approval.DecisionReject)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Comments).To(HaveLen(1))
			Expect(e.Comments[0].Text).To(Equal("Rejected"))
			Expect(e.Comments[0].Action).To(Equal(expense.ActionRejected))
			Expect(e.Comments[0].UserID).To(Equal(int64(10)))
		})
	})

	Describe("sequential approval", func() {
		It("advances after the whole step approves and finishes after the last step", func() {
			rule := sequentialRule(1, []int64{10, 11}, []int64{20})
			e := inProgress(1)
			set := chain(pending(10, 1), pending(11, 1), pending(20, 2))

			t, err := decide(e, set, rule, 1, approval.DecisionApprove)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(workflow.TransitionNone))
			Expect(e.CurrentApprovalStep).To(Equal(1))
			Expect(e.FinalApproverID).To(BeNil())

			t, err = decide(e, set, rule, 2, approval.DecisionApprove)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(workflow.TransitionAdvanced))
			Expect(e.CurrentApprovalStep).To(Equal(2))
			Expect(e.Status).To(Equal(expense.StatusInProgress))
			Expect(e.FinalApproverID).To(BeNil())

			t, err = decide(e, set, rule, 3, approval.DecisionApprove)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(workflow.TransitionApproved))
			Expect(e.Status).To(Equal(expense.StatusApproved))
			Expect(*e.FinalApproverID).To(Equal(int64(20)))
		})

		It("keeps a caller-supplied comment", func() {
			e := inProgress(1)
			set := chain(pending(10, 1))
			_, err := workflow.Advance(e, set, nil, workflow.Decision{
				Request: set.Find(1), Decision: approval.DecisionApprove, Comment: "looks right", At: at,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Comments[0].Text).To(Equal("looks right"))
			Expect(*set.Find(1).Comment).To(Equal("looks right"))
		})

		It("rejects when a rejection is already recorded at the step", func() {
			e := inProgress(1)
			set := chain(withStatus(pending(10, 1), approval.StatusRejected), pending(11, 1))
			t, err := decide(e, set, nil, 2, approval.DecisionApprove)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(workflow.TransitionRejected))
		})
	})

	Describe("conditional approval", func() {
		It("approves at 60% with one request still pending", func() {
			rule := percentageRule(1, 60, []int64{10, 11, 12})
			e := inProgress(1)
			set := chain(pending(10, 1), pending(11, 1), pending(12, 1))

			t, err := decide(e, set, rule, 1, approval.DecisionApprove)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(workflow.TransitionNone))

			t, err = decide(e, set, rule, 2, approval.DecisionApprove)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(workflow.TransitionApproved))
			Expect(e.Status).To(Equal(expense.StatusApproved))
			Expect(set.Find(3).Status).To(Equal(approval.StatusPending))
		})

		It("bypasses later steps once satisfied", func() {
			rule := percentageRule(1, 50, []int64{10}, []int64{20})
			e := inProgress(1)
			set := chain(pending(10, 1), pending(20, 2))

			t, err := decide(e, set, rule, 1, approval.DecisionApprove)
			Expect(err).NotTo(HaveOccurred())
			Expect(t).To(Equal(workflow.TransitionApproved))
			Expect(*e.FinalApproverID).To(Equal(int64(10)))
		})

		It("leaves nothing decidable afterwards", func() {
			rule := percentageRule(1, 50, []int64{10, 11})
			e := inProgress(1)
			set := chain(pending(10, 1), pending(11, 1))
			_, err := decide(e, set, rule, 1, approval.DecisionApprove)
			Expect(err).NotTo(HaveOccurred())

			_, err = decide(e, set, rule, 2, approval.DecisionApprove)
			Expect(err).To(MatchError(expense.ErrNotInProgress))
		})
	})

	It("hands over from the manager step to every rule step", func() {
		rule := sequentialRule(9, []int64{10}, []int64{20, 21})
		gen := workflow.GenerateRequests(rule, workflow.Submitter{ID: 100, ManagerID: ptr(int64(7)), IsManagerApprover: true})
		set := chain(gen.Requests...)
		Expect(pairs(set)).To(Equal([]pair{{7, 0}, {10, 2}, {20, 3}, {21, 3}}))

		e := inProgress(0)
		e.Status = expense.StatusPending
		gen.ApplyTo(e, at)
		Expect(e.CurrentApprovalStep).To(Equal(0))

		// Given the manager approves step 0
		t, err := decide(e, set, rule, 1, approval.DecisionApprove)

		// Then the first rule step becomes current instead of finishing early
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(workflow.TransitionAdvanced))
		Expect(e.Status).To(Equal(expense.StatusInProgress))
		Expect(e.CurrentApprovalStep).To(Equal(2))
		Expect(e.FinalApproverID).To(BeNil())

		t, err = decide(e, set, rule, 2, approval.DecisionApprove)
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(workflow.TransitionAdvanced))
		Expect(e.CurrentApprovalStep).To(Equal(3))

		_, err = decide(e, set, rule, 3, approval.DecisionApprove)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Status).To(Equal(expense.StatusInProgress))

		t, err = decide(e, set, rule, 4, approval.DecisionApprove)
		Expect(err).NotTo(HaveOccurred())
		Expect(t).To(Equal(workflow.TransitionApproved))
		Expect(*e.FinalApproverID).To(Equal(int64(21)))
		Expect(set.CountStatus(approval.StatusPending)).To(BeZero())
		Expect(e.Comments).To(HaveLen(4))
	})

	It("walks the two-step scenario to approval", func() {
		const a, b, c = 1, 2, 3
		rule := sequentialRule(9, []int64{a}, []int64{b, c})
		gen := workflow.GenerateRequests(rule, workflow.Submitter{ID: 100})
		set := chain(gen.Requests...)
		Expect(pairs(set)).To(Equal([]pair{{a, 1}, {b, 2}, {c, 2}}))

		e := inProgress(0)
		e.Status = expense.StatusPending
		gen.ApplyTo(e, at)
		Expect(e.Status).To(Equal(expense.StatusInProgress))
		Expect(e.CurrentApprovalStep).To(Equal(1))

		_, err := decide(e, set, rule, 1, approval.DecisionApprove)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.CurrentApprovalStep).To(Equal(2))

		_, err = decide(e, set, rule, 2, approval.DecisionApprove)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Status).To(Equal(expense.StatusInProgress))

		_, err = decide(e, set, rule, 3, approval.DecisionApprove)
		Expect(err).NotTo(HaveOccurred())
		Expect(e.Status).To(Equal(expense.StatusApproved))
		Expect(*e.FinalApproverID).To(Equal(int64(c)))
		Expect(e.Comments).To(HaveLen(3))
	})
})
