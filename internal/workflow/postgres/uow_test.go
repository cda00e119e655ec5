package postgres_test

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/testutil/testdb"
	"github.com/frahmantamala/expense-approval/internal/workflow"
	workflowPostgres "github.com/frahmantamala/expense-approval/internal/workflow/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func draft() *expense.Expense {
	return expense.NewExpense(1, 100, expense.Details{
		Amount:          decimal.NewFromInt(80),
		Currency:        "USD",
		ConvertedAmount: decimal.NewFromInt(80),
		Category:        "Food",
		Description:     "Team lunch",
		ExpenseDate:     time.Now().Add(-time.Hour),
	}, time.Now())
}

var _ = Describe("GormUoW", func() {
	var (
		ctx context.Context
		uow *workflowPostgres.GormUoW
	)

	BeforeEach(func() {
		ctx = context.Background()
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		uow = workflowPostgres.NewGormUoW(db)
	})

	count := func(expenseID int64) (bool, int) {
		var (
			found bool
			n     int
		)
		err := uow.WithinTx(ctx, func(r workflow.Repos) error {
			_, err := r.Expenses.GetByID(ctx, expenseID)
			found = err == nil
			set, err := r.Requests.ListByExpense(ctx, expenseID)
			n = len(set)
			return err
		})
		Expect(err).NotTo(HaveOccurred())
		return found, n
	}

	It("commits the expense and its requests together", func() {
		e := draft()
		err := uow.WithinTx(ctx, func(r workflow.Repos) error {
			if err := r.Expenses.Create(ctx, e); err != nil {
				return err
			}
			return r.Requests.CreateBatch(ctx, []*approval.Request{approval.NewPendingRequest(e.ID, 7, 1)})
		})
		Expect(err).NotTo(HaveOccurred())

		found, n := count(e.ID)
		Expect(found).To(BeTrue())
		Expect(n).To(Equal(1))
	})

	It("rolls both back when the callback fails", func() {
		boom := errors.New("boom")
		e := draft()
		err := uow.WithinTx(ctx, func(r workflow.Repos) error {
			if err := r.Expenses.Create(ctx, e); err != nil {
				return err
			}
			if err := r.Requests.CreateBatch(ctx, []*approval.Request{approval.NewPendingRequest(e.ID, 7, 1)}); err != nil {
				return err
			}
			return boom
		})
		Expect(err).To(MatchError(boom))

		found, n := count(e.ID)
		Expect(found).To(BeFalse())
		Expect(n).To(BeZero())
	})

	Describe("WithinExpenseTx", func() {
		It("hands the loaded expense to the callback", func() {
			e := draft()
			Expect(uow.WithinTx(ctx, func(r workflow.Repos) error { return r.Expenses.Create(ctx, e) })).To(Succeed())

			err := uow.WithinExpenseTx(ctx, e.ID, func(r workflow.Repos, locked *expense.Expense) error {
				Expect(locked.ID).To(Equal(e.ID))
				guard := locked.Guard()
				locked.StartWorkflow(nil, 1)
				return r.Expenses.Save(ctx, locked, guard)
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("fails with not found before calling back", func() {
			called := false
			err := uow.WithinExpenseTx(ctx, 404, func(workflow.Repos, *expense.Expense) error {
				called = true
				return nil
			})
			Expect(err).To(MatchError(expense.ErrExpenseNotFound))
			Expect(called).To(BeFalse())
		})

		It("rolls back when a stale guard is detected", func() {
			e := draft()
			Expect(uow.WithinTx(ctx, func(r workflow.Repos) error { return r.Expenses.Create(ctx, e) })).To(Succeed())

			err := uow.WithinExpenseTx(ctx, e.ID, func(r workflow.Repos, locked *expense.Expense) error {
				stale := expense.Guard{Status: expense.StatusInProgress, Step: 3}
				if err := r.Requests.CreateBatch(ctx, []*approval.Request{approval.NewPendingRequest(e.ID, 7, 1)}); err != nil {
					return err
				}
				locked.StartWorkflow(nil, 1)
				return r.Expenses.Save(ctx, locked, stale)
			})
			Expect(err).To(MatchError(expense.ErrConcurrentWrite))

			_, n := count(e.ID)
			Expect(n).To(BeZero())
		})
	})
})
