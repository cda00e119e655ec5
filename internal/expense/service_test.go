package expense_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/expense"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type memoryExpenses struct {
	byID       map[int64]*expense.Expense
	lastFilter expense.ListFilter
}

func (m *memoryExpenses) Create(_ context.Context, e *expense.Expense) error {
	e.ID = int64(len(m.byID) + 1)
	m.byID[e.ID] = e
	return nil
}

func (m *memoryExpenses) GetByID(_ context.Context, id int64) (*expense.Expense, error) {
	e, ok := m.byID[id]
	if !ok {
		return nil, expense.ErrExpenseNotFound
	}
	return e, nil
}

func (m *memoryExpenses) GetByIDForUpdate(ctx context.Context, id int64) (*expense.Expense, error) {
	return m.GetByID(ctx, id)
}

func (m *memoryExpenses) Save(context.Context, *expense.Expense, expense.Guard) error { return nil }
func (m *memoryExpenses) DeleteComments(context.Context, int64) error                 { return nil }
func (m *memoryExpenses) Delete(context.Context, int64) error                         { return nil }

func (m *memoryExpenses) List(_ context.Context, f expense.ListFilter) ([]*expense.Expense, error) {
	m.lastFilter = f
	return nil, nil
}

type fakeRequests struct{ set approval.Set }

func (f fakeRequests) ListByExpense(context.Context, int64) (approval.Set, error) {
	return f.set, nil
}

type fakeReportingLine struct {
	managers map[int64]int64
	reports  map[int64][]int64
}

func (f fakeReportingLine) ManagerOf(_ context.Context, userID int64) (*int64, error) {
	if m, ok := f.managers[userID]; ok {
		return &m, nil
	}
	return nil, nil
}

func (f fakeReportingLine) ListReportIDs(_ context.Context, managerID int64) ([]int64, error) {
	return f.reports[managerID], nil
}

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		repo    *memoryExpenses
		service *expense.Service

		employee = &auth.User{ID: 2, CompanyID: 1, Role: auth.RoleEmployee}
		manager  = &auth.User{ID: 5, CompanyID: 1, Role: auth.RoleManager}
		stranger = &auth.User{ID: 6, CompanyID: 1, Role: auth.RoleManager}
		admin    = &auth.User{ID: 1, CompanyID: 1, Role: auth.RoleAdmin}
		outsider = &auth.User{ID: 8, CompanyID: 2, Role: auth.RoleAdmin}
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = &memoryExpenses{byID: map[int64]*expense.Expense{}}
		e := expense.NewExpense(1, 2, validDetails(), time.Now())
		Expect(repo.Create(ctx, e)).To(Succeed())

		requests := fakeRequests{set: approval.Set{
			{ID: 2, ExpenseID: 1, ApproverID: 9, StepNumber: 1, Status: approval.StatusPending},
			{ID: 1, ExpenseID: 1, ApproverID: 5, StepNumber: 0, Status: approval.StatusApproved},
		}}
		people := fakeReportingLine{
			managers: map[int64]int64{2: 5},
			reports:  map[int64][]int64{5: {2, 3}},
		}
		service = expense.NewService(repo, requests, people, auth.NewExpensePolicy(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	Describe("GetExpense", func() {
		It("lets the owner, their manager and an admin read it", func() {
			for _, actor := range []*auth.User{employee, manager, admin} {
				_, err := service.GetExpense(ctx, actor, 1)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("hides it from other managers and other companies", func() {
			for _, actor := range []*auth.User{stranger, outsider} {
				_, err := service.GetExpense(ctx, actor, 1)
				Expect(err).To(MatchError(expense.ErrExpenseNotFound))
			}
		})
	})

	Describe("ListExpenses", func() {
		It("scopes employees to their own expenses", func() {
			_, err := service.ListExpenses(ctx, employee, expense.ListFilter{EmployeeIDs: []int64{99}})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastFilter.EmployeeIDs).To(Equal([]int64{2}))
			Expect(repo.lastFilter.CompanyID).To(Equal(int64(1)))
		})

		It("scopes managers to their reports and themselves", func() {
			_, err := service.ListExpenses(ctx, manager, expense.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastFilter.EmployeeIDs).To(ConsistOf(int64(2), int64(3), int64(5)))
		})

		It("gives admins the whole company", func() {
			_, err := service.ListExpenses(ctx, admin, expense.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(repo.lastFilter.EmployeeIDs).To(BeEmpty())
		})
	})

	Describe("GetApprovals", func() {
		It("returns the requests ordered by step", func() {
			set, err := service.GetApprovals(ctx, employee, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(set).To(HaveLen(2))
			Expect(set[0].StepNumber).To(Equal(0))
			Expect(set[1].StepNumber).To(Equal(1))
		})

		It("applies the same visibility as the expense", func() {
			_, err := service.GetApprovals(ctx, stranger, 1)
			Expect(err).To(MatchError(expense.ErrExpenseNotFound))
		})
	})
})
