package postgres_test

import (
	"context"
	"time"

	"github.com/frahmantamala/expense-approval/internal/approval"
	approvalPostgres "github.com/frahmantamala/expense-approval/internal/approval/postgres"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/testutil/testdb"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var _ = Describe("Approval request storage", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo *approvalPostgres.RequestRepository
	)

	BeforeEach(func() {
		var err error
		ctx = context.Background()
		db, err = testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		repo = approvalPostgres.NewRequestRepository(db)
	})

	Describe("RequestRepository", func() {
		It("creates a batch and assigns ids", func() {
			reqs := []*approval.Request{
				approval.NewPendingRequest(1, 10, 0),
				approval.NewPendingRequest(1, 20, 1),
			}
			Expect(repo.CreateBatch(ctx, reqs)).To(Succeed())
			Expect(reqs[0].ID).NotTo(BeZero())
			Expect(reqs[1].ID).To(BeNumerically(">", reqs[0].ID))

			set, err := repo.ListByExpense(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(set).To(HaveLen(2))
			Expect(set[0].StepNumber).To(Equal(0))
		})

		It("returns not found for an unknown id", func() {
			_, err := repo.GetByID(ctx, 999)
			Expect(err).To(MatchError(approval.ErrRequestNotFound))
		})

		It("decides a pending request once", func() {
			req := approval.NewPendingRequest(1, 10, 0)
			Expect(repo.CreateBatch(ctx, []*approval.Request{req})).To(Succeed())

			Expect(req.Decide(approval.DecisionApprove, "ok", time.Now())).To(Succeed())
			Expect(repo.MarkDecided(ctx, req)).To(Succeed())

			stored, err := repo.GetByID(ctx, req.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(approval.StatusApproved))
			Expect(*stored.Comment).To(Equal("ok"))

			Expect(repo.MarkDecided(ctx, req)).To(MatchError(approval.ErrAlreadyDecided))
		})

		It("deletes every request of an expense", func() {
			Expect(repo.CreateBatch(ctx, []*approval.Request{
				approval.NewPendingRequest(1, 10, 0),
				approval.NewPendingRequest(2, 10, 0),
			})).To(Succeed())

			Expect(repo.DeleteByExpense(ctx, 1)).To(Succeed())

			left, err := repo.ListByExpense(ctx, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(left).To(BeEmpty())
			other, err := repo.ListByExpense(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(other).To(HaveLen(1))
		})
	})

	Describe("InboxReader", func() {
		var inbox *approvalPostgres.InboxReader

		seedExpense := func(step int, status string) int64 {
			e := &expenseDatamodel.Expense{
				CompanyID:           1,
				EmployeeID:          5,
				Amount:              decimal.NewFromInt(1500),
				CurrencyCode:        "USD",
				ConvertedAmount:     decimal.NewFromInt(1500),
				Category:            "Travel",
				Description:         "Flight",
				Status:              status,
				CurrentApprovalStep: step,
				SubmittedAt:         time.Now().UTC(),
			}
			Expect(db.Create(e).Error).To(Succeed())
			return e.ID
		}

		BeforeEach(func() {
			sqlDB, err := db.DB()
			Expect(err).NotTo(HaveOccurred())
			inbox = approvalPostgres.NewInboxReader(sqlx.NewDb(sqlDB, "sqlite3"))

			Expect(db.Create(&userDatamodel.User{
				ID: 5, CompanyID: 1, Email: "emp@acme.test", Name: "Employee", PasswordHash: "x", Role: "Employee", IsActive: true,
			}).Error).To(Succeed())
		})

		It("lists only requests at the expense's current step", func() {
			expenseID := seedExpense(1, "In Progress")
			Expect(repo.CreateBatch(ctx, []*approval.Request{
				{ExpenseID: expenseID, ApproverID: 10, StepNumber: 0, Status: approval.StatusApproved},
				approval.NewPendingRequest(expenseID, 20, 1),
				approval.NewPendingRequest(expenseID, 20, 2),
			})).To(Succeed())

			items, err := inbox.ListPending(ctx, 1, 20, approval.InboxFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
			Expect(items[0].ExpenseID).To(Equal(expenseID))
			Expect(items[0].StepNumber).To(Equal(1))
			Expect(items[0].EmployeeName).To(Equal("Employee"))
			Expect(items[0].Category).To(Equal("Travel"))
		})

		It("ignores terminal expenses and other companies", func() {
			done := seedExpense(0, "Rejected")
			Expect(repo.CreateBatch(ctx, []*approval.Request{
				approval.NewPendingRequest(done, 20, 0),
			})).To(Succeed())

			items, err := inbox.ListPending(ctx, 1, 20, approval.InboxFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(BeEmpty())

			open := seedExpense(0, "Pending")
			Expect(repo.CreateBatch(ctx, []*approval.Request{
				approval.NewPendingRequest(open, 20, 0),
			})).To(Succeed())

			items, err = inbox.ListPending(ctx, 2, 20, approval.InboxFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(BeEmpty())
		})

		It("filters by category", func() {
			id := seedExpense(0, "Pending")
			Expect(repo.CreateBatch(ctx, []*approval.Request{
				approval.NewPendingRequest(id, 20, 0),
			})).To(Succeed())

			items, err := inbox.ListPending(ctx, 1, 20, approval.InboxFilter{Category: "Food"})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(BeEmpty())

			items, err = inbox.ListPending(ctx, 1, 20, approval.InboxFilter{Category: "Travel"})
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))
		})
	})
})
