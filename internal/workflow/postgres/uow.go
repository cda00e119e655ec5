package postgres

import (
	"context"

	approvalPostgres "github.com/frahmantamala/expense-approval/internal/approval/postgres"
	rulePostgres "github.com/frahmantamala/expense-approval/internal/approvalrule/postgres"
	"github.com/frahmantamala/expense-approval/internal/expense"
	expensePostgres "github.com/frahmantamala/expense-approval/internal/expense/postgres"
	"github.com/frahmantamala/expense-approval/internal/workflow"
	"gorm.io/gorm"
)

type GormUoW struct{ db *gorm.DB }

func NewGormUoW(db *gorm.DB) *GormUoW { return &GormUoW{db: db} }

func repos(tx *gorm.DB) workflow.Repos {
	return workflow.Repos{
		Expenses: expensePostgres.NewExpenseRepository(tx),
		Requests: approvalPostgres.NewRequestRepository(tx),
		Rules:    rulePostgres.NewRuleRepository(tx),
	}
}

func (u *GormUoW) WithinTx(ctx context.Context, fn func(r workflow.Repos) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repos(tx))
	})
}

func (u *GormUoW) WithinExpenseTx(ctx context.Context, expenseID int64, fn func(r workflow.Repos, e *expense.Expense) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		r := repos(tx)
		e, err := r.Expenses.GetByIDForUpdate(ctx, expenseID)
		if err != nil {
			return err
		}
		return fn(r, e)
	})
}
