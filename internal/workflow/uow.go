package workflow

import (
	"context"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	"github.com/frahmantamala/expense-approval/internal/expense"
)

type RuleStore interface {
	approvalrule.ActiveRuleLister
	GetByID(ctx context.Context, id int64) (*approvalrule.Rule, error)
}

// Repos are bound to one transaction. Inside fn only these may be used.
type Repos struct {
	Expenses expense.RepositoryAPI
	Requests approval.RepositoryAPI
	Rules    RuleStore
}

type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// WithinExpenseTx locks the expense row before calling fn.
	WithinExpenseTx(ctx context.Context, expenseID int64, fn func(r Repos, e *expense.Expense) error) error
}
