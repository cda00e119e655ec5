package expense

import "context"

type RepositoryAPI interface {
	Create(ctx context.Context, e *Expense) error
	GetByID(ctx context.Context, id int64) (*Expense, error)
	// GetByIDForUpdate locks the expense row until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id int64) (*Expense, error)
	// Save writes every mutable column, but only if the stored row still
	// matches guard; otherwise it returns ErrConcurrentWrite. New comments
	// are inserted.
	Save(ctx context.Context, e *Expense, guard Guard) error
	DeleteComments(ctx context.Context, expenseID int64) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter ListFilter) ([]*Expense, error)
}
