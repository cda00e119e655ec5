package approval

import (
	"context"
	"time"
)

type RepositoryAPI interface {
	CreateBatch(ctx context.Context, requests []*Request) error
	GetByID(ctx context.Context, id int64) (*Request, error)
	ListByExpense(ctx context.Context, expenseID int64) (Set, error)
	// MarkDecided updates the request only while it is still Pending and
	// returns ErrAlreadyDecided otherwise.
	MarkDecided(ctx context.Context, r *Request) error
	DeleteByExpense(ctx context.Context, expenseID int64) error
}

// InboxFilter narrows an approver's pending inbox.
type InboxFilter struct {
	Category  string
	Submitted *time.Time
	Limit     int
	Offset    int
}

type InboxAPI interface {
	ListPending(ctx context.Context, companyID, approverID int64, filter InboxFilter) ([]PendingItem, error)
}
