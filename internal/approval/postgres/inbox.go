package postgres

import (
	"context"
	"strings"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/jmoiron/sqlx"
)

const defaultInboxLimit = 50

// InboxReader serves the approver inbox with a hand-written join; gorm
// preloading would need three round trips for the same page.
type InboxReader struct {
	db *sqlx.DB
}

func NewInboxReader(db *sqlx.DB) *InboxReader {
	return &InboxReader{db: db}
}

// ListPending returns the caller's Pending requests whose step is the
// expense's current step, oldest submission first.
func (r *InboxReader) ListPending(ctx context.Context, companyID, approverID int64, filter approval.InboxFilter) ([]approval.PendingItem, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT ar.id AS request_id,
		       e.id AS expense_id,
		       ar.step_number,
		       e.employee_id,
		       u.name AS employee_name,
		       e.category,
		       e.description,
		       CAST(e.amount AS TEXT) AS amount,
		       e.currency_code,
		       CAST(e.converted_amount AS TEXT) AS converted_amount,
		       e.submitted_at,
		       ar.created_at AS requested_at
		  FROM approval_requests ar
		  JOIN expenses e ON e.id = ar.expense_id
		  JOIN users u ON u.id = e.employee_id
		 WHERE ar.approver_id = ?
		   AND ar.status = ?
		   AND ar.step_number = e.current_approval_step
		   AND e.company_id = ?
		   AND e.status IN (?, ?)`)

	args := []interface{}{approverID, string(approval.StatusPending), companyID,
		string(expense.StatusPending), string(expense.StatusInProgress)}

	if filter.Category != "" {
		sb.WriteString(" AND e.category = ?")
		args = append(args, filter.Category)
	}
	if filter.Submitted != nil {
		sb.WriteString(" AND e.submitted_at >= ?")
		args = append(args, *filter.Submitted)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	sb.WriteString(" ORDER BY e.submitted_at ASC, ar.id ASC LIMIT ? OFFSET ?")
	args = append(args, limit, filter.Offset)

	items := make([]approval.PendingItem, 0)
	if err := r.db.SelectContext(ctx, &items, r.db.Rebind(sb.String()), args...); err != nil {
		return nil, err
	}
	return items, nil
}
