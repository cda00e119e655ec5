package postgres

import (
	"context"
	"errors"

	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultListLimit = 20

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	row := expense.ToDataModel(e)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	e.ID = row.ID
	e.CreatedAt = row.CreatedAt
	e.UpdatedAt = row.UpdatedAt
	return r.insertComments(ctx, e)
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*expense.Expense, error) {
	return r.get(ctx, r.db.WithContext(ctx), id)
}

// GetByIDForUpdate issues SELECT ... FOR UPDATE. The sqlite dialect used in
// tests drops the clause; there the single connection serializes instead.
func (r *ExpenseRepository) GetByIDForUpdate(ctx context.Context, id int64) (*expense.Expense, error) {
	return r.get(ctx, r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *ExpenseRepository) get(ctx context.Context, q *gorm.DB, id int64) (*expense.Expense, error) {
	var row expenseDatamodel.Expense
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, err
	}

	var comments []*expenseDatamodel.Comment
	err := r.db.WithContext(ctx).
		Where("expense_id = ?", id).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return expense.FromDataModel(&row, comments), nil
}

func (r *ExpenseRepository) Save(ctx context.Context, e *expense.Expense, guard expense.Guard) error {
	row := expense.ToDataModel(e)
	res := r.db.WithContext(ctx).
		Model(&expenseDatamodel.Expense{}).
		Where("id = ? AND status = ? AND current_approval_step = ?", e.ID, string(guard.Status), guard.Step).
		Updates(map[string]interface{}{
			"amount":                row.Amount,
			"currency_code":         row.CurrencyCode,
			"converted_amount":      row.ConvertedAmount,
			"category":              row.Category,
			"description":           row.Description,
			"expense_date":          row.ExpenseDate,
			"status":                row.Status,
			"current_approval_step": row.CurrentApprovalStep,
			"approval_rule_id":      row.ApprovalRuleID,
			"final_approver_id":     row.FinalApproverID,
			"final_approval_date":   row.FinalApprovalDate,
			"submitted_at":          row.SubmittedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return expense.ErrConcurrentWrite
	}
	return r.insertComments(ctx, e)
}

func (r *ExpenseRepository) insertComments(ctx context.Context, e *expense.Expense) error {
	for i := range e.Comments {
		if e.Comments[i].ID != 0 {
			continue
		}
		row := expense.CommentToDataModel(e.ID, e.Comments[i])
		if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
			return err
		}
		e.Comments[i].ID = row.ID
	}
	return nil
}

func (r *ExpenseRepository) DeleteComments(ctx context.Context, expenseID int64) error {
	return r.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Delete(&expenseDatamodel.Comment{}).Error
}

func (r *ExpenseRepository) Delete(ctx context.Context, id int64) error {
	if err := r.DeleteComments(ctx, id); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&expenseDatamodel.Expense{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return expense.ErrExpenseNotFound
	}
	return nil
}

// List returns expenses without their comment logs.
func (r *ExpenseRepository) List(ctx context.Context, filter expense.ListFilter) ([]*expense.Expense, error) {
	q := r.db.WithContext(ctx).Where("company_id = ?", filter.CompanyID)
	if len(filter.EmployeeIDs) > 0 {
		q = q.Where("employee_id IN ?", filter.EmployeeIDs)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	var rows []*expenseDatamodel.Expense
	err := q.Order("submitted_at DESC, id DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*expense.Expense, len(rows))
	for i, row := range rows {
		out[i] = expense.FromDataModel(row, nil)
	}
	return out, nil
}
