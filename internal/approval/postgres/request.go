package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/expense-approval/internal/approval"
	approvalDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/approval"
	"gorm.io/gorm"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) CreateBatch(ctx context.Context, requests []*approval.Request) error {
	if len(requests) == 0 {
		return nil
	}
	rows := make([]*approvalDatamodel.Request, len(requests))
	for i, req := range requests {
		rows[i] = approval.ToDataModel(req)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}
	for i, row := range rows {
		requests[i].ID = row.ID
		requests[i].CreatedAt = row.CreatedAt
	}
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*approval.Request, error) {
	var row approvalDatamodel.Request
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, approval.ErrRequestNotFound
		}
		return nil, err
	}
	return approval.FromDataModel(&row), nil
}

func (r *RequestRepository) ListByExpense(ctx context.Context, expenseID int64) (approval.Set, error) {
	var rows []*approvalDatamodel.Request
	err := r.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Order("step_number ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return approval.FromDataModelSlice(rows), nil
}

func (r *RequestRepository) MarkDecided(ctx context.Context, req *approval.Request) error {
	res := r.db.WithContext(ctx).
		Model(&approvalDatamodel.Request{}).
		Where("id = ? AND status = ?", req.ID, string(approval.StatusPending)).
		Updates(map[string]interface{}{
			"status":      string(req.Status),
			"comment":     req.Comment,
			"action_date": req.ActionDate,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return approval.ErrAlreadyDecided
	}
	return nil
}

func (r *RequestRepository) DeleteByExpense(ctx context.Context, expenseID int64) error {
	return r.db.WithContext(ctx).
		Where("expense_id = ?", expenseID).
		Delete(&approvalDatamodel.Request{}).Error
}
