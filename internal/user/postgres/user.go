package postgres

import (
	"context"
	"errors"

	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/user"
	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetByID(ctx context.Context, userID int64) (*user.User, error) {
	var row userDatamodel.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrUserNotFound
		}
		return nil, err
	}
	return user.FromDataModel(&row), nil
}

func (r *Repository) FindActiveIDs(ctx context.Context, companyID int64, ids []int64) ([]int64, error) {
	var found []int64
	err := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("company_id = ? AND is_active = ? AND id IN ?", companyID, true, ids).
		Pluck("id", &found).Error
	return found, err
}

func (r *Repository) ListReportIDs(ctx context.Context, managerID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("manager_id = ?", managerID).
		Pluck("id", &ids).Error
	return ids, err
}
