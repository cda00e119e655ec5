package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"gorm.io/gorm"
)

var errUserNotFound = internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCredentialsByEmail(ctx context.Context, email string) (*auth.Credentials, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return &auth.Credentials{
		User:         toPrincipal(&row),
		PasswordHash: row.PasswordHash,
		IsActive:     row.IsActive,
	}, nil
}

func (r *Repository) GetActiveUser(ctx context.Context, userID int64) (*auth.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", userID, true).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	u := toPrincipal(&row)
	return &u, nil
}

func toPrincipal(row *userDatamodel.User) auth.User {
	return auth.User{
		ID:        row.ID,
		CompanyID: row.CompanyID,
		Email:     row.Email,
		Role:      auth.Role(row.Role),
	}
}
