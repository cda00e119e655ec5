package user

import (
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
)

// User is a directory entry: who someone is, who they report to and whether
// that manager signs off first.
type User struct {
	ID                int64     `json:"id"`
	CompanyID         int64     `json:"company_id"`
	Email             string    `json:"email"`
	Name              string    `json:"name"`
	Role              string    `json:"role"`
	ManagerID         *int64    `json:"manager_id,omitempty"`
	IsManagerApprover bool      `json:"is_manager_approver"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

var ErrUserNotFound = internal.NewNotFoundError("User not found", internal.ErrCodeUserNotFound)

// Profile is the /users/me view.
type Profile struct {
	User
	Manager *Summary `json:"manager,omitempty"`
}

type Summary struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func FromDataModel(m *userDatamodel.User) *User {
	return &User{
		ID:                m.ID,
		CompanyID:         m.CompanyID,
		Email:             m.Email,
		Name:              m.Name,
		Role:              m.Role,
		ManagerID:         m.ManagerID,
		IsManagerApprover: m.IsManagerApprover,
		IsActive:          m.IsActive,
		CreatedAt:         m.CreatedAt,
	}
}
