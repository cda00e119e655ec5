package auth

import (
	"github.com/frahmantamala/expense-approval/internal"
)

// ExpenseOwner is the slice of an expense the access policy looks at.
type ExpenseOwner struct {
	CompanyID  int64
	EmployeeID int64
	ManagerID  *int64
}

// ExpensePolicy is a small attribute-based check over the principal's role,
// company and reporting line.
type ExpensePolicy struct{}

func NewExpensePolicy() *ExpensePolicy {
	return &ExpensePolicy{}
}

// CanView allows the owner, the owner's manager and any admin of the same company.
func (p *ExpensePolicy) CanView(u *User, owner ExpenseOwner) error {
	if u == nil || u.CompanyID != owner.CompanyID {
		return internal.ErrUnauthorizedAccess
	}
	switch {
	case u.ID == owner.EmployeeID:
		return nil
	case u.IsAdmin():
		return nil
	case u.IsManager() && owner.ManagerID != nil && *owner.ManagerID == u.ID:
		return nil
	}
	return internal.ErrUnauthorizedAccess
}

// CanModify allows only the submitting employee.
func (p *ExpensePolicy) CanModify(u *User, owner ExpenseOwner) error {
	if u == nil || u.CompanyID != owner.CompanyID || u.ID != owner.EmployeeID {
		return internal.ErrUnauthorizedAccess
	}
	return nil
}

// Scope says which expenses a listing may return.
type Scope int

const (
	ScopeOwn Scope = iota
	ScopeReports
	ScopeCompany
)

func (p *ExpensePolicy) ListScope(u *User) Scope {
	switch {
	case u.IsAdmin():
		return ScopeCompany
	case u.IsManager():
		return ScopeReports
	}
	return ScopeOwn
}
