package user

import "time"

type User struct {
	ID                int64     `gorm:"primaryKey"`
	CompanyID         int64     `gorm:"column:company_id;not null;index"`
	Email             string    `gorm:"column:email;uniqueIndex;not null"`
	Name              string    `gorm:"column:name;not null"`
	PasswordHash      string    `gorm:"column:password_hash;not null"`
	Role              string    `gorm:"column:role;not null"`
	ManagerID         *int64    `gorm:"column:manager_id"`
	IsManagerApprover bool      `gorm:"column:is_manager_approver;not null;default:false"`
	IsActive          bool      `gorm:"column:is_active;not null"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

type Company struct {
	ID           int64     `gorm:"primaryKey"`
	Name         string    `gorm:"column:name;not null"`
	CurrencyCode string    `gorm:"column:currency_code;size:3;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Company) TableName() string {
	return "companies"
}
