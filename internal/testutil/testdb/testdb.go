// Package testdb opens an in-memory sqlite database migrated with every
// datamodel, for repository and unit-of-work tests.
package testdb

import (
	approvalDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/approval"
	approvalruleDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/approvalrule"
	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
	expenseDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/expense"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// every connection to :memory: is a fresh database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&userDatamodel.Company{},
		&userDatamodel.User{},
		&categoryDatamodel.ExpenseCategory{},
		&approvalruleDatamodel.ApprovalRule{},
		&expenseDatamodel.Expense{},
		&expenseDatamodel.Comment{},
		&approvalDatamodel.Request{},
	)
	if err != nil {
		return nil, err
	}
	return db, nil
}
