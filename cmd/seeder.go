package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	approvalrulePostgres "github.com/frahmantamala/expense-approval/internal/approvalrule/postgres"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/category"
	categoryPostgres "github.com/frahmantamala/expense-approval/internal/category/postgres"
	userDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/user"
	"github.com/frahmantamala/expense-approval/internal/user"
	userPostgres "github.com/frahmantamala/expense-approval/internal/user/postgres"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const seedPassword = "password"

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed a demo company with users, the category catalog and a few approval rules.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		lg := logger.Init(cfg.Observability.Logging.Format, cfg.Observability.Logging.Level)

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := initGorm(sqlDB)
		if err != nil {
			log.Fatalf("failed to init gorm: %v", err)
		}

		if clearData {
			if err := db.Exec("TRUNCATE approval_requests, expense_comments, expenses, approval_rules, users, companies RESTART IDENTITY CASCADE").Error; err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		categoryService := category.NewService(categoryPostgres.NewCategoryRepository(db), lg)
		if err := categoryService.SeedCatalog(ctx); err != nil {
			log.Fatalf("failed to seed categories: %v", err)
		}
		fmt.Println("Expense categories seeded successfully")

		company := userDatamodel.Company{Name: "Acme Corp", CurrencyCode: "USD"}
		if err := db.Where("name = ?", company.Name).FirstOrCreate(&company).Error; err != nil {
			log.Fatalf("failed to seed company: %v", err)
		}

		hash, err := auth.HashPassword(seedPassword, cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		admin := seedUser(db, company.ID, "admin@acme.test", "Ada Admin", hash, auth.RoleAdmin, nil, false)
		director := seedUser(db, company.ID, "director@acme.test", "Dana Director", hash, auth.RoleManager, nil, false)
		finance := seedUser(db, company.ID, "finance@acme.test", "Finn Finance", hash, auth.RoleManager, &director, false)
		manager := seedUser(db, company.ID, "manager@acme.test", "Maya Manager", hash, auth.RoleManager, &director, true)
		seedUser(db, company.ID, "employee@acme.test", "Eli Employee", hash, auth.RoleEmployee, &manager, true)
		seedUser(db, company.ID, "intern@acme.test", "Ivy Intern", hash, auth.RoleEmployee, &manager, false)
		fmt.Printf("Seeded users for %s (password %q), admin id %d\n", company.Name, seedPassword, admin)

		var ruleCount int64
		if err := db.Table("approval_rules").Where("company_id = ?", company.ID).Count(&ruleCount).Error; err != nil {
			log.Fatalf("failed to count approval rules: %v", err)
		}
		if ruleCount > 0 {
			fmt.Println("Approval rules already present; skipping")
			return
		}

		ruleService := approvalrule.NewService(
			approvalrulePostgres.NewRuleRepository(db),
			user.NewService(userPostgres.NewRepository(db), lg),
			categoryService,
			lg,
		)
		for _, dto := range demoRules(finance, director) {
			rule, err := ruleService.CreateRule(ctx, company.ID, dto)
			if err != nil {
				log.Fatalf("failed to seed rule %q: %v", dto.Name, err)
			}
			fmt.Printf("Seeded approval rule: %s (%s)\n", rule.Name, rule.RuleType)
		}
	},
}

func seedUser(db *gorm.DB, companyID int64, email, name, hash string, role auth.Role, managerID *int64, managerApproves bool) int64 {
	u := userDatamodel.User{
		CompanyID:         companyID,
		Email:             email,
		Name:              name,
		PasswordHash:      hash,
		Role:              string(role),
		ManagerID:         managerID,
		IsManagerApprover: managerApproves,
		IsActive:          true,
	}
	if err := db.Where("email = ?", email).FirstOrCreate(&u).Error; err != nil {
		log.Fatalf("failed to seed user %s: %v", email, err)
	}
	return u.ID
}

func demoRules(finance, director int64) []approvalrule.CreateRuleDTO {
	return []approvalrule.CreateRuleDTO{
		{
			Name:      "Small expenses",
			RuleType:  approvalrule.RuleTypeSequential,
			Steps:     []approvalrule.Step{{StepNumber: 1, Approvers: []int64{finance}}},
			MinAmount: decimal.Zero,
			MaxAmount: decimal.NewNullDecimal(decimal.NewFromInt(500)),
		},
		{
			Name:     "Large travel",
			RuleType: approvalrule.RuleTypeHybrid,
			Steps: []approvalrule.Step{
				{StepNumber: 1, Approvers: []int64{finance}},
				{StepNumber: 2, Approvers: []int64{director}},
			},
			ConditionalRules: approvalrule.ConditionalRules{
				Percentage:       &approvalrule.PercentageRule{Enabled: true, Percentage: decimal.NewFromInt(60)},
				SpecificApprover: &approvalrule.SpecificApproverRule{Enabled: true, Approvers: []int64{director}},
				Hybrid:           &approvalrule.HybridRule{Enabled: true, Operator: approvalrule.OperatorOr},
			},
			MinAmount:  decimal.NewFromInt(500),
			Categories: []string{"Travel", "Accommodation"},
		},
		{
			Name:     "Large expenses",
			RuleType: approvalrule.RuleTypeConditional,
			Steps: []approvalrule.Step{
				{StepNumber: 1, Approvers: []int64{finance, director}},
			},
			ConditionalRules: approvalrule.ConditionalRules{
				Percentage: &approvalrule.PercentageRule{Enabled: true, Percentage: decimal.NewFromInt(100)},
			},
			MinAmount: decimal.NewFromInt(500),
		},
	}
}
