package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	ruleDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/approvalrule"
	"gorm.io/gorm"
)

type RuleRepository struct {
	db *gorm.DB
}

func NewRuleRepository(db *gorm.DB) *RuleRepository {
	return &RuleRepository{db: db}
}

func (r *RuleRepository) ListActive(ctx context.Context, companyID int64) ([]*approvalrule.Rule, error) {
	var rows []*ruleDatamodel.ApprovalRule
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyID, true).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (r *RuleRepository) List(ctx context.Context, companyID int64) ([]*approvalrule.Rule, error) {
	var rows []*ruleDatamodel.ApprovalRule
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("min_amount DESC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return fromRows(rows), nil
}

func (r *RuleRepository) GetByID(ctx context.Context, id int64) (*approvalrule.Rule, error) {
	var row ruleDatamodel.ApprovalRule
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, approvalrule.ErrRuleNotFound
		}
		return nil, err
	}
	return approvalrule.FromDataModel(&row), nil
}

func (r *RuleRepository) Create(ctx context.Context, rule *approvalrule.Rule) error {
	row := approvalrule.ToDataModel(rule)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	rule.ID = row.ID
	rule.CreatedAt = row.CreatedAt
	rule.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *RuleRepository) Update(ctx context.Context, rule *approvalrule.Rule) error {
	row := approvalrule.ToDataModel(rule)
	if err := r.db.WithContext(ctx).Save(row).Error; err != nil {
		return err
	}
	rule.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *RuleRepository) Delete(ctx context.Context, companyID, id int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		Delete(&ruleDatamodel.ApprovalRule{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return approvalrule.ErrRuleNotFound
	}
	return nil
}

func fromRows(rows []*ruleDatamodel.ApprovalRule) []*approvalrule.Rule {
	out := make([]*approvalrule.Rule, len(rows))
	for i, row := range rows {
		out[i] = approvalrule.FromDataModel(row)
	}
	return out
}
