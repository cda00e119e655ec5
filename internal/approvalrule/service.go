package approvalrule

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/expense-approval/internal"
)

type RepositoryAPI interface {
	ActiveRuleLister
	Create(ctx context.Context, r *Rule) error
	Update(ctx context.Context, r *Rule) error
	Delete(ctx context.Context, companyID, id int64) error
	GetByID(ctx context.Context, id int64) (*Rule, error)
	List(ctx context.Context, companyID int64) ([]*Rule, error)
}

// ApproverDirectory reports which approver ids do not name active users of a company.
type ApproverDirectory interface {
	MissingApprovers(ctx context.Context, companyID int64, ids []int64) ([]int64, error)
}

type CategoryCatalog interface {
	CanonicalAll(ctx context.Context, names []string) ([]string, error)
}

type Service struct {
	repo       RepositoryAPI
	directory  ApproverDirectory
	categories CategoryCatalog
	logger     *slog.Logger
}

func NewService(repo RepositoryAPI, directory ApproverDirectory, categories CategoryCatalog, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		directory:  directory,
		categories: categories,
		logger:     logger,
	}
}

func (s *Service) CreateRule(ctx context.Context, companyID int64, dto CreateRuleDTO) (*Rule, error) {
	rule := dto.ToRule(companyID)
	if err := s.check(ctx, rule); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, internal.NewInternalError("failed to create approval rule", err)
	}
	s.logger.Info("approval rule created", "rule_id", rule.ID, "company_id", companyID, "rule_type", rule.RuleType)
	return rule, nil
}

func (s *Service) UpdateRule(ctx context.Context, companyID, id int64, dto UpdateRuleDTO) (*Rule, error) {
	rule, err := s.GetRule(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	dto.ApplyTo(rule)
	if err := s.check(ctx, rule); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, internal.NewInternalError("failed to update approval rule", err)
	}
	s.logger.Info("approval rule updated", "rule_id", rule.ID, "company_id", companyID, "is_active", rule.IsActive)
	return rule, nil
}

// GetRule hides rules of other companies behind not found.
func (s *Service) GetRule(ctx context.Context, companyID, id int64) (*Rule, error) {
	rule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.CompanyID != companyID {
		return nil, ErrRuleNotFound
	}
	return rule, nil
}

func (s *Service) ListRules(ctx context.Context, companyID int64) ([]*Rule, error) {
	return s.repo.List(ctx, companyID)
}

// DeleteRule leaves in-flight expenses alone; they fall back to sequential
// handling once their rule is gone.
func (s *Service) DeleteRule(ctx context.Context, companyID, id int64) error {
	if _, err := s.GetRule(ctx, companyID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, companyID, id); err != nil {
		return internal.NewInternalError("failed to delete approval rule", err)
	}
	s.logger.Info("approval rule deleted", "rule_id", id, "company_id", companyID)
	return nil
}

func (s *Service) check(ctx context.Context, rule *Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	if len(rule.Categories) > 0 {
		canonical, err := s.categories.CanonicalAll(ctx, rule.Categories)
		if err != nil {
			return err
		}
		rule.Categories = canonical
	}

	missing, err := s.directory.MissingApprovers(ctx, rule.CompanyID, rule.ApproverIDs())
	if err != nil {
		return internal.NewInternalError("failed to verify approvers", err)
	}
	if len(missing) > 0 {
		return internal.NewConfigurationError(
			fmt.Sprintf("approval rule references unknown approvers: %v", missing),
			internal.ErrCodeUnknownApprover,
		).WithDetails(map[string]interface{}{"unknown_approver_ids": missing})
	}
	return nil
}
