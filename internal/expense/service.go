package expense

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/auth"
)

// ReportingLine answers who manages whom.
type ReportingLine interface {
	ManagerOf(ctx context.Context, userID int64) (*int64, error)
	ListReportIDs(ctx context.Context, managerID int64) ([]int64, error)
}

type RequestLister interface {
	ListByExpense(ctx context.Context, expenseID int64) (approval.Set, error)
}

// Service serves the read side of expenses. Writes go through the workflow.
type Service struct {
	repo     RepositoryAPI
	requests RequestLister
	people   ReportingLine
	policy   *auth.ExpensePolicy
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, requests RequestLister, people ReportingLine, policy *auth.ExpensePolicy, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		requests: requests,
		people:   people,
		policy:   policy,
		logger:   logger,
	}
}

func (s *Service) GetExpense(ctx context.Context, actor *auth.User, id int64) (*Expense, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeView(ctx, actor, e); err != nil {
		return nil, err
	}
	return e, nil
}

// ListExpenses scopes by role: employees see their own, managers their
// reports and themselves, admins the whole company.
func (s *Service) ListExpenses(ctx context.Context, actor *auth.User, filter ListFilter) ([]*Expense, error) {
	filter.CompanyID = actor.CompanyID
	filter.EmployeeIDs = nil

	switch s.policy.ListScope(actor) {
	case auth.ScopeCompany:
	case auth.ScopeReports:
		reports, err := s.people.ListReportIDs(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		filter.EmployeeIDs = append(reports, actor.ID)
	default:
		filter.EmployeeIDs = []int64{actor.ID}
	}

	expenses, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list expenses", "user_id", actor.ID, "error", err)
		return nil, err
	}
	return expenses, nil
}

// GetApprovals lists the expense's requests ordered by step.
func (s *Service) GetApprovals(ctx context.Context, actor *auth.User, id int64) (approval.Set, error) {
	if _, err := s.GetExpense(ctx, actor, id); err != nil {
		return nil, err
	}
	set, err := s.requests.ListByExpense(ctx, id)
	if err != nil {
		return nil, err
	}
	return set.Sorted(), nil
}

func (s *Service) authorizeView(ctx context.Context, actor *auth.User, e *Expense) error {
	owner := auth.ExpenseOwner{CompanyID: e.CompanyID, EmployeeID: e.EmployeeID}
	if actor.IsManager() && actor.ID != e.EmployeeID {
		managerID, err := s.people.ManagerOf(ctx, e.EmployeeID)
		if err != nil {
			return err
		}
		owner.ManagerID = managerID
	}
	if err := s.policy.CanView(actor, owner); err != nil {
		// do not reveal that the expense exists
		return ErrExpenseNotFound
	}
	return nil
}
