package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/frahmantamala/expense-approval/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

type Directory interface {
	GetByID(ctx context.Context, userID int64) (*user.User, error)
}

type Categories interface {
	Canonical(ctx context.Context, name string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service runs the approval workflow. Every state change happens inside one
// unit of work; events go out only after it commits.
type Service struct {
	uow        UnitOfWork
	directory  Directory
	categories Categories
	inbox      approval.InboxAPI
	policy     *auth.ExpensePolicy
	publisher  Publisher
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(
	uow UnitOfWork,
	directory Directory,
	categories Categories,
	inbox approval.InboxAPI,
	policy *auth.ExpensePolicy,
	publisher Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		uow:        uow,
		directory:  directory,
		categories: categories,
		inbox:      inbox,
		policy:     policy,
		publisher:  publisher,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) SubmitExpense(ctx context.Context, actor *auth.User, dto expense.SubmitExpenseDTO) (e *expense.Expense, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.SubmitExpense",
		attribute.Int64("user.id", actor.ID),
		attribute.Int64("company.id", actor.CompanyID))
	defer func() { tracing.EndSpan(span, err) }()

	now := s.now()
	details := dto.ToDetails(now)
	if details.Category, err = s.canonicalCategory(ctx, details.Category); err != nil {
		return nil, err
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}

	submitter, err := s.submitter(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	e = expense.NewExpense(actor.CompanyID, actor.ID, details, now)
	var gen Generation
	err = s.uow.WithinTx(ctx, func(r Repos) error {
		rule, err := approvalrule.NewSelector(r.Rules, s.logger).Select(ctx, e.CompanyID, e.ConvertedAmount, e.Category)
		if err != nil {
			return err
		}
		gen = GenerateRequests(rule, submitter)
		gen.ApplyTo(e, now)

		if err := r.Expenses.Create(ctx, e); err != nil {
			return err
		}
		gen.Bind(e.ID)
		if gen.AutoApproved() {
			return nil
		}
		return r.Requests.CreateBatch(ctx, gen.Requests)
	})
	if err != nil {
		s.logger.Error("failed to submit expense", "user_id", actor.ID, "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("expense.id", e.ID), attribute.String("expense.status", string(e.Status)))
	s.logger.Info("expense submitted",
		"expense_id", e.ID,
		"user_id", actor.ID,
		"status", e.Status,
		"requests", len(gen.Requests))

	s.publish(ctx, events.EventTypeExpenseSubmitted, e, actor.ID)
	if gen.AutoApproved() {
		s.publish(ctx, events.EventTypeExpenseApproved, e, actor.ID)
	}
	return e, nil
}

// Decide applies one approver's decision to one request.
func (s *Service) Decide(ctx context.Context, actor *auth.User, requestID int64, decision approval.Decision, comment string) (e *expense.Expense, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.Decide",
		attribute.Int64("request.id", requestID),
		attribute.Int64("user.id", actor.ID),
		attribute.String("decision", string(decision)))
	defer func() { tracing.EndSpan(span, err) }()

	var transition Transition
	err = s.uow.WithinTx(ctx, func(r Repos) error {
		req, err := r.Requests.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if req.ApproverID != actor.ID {
			return approval.ErrRequestNotFound
		}

		locked, err := r.Expenses.GetByIDForUpdate(ctx, req.ExpenseID)
		if err != nil {
			return err
		}
		if locked.CompanyID != actor.CompanyID {
			return approval.ErrRequestNotFound
		}
		guard := locked.Guard()

		// re-read under the lock; the first read may predate a concurrent decision
		requests, err := r.Requests.ListByExpense(ctx, locked.ID)
		if err != nil {
			return err
		}
		req = requests.Find(requestID)
		if req == nil {
			return approval.ErrRequestNotFound
		}

		rule, err := s.ruleOf(ctx, r, locked)
		if err != nil {
			return err
		}

		transition, err = Advance(locked, requests, rule, Decision{
			Request:  req,
			Decision: decision,
			Comment:  comment,
			At:       s.now(),
		})
		if err != nil {
			return err
		}

		if err := r.Requests.MarkDecided(ctx, req); err != nil {
			return err
		}
		if err := r.Expenses.Save(ctx, locked, guard); err != nil {
			return err
		}
		e = locked
		return nil
	})
	if err != nil {
		s.logger.Warn("decision not applied", "request_id", requestID, "user_id", actor.ID, "error", err)
		return nil, err
	}

	span.SetAttributes(attribute.String("transition", transition.String()))
	s.logger.Info("decision applied",
		"request_id", requestID,
		"expense_id", e.ID,
		"decision", decision,
		"transition", transition.String(),
		"status", e.Status,
		"step", e.CurrentApprovalStep)

	switch transition {
	case TransitionAdvanced:
		s.publish(ctx, events.EventTypeExpenseStepAdvanced, e, actor.ID)
	case TransitionApproved:
		s.publish(ctx, events.EventTypeExpenseApproved, e, actor.ID)
	case TransitionRejected:
		s.publish(ctx, events.EventTypeExpenseRejected, e, actor.ID)
	}
	return e, nil
}

// ResubmitAfterRejection edits a rejected expense, throws away its old chain
// and comment log, and generates a new chain the same way submission does.
func (s *Service) ResubmitAfterRejection(ctx context.Context, actor *auth.User, expenseID int64, dto expense.UpdateExpenseDTO) (e *expense.Expense, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.ResubmitAfterRejection",
		attribute.Int64("expense.id", expenseID),
		attribute.Int64("user.id", actor.ID))
	defer func() { tracing.EndSpan(span, err) }()

	if dto.Category != nil {
		canonical, err := s.canonicalCategory(ctx, *dto.Category)
		if err != nil {
			return nil, err
		}
		dto.Category = &canonical
	}

	submitter, err := s.submitter(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var gen Generation
	err = s.uow.WithinExpenseTx(ctx, expenseID, func(r Repos, locked *expense.Expense) error {
		if err := s.authorizeModify(actor, locked); err != nil {
			return err
		}
		guard := locked.Guard()

		details := dto.MergeInto(locked.Details())
		if err := details.Validate(); err != nil {
			return err
		}
		if err := locked.ResetForResubmission(details, now); err != nil {
			return err
		}

		if err := r.Requests.DeleteByExpense(ctx, locked.ID); err != nil {
			return err
		}
		if err := r.Expenses.DeleteComments(ctx, locked.ID); err != nil {
			return err
		}

		rule, err := approvalrule.NewSelector(r.Rules, s.logger).Select(ctx, locked.CompanyID, locked.ConvertedAmount, locked.Category)
		if err != nil {
			return err
		}
		gen = GenerateRequests(rule, submitter)
		gen.ApplyTo(locked, now)
		gen.Bind(locked.ID)

		if err := r.Expenses.Save(ctx, locked, guard); err != nil {
			return err
		}
		if !gen.AutoApproved() {
			if err := r.Requests.CreateBatch(ctx, gen.Requests); err != nil {
				return err
			}
		}
		e = locked
		return nil
	})
	if err != nil {
		s.logger.Warn("resubmission failed", "expense_id", expenseID, "user_id", actor.ID, "error", err)
		return nil, err
	}

	s.logger.Info("expense resubmitted", "expense_id", e.ID, "status", e.Status, "requests", len(gen.Requests))
	s.publish(ctx, events.EventTypeExpenseResubmitted, e, actor.ID)
	if gen.AutoApproved() {
		s.publish(ctx, events.EventTypeExpenseApproved, e, actor.ID)
	}
	return e, nil
}

// DeleteExpense removes a Pending or Rejected expense with its requests and
// comment log.
func (s *Service) DeleteExpense(ctx context.Context, actor *auth.User, expenseID int64) error {
	err := s.uow.WithinExpenseTx(ctx, expenseID, func(r Repos, locked *expense.Expense) error {
		if err := s.authorizeModify(actor, locked); err != nil {
			return err
		}
		if !locked.CanBeDeleted() {
			return expense.ErrCannotDelete
		}
		if err := r.Requests.DeleteByExpense(ctx, locked.ID); err != nil {
			return err
		}
		return r.Expenses.Delete(ctx, locked.ID)
	})
	if err != nil {
		return err
	}
	s.logger.Info("expense deleted", "expense_id", expenseID, "user_id", actor.ID)
	return nil
}

// ListPendingApprovals is the actor's inbox: requests they can act on now.
func (s *Service) ListPendingApprovals(ctx context.Context, actor *auth.User, filter approval.InboxFilter) ([]approval.PendingItem, error) {
	items, err := s.inbox.ListPending(ctx, actor.CompanyID, actor.ID, filter)
	if err != nil {
		s.logger.Error("failed to list pending approvals", "user_id", actor.ID, "error", err)
		return nil, err
	}
	return items, nil
}

func (s *Service) submitter(ctx context.Context, userID int64) (Submitter, error) {
	u, err := s.directory.GetByID(ctx, userID)
	if err != nil {
		return Submitter{}, err
	}
	return SubmitterFromUser(u), nil
}

func (s *Service) canonicalCategory(ctx context.Context, name string) (string, error) {
	if name == "" {
		// left to Details.Validate
		return name, nil
	}
	return s.categories.Canonical(ctx, name)
}

// ruleOf loads the rule recorded at submission. A rule deleted since then
// leaves the expense on its plain step chain.
func (s *Service) ruleOf(ctx context.Context, r Repos, e *expense.Expense) (*approvalrule.Rule, error) {
	if e.ApprovalRuleID == nil {
		return nil, nil
	}
	rule, err := r.Rules.GetByID(ctx, *e.ApprovalRuleID)
	if errors.Is(err, approvalrule.ErrRuleNotFound) {
		s.logger.Warn("approval rule no longer exists", "expense_id", e.ID, "rule_id", *e.ApprovalRuleID)
		return nil, nil
	}
	return rule, err
}

// authorizeModify hides other companies' expenses entirely.
func (s *Service) authorizeModify(actor *auth.User, e *expense.Expense) error {
	if e.CompanyID != actor.CompanyID {
		return expense.ErrExpenseNotFound
	}
	return s.policy.CanModify(actor, auth.ExpenseOwner{CompanyID: e.CompanyID, EmployeeID: e.EmployeeID})
}

func (s *Service) publish(ctx context.Context, eventType string, e *expense.Expense, actorID int64) {
	if s.publisher == nil {
		return
	}
	event := events.NewExpenseEvent(eventType, e.ID, e.CompanyID, actorID, string(e.Status), e.CurrentApprovalStep)
	// handlers run after the request returns
	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("failed to publish event", "event_type", eventType, "expense_id", e.ID, "error", err)
	}
}
