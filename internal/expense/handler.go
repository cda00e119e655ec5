package expense

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

type ServiceAPI interface {
	GetExpense(ctx context.Context, actor *auth.User, id int64) (*Expense, error)
	ListExpenses(ctx context.Context, actor *auth.User, filter ListFilter) ([]*Expense, error)
	GetApprovals(ctx context.Context, actor *auth.User, id int64) (approval.Set, error)
}

// WorkflowAPI is the write side; every state change goes through the
// approval workflow so requests and expense stay consistent.
type WorkflowAPI interface {
	SubmitExpense(ctx context.Context, actor *auth.User, dto SubmitExpenseDTO) (*Expense, error)
	ResubmitAfterRejection(ctx context.Context, actor *auth.User, id int64, dto UpdateExpenseDTO) (*Expense, error)
	DeleteExpense(ctx context.Context, actor *auth.User, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service  ServiceAPI
	Workflow WorkflowAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI, wf WorkflowAPI) *Handler {
	return &Handler{
		BaseHandler: base,
		Service:     svc,
		Workflow:    wf,
	}
}

type ApprovalsResponse struct {
	ExpenseID int64               `json:"expense_id"`
	Approvals []*approval.Request `json:"approvals"`
}

func (h *Handler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto SubmitExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	e, err := h.Workflow.SubmitExpense(r.Context(), user, dto)
	if err != nil {
		h.Logger.Warn("CreateExpense: workflow error", "error", err, "user_id", user.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, e)
}

func (h *Handler) GetExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	e, err := h.Service.GetExpense(r.Context(), user, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	filter := ListFilter{Category: q.Get("category")}
	if raw := q.Get("status"); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			h.HandleServiceError(w, internal.NewValidationFieldError("status", "unknown status", internal.ErrCodeValidationFailed))
			return
		}
		filter.Status = status
	}
	filter.Limit, filter.Offset = h.Paging(r)

	expenses, err := h.Service.ListExpenses(r.Context(), user, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if expenses == nil {
		expenses = []*Expense{}
	}

	h.WriteJSON(w, http.StatusOK, ListResponse{Expenses: expenses, Limit: filter.Limit, Offset: filter.Offset})
}

func (h *Handler) GetExpenseApprovals(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	set, err := h.Service.GetApprovals(r.Context(), user, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if set == nil {
		set = approval.Set{}
	}

	h.WriteJSON(w, http.StatusOK, ApprovalsResponse{ExpenseID: id, Approvals: set})
}

// ResubmitExpense edits a rejected expense and restarts its approval chain.
func (h *Handler) ResubmitExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	var dto UpdateExpenseDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	e, err := h.Workflow.ResubmitAfterRejection(r.Context(), user, id, dto)
	if err != nil {
		h.Logger.Warn("ResubmitExpense: workflow error", "error", err, "expense_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := h.IDParam(r, "id")
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	if err := h.Workflow.DeleteExpense(r.Context(), user, id); err != nil {
		h.Logger.Warn("DeleteExpense: workflow error", "error", err, "expense_id", id)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
