package workflow

import (
	"context"
	"net/http"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/approval"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

type ServiceAPI interface {
	Decide(ctx context.Context, actor *auth.User, requestID int64, decision approval.Decision, comment string) (*expense.Expense, error)
	ListPendingApprovals(ctx context.Context, actor *auth.User, filter approval.InboxFilter) ([]approval.PendingItem, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(base *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: base,
		Service:     svc,
	}
}

// DecisionDTO is the optional body of approve and reject.
type DecisionDTO struct {
	Comment string `json:"comment"`
}

type PendingResponse struct {
	Approvals []approval.PendingItem `json:"approvals"`
	Limit     int                    `json:"limit"`
	Offset    int                    `json:"offset"`
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, approval.DecisionApprove)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, approval.DecisionReject)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, decision approval.Decision) {
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

	var dto DecisionDTO
	if r.ContentLength != 0 {
		if err := h.DecodeJSON(r, &dto); err != nil {
			h.HandleServiceError(w, err)
			return
		}
	}

	e, err := h.Service.Decide(r.Context(), user, id, decision, dto.Comment)
	if err != nil {
		h.Logger.Warn("Decide: service error", "error", err, "request_id", id, "decision", decision)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) ListPending(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	filter := approval.InboxFilter{Category: q.Get("category")}
	if raw := q.Get("submitted_after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.HandleServiceError(w, internal.NewValidationFieldError("submitted_after", "must be an RFC3339 timestamp", internal.ErrCodeInvalidDate))
			return
		}
		filter.Submitted = &t
	}
	filter.Limit, filter.Offset = h.Paging(r)

	items, err := h.Service.ListPendingApprovals(r.Context(), user, filter)
	if err != nil {
		h.Logger.Error("ListPending: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	if items == nil {
		items = []approval.PendingItem{}
	}

	h.WriteJSON(w, http.StatusOK, PendingResponse{Approvals: items, Limit: filter.Limit, Offset: filter.Offset})
}
