package approvalrule

import (
	"context"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/transport"
)

type ServiceAPI interface {
	CreateRule(ctx context.Context, companyID int64, dto CreateRuleDTO) (*Rule, error)
	UpdateRule(ctx context.Context, companyID, id int64, dto UpdateRuleDTO) (*Rule, error)
	GetRule(ctx context.Context, companyID, id int64) (*Rule, error)
	ListRules(ctx context.Context, companyID int64) ([]*Rule, error)
	DeleteRule(ctx context.Context, companyID, id int64) error
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

func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateRuleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	rule, err := h.Service.CreateRule(r.Context(), user.CompanyID, dto)
	if err != nil {
		h.Logger.Warn("CreateRule: service error", "error", err, "company_id", user.CompanyID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, rule)
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	rules, err := h.Service.ListRules(r.Context(), user.CompanyID)
	if err != nil {
		h.Logger.Error("ListRules: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}
	if rules == nil {
		rules = []*Rule{}
	}

	h.WriteJSON(w, http.StatusOK, RulesResponse{Rules: rules})
}

func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
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

	rule, err := h.Service.GetRule(r.Context(), user.CompanyID, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
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

	var dto UpdateRuleDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	rule, err := h.Service.UpdateRule(r.Context(), user.CompanyID, id, dto)
	if err != nil {
		h.Logger.Warn("UpdateRule: service error", "error", err, "rule_id", id)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rule)
}

func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
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

	if err := h.Service.DeleteRule(r.Context(), user.CompanyID, id); err != nil {
		h.Logger.Warn("DeleteRule: service error", "error", err, "rule_id", id)
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
