package category

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/frahmantamala/expense-approval/internal/transport"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

type ServiceAPI interface {
	GetAllCategories(ctx context.Context) ([]CategoryResponse, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

// catalogMaxAge bounds how long clients may cache the public catalog.
const catalogMaxAge = 5 * time.Minute

// GetCategories lists the active catalog; the submit form uses it to offer
// valid category names.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Service.GetAllCategories(r.Context())
	if err != nil {
		logger.From(r.Context()).Error("GetCategories: failed to get categories", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(catalogMaxAge.Seconds())))
	h.WriteJSON(w, http.StatusOK, CategoriesResponse{Categories: categories})
}
