package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/pkg/logger"
)

// RequireRoles lets the request through only when the authenticated user has
// one of the given roles. It must run after the auth middleware.
func RequireRoles(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				writeAppError(w, internal.NewUnauthorizedError("authentication required", internal.ErrCodeInvalidToken))
				return
			}

			if !user.HasRole(roles...) {
				logger.From(r.Context()).Warn("access denied: role not allowed",
					"user_id", user.ID,
					"company_id", internal.CompanyIDFromContext(r.Context()),
					"role", user.Role,
					"required_roles", roles)
				writeAppError(w, internal.NewForbiddenError("insufficient role", internal.ErrCodeUnauthorizedAccess))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAppError(w http.ResponseWriter, appErr *internal.AppError) {
	status, body := appErr.ToHTTPResponse()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
