package rest

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-approval/internal/approvalrule"
	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/category"
	"github.com/frahmantamala/expense-approval/internal/expense"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	"github.com/frahmantamala/expense-approval/internal/transport/swagger"
	"github.com/frahmantamala/expense-approval/internal/user"
	"github.com/frahmantamala/expense-approval/internal/workflow"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers groups the HTTP handlers mounted under /api/v1. A nil handler
// leaves its routes unregistered.
type Handlers struct {
	Health   *HealthHandler
	Auth     *auth.Handler
	User     *user.Handler
	Category *category.Handler
	Expense  *expense.Handler
	Workflow *workflow.Handler
	Rules    *approvalrule.Handler
}

type Options struct {
	AllowedOrigins string
	SpecPath       string
	// Validator checks requests against the API document; nil skips it.
	Validator func(http.Handler) http.Handler
	// Idempotency wraps the mutating expense and approval routes; nil skips it.
	Idempotency func(http.Handler) http.Handler
	// RateLimit guards every /api/v1 route and LoginRateLimit additionally
	// guards login; nil skips either.
	RateLimit      func(http.Handler) http.Handler
	LoginRateLimit func(http.Handler) http.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	idempotent := opts.Idempotency
	if idempotent == nil {
		idempotent = passthrough
	}
	loginLimited := opts.LoginRateLimit
	if loginLimited == nil {
		loginLimited = passthrough
	}

	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeRouteNotFound(w, r)
	})

	// outside the API prefix so the validator never sees it
	swagger.Mount(router, opts.SpecPath)

	router.Route("/api/v1", func(r chi.Router) {
		if opts.RateLimit != nil {
			r.Use(opts.RateLimit)
		}
		if opts.Validator != nil {
			r.Use(opts.Validator)
		}

		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.With(loginLimited).Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
			})
		}

		if h.Category != nil {
			r.Get("/categories", h.Category.GetCategories)
		}

		if h.Auth == nil {
			return
		}

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			if h.User != nil {
				pr.Get("/users/me", h.User.GetCurrentUser)
			}

			if h.Expense != nil {
				pr.Route("/expenses", func(er chi.Router) {
					er.With(idempotent).Post("/", h.Expense.CreateExpense)
					er.Get("/", h.Expense.ListExpenses)
					er.Get("/{id}", h.Expense.GetExpense)
					er.With(idempotent).Put("/{id}", h.Expense.ResubmitExpense)
					er.Delete("/{id}", h.Expense.DeleteExpense)
					er.Get("/{id}/approvals", h.Expense.GetExpenseApprovals)
				})
			}

			if h.Workflow != nil {
				pr.Route("/approvals", func(ar chi.Router) {
					ar.Get("/pending", h.Workflow.ListPending)
					ar.With(idempotent).Post("/{id}/approve", h.Workflow.Approve)
					ar.With(idempotent).Post("/{id}/reject", h.Workflow.Reject)
				})
			}

			if h.Rules != nil {
				pr.Route("/approval-rules", func(rr chi.Router) {
					rr.Use(middleware.RequireRoles(auth.RoleAdmin))
					rr.Get("/", h.Rules.ListRules)
					rr.Post("/", h.Rules.CreateRule)
					rr.Get("/{id}", h.Rules.GetRule)
					rr.Patch("/{id}", h.Rules.UpdateRule)
					rr.Delete("/{id}", h.Rules.DeleteRule)
				})
			}
		})
	})
}
