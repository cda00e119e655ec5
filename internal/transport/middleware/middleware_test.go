package middleware_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/expense-approval/internal/auth"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testDocument = `
openapi: 3.0.3
info:
  title: test
  version: "1"
paths:
  /api/v1/expenses:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [amount, description]
              properties:
                amount:
                  type: string
                description:
                  type: string
                  minLength: 1
      responses:
        "201":
          description: created
  /api/v1/expenses/{id}:
    get:
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
      responses:
        "200":
          description: ok
`

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

var _ = Describe("OpenAPIValidator", func() {
	var handler http.Handler

	BeforeEach(func() {
		path := filepath.Join(GinkgoT().TempDir(), "openapi.yml")
		Expect(os.WriteFile(path, []byte(testDocument), 0o600)).To(Succeed())

		doc, err := middleware.LoadOpenAPI(context.Background(), path)
		Expect(err).NotTo(HaveOccurred())
		mw, err := middleware.OpenAPIValidator(doc)
		Expect(err).NotTo(HaveOccurred())
		handler = mw(okHandler)
	})

	serve := func(method, target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	It("accepts a matching body", func() {
		Expect(serve(http.MethodPost, "/api/v1/expenses", `{"amount":"10","description":"taxi"}`).Code).To(Equal(http.StatusOK))
	})

	It("rejects a body missing required fields", func() {
		rec := serve(http.MethodPost, "/api/v1/expenses", `{"amount":"10"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(errorCode(rec)).To(Equal("REQUEST_DOES_NOT_MATCH_SCHEMA"))
	})

	It("rejects a path parameter of the wrong type", func() {
		Expect(serve(http.MethodGet, "/api/v1/expenses/abc", "").Code).To(Equal(http.StatusBadRequest))
	})

	It("leaves undocumented routes alone", func() {
		Expect(serve(http.MethodGet, "/health", "").Code).To(Equal(http.StatusOK))
	})

	It("fails to load a missing document", func() {
		_, err := middleware.LoadOpenAPI(context.Background(), "does-not-exist.yml")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("CORS", func() {
	handler := middleware.CORS("https://app.example.com")(okHandler)

	It("echoes an allowed origin", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(Equal("https://app.example.com"))
	})

	It("sets nothing for other origins", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		Expect(rec.Header().Get("Access-Control-Allow-Origin")).To(BeEmpty())
		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("short-circuits preflight requests", func() {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		Expect(rec.Code).To(Equal(http.StatusNoContent))
		Expect(rec.Header().Get("Access-Control-Allow-Headers")).To(ContainSubstring("Idempotency-Key"))
	})
})

var _ = Describe("RequireRoles", func() {
	handler := middleware.RequireRoles(auth.RoleAdmin)(okHandler)

	serveAs := func(u *auth.User) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/approval-rules", nil)
		if u != nil {
			req = req.WithContext(auth.ContextWithUser(req.Context(), u))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	It("lets admins through", func() {
		Expect(serveAs(&auth.User{ID: 1, Role: auth.RoleAdmin}).Code).To(Equal(http.StatusOK))
	})

	It("forbids other roles", func() {
		rec := serveAs(&auth.User{ID: 2, Role: auth.RoleManager})
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(errorCode(rec)).To(Equal("UNAUTHORIZED_ACCESS"))
	})

	It("requires authentication", func() {
		Expect(serveAs(nil).Code).To(Equal(http.StatusUnauthorized))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into a 500 without leaking it", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler := middleware.RecoveryMiddleware(lg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(rec.Code).To(Equal(http.StatusInternalServerError))
		Expect(rec.Body.String()).NotTo(ContainSubstring("boom"))
	})
})

var _ = Describe("RequestID", func() {
	It("propagates an incoming trace id", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", "abc")
		middleware.RequestID(okHandler).ServeHTTP(rec, req)
		Expect(rec.Header().Get("X-Trace-ID")).To(Equal("abc"))
	})

	It("generates one when missing", func() {
		rec := httptest.NewRecorder()
		middleware.RequestID(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(rec.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})

	It("replaces a malformed incoming trace id", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", "bad id\nwith newline")
		middleware.RequestID(okHandler).ServeHTTP(rec, req)
		Expect(rec.Header().Get("X-Trace-ID")).NotTo(Equal("bad id\nwith newline"))
		Expect(rec.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})
})

var _ = Describe("LoggingMiddleware", func() {
	var (
		buf *strings.Builder
		lg  *slog.Logger
	)

	BeforeEach(func() {
		buf = &strings.Builder{}
		lg = slog.New(slog.NewJSONHandler(buf, nil))
	})

	It("redacts credentials from headers and bodies and leaves the body readable", func() {
		var seen string
		h := middleware.LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			seen = string(b)
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":"UNAUTHORIZED"}}`))
		}))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
			strings.NewReader(`{"email":"a@b.c","password":"hunter22"}`))
		req.Header.Set("Authorization", "Bearer abc.def")
		req.Header.Set("Idempotency-Key", "key-00000001")
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(seen).To(ContainSubstring("hunter22"))
		out := buf.String()
		Expect(out).NotTo(ContainSubstring("hunter22"))
		Expect(out).NotTo(ContainSubstring("abc.def"))
		Expect(out).To(ContainSubstring(`"status":401`))
		Expect(out).To(ContainSubstring(`"level":"WARN"`))
		Expect(out).To(ContainSubstring(`"idempotency_key":"key-00000001"`))
		Expect(out).To(ContainSubstring("UNAUTHORIZED"))
	})

	It("stays quiet for healthy probes", func() {
		h := middleware.LoggingMiddleware(lg)(okHandler)
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
		Expect(buf.String()).To(BeEmpty())
	})

	It("logs server errors at error level", func() {
		h := middleware.LoggingMiddleware(lg)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
		Expect(buf.String()).To(ContainSubstring(`"level":"ERROR"`))
	})
})

var _ = Describe("RecoveryMiddleware with an aborted handler", func() {
	It("re-raises http.ErrAbortHandler", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		handler := middleware.RecoveryMiddleware(lg)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))
		Expect(func() {
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}).To(PanicWith(http.ErrAbortHandler))
	})
})
