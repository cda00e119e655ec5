package rest_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/frahmantamala/expense-approval/internal/testutil/testdb"
	"github.com/frahmantamala/expense-approval/internal/transport/middleware"
	"github.com/frahmantamala/expense-approval/internal/transport/rest"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
)

var _ = Describe("Router", func() {
	var (
		mr     *miniredis.Miniredis
		router *chi.Mux
	)

	BeforeEach(func() {
		db, err := testdb.Open()
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())

		mr, err = miniredis.Run()
		Expect(err).NotTo(HaveOccurred())
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
		DeferCleanup(func() {
			_ = rdb.Close()
			mr.Close()
			_ = sqlDB.Close()
		})

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Health: rest.NewHealthHandler(sqlDB, rdb),
		}, rest.Options{
			AllowedOrigins: "*",
			RateLimit:      middleware.RateLimit(rdb, "api", 3, time.Hour),
		}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	It("answers ping", func() {
		Expect(get("/api/v1/ping").Code).To(Equal(http.StatusOK))
	})

	It("reports every component as healthy", func() {
		rec := get("/api/v1/health")
		Expect(rec.Code).To(Equal(http.StatusOK))

		var resp rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Status).To(Equal(rest.HealthHealthy))
		Expect(resp.Components).To(HaveKey("postgres"))
		Expect(resp.Components).To(HaveKey("redis"))
	})

	It("turns unhealthy when redis is down", func() {
		mr.Close()
		rec := get("/api/v1/health")
		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))

		var resp rest.HealthResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Components["redis"].Status).To(Equal(rest.HealthUnhealthy))
		Expect(resp.Components["postgres"].Status).To(Equal(rest.HealthHealthy))
	})

	It("does not mount protected routes without an auth handler", func() {
		rec := get("/api/v1/expenses")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Body.String()).To(ContainSubstring("ROUTE_NOT_FOUND"))
	})

	It("rate limits the api prefix", func() {
		for i := 0; i < 3; i++ {
			Expect(get("/api/v1/ping").Code).To(Equal(http.StatusOK))
		}
		rec := get("/api/v1/ping")
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get(middleware.RetryAfterHeader)).NotTo(BeEmpty())
	})

	It("returns a structured 404 for unknown routes", func() {
		rec := get("/nope")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Header().Get("Content-Type")).To(Equal("application/json"))
	})
})
