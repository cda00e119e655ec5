package category_test

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/frahmantamala/expense-approval/internal"
	"github.com/frahmantamala/expense-approval/internal/category"
	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// MockRepository implements category.RepositoryAPI for testing
type MockRepository struct {
	categories map[string]*categoryDatamodel.ExpenseCategory
	shouldFail bool
	failError  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{categories: make(map[string]*categoryDatamodel.ExpenseCategory)}
}

func (m *MockRepository) ListActive(context.Context) ([]*categoryDatamodel.ExpenseCategory, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var result []*categoryDatamodel.ExpenseCategory
	for _, cat := range m.categories {
		if cat.IsActive {
			result = append(result, cat)
		}
	}
	return result, nil
}

func (m *MockRepository) Upsert(_ context.Context, cat *categoryDatamodel.ExpenseCategory) error {
	if m.shouldFail {
		return m.failError
	}
	m.categories[cat.Name] = cat
	return nil
}

func (m *MockRepository) SetShouldFail(fail bool, err error) {
	m.shouldFail = fail
	m.failError = err
}

var _ = Describe("Category Service", func() {
	var (
		ctx      context.Context
		mockRepo *MockRepository
		service  *category.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		mockRepo = NewMockRepository()
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = category.NewService(mockRepo, logger)
	})

	Describe("SeedCatalog", func() {
		It("should store every catalog entry as active", func() {
			Expect(service.SeedCatalog(ctx)).To(Succeed())
			Expect(mockRepo.categories).To(HaveLen(len(category.Catalog)))
			Expect(mockRepo.categories["Office Supplies"].IsActive).To(BeTrue())
		})

		It("should wrap repository failures", func() {
			mockRepo.SetShouldFail(true, errors.New("db down"))
			err := service.SeedCatalog(ctx)
			Expect(err).To(MatchError(ContainSubstring("seed category Travel")))
		})
	})

	Describe("GetAllCategories", func() {
		BeforeEach(func() {
			mockRepo.categories["Travel"] = &categoryDatamodel.ExpenseCategory{Name: "Travel", Description: "Trips", SortOrder: 1, IsActive: true}
			mockRepo.categories["Legacy"] = &categoryDatamodel.ExpenseCategory{Name: "Legacy", Description: "Old", IsActive: false}
		})

		It("should return only active categories", func() {
			got, err := service.GetAllCategories(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(ConsistOf(category.CategoryResponse{Name: "Travel", Description: "Trips", SortOrder: 1}))
		})

		It("should return the repository error", func() {
			mockRepo.SetShouldFail(true, errors.New("database error"))
			_, err := service.GetAllCategories(ctx)
			Expect(err).To(MatchError("database error"))
		})
	})

	Describe("Canonical", func() {
		BeforeEach(func() {
			Expect(service.SeedCatalog(ctx)).To(Succeed())
		})

		It("should resolve names case-insensitively", func() {
			name, err := service.Canonical(ctx, " office supplies ")
			Expect(err).NotTo(HaveOccurred())
			Expect(name).To(Equal("Office Supplies"))
		})

		It("should reject unknown names with a validation error", func() {
			_, err := service.Canonical(ctx, "Gambling")
			Expect(err).To(MatchError(category.ErrUnknownCategory))
			Expect(internal.IsErrorType(err, internal.ErrorTypeValidation)).To(BeTrue())
			Expect(service.IsValidCategory(ctx, "Gambling")).To(BeFalse())
			Expect(service.IsValidCategory(ctx, "Food")).To(BeTrue())
		})

		It("should resolve lists and stop at the first unknown", func() {
			names, err := service.CanonicalAll(ctx, []string{"travel", "FOOD"})
			Expect(err).NotTo(HaveOccurred())
			Expect(names).To(Equal([]string{"Travel", "Food"}))

			_, err = service.CanonicalAll(ctx, []string{"travel", "nope"})
			Expect(err).To(MatchError(category.ErrUnknownCategory))
		})
	})
})
