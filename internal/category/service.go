package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/expense-approval/internal"
	categoryDatamodel "github.com/frahmantamala/expense-approval/internal/core/datamodel/category"
)

type RepositoryAPI interface {
	ListActive(ctx context.Context) ([]*categoryDatamodel.ExpenseCategory, error)
	Upsert(ctx context.Context, category *categoryDatamodel.ExpenseCategory) error
}

var ErrUnknownCategory = internal.NewValidationError("Unknown expense category", internal.ErrCodeInvalidCategory)

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetAllCategories(ctx context.Context) ([]CategoryResponse, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to get categories from repository", "error", err)
		return nil, err
	}

	responses := make([]CategoryResponse, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, FromDataModel(row).ToResponse())
	}
	return responses, nil
}

// Canonical returns the catalog spelling of name, matching case-insensitively.
func (s *Service) Canonical(ctx context.Context, name string) (string, error) {
	rows, err := s.repo.ListActive(ctx)
	if err != nil {
		return "", err
	}
	for _, row := range rows {
		if strings.EqualFold(row.Name, strings.TrimSpace(name)) {
			return row.Name, nil
		}
	}
	return "", ErrUnknownCategory.WithDetails(internal.ValidationErrors{Errors: []internal.ValidationError{{
		Field:   "category",
		Message: fmt.Sprintf("%q is not an active category", name),
		Code:    string(internal.ErrCodeInvalidCategory),
	}}})
}

func (s *Service) IsValidCategory(ctx context.Context, name string) bool {
	_, err := s.Canonical(ctx, name)
	if err != nil && !internal.IsErrorType(err, internal.ErrorTypeValidation) {
		s.logger.Warn("error checking category validity", "name", name, "error", err)
	}
	return err == nil
}

// CanonicalAll resolves every name, failing on the first unknown one.
func (s *Service) CanonicalAll(ctx context.Context, names []string) ([]string, error) {
	out := make([]string, 0, len(names))
	for _, n := range names {
		c, err := s.Canonical(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SeedCatalog makes sure every catalog entry exists and is active.
func (s *Service) SeedCatalog(ctx context.Context) error {
	for i := range Catalog {
		c := Catalog[i]
		c.IsActive = true
		if err := s.repo.Upsert(ctx, ToDataModel(&c)); err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	s.logger.Info("category catalog seeded", "count", len(Catalog))
	return nil
}
