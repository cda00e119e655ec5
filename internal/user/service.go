package user

import (
	"context"
	"fmt"
	"log/slog"
)

type Repository interface {
	GetByID(ctx context.Context, userID int64) (*User, error)
	// FindActiveIDs returns the subset of ids that are active users of the company.
	FindActiveIDs(ctx context.Context, companyID int64, ids []int64) ([]int64, error)
	ListReportIDs(ctx context.Context, managerID int64) ([]int64, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return u, nil
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := &Profile{User: *u}
	if u.ManagerID != nil {
		m, err := s.repo.GetByID(ctx, *u.ManagerID)
		if err != nil {
			// a dangling manager reference is not worth failing the profile for
			s.logger.Warn("manager lookup failed", "user_id", u.ID, "manager_id", *u.ManagerID, "error", err)
		} else {
			profile.Manager = &Summary{ID: m.ID, Name: m.Name, Email: m.Email}
		}
	}
	return profile, nil
}

// MissingApprovers returns the ids that are not active users of the company.
func (s *Service) MissingApprovers(ctx context.Context, companyID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.repo.FindActiveIDs(ctx, companyID, ids)
	if err != nil {
		return nil, err
	}
	present := make(map[int64]struct{}, len(found))
	for _, id := range found {
		present[id] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (s *Service) ListReportIDs(ctx context.Context, managerID int64) ([]int64, error) {
	return s.repo.ListReportIDs(ctx, managerID)
}

func (s *Service) ManagerOf(ctx context.Context, userID int64) (*int64, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.ManagerID, nil
}
