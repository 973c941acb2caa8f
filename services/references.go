package services

import (
	"context"

	"plantmaint/db"
	"plantmaint/models"
)

// ReferenceService serves the sector and maintainer pick lists. Both are
// seeded with defaults the first time they are read empty.
type ReferenceService struct {
	repo *db.Repository
}

func NewReferenceService(repo *db.Repository) *ReferenceService {
	return &ReferenceService{repo: repo}
}

func (s *ReferenceService) Sectors(ctx context.Context, activeOnly bool) ([]models.Sector, error) {
	all, err := s.repo.ListSectors(ctx)
	if err != nil || !activeOnly {
		return all, err
	}
	out := make([]models.Sector, 0, len(all))
	for _, sec := range all {
		if sec.Active {
			out = append(out, sec)
		}
	}
	return out, nil
}

func (s *ReferenceService) Maintainers(ctx context.Context, activeOnly bool) ([]models.Maintainer, error) {
	all, err := s.repo.ListMaintainers(ctx)
	if err != nil || !activeOnly {
		return all, err
	}
	out := make([]models.Maintainer, 0, len(all))
	for _, m := range all {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}
