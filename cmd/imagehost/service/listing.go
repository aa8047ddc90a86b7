package service

import (
	"context"
	"fmt"

	"github.com/lyzr/imagehost/cmd/imagehost/models"
	"github.com/lyzr/imagehost/cmd/imagehost/repository"
	"github.com/lyzr/imagehost/common/logger"
)

// ListingService serves paginated metadata reads
type ListingService struct {
	repo     repository.ImageRepository
	pageSize int
	log      *logger.Logger
}

// NewListingService creates a listing service with a fixed page size
func NewListingService(repo repository.ImageRepository, pageSize int, log *logger.Logger) *ListingService {
	return &ListingService{
		repo:     repo,
		pageSize: pageSize,
		log:      log,
	}
}

// Page returns page number page (1-based, clamped) newest first
func (s *ListingService) Page(ctx context.Context, page int) (*models.ImageList, error) {
	if page < 1 {
		page = 1
	}

	records, err := s.repo.ListPage(ctx, page, s.pageSize)
	if err != nil {
		s.log.WithContext(ctx).Error("failed to list images", "page", page, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	list := &models.ImageList{Images: make([]models.ImageListItem, 0, len(records))}
	for _, rec := range records {
		list.Images = append(list.Images, rec.ToListItem())
	}

	s.log.WithContext(ctx).Debug("listed images", "page", page, "count", len(list.Images))
	return list, nil
}
