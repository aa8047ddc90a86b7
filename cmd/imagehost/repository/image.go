package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lyzr/imagehost/cmd/imagehost/models"
)

var (
	// ErrNotFound is returned when no record has the requested identity
	ErrNotFound = errors.New("image record not found")

	// ErrDuplicateIdentity is returned by Insert when the identity is already taken
	ErrDuplicateIdentity = errors.New("duplicate image identity")
)

// ImageRepository is the metadata store contract shared by all engines
type ImageRepository interface {
	Insert(ctx context.Context, rec *models.ImageRecord) error
	ListPage(ctx context.Context, page, size int) ([]*models.ImageRecord, error)
	FindByIdentity(ctx context.Context, identity string) (*models.ImageRecord, error)
	Delete(ctx context.Context, identity string) error
}

// PageWindow converts a 1-based page number into LIMIT/OFFSET.
// page < 1 is treated as 1. ok is false when the window cannot hold any row.
func PageWindow(page, size int) (limit, offset int64, ok bool, err error) {
	if size < 1 {
		return 0, 0, false, fmt.Errorf("invalid page size: %d", size)
	}
	if page < 1 {
		page = 1
	}

	p, n := int64(page-1), int64(size)
	if p > math.MaxInt64/n {
		return 0, 0, false, nil
	}
	return n, p * n, true, nil
}

// normalizeTime fixes the precision both engines store
func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Truncate(time.Microsecond)
}
