package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"strings"

	"github.com/lyzr/imagehost/cmd/imagehost/models"
	"github.com/lyzr/imagehost/cmd/imagehost/repository"
	"github.com/lyzr/imagehost/common/blob"
	"github.com/lyzr/imagehost/common/lock"
	"github.com/lyzr/imagehost/common/logger"
)

// ImageService reads and deletes stored images by their public file name
type ImageService struct {
	blobs  blob.Store
	repo   repository.ImageRepository
	locker lock.Locker
	log    *logger.Logger
}

// NewImageService creates an image service
func NewImageService(blobs blob.Store, repo repository.ImageRepository, locker lock.Locker, log *logger.Logger) *ImageService {
	return &ImageService{
		blobs:  blobs,
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

// ParseFilename splits "{identity}.{ext}". Anything that cannot name a blob is ErrNotFound.
func ParseFilename(filename string) (identity, ext string, err error) {
	i := strings.LastIndexByte(filename, '.')
	if i <= 0 {
		return "", "", ErrNotFound
	}
	identity, ext = filename[:i], filename[i+1:]
	if blob.ValidateName(identity, ext) != nil {
		return "", "", ErrNotFound
	}
	return identity, ext, nil
}

// Open returns the stored bytes and their content type
func (s *ImageService) Open(ctx context.Context, filename string) ([]byte, string, error) {
	identity, ext, err := ParseFilename(filename)
	if err != nil {
		return nil, "", err
	}

	data, err := s.blobs.Get(ctx, identity, ext)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, "", ErrNotFound
	}
	if err != nil {
		s.log.WithContext(ctx).Error("failed to read blob", "filename", filename, "error", err)
		return nil, "", fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	contentType := mime.TypeByExtension("." + ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return data, contentType, nil
}

// Delete removes the record and then the blob. If the blob cannot be removed
// the record is restored so both stores still agree.
func (s *ImageService) Delete(ctx context.Context, filename string) error {
	identity, ext, err := ParseFilename(filename)
	if err != nil {
		return err
	}
	log := s.log.WithContext(ctx).WithIdentity(identity)

	unlock, err := s.locker.Lock(ctx, identity)
	if err != nil {
		return err
	}
	defer unlock()

	rec, err := s.repo.FindByIdentity(ctx, identity)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		log.Error("failed to look up image", "error", err)
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if rec.Ext() != ext {
		return ErrNotFound
	}

	if err := s.repo.Delete(ctx, identity); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		log.Error("failed to delete record", "error", err)
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	if err := s.blobs.Delete(cleanupCtx, identity, ext); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.restore(cleanupCtx, log, rec)
		log.Error("failed to delete blob", "error", err)
		return fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	log.Info("image deleted", "filename", rec.Filename())
	return nil
}

func (s *ImageService) restore(ctx context.Context, log *logger.Logger, rec *models.ImageRecord) {
	if err := s.repo.Insert(ctx, rec); err != nil {
		log.Error("failed to restore record after blob delete failure", "error", err)
		return
	}
	log.Warn("record restored after blob delete failure")
}
