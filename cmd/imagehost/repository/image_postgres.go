package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/lyzr/imagehost/cmd/imagehost/models"
	"github.com/lyzr/imagehost/common/db"
)

// PostgresImageRepository handles image metadata on Postgres
type PostgresImageRepository struct {
	db *db.DB
}

// NewPostgresImageRepository creates a new Postgres image repository
func NewPostgresImageRepository(db *db.DB) *PostgresImageRepository {
	return &PostgresImageRepository{db: db}
}

// Insert stores a record. An existing identity yields ErrDuplicateIdentity.
func (r *PostgresImageRepository) Insert(ctx context.Context, rec *models.ImageRecord) error {
	rec.UploadTime = normalizeTime(rec.UploadTime)

	query := `
		INSERT INTO images (identity, original_name, size_kb, file_type, upload_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query,
		rec.Identity,
		rec.OriginalName,
		rec.SizeKB,
		rec.FileType,
		rec.UploadTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateIdentity
	}

	return nil
}

// ListPage returns one page ordered newest first, ties broken by identity
func (r *PostgresImageRepository) ListPage(ctx context.Context, page, size int) ([]*models.ImageRecord, error) {
	limit, offset, ok, err := PageWindow(page, size)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []*models.ImageRecord{}, nil
	}

	query := `
		SELECT identity, original_name, size_kb, file_type, upload_time
		FROM images
		ORDER BY upload_time DESC, identity ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	records := make([]*models.ImageRecord, 0, limit)
	for rows.Next() {
		rec := &models.ImageRecord{}
		if err := rows.Scan(
			&rec.Identity,
			&rec.OriginalName,
			&rec.SizeKB,
			&rec.FileType,
			&rec.UploadTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		rec.UploadTime = rec.UploadTime.UTC()
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}

	return records, nil
}

// FindByIdentity retrieves a record by identity
func (r *PostgresImageRepository) FindByIdentity(ctx context.Context, identity string) (*models.ImageRecord, error) {
	query := `
		SELECT identity, original_name, size_kb, file_type, upload_time
		FROM images
		WHERE identity = $1
	`

	rec := &models.ImageRecord{}
	err := r.db.QueryRow(ctx, query, identity).Scan(
		&rec.Identity,
		&rec.OriginalName,
		&rec.SizeKB,
		&rec.FileType,
		&rec.UploadTime,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get image: %w", err)
	}

	rec.UploadTime = rec.UploadTime.UTC()
	return rec, nil
}

// Delete removes a record by identity
func (r *PostgresImageRepository) Delete(ctx context.Context, identity string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM images WHERE identity = $1`, identity)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
