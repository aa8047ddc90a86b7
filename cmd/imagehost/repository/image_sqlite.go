package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lyzr/imagehost/cmd/imagehost/models"
	"github.com/lyzr/imagehost/common/db"
)

// SQLiteImageRepository handles image metadata on the embedded engine.
// upload_time is kept as unix microseconds so ordering is numeric.
type SQLiteImageRepository struct {
	db *db.SQLite
}

// NewSQLiteImageRepository creates a new SQLite image repository
func NewSQLiteImageRepository(db *db.SQLite) *SQLiteImageRepository {
	return &SQLiteImageRepository{db: db}
}

// Insert stores a record. An existing identity yields ErrDuplicateIdentity.
func (r *SQLiteImageRepository) Insert(ctx context.Context, rec *models.ImageRecord) error {
	rec.UploadTime = normalizeTime(rec.UploadTime)

	query := `
		INSERT INTO images (identity, original_name, size_kb, file_type, upload_time)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (identity) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		rec.Identity,
		rec.OriginalName,
		rec.SizeKB,
		rec.FileType,
		rec.UploadTime.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrDuplicateIdentity
	}

	return nil
}

// ListPage returns one page ordered newest first, ties broken by identity
func (r *SQLiteImageRepository) ListPage(ctx context.Context, page, size int) ([]*models.ImageRecord, error) {
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
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	records := make([]*models.ImageRecord, 0, limit)
	for rows.Next() {
		rec, err := scanSQLiteImage(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating images: %w", err)
	}

	return records, nil
}

// FindByIdentity retrieves a record by identity
func (r *SQLiteImageRepository) FindByIdentity(ctx context.Context, identity string) (*models.ImageRecord, error) {
	query := `
		SELECT identity, original_name, size_kb, file_type, upload_time
		FROM images
		WHERE identity = ?
	`

	rec, err := scanSQLiteImage(r.db.QueryRowContext(ctx, query, identity))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// Delete removes a record by identity
func (r *SQLiteImageRepository) Delete(ctx context.Context, identity string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE identity = ?`, identity)
	if err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteImage(row rowScanner) (*models.ImageRecord, error) {
	rec := &models.ImageRecord{}
	var micros int64

	err := row.Scan(
		&rec.Identity,
		&rec.OriginalName,
		&rec.SizeKB,
		&rec.FileType,
		&micros,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan image: %w", err)
	}

	rec.UploadTime = time.UnixMicro(micros).UTC()
	return rec, nil
}
