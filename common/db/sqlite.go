package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lyzr/imagehost/common/logger"
	_ "modernc.org/sqlite"
)

// SQLite wraps an embedded database used for single-node deployments and tests
type SQLite struct {
	*sql.DB
	log  *logger.Logger
	path string
}

// OpenSQLite opens (creating if needed) the database file at path
func OpenSQLite(ctx context.Context, path string, log *logger.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// sqlite serializes writers; one connection keeps them queued here instead of SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	log.Info("sqlite opened", "path", path)

	return &SQLite{DB: conn, log: log, path: path}, nil
}

// Migrate executes a schema script
func (s *SQLite) Migrate(ctx context.Context, schema string) error {
	if _, err := s.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info("sqlite schema applied", "path", s.path)
	return nil
}

// Close closes the underlying handle
func (s *SQLite) Close() error {
	s.log.Info("closing sqlite", "path", s.path)
	return s.DB.Close()
}

// Health checks database health
func (s *SQLite) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return s.PingContext(ctx)
}
