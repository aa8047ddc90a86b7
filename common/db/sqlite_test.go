package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lyzr/imagehost/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "meta.db")

	s, err := OpenSQLite(ctx, path, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Health(ctx))

	schema := `
		CREATE TABLE IF NOT EXISTS kv (k TEXT PRIMARY KEY, v TEXT NOT NULL);
		CREATE INDEX IF NOT EXISTS kv_v_idx ON kv (v);
	`
	require.NoError(t, s.Migrate(ctx, schema))
	// idempotent
	require.NoError(t, s.Migrate(ctx, schema))

	_, err = s.ExecContext(ctx, `INSERT INTO kv (k, v) VALUES ('a', 'b')`)
	require.NoError(t, err)

	var v string
	require.NoError(t, s.QueryRowContext(ctx, `SELECT v FROM kv WHERE k = 'a'`).Scan(&v))
	assert.Equal(t, "b", v)
}
