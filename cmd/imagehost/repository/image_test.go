package repository

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lyzr/imagehost/cmd/imagehost/models"
	"github.com/lyzr/imagehost/common/config"
	"github.com/lyzr/imagehost/common/db"
	"github.com/lyzr/imagehost/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) ImageRepository {
	t.Helper()
	ctx := context.Background()

	s, err := db.OpenSQLite(ctx, filepath.Join(t.TempDir(), "meta.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(ctx, SQLiteSchema))
	return NewSQLiteImageRepository(s)
}

func newPostgresRepo(t *testing.T) ImageRepository {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	pg, err := db.Connect(ctx, url, config.DatabaseConfig{MaxConns: 10}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(pg.Close)

	require.NoError(t, pg.Migrate(ctx, PostgresSchema))
	_, err = pg.Exec(ctx, `TRUNCATE images`)
	require.NoError(t, err)

	return NewPostgresImageRepository(pg)
}

func TestSQLiteImageRepository(t *testing.T) {
	runRepositoryContract(t, newSQLiteRepo)
}

func TestPostgresImageRepository(t *testing.T) {
	runRepositoryContract(t, newPostgresRepo)
}

func runRepositoryContract(t *testing.T, newRepo func(*testing.T) ImageRepository) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("insert and find", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		rec := &models.ImageRecord{
			Identity:     "abc",
			OriginalName: "cat",
			SizeKB:       10,
			FileType:     ".jpg",
			UploadTime:   base.Add(123456789 * time.Nanosecond),
		}
		require.NoError(t, repo.Insert(ctx, rec))

		got, err := repo.FindByIdentity(ctx, "abc")
		require.NoError(t, err)
		assert.Equal(t, rec.Identity, got.Identity)
		assert.Equal(t, "cat", got.OriginalName)
		assert.Equal(t, int64(10), got.SizeKB)
		assert.Equal(t, ".jpg", got.FileType)
		assert.True(t, rec.UploadTime.Equal(got.UploadTime), "%v != %v", rec.UploadTime, got.UploadTime)
		assert.Equal(t, base.Add(123456*time.Microsecond), got.UploadTime)
	})

	t.Run("zero upload time is assigned", func(t *testing.T) {
		repo := newRepo(t)
		before := time.Now().UTC().Add(-time.Second)

		rec := &models.ImageRecord{Identity: "now", OriginalName: "n", SizeKB: 1, FileType: ".png"}
		require.NoError(t, repo.Insert(context.Background(), rec))
		assert.True(t, rec.UploadTime.After(before))
	})

	t.Run("find missing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByIdentity(context.Background(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("duplicate identity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		rec := &models.ImageRecord{Identity: "dup", OriginalName: "a", SizeKB: 1, FileType: ".png", UploadTime: base}
		require.NoError(t, repo.Insert(ctx, rec))

		again := &models.ImageRecord{Identity: "dup", OriginalName: "b", SizeKB: 2, FileType: ".gif", UploadTime: base}
		assert.ErrorIs(t, repo.Insert(ctx, again), ErrDuplicateIdentity)

		got, err := repo.FindByIdentity(ctx, "dup")
		require.NoError(t, err)
		assert.Equal(t, "a", got.OriginalName)
	})

	t.Run("concurrent duplicate inserts have one winner", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		var wins, dups int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := repo.Insert(ctx, &models.ImageRecord{
					Identity: "race", OriginalName: fmt.Sprint(i), SizeKB: 1, FileType: ".png", UploadTime: base,
				})
				switch {
				case err == nil:
					atomic.AddInt32(&wins, 1)
				case assert.ErrorIs(t, err, ErrDuplicateIdentity):
					atomic.AddInt32(&dups, 1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), wins)
		assert.Equal(t, int32(7), dups)
	})

	t.Run("pagination windows", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		// 25 records, one per minute; r24 is newest
		for i := 0; i < 25; i++ {
			require.NoError(t, repo.Insert(ctx, &models.ImageRecord{
				Identity:     fmt.Sprintf("r%02d", i),
				OriginalName: "img",
				SizeKB:       int64(i),
				FileType:     ".png",
				UploadTime:   base.Add(time.Duration(i) * time.Minute),
			}))
		}

		tests := []struct {
			page  int
			first string
			count int
		}{
			{page: 1, first: "r24", count: 10},
			{page: 2, first: "r14", count: 10},
			{page: 3, first: "r04", count: 5},
			{page: 4, count: 0},
			{page: 0, first: "r24", count: 10},
			{page: -7, first: "r24", count: 10},
			{page: math.MaxInt, count: 0},
		}

		for _, tt := range tests {
			t.Run(fmt.Sprintf("page %d", tt.page), func(t *testing.T) {
				got, err := repo.ListPage(ctx, tt.page, 10)
				require.NoError(t, err)
				require.NotNil(t, got)
				require.Len(t, got, tt.count)
				if tt.count > 0 {
					assert.Equal(t, tt.first, got[0].Identity)
				}
				for i := 1; i < len(got); i++ {
					assert.True(t, got[i-1].UploadTime.After(got[i].UploadTime))
				}
			})
		}
	})

	t.Run("ties break by identity", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		for _, id := range []string{"c", "a", "b"} {
			require.NoError(t, repo.Insert(ctx, &models.ImageRecord{
				Identity: id, OriginalName: id, SizeKB: 1, FileType: ".gif", UploadTime: base,
			}))
		}

		for i := 0; i < 3; i++ {
			got, err := repo.ListPage(ctx, 1, 10)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Identity, got[1].Identity, got[2].Identity})
		}
	})

	t.Run("invalid page size", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.ListPage(context.Background(), 1, 0)
		assert.Error(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Insert(ctx, &models.ImageRecord{
			Identity: "del", OriginalName: "d", SizeKB: 1, FileType: ".jpg", UploadTime: base,
		}))
		require.NoError(t, repo.Delete(ctx, "del"))

		_, err := repo.FindByIdentity(ctx, "del")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, "del"), ErrNotFound)
	})
}

func TestPageWindow(t *testing.T) {
	tests := []struct {
		page, size    int
		limit, offset int64
		ok            bool
	}{
		{1, 10, 10, 0, true},
		{2, 10, 10, 10, true},
		{0, 10, 10, 0, true},
		{-1, 5, 5, 0, true},
		{3, 7, 7, 14, true},
		{math.MaxInt, 10, 0, 0, false},
	}

	for _, tt := range tests {
		limit, offset, ok, err := PageWindow(tt.page, tt.size)
		require.NoError(t, err)
		assert.Equal(t, tt.ok, ok, "page=%d size=%d", tt.page, tt.size)
		if tt.ok {
			assert.Equal(t, tt.limit, limit)
			assert.Equal(t, tt.offset, offset)
		}
	}

	_, _, _, err := PageWindow(1, 0)
	assert.Error(t, err)
}
