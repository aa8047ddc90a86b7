package blob

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lyzr/imagehost/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) (*LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewLocalStore(dir, logger.Discard())
	require.NoError(t, err)
	return s, dir
}

func TestLocalStore_PutGetRoundTrip(t *testing.T) {
	s, dir := newLocal(t)
	ctx := context.Background()
	data := bytes.Repeat([]byte{0xff, 0xd8, 0x01}, 4096)

	created, err := s.Put(ctx, "abc123", "jpg", data)
	require.NoError(t, err)
	assert.True(t, created)

	got, err := s.Get(ctx, "abc123", "jpg")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	_, err = os.Stat(filepath.Join(dir, "abc123.jpg"))
	assert.NoError(t, err)
	assertNoTempFiles(t, dir)
}

func TestLocalStore_PutExistingIsNoop(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "same", "png", []byte("first"))
	require.NoError(t, err)

	created, err := s.Put(ctx, "same", "png", []byte("second"))
	require.NoError(t, err)
	assert.False(t, created)

	got, err := s.Get(ctx, "same", "png")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)
}

func TestLocalStore_CancelledPutLeavesNothing(t *testing.T) {
	s, dir := newLocal(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	created, err := s.Put(ctx, "gone", "gif", []byte("GIF89a"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, created)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStore_GetAndDeleteMissing(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "nope", "jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, s.Delete(ctx, "nope", "jpg"), ErrNotFound)
}

func TestLocalStore_Delete(t *testing.T) {
	s, dir := newLocal(t)
	ctx := context.Background()

	_, err := s.Put(ctx, "del", "jpg", []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "del", "jpg"))

	_, err = os.Stat(filepath.Join(dir, "del.jpg"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalStore_RejectsUnsafeNames(t *testing.T) {
	s, _ := newLocal(t)
	ctx := context.Background()

	for _, tc := range []struct{ identity, ext string }{
		{"../etc/passwd", "jpg"},
		{"a/b", "jpg"},
		{"", "jpg"},
		{".upload-123", "jpg"},
		{"ok", "JPG"},
		{"ok", "j.pg"},
		{"ok", ""},
	} {
		t.Run(tc.identity+"."+tc.ext, func(t *testing.T) {
			_, err := s.Put(ctx, tc.identity, tc.ext, []byte("x"))
			assert.ErrorIs(t, err, ErrInvalidName)
			_, err = s.Get(ctx, tc.identity, tc.ext)
			assert.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestNewLocalStore_SweepsStaleTempFiles(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, tempPrefix+"12345")
	require.NoError(t, os.WriteFile(stale, []byte("partial"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.jpg"), []byte("x"), 0o644))

	_, err := NewLocalStore(dir, logger.Discard())
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "keep.jpg"))
	assert.NoError(t, err)
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), tempPrefix), "temp file left behind: %s", e.Name())
	}
}
