package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/lyzr/imagehost/common/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient connects to TEST_REDIS_ADDR (DB 15) or skips
func newTestClient(t *testing.T) *Client {
	t.Helper()

	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	c, err := Dial(ctx, Options{Addr: addr, DB: 15}, logger.Discard())
	require.NoError(t, err, "Redis must be reachable at %s", addr)
	require.NoError(t, c.GetUnderlying().FlushDB(ctx).Err())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLocker_ExclusiveAndRelease(t *testing.T) {
	c := newTestClient(t)
	locker := NewLocker(c, 5*time.Second)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "abc")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "abc")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()

	unlock2, err := locker.Lock(ctx, "abc")
	require.NoError(t, err)
	unlock2()
}

func TestLocker_ReleaseDoesNotStealForeignLock(t *testing.T) {
	c := newTestClient(t)
	locker := NewLocker(c, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "k")
	require.NoError(t, err)

	// first holder's lease expires and someone else takes the key
	time.Sleep(100 * time.Millisecond)
	unlockOther, err := locker.Lock(ctx, "k")
	require.NoError(t, err)

	unlock()

	val, err := c.Get(ctx, lockPrefix+"k")
	require.NoError(t, err)
	assert.NotEmpty(t, val)

	unlockOther()
	_, err = c.Get(ctx, lockPrefix+"k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}
