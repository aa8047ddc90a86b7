package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

//go:embed release.lua
var releaseScript string

const (
	lockPrefix   = "imagehost:lock:"
	lockRetry    = 25 * time.Millisecond
	releaseAfter = 3 * time.Second
)

// Locker is a cross-process lock keyed by image identity.
// A lock expires after ttl if its holder dies before releasing it.
type Locker struct {
	client  *Client
	ttl     time.Duration
	release *redis.Script
}

// NewLocker creates a Redis-backed locker
func NewLocker(client *Client, ttl time.Duration) *Locker {
	return &Locker{
		client:  client,
		ttl:     ttl,
		release: redis.NewScript(releaseScript),
	}
}

// Lock polls SETNX until the key is acquired or ctx is done
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockPrefix + key
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func() { l.unlock(redisKey, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockRetry):
		}
	}
}

func (l *Locker) unlock(redisKey, token string) {
	// Release must run even when the request context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), releaseAfter)
	defer cancel()

	if err := l.release.Run(ctx, l.client.redis, []string{redisKey}, token).Err(); err != nil {
		l.client.logger.Warn("redis lock release failed", "key", redisKey, "error", err)
	}
}
