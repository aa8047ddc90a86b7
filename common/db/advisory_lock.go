package db

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const advisoryUnlockTimeout = 3 * time.Second

// AdvisoryLocker serializes work per key across every process sharing the
// database, using session-level pg_advisory_lock. It holds one connection per
// held lock from its own pool so lock holders cannot starve query traffic.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
	db   *DB
}

// NewAdvisoryLocker opens a dedicated pool of at most conns connections
func (db *DB) NewAdvisoryLocker(ctx context.Context, conns int) (*AdvisoryLocker, error) {
	if conns < 1 {
		conns = 1
	}
	cfg := db.Pool.Config()
	cfg.MaxConns = int32(conns)
	cfg.MinConns = 0

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create lock pool: %w", err)
	}
	return &AdvisoryLocker{pool: pool, db: db}, nil
}

// Lock blocks until key is free or ctx is done
func (l *AdvisoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}

	id := advisoryKey(key)
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", id); err != nil {
		// The lock may have been granted as the wait was cancelled; a closed session holds nothing.
		conn.Conn().Close(context.Background())
		conn.Release()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("advisory lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unlockCtx, cancel := context.WithTimeout(context.Background(), advisoryUnlockTimeout)
			defer cancel()

			if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", id); err != nil {
				l.db.log.Warn("advisory unlock failed; dropping connection", "key", key, "error", err)
				conn.Conn().Close(unlockCtx)
			}
			conn.Release()
		})
	}, nil
}

// Close closes the lock pool
func (l *AdvisoryLocker) Close() {
	l.pool.Close()
}

func advisoryKey(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte("imagehost:" + key))
	return int64(h.Sum64())
}
