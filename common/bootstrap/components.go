package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/lyzr/imagehost/common/config"
	"github.com/lyzr/imagehost/common/db"
	"github.com/lyzr/imagehost/common/logger"
	"github.com/lyzr/imagehost/common/redis"
	"github.com/lyzr/imagehost/common/telemetry"
	"golang.org/x/sync/errgroup"
)

// Components holds all initialized service dependencies.
// Exactly one of DB and SQLite is set unless the DB was skipped.
type Components struct {
	Config    *config.Config
	Logger    *logger.Logger
	DB        *db.DB
	SQLite    *db.SQLite
	Redis     *redis.Client
	Locks     *db.AdvisoryLocker // set with Postgres when Redis is not connected
	Telemetry *telemetry.Telemetry

	// Internal
	cleanupFuncs []func() error
}

// Shutdown performs graceful shutdown of all components
// Should be called with defer after Setup()
func (c *Components) Shutdown(ctx context.Context) error {
	c.Logger.Info("shutting down components")

	var errs []error

	// LIFO
	for i := len(c.cleanupFuncs) - 1; i >= 0; i-- {
		if err := c.cleanupFuncs[i](); err != nil {
			errs = append(errs, err)
			c.Logger.Error("cleanup error", "error", err)
		}
	}
	c.cleanupFuncs = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	c.Logger.Info("shutdown complete")
	return nil
}

// Health checks every connected backend concurrently
func (c *Components) Health(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if c.DB != nil {
		g.Go(func() error {
			if err := c.DB.Health(ctx); err != nil {
				return fmt.Errorf("database unhealthy: %w", err)
			}
			return nil
		})
	}
	if c.SQLite != nil {
		g.Go(func() error {
			if err := c.SQLite.Health(ctx); err != nil {
				return fmt.Errorf("sqlite unhealthy: %w", err)
			}
			return nil
		})
	}
	if c.Redis != nil {
		g.Go(func() error {
			if err := c.Redis.Ping(ctx); err != nil {
				return fmt.Errorf("redis unhealthy: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// addCleanup registers a cleanup function
func (c *Components) addCleanup(fn func() error) {
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
}
