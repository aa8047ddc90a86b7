package bootstrap

import (
	"context"
	"fmt"

	"github.com/lyzr/imagehost/common/config"
	"github.com/lyzr/imagehost/common/db"
	"github.com/lyzr/imagehost/common/logger"
	"github.com/lyzr/imagehost/common/redis"
	"github.com/lyzr/imagehost/common/telemetry"
)

// Setup initializes all service components
// This is the main entry point for all services
func Setup(ctx context.Context, serviceName string, opts ...Option) (*Components, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	components := &Components{
		cleanupFuncs: make([]func() error, 0),
	}

	// 1. Load configuration
	var err error
	if options.customConfig != nil {
		components.Config = options.customConfig
	} else {
		components.Config, err = config.Load(serviceName)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg := components.Config

	// 2. Initialize logger
	switch {
	case options.customLogger != nil:
		components.Logger = options.customLogger
	case cfg.Service.LogFile != "":
		log, closer, err := logger.NewWithFile(cfg.Service.LogLevel, cfg.Service.LogFormat, cfg.Service.LogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		components.Logger = log
		components.addCleanup(closer.Close)
	default:
		components.Logger = logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	}

	components.Logger.Info("initializing service",
		"service", serviceName,
		"environment", cfg.Service.Environment,
	)

	// 3. Initialize metadata store (if not skipped)
	if !options.skipDB {
		if err := components.openDatabase(ctx); err != nil {
			components.Shutdown(ctx)
			return nil, err
		}

		if options.dbInitHook != nil {
			components.Logger.Info("running database init hook")
			if err := options.dbInitHook(ctx, components); err != nil {
				components.Shutdown(ctx)
				return nil, fmt.Errorf("database init hook failed: %w", err)
			}
		}
	}

	// 4. Initialize Redis (if enabled and not skipped)
	if !options.skipRedis && cfg.Redis.Enabled {
		components.Logger.Info("connecting to redis", "addr", cfg.RedisAddr())
		components.Redis, err = redis.Dial(ctx, redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, components.Logger)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		components.addCleanup(func() error {
			components.Logger.Info("closing redis connection")
			return components.Redis.Close()
		})
	}

	// 5. Cross-instance identity locks on Postgres when Redis is not providing them
	if components.DB != nil && components.Redis == nil {
		components.Locks, err = components.DB.NewAdvisoryLocker(ctx, cfg.Database.LockConns)
		if err != nil {
			components.Shutdown(ctx)
			return nil, fmt.Errorf("failed to create advisory locker: %w", err)
		}
		components.addCleanup(func() error {
			components.Locks.Close()
			return nil
		})
	}

	// 6. Initialize telemetry (if not skipped)
	if !options.skipTelemetry && cfg.Telemetry.EnablePprof {
		components.Logger.Info("initializing telemetry")
		components.Telemetry = telemetry.New(cfg.Telemetry.PprofPort, components.Logger)

		if err := components.Telemetry.Start(ctx); err != nil {
			// Don't fail startup if telemetry fails
			components.Logger.Warn("failed to start telemetry", "error", err)
		}
		components.addCleanup(components.Telemetry.Close)
	}

	components.Logger.Info("service initialization complete",
		"service", serviceName,
		"db_driver", cfg.Database.Driver,
		"db", components.DB != nil || components.SQLite != nil,
		"redis", components.Redis != nil,
		"telemetry", components.Telemetry != nil,
	)

	return components, nil
}

func (c *Components) openDatabase(ctx context.Context) error {
	cfg := c.Config

	switch cfg.Database.Driver {
	case config.DriverPostgres:
		c.Logger.Info("connecting to database", "driver", cfg.Database.Driver)
		pg, err := db.New(ctx, cfg, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = pg
		c.addCleanup(func() error {
			c.Logger.Info("closing database connection")
			pg.Close()
			return nil
		})

	case config.DriverSQLite:
		c.Logger.Info("opening sqlite database", "path", cfg.Database.SQLitePath)
		lite, err := db.OpenSQLite(ctx, cfg.Database.SQLitePath, c.Logger)
		if err != nil {
			return fmt.Errorf("failed to open sqlite database: %w", err)
		}
		c.SQLite = lite
		c.addCleanup(func() error {
			c.Logger.Info("closing sqlite database")
			return lite.Close()
		})

	default:
		return fmt.Errorf("unknown database driver: %s", cfg.Database.Driver)
	}
	return nil
}

// MustSetup is like Setup but panics on error
// Useful for services that can't recover from initialization failure
func MustSetup(ctx context.Context, serviceName string, opts ...Option) *Components {
	components, err := Setup(ctx, serviceName, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to setup service %s: %v", serviceName, err))
	}
	return components
}
