package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Upload    UploadConfig
	Redis     RedisConfig
	Telemetry TelemetryConfig
	Features  FeatureFlags
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name         string
	Port         int
	Environment  string
	LogLevel     string
	LogFormat    string
	LogFile      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds metadata store connection settings
type DatabaseConfig struct {
	Driver      string // "postgres" or "sqlite"
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
	LockConns   int // dedicated connections for advisory identity locks
	SQLitePath  string
}

// StorageConfig holds blob store settings
type StorageConfig struct {
	Backend        string // "local" or "minio"
	Dir            string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// UploadConfig holds ingestion limits and policies
type UploadConfig struct {
	MaxBytes          int64
	MaxPixels         int64 // width*height ceiling declared by the image header
	AllowedExtensions []string
	IdentityPolicy    string // "content" or "random"
	PageSize          int
}

// RedisConfig holds settings for the distributed identity lock.
// Without Redis, identity locks are Postgres advisory locks (shared by every
// instance on the same database) or, with SQLite, in-process only. SQLite
// deployments must therefore run a single instance per blob store.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	LockTTL  time.Duration
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// FeatureFlags toggles optional endpoints
type FeatureFlags struct {
	EnableDelete bool
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	BackendLocal = "local"
	BackendMinio = "minio"

	PolicyContent = "content"
	PolicyRandom  = "random"
)

// Load loads configuration from a .env file (if present) and environment variables
func Load(serviceName string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Service: ServiceConfig{
			Name:         serviceName,
			Port:         getEnvInt("PORT", 8000),
			Environment:  getEnv("ENVIRONMENT", "development"),
			LogLevel:     getEnv("LOG_LEVEL", "info"),
			LogFormat:    getEnv("LOG_FORMAT", "text"),
			LogFile:      getEnv("LOG_FILE", ""),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:      getEnv("DB_DRIVER", DriverPostgres),
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "images"),
			User:        getEnv("POSTGRES_USER", "images"),
			Password:    getEnv("POSTGRES_PASSWORD", "images"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", 1*time.Hour),
			LockConns:   getEnvInt("POSTGRES_LOCK_CONNS", 10),
			SQLitePath:  getEnv("SQLITE_PATH", "images.db"),
		},
		Storage: StorageConfig{
			Backend:        getEnv("BLOB_BACKEND", BackendLocal),
			Dir:            getEnv("UPLOAD_DIR", "images"),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioBucket:    getEnv("MINIO_BUCKET", "images"),
			MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Upload: UploadConfig{
			MaxBytes:          getEnvInt64("MAX_UPLOAD_BYTES", 5*1024*1024),
			MaxPixels:         getEnvInt64("MAX_IMAGE_PIXELS", 25_000_000),
			AllowedExtensions: getEnvSlice("ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "gif"}),
			IdentityPolicy:    getEnv("IDENTITY_POLICY", PolicyContent),
			PageSize:          getEnvInt("IMAGES_PAGE_SIZE", 10),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  getEnvDuration("REDIS_LOCK_TTL", 30*time.Second),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
		Features: FeatureFlags{
			EnableDelete: getEnvBool("ENABLE_DELETE", false),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			return fmt.Errorf("max_conns must be >= min_conns")
		}
		if c.Database.LockConns < 1 {
			return fmt.Errorf("lock_conns must be >= 1")
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	default:
		return fmt.Errorf("unknown database driver: %s", c.Database.Driver)
	}

	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.Dir == "" {
			return fmt.Errorf("upload dir is required")
		}
	case BackendMinio:
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioBucket == "" {
			return fmt.Errorf("minio endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unknown blob backend: %s", c.Storage.Backend)
	}

	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("invalid max upload bytes: %d", c.Upload.MaxBytes)
	}
	if c.Upload.MaxPixels <= 0 {
		return fmt.Errorf("invalid max image pixels: %d", c.Upload.MaxPixels)
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		return fmt.Errorf("at least one allowed extension is required")
	}
	if c.Upload.IdentityPolicy != PolicyContent && c.Upload.IdentityPolicy != PolicyRandom {
		return fmt.Errorf("unknown identity policy: %s", c.Upload.IdentityPolicy)
	}
	if c.Upload.PageSize < 1 {
		return fmt.Errorf("invalid page size: %d", c.Upload.PageSize)
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns host:port for the Redis client
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
