package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir mirrors testing.T.Chdir (Go 1.24) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load("imagehost")
	require.NoError(t, err)

	assert.Equal(t, "imagehost", cfg.Service.Name)
	assert.Equal(t, 8000, cfg.Service.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, BackendLocal, cfg.Storage.Backend)
	assert.Equal(t, "images", cfg.Storage.Dir)
	assert.Equal(t, int64(5*1024*1024), cfg.Upload.MaxBytes)
	assert.Equal(t, int64(25_000_000), cfg.Upload.MaxPixels)
	assert.Equal(t, 10, cfg.Database.LockConns)
	assert.Equal(t, []string{"jpg", "jpeg", "png", "gif"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, PolicyContent, cfg.Upload.IdentityPolicy)
	assert.Equal(t, 10, cfg.Upload.PageSize)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Features.EnableDelete)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9001")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/meta.db")
	t.Setenv("ALLOWED_EXTENSIONS", " png , gif ,")
	t.Setenv("IDENTITY_POLICY", "random")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")
	t.Setenv("MAX_IMAGE_PIXELS", "4096")
	t.Setenv("REDIS_LOCK_TTL", "5s")
	t.Setenv("ENABLE_DELETE", "true")

	cfg, err := Load("imagehost")
	require.NoError(t, err)

	assert.Equal(t, 9001, cfg.Service.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/tmp/meta.db", cfg.Database.SQLitePath)
	assert.Equal(t, []string{"png", "gif"}, cfg.Upload.AllowedExtensions)
	assert.Equal(t, PolicyRandom, cfg.Upload.IdentityPolicy)
	assert.Equal(t, int64(1024), cfg.Upload.MaxBytes)
	assert.Equal(t, int64(4096), cfg.Upload.MaxPixels)
	assert.Equal(t, 5*time.Second, cfg.Redis.LockTTL)
	assert.True(t, cfg.Features.EnableDelete)
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "not-a-number")
	t.Setenv("HTTP_READ_TIMEOUT", "soon")

	cfg, err := Load("imagehost")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Service.Port)
	assert.Equal(t, 30*time.Second, cfg.Service.ReadTimeout)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Service:  ServiceConfig{Port: 8000},
			Database: DatabaseConfig{Driver: DriverSQLite, SQLitePath: "x.db"},
			Storage:  StorageConfig{Backend: BackendLocal, Dir: "images"},
			Upload: UploadConfig{
				MaxBytes:          10,
				MaxPixels:         100,
				AllowedExtensions: []string{"png"},
				IdentityPolicy:    PolicyContent,
				PageSize:          10,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Service.Port = 0 }, "invalid port"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "unknown database driver"},
		{"postgres without host", func(c *Config) { c.Database.Driver = DriverPostgres }, "database host is required"},
		{"postgres without lock conns", func(c *Config) {
			c.Database = DatabaseConfig{Driver: DriverPostgres, Host: "db", MaxConns: 2, MinConns: 1}
		}, "lock_conns"},
		{"unknown backend", func(c *Config) { c.Storage.Backend = "ftp" }, "unknown blob backend"},
		{"minio without bucket", func(c *Config) {
			c.Storage.Backend = BackendMinio
			c.Storage.MinioEndpoint = "localhost:9000"
		}, "minio endpoint and bucket"},
		{"zero ceiling", func(c *Config) { c.Upload.MaxBytes = 0 }, "invalid max upload bytes"},
		{"zero pixel ceiling", func(c *Config) { c.Upload.MaxPixels = 0 }, "invalid max image pixels"},
		{"no extensions", func(c *Config) { c.Upload.AllowedExtensions = nil }, "allowed extension"},
		{"unknown policy", func(c *Config) { c.Upload.IdentityPolicy = "md5" }, "unknown identity policy"},
		{"zero page size", func(c *Config) { c.Upload.PageSize = 0 }, "invalid page size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		User: "u", Password: "p", Host: "db", Port: 5433, Database: "images",
	}}
	assert.Equal(t, "postgres://u:p@db:5433/images?sslmode=disable", cfg.DatabaseURL())
}
