package container

import (
	"context"
	"fmt"

	"github.com/lyzr/imagehost/cmd/imagehost/repository"
	"github.com/lyzr/imagehost/cmd/imagehost/service"
	"github.com/lyzr/imagehost/common/blob"
	"github.com/lyzr/imagehost/common/bootstrap"
	"github.com/lyzr/imagehost/common/config"
	"github.com/lyzr/imagehost/common/lock"
	rediscommon "github.com/lyzr/imagehost/common/redis"
)

// Container holds all initialized services and repositories (singleton pattern)
type Container struct {
	// Components
	Components *bootstrap.Components

	// Stores
	ImageRepo repository.ImageRepository
	Blobs     blob.Store
	Locker    lock.Locker

	// Services
	UploadPipeline *service.UploadPipeline
	ListingService *service.ListingService
	ImageService   *service.ImageService
}

// NewContainer initializes all services and repositories once
func NewContainer(ctx context.Context, components *bootstrap.Components) (*Container, error) {
	cfg := components.Config

	imageRepo, err := newImageRepository(components)
	if err != nil {
		return nil, err
	}

	blobs, err := newBlobStore(ctx, components)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob store: %w", err)
	}

	locker := newLocker(components)

	identity, err := service.NewIdentityDeriver(cfg.Upload.IdentityPolicy)
	if err != nil {
		return nil, err
	}

	// Initialize services (bottom-up: dependencies first)
	validator := service.NewValidator(cfg.Upload.MaxBytes, cfg.Upload.MaxPixels, cfg.Upload.AllowedExtensions)
	uploadPipeline := service.NewUploadPipeline(
		validator,
		identity,
		blobs,
		imageRepo,
		locker,
		components.Telemetry,
		components.Logger,
	)
	listingService := service.NewListingService(imageRepo, cfg.Upload.PageSize, components.Logger)
	imageService := service.NewImageService(blobs, imageRepo, locker, components.Logger)

	components.Logger.Info("service container initialized",
		"db_driver", cfg.Database.Driver,
		"blob_backend", cfg.Storage.Backend,
		"identity_policy", cfg.Upload.IdentityPolicy,
		"distributed_lock", components.Redis != nil,
	)

	return &Container{
		Components:     components,
		ImageRepo:      imageRepo,
		Blobs:          blobs,
		Locker:         locker,
		UploadPipeline: uploadPipeline,
		ListingService: listingService,
		ImageService:   imageService,
	}, nil
}

// Migrate creates the schema for whichever metadata store bootstrap opened.
// Passed to bootstrap.WithDBInitHook.
func Migrate(ctx context.Context, components *bootstrap.Components) error {
	switch {
	case components.DB != nil:
		return components.DB.Migrate(ctx, repository.PostgresSchema)
	case components.SQLite != nil:
		return components.SQLite.Migrate(ctx, repository.SQLiteSchema)
	}
	return fmt.Errorf("no metadata store connected")
}

func newImageRepository(components *bootstrap.Components) (repository.ImageRepository, error) {
	switch {
	case components.DB != nil:
		return repository.NewPostgresImageRepository(components.DB), nil
	case components.SQLite != nil:
		return repository.NewSQLiteImageRepository(components.SQLite), nil
	}
	return nil, fmt.Errorf("no metadata store connected")
}

func newBlobStore(ctx context.Context, components *bootstrap.Components) (blob.Store, error) {
	cfg := components.Config.Storage

	switch cfg.Backend {
	case config.BackendMinio:
		return blob.NewMinioStore(ctx, blob.MinioOptions{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		}, components.Logger)
	case config.BackendLocal:
		return blob.NewLocalStore(cfg.Dir, components.Logger)
	}
	return nil, fmt.Errorf("unknown blob backend: %s", cfg.Backend)
}

// newLocker serializes commits per identity across instances through Redis or
// Postgres advisory locks. Only a SQLite deployment falls back to an
// in-process lock, which cannot protect a blob store shared with other hosts.
func newLocker(components *bootstrap.Components) lock.Locker {
	switch {
	case components.Redis != nil:
		return rediscommon.NewLocker(components.Redis, components.Config.Redis.LockTTL)
	case components.Locks != nil:
		return components.Locks
	}

	if components.Config.Storage.Backend == config.BackendMinio {
		components.Logger.Warn("identity lock is process-local; run a single instance per bucket or enable redis",
			"db_driver", components.Config.Database.Driver,
			"blob_backend", components.Config.Storage.Backend,
		)
	}
	return lock.NewKeyedMutex()
}
