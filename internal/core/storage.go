package core

import (
	"context"
	"fmt"

	"reactivegraph/internal/config"
	"reactivegraph/internal/infra/blob"
	blobfs "reactivegraph/internal/infra/blob/fs"
	blobmemory "reactivegraph/internal/infra/blob/memory"
	blobs3 "reactivegraph/internal/infra/blob/s3"
	"reactivegraph/internal/infra/persistence"
	"reactivegraph/internal/infra/persistence/memory"
	"reactivegraph/internal/infra/persistence/postgres"
	"reactivegraph/internal/infra/persistence/sqlite"
)

// OpenSnapshotStore selects a snapshot backend. The none driver returns a
// nil store and no error.
//
//	storage.driver: none|memory|sqlite|postgres
//	storage.sqlite_path: sqlite file (default ./reactivegraph.db)
//	storage.postgres_dsn: DSN when driver=postgres
func OpenSnapshotStore(ctx context.Context, cfg config.StorageConfig) (persistence.Store, error) {
	switch cfg.Driver {
	case "", config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case config.DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres snapshot store: dsn required")
		}
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", cfg.Driver)
	}
}

// OpenBlobStore selects the archive backend used by snapshot export. The
// none driver returns a nil store and no error.
func OpenBlobStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	switch cfg.Driver {
	case "", config.DriverNone:
		return nil, nil
	case config.DriverMemory:
		return blobmemory.New(), nil
	case config.DriverFS:
		return blobfs.New(cfg.FSRoot)
	case config.DriverS3:
		return blobs3.New(ctx, blobs3.Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			PathStyle: cfg.S3.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}
