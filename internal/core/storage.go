package core

import (
	"context"
	"errors"
	"fmt"

	"pdmtracker/internal/blob"
	"pdmtracker/internal/infra/persistence/blobkv"
	"pdmtracker/internal/infra/persistence/memory"
	"pdmtracker/internal/infra/persistence/postgres"
	"pdmtracker/internal/infra/persistence/sqlite"
	"pdmtracker/pkg/domain"
)

// StorageDriver identifies a concrete key-value storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBlob     StorageDriver = "blob"     // one object per key in the blob store
)

// StorageConfig selects and configures the key-value backend.
type StorageConfig struct {
	Driver         StorageDriver `mapstructure:"driver"`
	SQLitePath     string        `mapstructure:"sqlite_path"`
	PostgresDSN    string        `mapstructure:"postgres_dsn"`
	MemoryCapacity int           `mapstructure:"memory_capacity"`
	BlobPrefix     string        `mapstructure:"blob_prefix"`
}

// OpenKeyValueStore selects a backend. An empty driver means sqlite. blobs is
// only used by the blob driver.
func OpenKeyValueStore(ctx context.Context, cfg StorageConfig, blobs blob.Store) (domain.KeyValueStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(cfg.MemoryCapacity), nil
	case StorageSQLite:
		store, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("postgres storage requires a DSN")
		}
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StorageBlob:
		store, err := blobkv.New(blobs, cfg.BlobPrefix)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
