package state

import (
	"context"
	"fmt"

	"github.com/oshokin/catpoint/internal/config"
)

// Open builds the repository selected by the storage settings.
// The returned close function releases backend resources and is never nil.
func Open(ctx context.Context, settings config.Storage) (Repository, func() error, error) {
	noop := func() error { return nil }

	switch settings.Backend {
	case config.StorageMemory:
		return NewMemoryRepository(nil), noop, nil
	case config.StorageFile, "":
		repo, err := NewFileRepository(settings.StateFile)
		if err != nil {
			return nil, nil, err
		}

		return repo, noop, nil
	case config.StorageSQLite:
		repo, err := NewSQLiteRepository(ctx, settings.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		return repo, repo.Close, nil
	case config.StorageRedis:
		repo, err := NewRedisRepository(settings.RedisURL, settings.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}

		if err = repo.Ping(ctx); err != nil {
			_ = repo.Close()

			return nil, nil, err
		}

		return repo, repo.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", settings.Backend)
	}
}
