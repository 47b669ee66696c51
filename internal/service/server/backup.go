package server

import (
	"context"
	"fmt"

	"github.com/oshokin/catpoint/internal/backup"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	repo "github.com/oshokin/catpoint/internal/repository/state"
)

// BackupOptions controls the backup and restore commands.
type BackupOptions struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// Key selects the snapshot to restore; the latest one when empty.
	Key string
}

// RunBackup uploads the stored state to the configured bucket.
func RunBackup(ctx context.Context, opts *BackupOptions) error {
	ctx = logger.WithName(ctx, "backup")

	return withBackupStore(ctx, opts, func(repository repo.Repository, store *backup.Store) error {
		key, err := uploadSnapshot(ctx, repository, store)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Backup uploaded", "key", key)

		return nil
	})
}

// RunRestore replaces the stored state with a snapshot from the bucket.
// The server must be stopped while restoring.
func RunRestore(ctx context.Context, opts *BackupOptions) error {
	ctx = logger.WithName(ctx, "restore")

	return withBackupStore(ctx, opts, func(repository repo.Repository, store *backup.Store) error {
		key, err := restoreSnapshot(ctx, repository, store, opts.Key)
		if err != nil {
			return err
		}

		logger.InfoKV(ctx, "Backup restored", "key", key)

		return nil
	})
}

func withBackupStore(
	ctx context.Context,
	opts *BackupOptions,
	run func(repository repo.Repository, store *backup.Store) error,
) error {
	settings, err := loadSettings(opts.ConfigPath)
	if err != nil {
		return err
	}

	client, err := backup.NewS3Client(ctx, &settings.Backup)
	if err != nil {
		return err
	}

	store, err := backup.NewStore(client, settings.Backup.Bucket, settings.Backup.Prefix)
	if err != nil {
		return err
	}

	repository, closeRepository, err := repo.Open(ctx, settings.Storage)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", settings.Storage.Backend, err)
	}

	defer func() {
		if closeErr := closeRepository(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to close storage", "error", closeErr)
		}
	}()

	return run(repository, store)
}

// uploadSnapshot copies the repository state into store.
func uploadSnapshot(ctx context.Context, repository repo.Repository, store *backup.Store) (string, error) {
	snapshot, err := repository.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("read state: %w", err)
	}

	return store.Upload(ctx, snapshot)
}

// restoreSnapshot downloads key, or the latest snapshot when key is empty,
// and writes it into repository.
func restoreSnapshot(
	ctx context.Context,
	repository repo.Repository,
	store *backup.Store,
	key string,
) (string, error) {
	if key == "" {
		latest, err := store.LatestKey(ctx)
		if err != nil {
			return "", err
		}

		key = latest
	}

	snapshot, err := store.Download(ctx, key)
	if err != nil {
		return "", err
	}

	if err = applySnapshot(ctx, repository, snapshot); err != nil {
		return "", fmt.Errorf("apply %s: %w", key, err)
	}

	return key, nil
}

// applySnapshot makes repository hold exactly the sensors and statuses of snapshot.
func applySnapshot(ctx context.Context, repository repo.Repository, snapshot *domain.Snapshot) error {
	current, err := repository.Sensors(ctx)
	if err != nil {
		return err
	}

	for _, sensor := range current {
		if domain.FindSensor(snapshot.Sensors, sensor.ID) == nil {
			if err = repository.RemoveSensor(ctx, sensor.ID); err != nil {
				return err
			}
		}
	}

	for _, sensor := range snapshot.Sensors {
		if err = repository.UpdateSensor(ctx, sensor); err != nil {
			return err
		}
	}

	if err = repository.SetAlarmStatus(ctx, snapshot.AlarmStatus); err != nil {
		return err
	}

	return repository.SetArmingStatus(ctx, snapshot.ArmingStatus)
}
