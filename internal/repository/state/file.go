package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/wire"
)

// FileRepository persists the security state to a JSON file on disk.
// JSON is produced and consumed via protojson to stay compatible with the
// payloads served over gRPC.
type FileRepository struct {
	*MemoryRepository

	// path is the filesystem location of the JSON state file.
	path string
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
// A missing file yields a fresh disarmed state; the file is created on first write.
func NewFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{
		path: filepath.Clean(path),
	}

	snapshot, err := r.load()

	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		snapshot = nil
	default:
		return nil, err
	}

	r.MemoryRepository = NewMemoryRepository(snapshot)
	r.MemoryRepository.commit = r.save

	return r, nil
}

// load reads the state from disk.
func (r *FileRepository) load() (*domain.Snapshot, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	snapshot, err := wire.UnmarshalSnapshot(contents)
	if err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return snapshot, nil
}

// save writes the state to a temporary file and renames it over the old one.
func (r *FileRepository) save(_ context.Context, snapshot *domain.Snapshot) error {
	data, err := wire.MarshalSnapshot(snapshot)
	if err != nil {
		return err
	}

	tmp := r.path + ".tmp"

	if err = os.WriteFile(tmp, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
