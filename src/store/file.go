package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"operator-dashboard/src/contracts"
)

const lockRetryDelay = 100 * time.Millisecond

// FileStore keeps the dashboard in a JSON file. Writes go to a temporary
// file in the same directory which is then renamed over the target, under
// an advisory lock on "<path>.lock".
type FileStore struct {
	path  string
	codec contracts.Codec
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string, codec contracts.Codec) *FileStore {
	return &FileStore{path: path, codec: codec}
}

// Path returns the dashboard file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the dashboard file.
func (s *FileStore) Load(ctx context.Context) (contracts.Dashboard, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", s.path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
	d, err := s.codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", s.path, err)
	}
	return d, nil
}

// Save encodes d and atomically replaces the dashboard file. On any error
// the previous file is left untouched.
func (s *FileStore) Save(ctx context.Context, d contracts.Dashboard) error {
	data, err := s.codec.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode dashboard: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	lock := flock.New(s.path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", s.path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock %s: held by another process", s.path)
	}
	defer lock.Close()

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temporary file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close temporary file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename %s atomically: %w", s.path, err)
	}
	return nil
}

// Close is a no-op; the lock is only held during Save.
func (s *FileStore) Close() error {
	return nil
}
