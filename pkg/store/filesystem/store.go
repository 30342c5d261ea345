// Package filesystem stores mount tables as legacy mount.json files.
//
// Layout under the data directory:
//
//	<datadir>/mount.json          global mounts
//	<datadir>/<user>/mount.json   personal mounts of <user>
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/marmos91/extmounts/pkg/mount"
	"github.com/marmos91/extmounts/pkg/store"
)

// FileName is the name of every table file.
const FileName = "mount.json"

// Config holds the filesystem store options.
type Config struct {
	// DataDir is the root of the table files. Created if missing.
	DataDir string `mapstructure:"datadir"`

	// FileMode is the permission of written files. Zero means 0600.
	FileMode os.FileMode `mapstructure:"file_mode"`
}

// Store reads and writes mount.json files.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the table, so readers never observe a partially written file.
type Store struct {
	dataDir  string
	fileMode os.FileMode

	mu     sync.RWMutex
	closed bool
}

// New creates the data directory if needed and returns a store rooted there.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		return nil, errors.New("filesystem store: datadir is required")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	mode := cfg.FileMode
	if mode == 0 {
		mode = 0o600
	}

	return &Store{dataDir: cfg.DataDir, fileMode: mode}, nil
}

// Path returns the table file of scope.
func (s *Store) Path(scope mount.Scope) (string, error) {
	if scope.IsGlobal() {
		return filepath.Join(s.dataDir, FileName), nil
	}
	if err := store.ValidateOwner(scope.Owner); err != nil {
		return "", err
	}
	return filepath.Join(s.dataDir, scope.Owner, FileName), nil
}

func (s *Store) ReadRaw(ctx context.Context, scope mount.Scope) (mount.RawMountTable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, store.ErrClosed
	}

	path, err := s.Path(scope)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return mount.RawMountTable{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	table, err := mount.UnmarshalTable(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

func (s *Store) WriteRaw(ctx context.Context, scope mount.Scope, table mount.RawMountTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}

	path, err := s.Path(scope)
	if err != nil {
		return err
	}

	data, err := mount.MarshalTable(table)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	return s.writeAtomic(path, data)
}

func (s *Store) writeAtomic(path string, data []byte) error {
	tmp := filepath.Join(filepath.Dir(path), "."+FileName+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, s.fileMode)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// Close marks the store closed. Files are left in place.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
