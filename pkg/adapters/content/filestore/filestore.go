// Package filestore keeps snippet payloads as plain files under a root
// directory. Writes go through a temp file, fsync and an atomic link so a
// reader never sees a partially written payload.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

// FileStore stores payloads on the local filesystem.
type FileStore struct {
	root string
}

// New creates the root directory if needed and returns a store rooted there.
func New(root string) (*FileStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve content dir %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create content dir %s: %w", abs, err)
	}
	return &FileStore{root: abs}, nil
}

// Put writes data under key. The payload is staged in a temp file and then
// hard-linked into place, so an existing file is never replaced.
func (s *FileStore) Put(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return fmt.Errorf("%w: create dir for %s: %w", domain.ErrStorage, key, err)
	}

	// Unique temp name so concurrent writers never share a temp file
	tmpPath := fullPath + "." + uuid.NewString() + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %w", domain.ErrStorage, key, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %w", domain.ErrStorage, key, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("%w: fsync %s: %w", domain.ErrStorage, key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close %s: %w", domain.ErrStorage, key, err)
	}
	// Link fails with EEXIST instead of overwriting like Rename would
	err = os.Link(tmpPath, fullPath)
	os.Remove(tmpPath)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", key, domain.ErrContentExists)
		}
		return fmt.Errorf("%w: link %s: %w", domain.ErrStorage, key, err)
	}
	return nil
}

// Get returns the exact bytes stored under key.
func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fullPath, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", key, domain.ErrContentNotFound)
		}
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrStorage, key, err)
	}
	return data, nil
}

// Delete removes the payload. Returns nil if it is already gone.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fullPath, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: delete %s: %w", domain.ErrStorage, key, err)
	}
	return nil
}

// Close is a no-op; files need no shutdown.
func (s *FileStore) Close() error {
	return nil
}

// Root returns the absolute directory payloads are stored under.
func (s *FileStore) Root() string {
	return s.root
}

// path maps a key to a file inside root, rejecting keys that would escape it.
func (s *FileStore) path(key string) (string, error) {
	if key == "" || filepath.IsAbs(key) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidKey, key)
	}
	fullPath := filepath.Join(s.root, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidKey, key)
	}
	return fullPath, nil
}

// Ensure interface compliance
var _ ports.ContentStore = (*FileStore)(nil)
