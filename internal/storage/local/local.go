// Package local stores objects on the local filesystem. Suitable for a single
// instance or a shared volume; use a cloud backend when several instances
// archive records.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/storage"
	"github.com/annotation-study/registration/pkg/checksum"
)

func init() {
	storage.Register("local", func(cfg *config.Config) (storage.Storage, error) {
		return New(&cfg.Storage.Local)
	})
}

// ErrInvalidKey is returned for keys that would resolve outside the base path
var ErrInvalidKey = errors.New("invalid object key")

// LocalStorage implements storage.Storage on a directory tree
type LocalStorage struct {
	basePath string
}

// New creates the base directory if needed
func New(cfg *config.LocalStorageConfig) (*LocalStorage, error) {
	if cfg.BasePath == "" {
		return nil, fmt.Errorf("local storage base_path is required")
	}
	if err := os.MkdirAll(cfg.BasePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: cfg.BasePath}, nil
}

func (s *LocalStorage) resolve(key string) (string, error) {
	rel := filepath.FromSlash(key)
	if key == "" || !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(s.basePath, rel), nil
}

// Put writes to a temporary file in the target directory and renames it into
// place, so readers never observe a partial object.
func (s *LocalStorage) Put(ctx context.Context, key string, reader io.Reader, size int64) (*storage.PutResult, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	counter := &errWriter{w: tmp}
	sum, n, err := checksum.Stream(io.TeeReader(reader, counter))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to write file: %w", err)
	}
	if counter.err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to write file: %w", counter.err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("failed to move file into place: %w", err)
	}

	return &storage.PutResult{
		Key:      key,
		Size:     n,
		Checksum: sum,
	}, nil
}

// Get opens the stored file
func (s *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// Exists checks if a file exists at the specified key
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}
	return true, nil
}

// errWriter keeps the first write error. A tee reader would otherwise surface
// a write failure as a read failure.
type errWriter struct {
	w   io.Writer
	err error
}

func (c *errWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err != nil && c.err == nil {
		c.err = err
	}
	return n, err
}
