// Package storage defines the object store used to archive registration
// records outside the primary sinks.
//
// Backends register themselves with the factory from an init() function in
// their own package:
//
//	func init() {
//	    storage.Register("mybackend", func(cfg *config.Config) (storage.Storage, error) {
//	        return NewMyBackend(cfg)
//	    })
//	}
//
// cmd/server blank-imports every backend so NewStorage can dispatch on
// storage.default_backend.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Get when no object exists at the key
var ErrNotFound = errors.New("object not found")

// Storage is a flat key/value object store. Keys use forward slashes.
type Storage interface {
	// Put stores the object, replacing any existing one at the same key
	Put(ctx context.Context, key string, reader io.Reader, size int64) (*PutResult, error)

	// Get opens the object for reading. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether an object is stored at key
	Exists(ctx context.Context, key string) (bool, error)
}

// PutResult describes a stored object
type PutResult struct {
	Key string

	Size int64

	// Checksum is the hex SHA-256 of the stored bytes
	Checksum string
}
