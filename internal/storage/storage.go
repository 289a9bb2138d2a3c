// Package storage persists build outputs (manifests, thumbnails) under a key space.
package storage

import (
	"context"
	"io"
)

// Storage stores and retrieves output objects by key.
type Storage interface {
	// Put writes reader to key, replacing any existing object.
	Put(ctx context.Context, key string, reader io.Reader) error

	// Get opens the object at key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Path returns where key is stored.
	Path(key string) string
}
