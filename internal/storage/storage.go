// Package storage contains object storage abstractions for the rendered content of
// issued documents and the bodies of uploaded evidence files.
// Implementations rely on streaming I/O only and never touch local disk.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Get when no object exists under the key.
var ErrObjectNotFound = errors.New("storage: object not found")

// PutObjectOptions describes an upload. Size is -1 when the length of the
// stream is not known up front.
type PutObjectOptions struct {
	Size        int64
	ContentType string
	Metadata    map[string]string
}

// ObjectInfo is what the backend reports about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// Storage holds content addressed by key. Keys are written once by the
// services; nothing in the API overwrites a committed object.
type Storage interface {
	// Put uploads an object under the given key using the provided reader and options.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get retrieves an object's content as a streaming reader alongside its info.
	// A missing object is reported as ErrObjectNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Delete removes an object by key. Only used to roll back uploads whose
	// database record was never committed.
	Delete(ctx context.Context, key string) error
}
