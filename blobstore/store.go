// Package blobstore abstracts the object storage index mirrors are pushed
// to and pulled from. Implementations exist for the local filesystem,
// MinIO and S3-compatible endpoints, and AWS S3.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// BlobStore is an abstraction for reading and writing named data blobs.
//
// Blobs are written whole: Put replaces any existing blob under the same
// name, and readers opened before a Put observe either the old or the new
// content, never a mix.
type BlobStore interface {
	// Put writes a blob atomically. size is the exact number of bytes r
	// will yield; implementations may use it to size the upload.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Open opens a blob for reading. The caller must close the returned
	// reader.
	Open(ctx context.Context, name string) (io.ReadCloser, error)

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns all blob names with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
