// Package store abstracts the durable archive backend as a key→blob store
// addressed by path-like strings. Two implementations exist: a local
// filesystem store for development and a Google Cloud Storage store for
// deployment. The store is the single source of truth across runs; all
// dedup decisions go through Exists.
package store

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates the requested key holds no blob.
var ErrNotFound = errors.New("blob not found")

type Store interface {
	// Exists reports whether a blob is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// ReadText returns the blob at key as a string.
	ReadText(ctx context.Context, key string) (string, error)

	// WriteText stores content at key with the given content type,
	// overwriting any prior blob.
	WriteText(ctx context.Context, key, content, contentType string) error

	// Write streams r into the blob at key.
	Write(ctx context.Context, key string, r io.Reader, contentType string) error

	// Open returns a reader over the blob at key along with its content
	// type. The caller must close the reader.
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)

	// ListPrefix returns the keys under prefix, sorted ascending.
	ListPrefix(ctx context.Context, prefix string) ([]string, error)

	// ListDirs returns the immediate child prefixes under prefix without
	// the trailing separator, sorted ascending. The prefix must be empty
	// or end with "/". Unlike ListPrefix it does not enumerate the blobs
	// below each child.
	ListDirs(ctx context.Context, prefix string) ([]string, error)

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
}
