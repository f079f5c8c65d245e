// Package store defines the contract between the sync core and the remote
// storage backend. The core only ever sees this interface; the HTTP
// implementation lives in internal/storesdk.
package store

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Download and Delete when the remote path does
// not exist. Callers deleting a path treat it as success.
var ErrNotFound = errors.New("store: not found")

// RemoteItem is one entry of the remote inventory. Paths are relative to the
// storage root and use forward slashes regardless of host OS.
type RemoteItem struct {
	Path       string
	IsDir      bool
	Size       uint64
	ModifiedAt time.Time
}

// RemoteStore is the operation contract the remote end must honor.
// All calls are synchronous request/response.
type RemoteStore interface {
	// List returns the full remote inventory.
	List(ctx context.Context) ([]*RemoteItem, error)

	// Upload stores the content under path, replacing any previous content.
	Upload(ctx context.Context, path string, body io.Reader) error

	// CreateDirectory creates a single directory. Idempotent if it already
	// exists. It does not create missing ancestors; callers walk the path
	// segments themselves.
	CreateDirectory(ctx context.Context, path string) error

	// Download streams the remote content. Returns ErrNotFound for absent
	// paths. The caller owns the returned reader.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a file or a directory tree. Returns ErrNotFound when
	// the path is already absent.
	Delete(ctx context.Context, path string) error
}
