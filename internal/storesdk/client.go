package storesdk

import (
	"context"
	"io"
	"math"
	"net/http"
	"path"
	"time"

	"github.com/openmirror/drivebox/internal/store"
)

// listItem is the wire form of one inventory entry: forward-slash relative
// path and modification time as float unix seconds.
type listItem struct {
	Path        string  `json:"path"`
	IsDirectory bool    `json:"is_directory"`
	Size        uint64  `json:"size"`
	Modified    float64 `json:"modified"`
}

// List fetches the full remote inventory.
func (c *Client) List(ctx context.Context) ([]*store.RemoteItem, error) {
	var items []*listItem
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&items).
		Get(routeFiles)

	if err := handleAPIError(resp, err, "list files"); err != nil {
		return nil, err
	}

	inventory := make([]*store.RemoteItem, 0, len(items))
	for _, item := range items {
		sec, frac := math.Modf(item.Modified)
		inventory = append(inventory, &store.RemoteItem{
			Path:       item.Path,
			IsDir:      item.IsDirectory,
			Size:       item.Size,
			ModifiedAt: time.Unix(int64(sec), int64(frac*1e9)),
		})
	}
	return inventory, nil
}

// Upload streams the content as a multipart form to /upload/<path>.
// Uploads are not retried at the transport level; the dispatcher owns the
// retry policy for them.
func (c *Client) Upload(ctx context.Context, relPath string, body io.Reader) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetFileReader("file", path.Base(relPath), body).
		Post(routeUpload + "/" + escapePath(relPath))

	return handleAPIError(resp, err, "upload "+relPath)
}

// CreateDirectory creates a single directory level. Idempotent when the
// directory already exists.
func (c *Client) CreateDirectory(ctx context.Context, relPath string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"is_directory": "true"}).
		Post(routeUpload + "/" + escapePath(relPath))

	return handleAPIError(resp, err, "create directory "+relPath)
}

// Download streams the remote file. The caller owns the returned reader.
func (c *Client) Download(ctx context.Context, relPath string) (io.ReadCloser, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		DisableAutoReadResponse().
		Get(routeDownload + "/" + escapePath(relPath))

	if err != nil {
		return nil, handleAPIError(resp, err, "download "+relPath)
	}
	if resp.GetStatusCode() == http.StatusNotFound {
		resp.Body.Close()
		return nil, store.ErrNotFound
	}
	if resp.IsErrorState() {
		defer resp.Body.Close()
		return nil, handleAPIError(resp, nil, "download "+relPath)
	}

	return resp.Body, nil
}

// Delete removes a file or directory tree. The server answers 404 for
// absent paths, surfaced as store.ErrNotFound.
func (c *Client) Delete(ctx context.Context, relPath string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(routeDelete + "/" + escapePath(relPath))

	return handleAPIError(resp, err, "delete "+relPath)
}

var _ store.RemoteStore = (*Client)(nil)
