// Package storesdk implements the remote store contract over the storage
// server's HTTP API.
package storesdk

import (
	"fmt"
	"net/url"
	"runtime"
	"strings"
	"time"

	"github.com/imroc/req/v3"

	"github.com/openmirror/drivebox/internal/utils"
	"github.com/openmirror/drivebox/internal/version"
)

const (
	HeaderDeviceId   = "X-Drivebox-Device-Id"
	HeaderInstanceId = "X-Drivebox-Instance-Id"

	routeFiles    = "/files"
	routeUpload   = "/upload"
	routeDownload = "/download"
	routeDelete   = "/delete"
)

var userAgent = fmt.Sprintf("Drivebox/%s (%s; %s; %s)", version.Version, version.Revision, runtime.GOOS, runtime.GOARCH)

// Client talks to one storage server.
type Client struct {
	http    *req.Client
	baseURL string
}

// New creates a storage server client. Network-level failures are retried
// by the underlying transport; API-level errors are not.
func New(baseURL string, instanceId string) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoServerURL
	}
	baseURL = strings.TrimRight(baseURL, "/")

	http := req.C().
		SetBaseURL(baseURL).
		SetTimeout(2 * time.Minute).
		SetCommonRetryCount(3).
		SetCommonRetryFixedInterval(1 * time.Second).
		SetUserAgent(userAgent).
		SetCommonHeader(HeaderDeviceId, utils.HWID).
		SetCommonHeader(HeaderInstanceId, instanceId).
		SetCommonErrorResult(&APIError{}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &Client{http: http, baseURL: baseURL}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// escapePath escapes each segment of a slash-separated remote path while
// keeping the separators intact.
func escapePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}
