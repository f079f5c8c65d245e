package storesdk

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/imroc/req/v3"

	"github.com/openmirror/drivebox/internal/store"
)

var (
	ErrNoServerURL = errors.New("sdk: server url missing")
)

// APIError is the error envelope the storage server responds with.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %d - %s", e.StatusCode, e.Message)
}

// handleAPIError folds transport errors and error-state responses into one
// error value. 404s map onto store.ErrNotFound so callers can test with
// errors.Is.
func handleAPIError(resp *req.Response, requestErr error, operation string) error {
	if requestErr != nil {
		return fmt.Errorf("http request error: %s: %w", operation, requestErr)
	}

	if resp.IsErrorState() {
		if resp.GetStatusCode() == http.StatusNotFound {
			return fmt.Errorf("%s: %w", operation, store.ErrNotFound)
		}
		if apiErr, ok := resp.ErrorResult().(*APIError); ok && apiErr != nil {
			apiErr.StatusCode = resp.GetStatusCode()
			return fmt.Errorf("%s: %w", operation, apiErr)
		}
		return fmt.Errorf("%s: api error: %s", operation, resp.String())
	}

	return nil
}
