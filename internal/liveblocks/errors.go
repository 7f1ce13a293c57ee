package liveblocks

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the destination API. The status code
// is what the reconcilers branch on: 404 means "proceed to create", 409
// means "reuse existing", everything else means "skip this unit".
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("liveblocks: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the destination.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsConflict reports whether err is a 409 from the destination.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// isRetryable reports whether err is worth retrying: throttling or a
// server-side failure. Network errors (non-APIError) are retried too.
func isRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return true
}
