package cloud

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by the stub for operations that need a real
// remote service.
var ErrNotConfigured = errors.New("remote service not configured")

// APIError is a non-2xx response from the platform or render service.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// IsRetryable reports whether err is worth retrying later. Transport errors
// and 5xx responses are; 4xx responses and local errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.IsRetryable()
	}
	var netErr *TransportError
	return errors.As(err, &netErr)
}

// TransportError wraps a failure to reach the remote service at all.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: http request failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
