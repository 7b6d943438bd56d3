package api

import (
	"fmt"
	"time"
)

// BackendError reports a non-2xx response from the memory backend.
// Body carries the raw response body so the caller sees the backend's own
// wording verbatim.
type BackendError struct {
	Status int
	Body   string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned status %d: %s", e.Status, e.Body)
}

// TimeoutError reports a backend call that exceeded the configured deadline.
// It is a distinct kind from TransportError so callers can name the timeout
// instead of reporting a generic network failure.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("backend request timed out after %s", e.Timeout)
}

// TransportError reports a network-level failure before any HTTP status was
// received (DNS failure, refused connection, closed socket).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "backend unreachable: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
