package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout means a single attempt exceeded its deadline.
	ErrTimeout = errors.New("fetch timeout")
	// ErrNetwork means connection failures or 5xx responses outlasted the retries.
	ErrNetwork = errors.New("fetch network failure")
	// ErrBlocked means the vendor refused the request as automated traffic.
	ErrBlocked = errors.New("fetch blocked")
	// ErrStatus means a non-retryable HTTP status such as 404.
	ErrStatus = errors.New("fetch unexpected status")
)

// StatusError carries the HTTP status of a rejected response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrStatus, e.Code, e.URL)
}

func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// StatusCode extracts the HTTP status from an ErrStatus failure.
func StatusCode(err error) (int, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code, true
	}
	return 0, false
}

// Class returns the short label used for metrics and logs.
func Class(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrStatus):
		return "status"
	case errors.Is(err, ErrNetwork):
		return "network"
	default:
		return "error"
	}
}
