package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrDisallowed is returned when robots.txt forbids the request.
var ErrDisallowed = errors.New("disallowed by robots.txt")

// StatusError reports a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// IsRateLimited reports whether err is an HTTP 429 response.
func IsRateLimited(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusTooManyRequests
}

// retryable reports whether another attempt could succeed. Per-attempt
// timeouts are retryable; the caller checks its own context separately.
func retryable(err error) bool {
	if errors.Is(err, ErrDisallowed) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code == http.StatusForbidden ||
			se.Code == http.StatusRequestTimeout || se.Code >= 500
	}
	return true
}
