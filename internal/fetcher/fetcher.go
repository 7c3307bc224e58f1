// Package fetcher downloads remote registry pages with per-host rate limiting and retries.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body. Any status other than
	// 200 is returned as a *StatusError.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// StatusError reports a non-200 response that was not retried away.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

// IsStatus reports whether err carries a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
