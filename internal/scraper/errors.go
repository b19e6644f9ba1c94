package scraper

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable covers network failures, non-2xx responses and timeouts
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrMissingCredentials is returned when a source needs an API key that is not configured
	ErrMissingCredentials = fmt.Errorf("%w: missing API credentials", ErrUpstreamUnavailable)

	// ErrParseFailed means the whole payload had an unexpected shape
	ErrParseFailed = errors.New("parse failed")

	// ErrQueueClosed is returned for tasks submitted to, or pending in, a closed queue
	ErrQueueClosed = errors.New("request queue closed")
)

// StatusError reports a non-2xx upstream response
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, e.Body)
	}
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Unwrap lets errors.Is match ErrUpstreamUnavailable
func (e *StatusError) Unwrap() error { return ErrUpstreamUnavailable }

// unavailable tags err as an upstream failure unless it already is one
func unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUpstreamUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}

func parseFailed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParseFailed, fmt.Sprintf(format, args...))
}
