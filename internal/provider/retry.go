package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	maxRetries  = 3
	baseBackoff = 500 * time.Millisecond
)

// transientError marks a failure worth retrying (network error, 429, 5xx).
type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// transient wraps err so withRetries will retry it.
func transient(err error) error { return &transientError{err: err} }

// statusError converts an unexpected HTTP status into an error, marking
// rate limits and server errors as transient.
func statusError(resp *http.Response, body []byte) error {
	err := fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return transient(err)
	}
	return err
}

// withRetries runs fn up to maxRetries+1 times, backing off exponentially
// after transient failures. Non-transient errors return immediately.
func withRetries(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		var te *transientError
		if !errors.As(err, &te) {
			return err
		}
		select {
		case <-time.After(baseBackoff << attempt):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
