package client

import (
	"errors"
	"fmt"
)

// Sentinel errors for the non-retryable API outcomes. Callers classify
// failures with errors.Is against these values.
var (
	// ErrUnauthorized signals a bad or missing credential
	ErrUnauthorized = errors.New("unauthorized: invalid or missing token")

	// ErrNotFound signals a repository that does not exist or is not accessible
	ErrNotFound = errors.New("repository not found or not accessible")

	// ErrForbidden signals a permission or abuse-detection denial
	ErrForbidden = errors.New("access forbidden")

	// ErrExhaustedRetries signals that the retry budget ran out on transient failures
	ErrExhaustedRetries = errors.New("request failed after exhausting retries")
)

type errUnexpectedStatus struct {
	statusCode int
	body       string
}

func (e errUnexpectedStatus) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.statusCode, e.body)
}
