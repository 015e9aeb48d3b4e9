package client

import (
	"context"
	"net/http"
)

// RateLimitHandler defines the component that tracks the upstream API quota
type RateLimitHandler interface {
	// Observe updates the remaining quota and the reset time from response headers
	Observe(headers http.Header)

	// MaybeWait blocks until the quota reset when the remaining budget dropped
	// under the safety threshold. Returns early with the context's error if the
	// context is done.
	MaybeWait(ctx context.Context) error

	IsInterfaceNil() bool
}
