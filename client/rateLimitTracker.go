package client

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	remainingHeader  = "X-RateLimit-Remaining"
	resetHeader      = "X-RateLimit-Reset"
	defaultRemaining = 5000
	resetSafetyDelay = time.Second
)

var log = logger.GetOrCreate("client")

// rateLimitTracker keeps the remaining quota and the reset time as reported by
// the upstream API. A single instance bounds one API token's quota, so the
// same tracker must be shared by everything that talks to the API.
type rateLimitTracker struct {
	mut       sync.Mutex
	remaining int
	resetAt   time.Time
	threshold int
}

// NewRateLimitTracker creates a tracker that pre-emptively pauses once the
// remaining quota drops under the given threshold
func NewRateLimitTracker(threshold int) *rateLimitTracker {
	return &rateLimitTracker{
		remaining: defaultRemaining,
		threshold: threshold,
	}
}

// Observe updates the tracker state from the response headers
func (tracker *rateLimitTracker) Observe(headers http.Header) {
	tracker.mut.Lock()
	defer tracker.mut.Unlock()

	remaining, err := strconv.Atoi(headers.Get(remainingHeader))
	if err != nil {
		remaining = defaultRemaining
	}
	tracker.remaining = remaining

	resetEpoch, err := strconv.ParseInt(headers.Get(resetHeader), 10, 64)
	if err == nil {
		tracker.resetAt = time.Unix(resetEpoch, 0)
	}

	log.Trace("rate limit observed", "remaining", tracker.remaining)
}

// MaybeWait blocks until one second past the reset time when the remaining
// quota is under the threshold. The threshold is a safety margin against
// burning the last quota units and hitting hard 403 responses.
func (tracker *rateLimitTracker) MaybeWait(ctx context.Context) error {
	tracker.mut.Lock()
	remaining := tracker.remaining
	resetAt := tracker.resetAt
	tracker.mut.Unlock()

	if remaining >= tracker.threshold {
		return nil
	}
	if resetAt.IsZero() {
		return nil
	}

	waitTime := time.Until(resetAt)
	if waitTime <= 0 {
		return nil
	}

	waitTime += resetSafetyDelay
	log.Warn("rate limit low, waiting for reset", "remaining", remaining, "wait", waitTime)

	return sleepWithContext(ctx, waitTime)
}

// Snapshot returns the current remaining quota and reset time
func (tracker *rateLimitTracker) Snapshot() (int, time.Time) {
	tracker.mut.Lock()
	defer tracker.mut.Unlock()

	return tracker.remaining, tracker.resetAt
}

// IsInterfaceNil returns true if the value under the interface is nil
func (tracker *rateLimitTracker) IsInterfaceNil() bool {
	return tracker == nil
}

func sleepWithContext(ctx context.Context, duration time.Duration) error {
	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
