package store

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"
)

// IsRetryable reports whether a fetch failure is worth retrying: no response
// at all, a 5xx, or 429. Validation failures and other 4xx are final.
func IsRetryable(err error) bool {
	var terr *TransportError
	if !errors.As(err, &terr) {
		return false
	}
	return terr.StatusCode == 0 || terr.StatusCode == http.StatusTooManyRequests || terr.StatusCode >= 500
}

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * 250 * time.Millisecond
	if base > 10*time.Second {
		base = 10 * time.Second
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// RetryFetcher retries retryable failures of the wrapped Fetcher.
type RetryFetcher struct {
	Fetcher Fetcher
	Retries int
	Backoff func(attempt int) time.Duration
}

// NewRetryFetcher wraps f with up to retries extra attempts and Backoff.
func NewRetryFetcher(f Fetcher, retries int) *RetryFetcher {
	if retries < 0 {
		retries = 0
	}
	return &RetryFetcher{Fetcher: f, Retries: retries, Backoff: Backoff}
}

// Retrying returns f wrapped in a RetryFetcher when retries is positive and
// f itself otherwise. Loads never retry unless retries were asked for.
func Retrying(f Fetcher, retries int) Fetcher {
	if retries <= 0 {
		return f
	}
	return NewRetryFetcher(f, retries)
}

// Fetch returns the first success or the last error. A cancelled context
// stops retrying immediately.
func (r *RetryFetcher) Fetch(ctx context.Context) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		data, err := r.Fetcher.Fetch(ctx)
		if err == nil || attempt >= r.Retries || !IsRetryable(err) || ctx.Err() != nil {
			return data, err
		}
		t := time.NewTimer(r.Backoff(attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, &TransportError{Err: ctx.Err()}
		case <-t.C:
		}
	}
}
