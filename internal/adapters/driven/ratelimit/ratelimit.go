// Package ratelimit throttles requests to hosted AI providers.
package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBackoff is used when a 429 response carries no Retry-After header.
const DefaultBackoff = 20 * time.Second

// Config holds rate limiting configuration for one provider.
type Config struct {
	// RequestsPerSecond is the sustained rate limit. Zero disables throttling.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// Limiter combines a token bucket with a backoff window set by 429 responses.
// A nil *Limiter never blocks.
type Limiter struct {
	mu      sync.Mutex
	bucket  *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// New creates a limiter for cfg.
func New(cfg Config) *Limiter {
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		bucket: rate.NewLimiter(limit, burst),
		now:    time.Now,
	}
}

// Wait blocks until a request may be sent, honouring any backoff window.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := retryAt.Sub(l.now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.bucket.Wait(ctx)
}

// Observe records a rate limited response. Other responses are ignored.
func (l *Limiter) Observe(resp *http.Response) {
	if l == nil || resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return
	}

	backoff := DefaultBackoff
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
		backoff = time.Duration(secs) * time.Second
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if until := l.now().Add(backoff); until.After(l.retryAt) {
		l.retryAt = until
	}
}

// RetryAt returns the end of the current backoff window.
func (l *Limiter) RetryAt() time.Time {
	if l == nil {
		return time.Time{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAt
}
