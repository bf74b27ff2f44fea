// Package resilience provides outbound rate limiting and bounded retries
// shared by the storage, retrieval and completion adapters.
package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

// Backend identifies an outbound service for rate limiting purposes.
type Backend string

const (
	// BackendGraph is the Microsoft Graph drive API.
	BackendGraph Backend = "graph"
	// BackendRetrieval is the retrieval API.
	BackendRetrieval Backend = "retrieval"
	// BackendCompletion is the chat-completion API.
	BackendCompletion Backend = "completion"
)

// DefaultRetryAfter is the backoff applied to a 429 without a Retry-After header.
const DefaultRetryAfter = 10 * time.Second

// RateLimiter provides rate limiting for one backend.
// It uses a token bucket algorithm with an additional backoff window for 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	backend Backend
}

// NewRateLimiter creates a rate limiter for backend from the configured settings.
func NewRateLimiter(backend Backend, cfg domain.RateLimitSettings) *RateLimiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = domain.DefaultRequestsPerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = domain.DefaultBurst
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		backend: backend,
	}
}

// Backend returns the backend this limiter guards, or "" for a nil limiter.
func (r *RateLimiter) Backend() Backend {
	if r == nil {
		return ""
	}
	return r.backend
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError records a rate limit response and delays later requests.
// A non-positive retryAfter selects DefaultRetryAfter.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if retryAfter <= 0 {
		retryAfter = DefaultRetryAfter
	}
	if until := time.Now().Add(retryAfter); until.After(r.retryAt) {
		r.retryAt = until
	}
}
