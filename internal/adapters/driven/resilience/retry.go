package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/mail2shivb/fileupload/internal/core/domain"
)

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 4 << 10

// StatusError is a non-success HTTP response.
type StatusError struct {
	StatusCode int
	// RetryAfter is the parsed Retry-After header, or zero.
	RetryAfter time.Duration
	// Body is a prefix of the response body, for logs only.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// NewStatusError reads a bounded prefix of resp's body into a StatusError.
func NewStatusError(resp *http.Response) *StatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{
		StatusCode: resp.StatusCode,
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		Body:       string(body),
	}
}

// StatusCode extracts the HTTP status from an error chain, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}

// Is reports a 429 as domain.ErrRateLimited.
func (e *StatusError) Is(target error) bool {
	return target == domain.ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

// IsRetryable reports whether err is a transient failure: a 429 or 5xx
// response, or a transport error. A transport error includes the HTTP
// client's own timeout. Auth failures, other 4xx responses and caller
// cancellation are never retried.
//
// A transport error caused by the caller's deadline also looks transient;
// Do checks the caller's context before consulting IsRetryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return domain.IsTransientStatus(se.StatusCode)
	}
	var ue *url.Error
	return errors.As(err, &ue)
}

// Policy bounds retries of one operation.
type Policy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// PolicyFrom converts retry settings into a Policy.
func PolicyFrom(s domain.RetrySettings) Policy {
	return Policy{
		MaxRetries:      s.MaxRetries,
		InitialInterval: s.InitialInterval,
		MaxInterval:     s.MaxInterval,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	// Attempts are bounded by count, not elapsed time.
	exp.MaxElapsedTime = 0
	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// Do runs op, retrying transient failures with jittered exponential backoff.
// Before every attempt it waits on limiter; a 429 response extends the
// limiter's backoff window by the response's Retry-After.
// A failure after ctx ended is returned as is, without retrying. The
// returned error is op's last error, or the context error if ctx ended while
// waiting between attempts.
func Do(ctx context.Context, p Policy, limiter *RateLimiter, log *slog.Logger, op func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		if err := limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		var se *StatusError
		if errors.As(err, &se) && errors.Is(err, domain.ErrRateLimited) {
			limiter.RecordRateLimitError(se.RetryAfter)
		}
		if !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		if log != nil {
			log.Warn("transient failure, retrying",
				slog.String("backend", string(limiter.Backend())),
				slog.Int("attempt", attempt),
				slog.Duration("wait", wait),
				slog.Any("error", err))
		}
	}
	return backoff.RetryNotify(operation, p.backOff(ctx), notify)
}
