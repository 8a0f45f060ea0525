package httputil

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy decides how transient provider failures are retried.
// MaxAttempts counts the first try. Network errors are always retryable;
// HTTP statuses are retryable when Retryable reports true.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Retryable   func(statusCode int) bool
}

// DefaultRetryPolicy is 3 attempts with 1.5s linear backoff
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1500 * time.Millisecond,
		Retryable:   IsRetryableStatus,
	}
}

func (p RetryPolicy) retryable(statusCode int) bool {
	if p.Retryable == nil {
		return IsRetryableStatus(statusCode)
	}
	return p.Retryable(statusCode)
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(
		backoff.WithMaxRetries(&LinearBackOff{Base: p.BaseDelay}, uint64(retries)),
		ctx,
	)
}

// LinearBackOff waits attempt × Base before each retry
type LinearBackOff struct {
	Base    time.Duration
	attempt int
}

// NextBackOff implements backoff.BackOff
func (b *LinearBackOff) NextBackOff() time.Duration {
	b.attempt++
	return time.Duration(b.attempt) * b.Base
}

// Reset implements backoff.BackOff
func (b *LinearBackOff) Reset() {
	b.attempt = 0
}

// IsRetryableStatus reports whether an HTTP status is transient
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
