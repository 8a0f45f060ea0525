package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"github.com/wonny/topmover/backend/pkg/config"
	"github.com/wonny/topmover/backend/pkg/logger"
	"github.com/wonny/topmover/backend/pkg/metrics"
	"github.com/wonny/topmover/backend/pkg/redis"
)

const maxErrorBody = 250

// Client is an HTTP client wrapper with retry logic and logging
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient   *http.Client
	logger       *logger.Logger
	userAgent    string
	policy       RetryPolicy
	limiter      *rate.Limiter
	rateLimiter  *redis.RateLimiter
	rateLimitCfg *redis.RateLimitConfig
}

// New creates a new HTTP client from config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.Provider.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	policy := DefaultRetryPolicy()
	if cfg.Provider.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Provider.MaxAttempts
	}
	if cfg.Provider.RetryBaseDelay > 0 {
		policy.BaseDelay = cfg.Provider.RetryBaseDelay
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.Module("httputil"),
		userAgent:  cfg.Provider.UserAgent,
		policy:     policy,
	}

	if cfg.Provider.RatePerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.Provider.RatePerMinute)), 1)
	}

	return c
}

// WithRetry replaces the retry policy
func (c *Client) WithRetry(policy RetryPolicy) *Client {
	c.policy = policy
	return c
}

// WithTimeout overrides the per-attempt timeout
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithRateLimiter sets the shared (Redis) rate limiter for this client
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, cfg redis.RateLimitConfig) *Client {
	c.rateLimiter = limiter
	c.rateLimitCfg = &cfg
	return c
}

// GetBody performs a GET and returns the body of a 2xx response.
// Transient failures are retried under the client's RetryPolicy. Any
// failure is returned as *FetchError carrying the last observed cause.
func (c *Client) GetBody(ctx context.Context, rawURL string) ([]byte, error) {
	path := redactedPath(rawURL)
	attempts := 0

	op := func() ([]byte, error) {
		attempts++

		if err := c.wait(ctx); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("rate limit wait failed: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("failed to create GET request: %w", err))
		}
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		req.Header.Set("Accept", "application/json")

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		metrics.ProviderLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.ProviderAttempts.WithLabelValues("network").Inc()
			err = redactURLError(err, path)
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, fmt.Errorf("network error: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			metrics.ProviderAttempts.WithLabelValues("network").Inc()
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			metrics.ProviderAttempts.WithLabelValues("ok").Inc()
			return body, nil
		}

		statusErr := &StatusError{Code: resp.StatusCode, Body: truncate(body, maxErrorBody)}
		if c.policy.retryable(resp.StatusCode) {
			metrics.ProviderAttempts.WithLabelValues("retryable").Inc()
			return nil, statusErr
		}
		metrics.ProviderAttempts.WithLabelValues("rejected").Inc()
		return nil, backoff.Permanent(statusErr)
	}

	notify := func(err error, delay time.Duration) {
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"attempt": attempts,
			"delay":   delay.String(),
			"path":    path,
		}).Warn("Retrying HTTP request")
	}

	body, err := backoff.RetryNotifyWithData(op, c.policy.backOff(ctx), notify)
	if err != nil {
		fetchErr := &FetchError{Path: path, Attempts: attempts, Err: err}
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"attempts": attempts,
			"path":     path,
		}).Debug("HTTP request failed")
		return nil, fetchErr
	}

	return body, nil
}

// wait blocks on whichever rate limiter is configured
func (c *Client) wait(ctx context.Context) error {
	if c.rateLimiter != nil && c.rateLimitCfg != nil {
		return c.rateLimiter.Wait(ctx, *c.rateLimitCfg)
	}
	if c.limiter != nil {
		return c.limiter.Wait(ctx)
	}
	return nil
}

// StatusError is a non-2xx provider response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

// FetchError is returned when a request gives up
type FetchError struct {
	Path     string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("request %s failed after %d attempt(s): %v", e.Path, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusCode returns the last HTTP status seen, or 0 for network errors
func (e *FetchError) StatusCode() int {
	var se *StatusError
	if errors.As(e.Err, &se) {
		return se.Code
	}
	return 0
}

// redactedPath drops the query string so API keys never reach the logs
func redactedPath(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Path
}

// redactURLError rewrites the URL that net/http embeds in transport errors
func redactURLError(err error, path string) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		ue.URL = path
	}
	return err
}

func truncate(body []byte, n int) string {
	if len(body) > n {
		body = body[:n]
	}
	return string(body)
}
