package httputil

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/topmover/backend/pkg/config"
	"github.com/wonny/topmover/backend/pkg/logger"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	cfg := &config.Config{
		Env:      "test",
		LogLevel: "error",
		Provider: config.ProviderConfig{
			UserAgent:      "topmover-test/1.0",
			Timeout:        2 * time.Second,
			MaxAttempts:    3,
			RetryBaseDelay: 5 * time.Millisecond,
		},
	}
	return New(cfg, logger.Nop())
}

func TestNew(t *testing.T) {
	cfg := &config.Config{Env: "test", LogLevel: "error"}
	client := New(cfg, logger.Nop())

	require.NotNil(t, client)
	assert.Equal(t, 20*time.Second, client.httpClient.Timeout)
	assert.Equal(t, 3, client.policy.MaxAttempts)
	assert.Equal(t, 1500*time.Millisecond, client.policy.BaseDelay)
	assert.Nil(t, client.limiter)
}

func TestNewWithRateLimit(t *testing.T) {
	cfg := &config.Config{Provider: config.ProviderConfig{RatePerMinute: 5}}
	client := New(cfg, logger.Nop())
	assert.NotNil(t, client.limiter)
}

func TestGetBodySetsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "topmover-test/1.0", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"status":"OK"}`))
	}))
	defer server.Close()

	body, err := testClient(t).GetBody(context.Background(), server.URL)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"OK"}`, string(body))
}

func TestRetryOn503ThenSuccess(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			// Return 503 for first 2 attempts
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"status":"OK"}`))
	}))
	defer server.Close()

	body, err := testClient(t).GetBody(context.Background(), server.URL)
	require.NoError(t, err, "third attempt is within the budget")
	assert.Contains(t, string(body), "OK")
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestRetryExhausted(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer server.Close()

	_, err := testClient(t).GetBody(context.Background(), server.URL+"/v1/open-close/AAPL/2024-01-05?apiKey=secret")
	require.Error(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.Equal(t, http.StatusTooManyRequests, fetchErr.StatusCode())
	assert.NotContains(t, err.Error(), "secret", "api key must not leak into errors")
}

func TestNonRetryableStatus(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := testClient(t).GetBody(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
}

func TestNetworkErrorIsRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	_, err := testClient(t).GetBody(context.Background(), addr+"/v2/aggs/ticker/AAPL?apiKey=secret")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, 3, fetchErr.Attempts)
	assert.Equal(t, 0, fetchErr.StatusCode())
	assert.NotContains(t, err.Error(), "secret", "api key must not leak into errors")
	assert.NotContains(t, err.Error(), "apiKey")
	assert.Contains(t, err.Error(), "/v2/aggs/ticker/AAPL")
}

func TestLinearBackOff(t *testing.T) {
	b := &LinearBackOff{Base: 1500 * time.Millisecond}
	assert.Equal(t, 1500*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 3000*time.Millisecond, b.NextBackOff())
	b.Reset()
	assert.Equal(t, 1500*time.Millisecond, b.NextBackOff())
}

func TestIsRetryableStatus(t *testing.T) {
	tests := []struct {
		statusCode int
		want       bool
	}{
		{200, false},
		{400, false},
		{403, false},
		{404, false},
		{429, true},
		{500, true},
		{501, false},
		{502, true},
		{503, true},
		{504, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.statusCode), func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryableStatus(tt.statusCode))
		})
	}
}
