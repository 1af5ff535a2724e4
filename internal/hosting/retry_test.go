package hosting

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient_NilError(t *testing.T) {
	assert.False(t, isTransient(nil))
}

func TestIsTransient_ServerError(t *testing.T) {
	assert.True(t, isTransient(&APIError{Status: 500, Message: "server error"}))
}

func TestIsTransient_TooManyRequests(t *testing.T) {
	assert.True(t, isTransient(&APIError{Status: http.StatusTooManyRequests, Message: "too many"}))
}

func TestIsTransient_ClientError(t *testing.T) {
	assert.False(t, isTransient(&APIError{Status: 422, Message: "validation failed"}))
}

func TestIsTransient_NotFound(t *testing.T) {
	assert.False(t, isTransient(ErrNotFound))
}

func TestIsTransient_ContextCanceled(t *testing.T) {
	assert.False(t, isTransient(context.Canceled))
}

func TestIsTransient_NetworkError(t *testing.T) {
	assert.True(t, isTransient(errors.New("connection reset by peer")))
}

func TestRetryService_Backoff(t *testing.T) {
	rs := NewRetryService(nil, &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		JitterFraction: 0.0, // no jitter for deterministic test
	})

	assert.Equal(t, 100*time.Millisecond, rs.backoff(0))
	assert.Equal(t, 200*time.Millisecond, rs.backoff(1))
	assert.Equal(t, 400*time.Millisecond, rs.backoff(2))
}

func TestRetryService_BackoffCapped(t *testing.T) {
	rs := NewRetryService(nil, &RetryConfig{
		MaxRetries:     10,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     5 * time.Second,
		JitterFraction: 0.0,
	})

	assert.Equal(t, 5*time.Second, rs.backoff(10))
}

func TestRetryService_RetrySuccess(t *testing.T) {
	rs := NewRetryService(nil, &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFraction: 0.0,
	})

	attempts := 0
	err := rs.retry(context.Background(), "test", func() error {
		attempts++
		if attempts < 3 {
			return &APIError{Status: 500, Message: "fail"}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryService_RetryExhausted(t *testing.T) {
	rs := NewRetryService(nil, &RetryConfig{
		MaxRetries:     2,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFraction: 0.0,
	})

	attempts := 0
	err := rs.retry(context.Background(), "test", func() error {
		attempts++
		return &APIError{Status: 500, Message: "fail"}
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 3, attempts) // initial + 2 retries
}

func TestRetryService_NoRetryOnClientError(t *testing.T) {
	rs := NewRetryService(nil, &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		JitterFraction: 0.0,
	})

	attempts := 0
	err := rs.retry(context.Background(), "test", func() error {
		attempts++
		return &APIError{Status: 404, Message: "not found"}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts) // no retry
}

func TestRetryService_ContextCancellation(t *testing.T) {
	rs := NewRetryService(nil, &RetryConfig{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     10 * time.Second,
		JitterFraction: 0.0,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	attempts := 0
	err := rs.retry(ctx, "test", func() error {
		attempts++
		return &APIError{Status: 500, Message: "fail"}
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
