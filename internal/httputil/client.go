package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ghboard/internal/logger"
)

// DefaultTimeout is the standard timeout for HTTP requests
const DefaultTimeout = 30 * time.Second

// HeaderObserver receives the status and headers of every response,
// including non-2xx ones, before the caller sees the body.
type HeaderObserver func(statusCode int, header http.Header)

// RetryTransport is an http.RoundTripper with logging, header observation and
// retry of transient failures. Only idempotent requests are retried; a
// mutation is attempted exactly once.
type RetryTransport struct {
	base      http.RoundTripper
	retries   int
	backoff   time.Duration
	observers []HeaderObserver
}

// NewRetryTransport wraps base (http.DefaultTransport when nil).
func NewRetryTransport(base http.RoundTripper, retries int, observers ...HeaderObserver) *RetryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RetryTransport{
		base:      base,
		retries:   retries,
		backoff:   500 * time.Millisecond,
		observers: observers,
	}
}

// NewClient creates an http.Client with the given timeout on top of rt.
func NewClient(timeout time.Duration, rt http.RoundTripper) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}

// NewDefaultClient creates a client with standard timeout and retry settings
func NewDefaultClient(observers ...HeaderObserver) *http.Client {
	return NewClient(DefaultTimeout, NewRetryTransport(nil, 2, observers...))
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	retries := t.retries
	if !isIdempotent(req) {
		retries = 0
	}
	ctx := req.Context()

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		start := time.Now()
		logger.HTTP(req.Method, req.URL.Redacted())

		resp, err := t.base.RoundTrip(req)
		if err != nil {
			lastErr = fmt.Errorf("HTTP request failed (attempt %d/%d): %w", attempt+1, retries+1, err)
			if attempt < retries {
				if werr := t.wait(ctx, attempt); werr != nil {
					return nil, werr
				}
			}
			continue
		}

		logger.HTTPResponse(resp.StatusCode, time.Since(start))
		for _, observe := range t.observers {
			observe(resp.StatusCode, resp.Header)
		}

		if shouldRetry(resp.StatusCode) && attempt < retries {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP request returned retryable status %d (attempt %d/%d)", resp.StatusCode, attempt+1, retries+1)
			if werr := t.wait(ctx, attempt); werr != nil {
				return nil, werr
			}
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// wait sleeps with linear backoff unless the request context ends first.
func (t *RetryTransport) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt+1) * t.backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isIdempotent(req *http.Request) bool {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return req.Body == nil || req.Body == http.NoBody
	default:
		return false
	}
}

// shouldRetry determines if a status code indicates a retryable error
func shouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		http.StatusInsufficientStorage,
		http.StatusNetworkAuthenticationRequired:
		return true
	default:
		return false
	}
}
