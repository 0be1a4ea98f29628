// Package http provides the HTTP client used for YouTube requests, with
// retry logic and client-side rate limiting.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/LinuxIsCool/yt-dlp-transcripts/internal/retry"
)

// Config holds HTTP client configuration including retry and rate limit settings.
type Config struct {
	// Timeout for individual HTTP requests.
	Timeout time.Duration

	// Retry configuration applied around each request.
	Retry retry.Config

	// UserAgent for HTTP requests.
	UserAgent string

	// RequestsPerSecond caps the sustained request rate across the client.
	// Zero disables client-side rate limiting.
	RequestsPerSecond float64

	// Burst is the rate limiter burst size. Values below 1 are treated as 1.
	Burst int
}

// DefaultConfig returns sensible defaults for HTTP client configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:           30 * time.Second,
		Retry:             retry.DefaultConfig(),
		UserAgent:         "yt-dlp-transcripts/1.0",
		RequestsPerSecond: 2,
		Burst:             1,
	}
}

// Client wraps an HTTP client with retry logic and rate limit handling.
// YouTube throttles unauthenticated endpoints aggressively; the token bucket
// keeps request pacing polite and the retry layer absorbs transient failures.
type Client struct {
	base    *http.Client
	config  *Config
	limiter *rate.Limiter
}

// New creates a new HTTP client with the given configuration.
// A nil cfg uses DefaultConfig.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		base:    &http.Client{Timeout: cfg.Timeout},
		config:  cfg,
		limiter: limiter,
	}
}

// Response represents a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Get performs a GET request with retry logic.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil)
}

// Do performs an HTTP request with rate limiting and retries. 2xx responses
// are returned with the body fully read. 429/503 map to *RateLimitError and
// honor the Retry-After header (capped at the retry MaxBackoff) before the
// next attempt; other non-2xx statuses map to *HTTPError. Rate limits and
// 5xx responses are retried, everything else is permanent.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string) (*Response, error) {
	var out *Response

	err := retry.Do(ctx, c.config.Retry, isRetryableHTTPError, func(ctx context.Context) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return err
		}
		if c.config.UserAgent != "" && req.Header.Get("User-Agent") == "" {
			req.Header.Set("User-Agent", c.config.UserAgent)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.base.Do(req)
		if err != nil {
			return fmt.Errorf("http request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode == http.StatusServiceUnavailable {
			retryAfter := parseRetryAfter(resp.Header)
			if err := waitRetryAfter(ctx, retryAfter, c.config.Retry.MaxBackoff); err != nil {
				return err
			}
			return &RateLimitError{StatusCode: resp.StatusCode, RetryAfter: retryAfter}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &HTTPError{StatusCode: resp.StatusCode, Body: body}
		}

		out = &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	if c.base != nil {
		c.base.CloseIdleConnections()
	}
	return nil
}

// isRetryableHTTPError determines if an HTTP error is worth another attempt.
func isRetryableHTTPError(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}

	return true
}

// waitRetryAfter sleeps for the server-requested duration, capped at max.
func waitRetryAfter(ctx context.Context, d, max time.Duration) error {
	if d <= 0 {
		return nil
	}
	if max > 0 && d > max {
		d = max
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// parseRetryAfter extracts the Retry-After header value.
// Returns the number of seconds to wait, or 0 if not present.
func parseRetryAfter(header http.Header) time.Duration {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		return time.Until(t)
	}

	return 0
}
