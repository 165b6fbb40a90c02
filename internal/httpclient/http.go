// Package httpclient is the shared GET-with-retry transport used by the
// discovery and link resolver clients.
package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/lepinkainen/catalink/internal/errors"
)

// maxBodyBytes caps response bodies read into memory.
const maxBodyBytes = 4 << 20

// HTTPDoer is an interface for making HTTP requests.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Service, e.StatusCode, e.Body)
}

// backoffBase is the first retry delay; tests shrink it.
var backoffBase = time.Second

// Request describes one GET call.
type Request struct {
	// Service names the upstream in errors and logs.
	Service  string
	Endpoint string
	Header   http.Header
	// Attempts is the total number of tries; values below 1 mean one try.
	Attempts int
}

// GetBody performs the request, retrying timeouts and connection errors with
// exponential backoff, and returns the raw body of the first 2xx response.
func GetBody(ctx context.Context, doer HTTPDoer, r Request) ([]byte, error) {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err := doRequest(ctx, doer, r)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == attempts {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, errors.Join(lastErr, ctx.Err())
		case <-time.After(backoffDelay(attempt)):
		}
	}
	return nil, lastErr
}

// GetJSON performs the request and decodes the body into target.
func GetJSON(ctx context.Context, doer HTTPDoer, r Request, target any) error {
	body, err := GetBody(ctx, doer, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("%s: decode response: %w", r.Service, err)
	}
	return nil
}

func doRequest(ctx context.Context, doer HTTPDoer, r Request) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := doer.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewRateLimitErrorWithRetry(
			fmt.Sprintf("%s: rate limited", r.Service),
			parseRetryAfter(resp.Header.Get("Retry-After")),
		)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			Service:    r.Service,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
}

func isRetryable(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		// Network errors (connection resets etc.)
		if strings.Contains(urlErr.Error(), "connection") {
			return true
		}
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusBadGateway ||
			statusErr.StatusCode == http.StatusServiceUnavailable ||
			statusErr.StatusCode == http.StatusGatewayTimeout
	}
	return false
}

func backoffDelay(attempt int) time.Duration {
	// exponential backoff capped at 10 base delays
	delay := time.Duration(1<<uint(attempt-1)) * backoffBase
	if limit := 10 * backoffBase; delay > limit {
		return limit
	}
	return delay
}

func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := time.Until(at); d > 0 {
			return d.Round(time.Second)
		}
	}
	return 0
}
