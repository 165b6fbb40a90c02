// Package discovery is the client for the bibliographic search API. It
// fetches result pages and maps them onto bib.Record.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lepinkainen/catalink/internal/cache"
	"github.com/lepinkainen/catalink/internal/httpclient"
	"github.com/lepinkainen/catalink/internal/ratelimit"
)

const (
	defaultBaseURL       = "https://beta.worldcat.org/discovery"
	defaultTimeout       = 10 * time.Second
	defaultRetryAttempts = 3
	searchPath           = "/bib/search"
)

// ErrMissingAccessToken is returned when a search is attempted without
// credentials.
var ErrMissingAccessToken = errors.New("discovery access token is required (set WORLDCAT_ACCESS_TOKEN or catalog.access_token)")

// Client fetches search pages.
type Client struct {
	baseURL       string
	accessToken   string
	httpClient    httpclient.HTTPDoer
	rateLimiter   *ratelimit.Limiter
	retryAttempts int
	useCache      bool
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithHTTPClient swaps the HTTP transport.
func WithHTTPClient(doer httpclient.HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithRateLimiter throttles outgoing requests.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) {
		c.rateLimiter = l
	}
}

// WithRetryAttempts sets the total number of tries per request.
func WithRetryAttempts(n int) Option {
	return func(c *Client) {
		c.retryAttempts = n
	}
}

// WithCache toggles the discovery_cache lookup.
func WithCache(enabled bool) Option {
	return func(c *Client) {
		c.useCache = enabled
	}
}

// NewClient creates a discovery client authenticating with a bearer token.
func NewClient(accessToken string, opts ...Option) *Client {
	c := &Client{
		baseURL:       defaultBaseURL,
		accessToken:   accessToken,
		httpClient:    &http.Client{Timeout: defaultTimeout},
		retryAttempts: defaultRetryAttempts,
		useCache:      true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search fetches one page of results for q.
func (c *Client) Search(ctx context.Context, q Query) (*Page, error) {
	if c.accessToken == "" {
		return nil, ErrMissingAccessToken
	}
	if strings.TrimSpace(q.Text) == "" {
		return nil, fmt.Errorf("discovery: empty query")
	}

	endpoint := c.baseURL + searchPath + "?" + q.Values().Encode()

	fetch := func() (*SearchResponse, error) {
		return c.fetch(ctx, endpoint)
	}

	var (
		resp      *SearchResponse
		fromCache bool
		err       error
	)
	if c.useCache {
		resp, fromCache, err = cache.GetOrFetch(cache.DiscoveryTable, endpoint, fetch)
	} else {
		resp, err = fetch()
	}
	if err != nil {
		return nil, fmt.Errorf("discovery search %q: %w", q.Text, err)
	}

	slog.Debug("Discovery page", "query", q.Text, "total", resp.TotalResults, "bibs", len(resp.Bibs), "cached", fromCache)
	return &Page{
		Total:   resp.TotalResults,
		Records: resp.Records(),
	}, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (*SearchResponse, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp SearchResponse
	err := httpclient.GetJSON(ctx, c.httpClient, httpclient.Request{
		Service:  "discovery",
		Endpoint: endpoint,
		Header:   http.Header{"Authorization": {"Bearer " + c.accessToken}},
		Attempts: c.retryAttempts,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
