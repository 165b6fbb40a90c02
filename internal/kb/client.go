// Package kb is the transport for the knowledge-base OpenURL resolver. It
// turns a built request into the list of full-text links the resolver knows.
package kb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lepinkainen/catalink/internal/cache"
	apperrors "github.com/lepinkainen/catalink/internal/errors"
	"github.com/lepinkainen/catalink/internal/httpclient"
	"github.com/lepinkainen/catalink/internal/openurl"
	"github.com/xeipuuv/gojsonschema"
)

const (
	defaultTimeout       = 10 * time.Second
	defaultRetryAttempts = 2
	defaultAuthParam     = "wskey"
)

// responseSchema is the shape the resolver answers with: a list of link
// objects, each carrying at least a url.
const responseSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "properties": {
      "url": {"type": "string"},
      "collection_name": {"type": "string"}
    },
    "required": ["url"]
  }
}`

var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(responseSchema))
})

// Client talks to the KB resolver.
type Client struct {
	httpClient    httpclient.HTTPDoer
	retryAttempts int
	authParam     string
	useCache      bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the HTTP transport.
func WithHTTPClient(doer httpclient.HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithRetryAttempts sets the total number of tries per request.
func WithRetryAttempts(n int) Option {
	return func(c *Client) {
		c.retryAttempts = n
	}
}

// WithAuthParam names the query parameter that carries the credential. It is
// stripped from cache keys and log lines.
func WithAuthParam(param string) Option {
	return func(c *Client) {
		c.authParam = param
	}
}

// WithCache toggles the openurl_cache lookup.
func WithCache(enabled bool) Option {
	return func(c *Client) {
		c.useCache = enabled
	}
}

// NewClient creates a resolver client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: defaultTimeout},
		retryAttempts: defaultRetryAttempts,
		authParam:     defaultAuthParam,
		useCache:      true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type linkEntry struct {
	URL            string `json:"url"`
	CollectionName string `json:"collection_name,omitempty"`
}

// Resolve returns the distinct non-empty links the resolver reports for req,
// in response order. Every failure comes back as a ResolveTransportError.
func (c *Client) Resolve(ctx context.Context, req *openurl.Request) ([]string, error) {
	if req == nil {
		return nil, apperrors.NewResolveTransportError("", fmt.Errorf("nil request"))
	}
	redacted := req.Redacted(c.authParam)

	fetch := func() ([]string, error) {
		return c.fetch(ctx, req, redacted)
	}

	if !c.useCache {
		return fetch()
	}

	links, fromCache, err := cache.GetOrFetchWithTTL(cache.OpenURLTable, redacted, fetch,
		cache.SelectNegativeCacheTTL(func(l []string) bool { return len(l) == 0 }))
	if err != nil {
		return nil, err
	}
	if fromCache {
		slog.Debug("Resolver answer from cache", "request", redacted, "links", len(links))
	}
	return links, nil
}

func (c *Client) fetch(ctx context.Context, req *openurl.Request, redacted string) ([]string, error) {
	body, err := httpclient.GetBody(ctx, c.httpClient, httpclient.Request{
		Service:  "kb",
		Endpoint: req.String(),
		Attempts: c.retryAttempts,
	})
	if err != nil {
		return nil, apperrors.NewResolveTransportError(redacted, err)
	}

	links, err := parseLinks(body)
	if err != nil {
		return nil, apperrors.NewResolveTransportError(redacted, err)
	}

	slog.Debug("Resolver answered", "request", redacted, "links", len(links))
	return links, nil
}

// parseLinks validates body against responseSchema and extracts the links.
func parseLinks(body []byte) ([]string, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if !result.Valid() {
		problems := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, fmt.Errorf("malformed response: %s", strings.Join(problems, "; "))
	}

	var entries []linkEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	links := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		link := strings.TrimSpace(e.URL)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}
	return links, nil
}
