// Package search runs a discovery query and assembles display-ready results
// for one of the search strategies.
package search

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/lepinkainen/catalink/internal/bib"
	"github.com/lepinkainen/catalink/internal/discovery"
	"github.com/lepinkainen/catalink/internal/formats"
	"github.com/lepinkainen/catalink/internal/linkres"
)

const defaultPerPage = 10

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Discovery fetches search pages.
type Discovery interface {
	Search(ctx context.Context, q discovery.Query) (*discovery.Page, error)
}

// Recorder receives per-search and per-result observations.
// *metrics.Recorder satisfies it.
type Recorder interface {
	ObserveFormat(format string)
	ObserveSearch(strategy string, err error)
}

// Config holds the strategy-specific link settings.
type Config struct {
	// LoadedLink is the "see all results" base the query is appended to.
	LoadedLink string
	// SortBy overrides the discovery sort key.
	SortBy string
}

// Request is one page of a user search.
type Request struct {
	Query   string
	Start   int
	PerPage int
}

// Response is a finished search page.
type Response struct {
	Strategy   string             `json:"strategy" yaml:"strategy"`
	Query      string             `json:"query" yaml:"query"`
	Total      int                `json:"total" yaml:"total"`
	LoadedLink string             `json:"loaded_link" yaml:"loaded_link"`
	Results    []bib.SearchResult `json:"results" yaml:"results"`
}

// Searcher is a search strategy bound to its collaborators.
type Searcher struct {
	strategy  Strategy
	discovery Discovery
	resolver  *linkres.Resolver
	cfg       Config
	recorder  Recorder
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithRecorder reports formats and search outcomes to rec.
func WithRecorder(rec Recorder) Option {
	return func(s *Searcher) {
		s.recorder = rec
	}
}

// NewSearcher creates a searcher for strategy.
func NewSearcher(strategy Strategy, disc Discovery, resolver *linkres.Resolver, cfg Config, opts ...Option) *Searcher {
	s := &Searcher{
		strategy:  strategy,
		discovery: disc,
		resolver:  resolver,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Strategy returns the searcher's strategy.
func (s *Searcher) Strategy() Strategy {
	return s.strategy
}

// Classify returns the normalized format of rec.
func (s *Searcher) Classify(rec bib.Record) formats.Format {
	switch s.strategy {
	case Article:
		return formats.Article
	default:
		return formats.Classify(rec)
	}
}

// ResolveLink returns the link for rec.
func (s *Searcher) ResolveLink(ctx context.Context, rec bib.Record) linkres.Link {
	switch s.strategy {
	case Article:
		return s.resolver.Resolve(ctx, rec)
	default:
		return s.resolver.Catalog(rec)
	}
}

// QueryText is the query string sent to discovery.
func (s *Searcher) QueryText(raw string) string {
	if s.strategy == Article {
		return strings.TrimSpace(raw)
	}
	return Sanitize(raw)
}

// LoadedLink links to the full result list on the catalog site.
func (s *Searcher) LoadedLink(raw string) string {
	if s.strategy == Article {
		return s.cfg.LoadedLink + url.PathEscape(strings.TrimSpace(raw))
	}
	return s.cfg.LoadedLink + url.QueryEscape(Sanitize(raw))
}

// Search fetches a page and assembles its results, truncated to PerPage.
func (s *Searcher) Search(ctx context.Context, req Request) (resp *Response, err error) {
	if s.recorder != nil {
		defer func() { s.recorder.ObserveSearch(s.strategy.String(), err) }()
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = defaultPerPage
	}

	text := s.QueryText(req.Query)
	if text == "" {
		return nil, fmt.Errorf("search: empty query")
	}

	page, err := s.discovery.Search(ctx, discovery.Query{
		Text:       text,
		ItemType:   s.strategy.ItemType(),
		StartIndex: req.Start,
		PageSize:   perPage,
		SortBy:     s.cfg.SortBy,
	})
	if err != nil {
		return nil, err
	}

	records := page.Records
	if len(records) > perPage {
		records = records[:perPage]
	}

	results := Assemble(ctx, s, records)
	if s.recorder != nil {
		for _, r := range results {
			s.recorder.ObserveFormat(r.Format)
		}
	}

	return &Response{
		Strategy:   s.strategy.String(),
		Query:      text,
		Total:      page.Total,
		LoadedLink: s.LoadedLink(req.Query),
		Results:    results,
	}, nil
}

// Sanitize strips markup and collapses whitespace in a user query.
func Sanitize(raw string) string {
	s := tagPattern.ReplaceAllString(html.UnescapeString(raw), " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
