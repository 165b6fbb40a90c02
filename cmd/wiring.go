package cmd

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/lepinkainen/catalink/internal/config"
	"github.com/lepinkainen/catalink/internal/discovery"
	"github.com/lepinkainen/catalink/internal/kb"
	"github.com/lepinkainen/catalink/internal/linkres"
	"github.com/lepinkainen/catalink/internal/metrics"
	"github.com/lepinkainen/catalink/internal/openurl"
	"github.com/lepinkainen/catalink/internal/ratelimit"
	"github.com/lepinkainen/catalink/internal/search"
)

// newSearcher builds a searcher; tests replace it.
var newSearcher = buildSearcher

func sectionFor(cfg *config.Config, strategy search.Strategy) config.SearcherConfig {
	if strategy == search.Article {
		return cfg.Article
	}
	return cfg.Catalog
}

func buildResolver(cfg *config.Config, strategy search.Strategy, rec *metrics.Recorder) *linkres.Resolver {
	section := sectionFor(cfg, strategy)

	extra := url.Values{}
	if section.WSKey != "" {
		extra.Set(cfg.OpenURL.AuthParam, section.WSKey)
	}

	kbClient := kb.NewClient(
		kb.WithHTTPClient(&http.Client{Timeout: cfg.Resolve.Timeout}),
		kb.WithAuthParam(cfg.OpenURL.AuthParam),
		kb.WithRetryAttempts(cfg.Resolve.RetryAttempts),
	)

	opts := []linkres.Option{linkres.WithLimiter(ratelimit.New("kb", cfg.Resolve.RatePerSecond))}
	if rec != nil {
		opts = append(opts, linkres.WithRecorder(rec))
	}

	return linkres.New(linkres.Config{
		DOIBase:     section.DOILink,
		CatalogBase: section.URLLink,
		Builder: openurl.Builder{
			Endpoint: cfg.OpenURL.Endpoint,
			Profile:  cfg.OpenURL.Profile,
			Extra:    extra,
		},
		AuthParam:    cfg.OpenURL.AuthParam,
		CitationHost: cfg.Citation.Host,
		CitationPath: cfg.Citation.Path,
		Timeout:      cfg.Resolve.Timeout,
	}, kbClient, opts...)
}

func buildSearcher(cfg *config.Config, strategy search.Strategy, rec *metrics.Recorder) (*search.Searcher, error) {
	section := sectionFor(cfg, strategy)
	if section.AccessToken == "" {
		return nil, fmt.Errorf("%s search: %w", strategy, discovery.ErrMissingAccessToken)
	}

	disc := discovery.NewClient(section.AccessToken,
		discovery.WithBaseURL(cfg.Discovery.BaseURL),
		discovery.WithHTTPClient(&http.Client{Timeout: cfg.Discovery.Timeout}),
		discovery.WithRetryAttempts(cfg.Discovery.RetryAttempts),
		discovery.WithRateLimiter(ratelimit.New("discovery", cfg.Discovery.RatePerSecond)),
	)

	opts := []search.Option{}
	if rec != nil {
		opts = append(opts, search.WithRecorder(rec))
	}

	return search.NewSearcher(strategy, disc, buildResolver(cfg, strategy, rec), search.Config{
		LoadedLink: section.LoadedLink,
		SortBy:     cfg.Discovery.SortBy,
	}, opts...), nil
}
