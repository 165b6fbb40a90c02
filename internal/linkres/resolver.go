// Package linkres picks exactly one link per bibliographic record.
//
// Resolution walks a fixed fallback chain and stops at the first state that
// produces a link:
//
//	DirectIdentifier -> ProtocolBuild -> ProtocolResolve -> CitationFinder
//	                         |                 |
//	                         +-----------------+--> CatalogFallback
//
// CatalogFallback needs only the OCLC number, so every record terminates.
package linkres

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lepinkainen/catalink/internal/bib"
	"github.com/lepinkainen/catalink/internal/openurl"
)

// Tier is the provenance of a resolved link.
type Tier string

const (
	TierDirectIdentifier Tier = "direct_identifier"
	TierProtocolSingle   Tier = "protocol_single"
	TierCitationFinder   Tier = "citation_finder"
	TierCatalogFallback  Tier = "catalog_fallback"
)

// Link is a resolved URL tagged with the tier that produced it.
type Link struct {
	URL  string
	Tier Tier
}

// state is a step of the fallback chain.
type state int

const (
	stateDirectIdentifier state = iota
	stateProtocolBuild
	stateProtocolResolve
	stateCitationFinder
	stateCatalogFallback
	stateDone
)

func (s state) String() string {
	switch s {
	case stateDirectIdentifier:
		return "direct_identifier"
	case stateProtocolBuild:
		return "protocol_build"
	case stateProtocolResolve:
		return "protocol_resolve"
	case stateCitationFinder:
		return "citation_finder"
	case stateCatalogFallback:
		return "catalog_fallback"
	default:
		return "done"
	}
}

// LinkSource is the external resolve call: it maps a protocol request to the
// candidate full-text URLs.
type LinkSource interface {
	Resolve(ctx context.Context, req *openurl.Request) ([]string, error)
}

// Recorder receives resolution outcomes. *metrics.Recorder satisfies it.
type Recorder interface {
	ObserveTier(tier string)
	ObserveResolveCall(outcome string, d time.Duration)
}

// Waiter paces outbound resolve calls. *ratelimit.Limiter satisfies it.
type Waiter interface {
	Wait(ctx context.Context) error
	Name() string
}

// Config holds the fixed bases and endpoints of the chain.
type Config struct {
	// DOIBase is prefixed to a record's direct identifier.
	DOIBase string
	// CatalogBase is prefixed to the OCLC number.
	CatalogBase string
	// Builder produces protocol requests; its Extra carries the auth param.
	Builder openurl.Builder
	// AuthParam is stripped from citation-finder URLs.
	AuthParam    string
	CitationHost string
	CitationPath string
	// Timeout bounds each protocol resolve call. Zero means no bound.
	Timeout time.Duration
}

// Resolver runs the fallback chain. It is safe for concurrent use.
type Resolver struct {
	cfg      Config
	source   LinkSource
	recorder Recorder
	limiter  Waiter
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRecorder reports tiers and resolve latencies to rec.
func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) {
		r.recorder = rec
	}
}

// WithLimiter paces resolve calls through l. The wait happens before the
// per-call timeout starts, so queued records keep their full budget.
func WithLimiter(l Waiter) Option {
	return func(r *Resolver) {
		r.limiter = l
	}
}

// New creates a Resolver. A nil source skips protocol resolution.
func New(cfg Config, source LinkSource, opts ...Option) *Resolver {
	r := &Resolver{cfg: cfg, source: source}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the link for rec. It always returns a non-empty link.
func (r *Resolver) Resolve(ctx context.Context, rec bib.Record) Link {
	var (
		link       Link
		req        *openurl.Request
		candidates []string
		trail      []string
	)

	for s := stateDirectIdentifier; s != stateDone; {
		trail = append(trail, s.String())

		switch s {
		case stateDirectIdentifier:
			if rec.HasDirectIdentifier() {
				link = Link{URL: r.cfg.DOIBase + strings.TrimSpace(rec.SameAs), Tier: TierDirectIdentifier}
				s = stateDone
			} else {
				s = stateProtocolBuild
			}

		case stateProtocolBuild:
			req, s = r.build(rec)

		case stateProtocolResolve:
			candidates = r.fetch(ctx, rec, req)
			switch len(candidates) {
			case 0:
				s = stateCatalogFallback
			case 1:
				link = Link{URL: candidates[0], Tier: TierProtocolSingle}
				s = stateDone
			default:
				s = stateCitationFinder
			}

		case stateCitationFinder:
			link = Link{
				URL:  openurl.CitationFinderURL(req, r.cfg.CitationHost, r.cfg.CitationPath, r.cfg.AuthParam),
				Tier: TierCitationFinder,
			}
			s = stateDone

		default:
			link = r.Catalog(rec)
			s = stateDone
		}
	}

	slog.Debug("Resolved link", "oclc", rec.OCLCNumber, "tier", link.Tier, "path", strings.Join(trail, ">"), "candidates", len(candidates))
	if r.recorder != nil {
		r.recorder.ObserveTier(string(link.Tier))
	}
	return link
}

// Catalog returns the catalog link for rec without consulting anything else.
func (r *Resolver) Catalog(rec bib.Record) Link {
	return Link{URL: r.cfg.CatalogBase + strings.TrimSpace(rec.OCLCNumber), Tier: TierCatalogFallback}
}

func (r *Resolver) build(rec bib.Record) (*openurl.Request, state) {
	if rec.Article == nil {
		slog.Debug("No article metadata, skipping protocol resolve", "oclc", rec.OCLCNumber)
		return nil, stateCatalogFallback
	}
	req, err := r.cfg.Builder.Build(*rec.Article)
	if err != nil {
		slog.Debug("Cannot build protocol request", "oclc", rec.OCLCNumber, "error", err)
		return nil, stateCatalogFallback
	}
	return req, stateProtocolResolve
}

// fetch performs the external call. Errors and timeouts count as zero links.
func (r *Resolver) fetch(ctx context.Context, rec bib.Record, req *openurl.Request) []string {
	if r.source == nil {
		return nil
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			slog.Debug("Protocol resolve not attempted", "oclc", rec.OCLCNumber, "limiter", r.limiter.Name(), "error", err)
			if r.recorder != nil {
				r.recorder.ObserveResolveCall("error", 0)
			}
			return nil
		}
	}

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	links, err := r.source.Resolve(ctx, req)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}

	links = nonBlank(links)

	outcome := "error"
	if err != nil {
		slog.Debug("Protocol resolve failed", "oclc", rec.OCLCNumber, "request", req.Redacted(r.cfg.AuthParam), "error", err)
		links = nil
	} else {
		switch len(links) {
		case 0:
			outcome = "zero"
		case 1:
			outcome = "single"
		default:
			outcome = "multiple"
		}
	}
	if r.recorder != nil {
		r.recorder.ObserveResolveCall(outcome, time.Since(start))
	}
	return links
}

func nonBlank(links []string) []string {
	out := links[:0:0]
	for _, l := range links {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
