package search

import (
	"context"

	"github.com/lepinkainen/catalink/internal/bib"
	"github.com/lepinkainen/catalink/internal/formats"
	"github.com/lepinkainen/catalink/internal/linkres"
	"golang.org/x/sync/errgroup"
)

// itemProcessor classifies and links one record.
type itemProcessor interface {
	Classify(rec bib.Record) formats.Format
	ResolveLink(ctx context.Context, rec bib.Record) linkres.Link
}

// Assemble builds one result per record, in record order. Records are
// processed concurrently, one worker per record.
func Assemble(ctx context.Context, p itemProcessor, records []bib.Record) []bib.SearchResult {
	results := make([]bib.SearchResult, len(records))
	if len(records) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(len(records))

	for i, rec := range records {
		g.Go(func() error {
			link := p.ResolveLink(ctx, rec)
			results[i] = bib.SearchResult{
				Title:  rec.Title,
				Author: rec.Author,
				Date:   rec.PublicationDate,
				Link:   link.URL,
				Format: string(p.Classify(rec)),
				Tier:   string(link.Tier),
			}
			return nil
		})
	}

	// Workers never fail; resolution errors are absorbed by the resolver.
	_ = g.Wait()
	return results
}
