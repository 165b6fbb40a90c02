package cmd

import (
	"context"
	"fmt"

	"github.com/lepinkainen/catalink/internal/bib"
	"github.com/lepinkainen/catalink/internal/config"
	"github.com/lepinkainen/catalink/internal/formats"
	"github.com/lepinkainen/catalink/internal/search"
)

// ResolveCmd resolves a hand-entered citation through the full link chain
type ResolveCmd struct {
	OCLC      string `name:"oclc" help:"OCLC number, used for the catalog fallback" required:""`
	DOI       string `name:"doi" help:"Direct identifier such as a DOI"`
	ISSN      string `name:"issn" help:"Periodical ISSN"`
	Volume    string `help:"Volume number"`
	Issue     string `help:"Issue number"`
	StartPage string `name:"spage" help:"First page of the article"`
	Date      string `help:"Publication date"`
}

func (r *ResolveCmd) record() bib.Record {
	rec := bib.Record{OCLCNumber: r.OCLC, SameAs: r.DOI}
	if r.ISSN != "" || r.Volume != "" || r.Issue != "" || r.StartPage != "" || r.Date != "" {
		rec.Article = &bib.ArticleMetadata{
			ISSN:          r.ISSN,
			Volume:        r.Volume,
			Issue:         r.Issue,
			StartPage:     r.StartPage,
			DatePublished: r.Date,
		}
	}
	return rec
}

func (r *ResolveCmd) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	link := buildResolver(cfg, search.Article, nil).Resolve(context.Background(), r.record())
	_, err = fmt.Fprintf(stdout, "%s\t%s\n", link.Tier, link.URL)
	return err
}

// ClassifyCmd classifies raw identifiers without a search
type ClassifyCmd struct {
	Type        []string `help:"schema.org type URIs; the first is the primary type"`
	BookFormat  string   `help:"Book format URI"`
	Genre       []string `help:"Genre strings"`
	MusicFormat []string `help:"Music album release formats (only counted for music albums)"`
	List        bool     `help:"List every format tag with its weight instead of classifying"`
}

func (c *ClassifyCmd) Run() error {
	if c.List {
		for _, f := range formats.All {
			if _, err := fmt.Fprintf(stdout, "%s\t%d\n", f, formats.Weight(f)); err != nil {
				return err
			}
		}
		return nil
	}

	rec := bib.Record{
		AllTypes:        c.Type,
		BookFormat:      c.BookFormat,
		Genres:          c.Genre,
		MusicSubFormats: c.MusicFormat,
	}
	if len(c.Type) > 0 {
		rec.PrimaryType = c.Type[0]
	}
	_, err := fmt.Fprintln(stdout, formats.Classify(rec))
	return err
}
