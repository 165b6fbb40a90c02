package discovery

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/lepinkainen/catalink/internal/bib"
)

const articleType = "http://schema.org/Article"

// SearchResponse is the wire shape of a bib search page.
type SearchResponse struct {
	TotalResults int      `json:"totalResults"`
	StartIndex   int      `json:"startIndex"`
	ItemsPerPage int      `json:"itemsPerPage"`
	Bibs         []BibDoc `json:"bibs"`
}

// BibDoc is one bib as the API sends it. The isPartOf sub-graph stays raw
// for the article extractor.
type BibDoc struct {
	OCLCNumber    string          `json:"oclcNumber"`
	Name          string          `json:"name"`
	Author        json.RawMessage `json:"author,omitempty"`
	DatePublished string          `json:"datePublished,omitempty"`
	Type          string          `json:"type,omitempty"`
	Types         []string        `json:"types,omitempty"`
	BookFormat    string          `json:"bookFormat,omitempty"`
	Genres        []string        `json:"genres,omitempty"`
	MusicFormats  []string        `json:"musicAlbumFormats,omitempty"`
	SameAs        string          `json:"sameAs,omitempty"`
	IsPartOf      map[string]any  `json:"isPartOf,omitempty"`
	PageStart     any             `json:"pageStart,omitempty"`
}

// Page is a decoded search page.
type Page struct {
	Total   int
	Records []bib.Record
}

// Records converts the wire bibs to records. Bibs without an OCLC number
// are dropped.
func (r SearchResponse) Records() []bib.Record {
	records := make([]bib.Record, 0, len(r.Bibs))
	for _, doc := range r.Bibs {
		if strings.TrimSpace(doc.OCLCNumber) == "" {
			slog.Debug("Skipping bib without OCLC number", "title", doc.Name)
			continue
		}
		records = append(records, doc.Record())
	}
	return records
}

// Record maps one bib to the read-only record view.
func (d BibDoc) Record() bib.Record {
	rec := bib.Record{
		Title:           strings.TrimSpace(d.Name),
		Author:          authorName(d.Author),
		PublicationDate: strings.TrimSpace(d.DatePublished),
		OCLCNumber:      strings.TrimSpace(d.OCLCNumber),
		PrimaryType:     d.Type,
		AllTypes:        d.Types,
		BookFormat:      d.BookFormat,
		Genres:          d.Genres,
		MusicSubFormats: d.MusicFormats,
		SameAs:          strings.TrimSpace(d.SameAs),
	}

	if d.isArticle() {
		node := map[string]any{
			"datePublished": d.DatePublished,
		}
		if d.IsPartOf != nil {
			node["isPartOf"] = d.IsPartOf
		}
		if d.PageStart != nil {
			node["pageStart"] = d.PageStart
		}

		extraction := bib.ExtractArticle(node)
		for _, problem := range extraction.Problems {
			slog.Debug("Article field unavailable", "oclc", rec.OCLCNumber, "field", problem.Field, "reason", problem.Reason)
		}
		meta := extraction.Metadata
		rec.Article = &meta
	}

	return rec
}

func (d BibDoc) isArticle() bool {
	if d.IsPartOf != nil || strings.EqualFold(d.Type, articleType) {
		return true
	}
	for _, t := range d.Types {
		if strings.EqualFold(t, articleType) {
			return true
		}
	}
	return false
}

// authorName accepts either a plain string or an object with a name.
func authorName(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return strings.TrimSpace(name)
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Name)
	}
	return ""
}
