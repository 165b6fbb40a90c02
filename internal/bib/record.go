// Package bib holds the read-only bibliographic record view produced by the
// discovery client and the search result shape handed to consumers.
package bib

import "strings"

// MusicAlbumType is the schema.org type that marks a record as a music album.
const MusicAlbumType = "http://schema.org/MusicAlbum"

// Record is one search hit from the discovery API.
// Optional string fields use "" for absent.
type Record struct {
	Title           string
	Author          string
	PublicationDate string

	// OCLCNumber is always present for a valid record.
	OCLCNumber string

	PrimaryType     string
	AllTypes        []string
	BookFormat      string
	Genres          []string
	MusicSubFormats []string

	// SameAs is an external direct identifier such as a DOI fragment.
	SameAs string

	// Article is set only for records best classified as articles.
	Article *ArticleMetadata
}

// ArticleMetadata carries the citation fields used for OpenURL resolution.
type ArticleMetadata struct {
	ISSN          string
	Volume        string
	Issue         string
	StartPage     string
	DatePublished string
}

// IsMusicAlbum reports whether the record is typed as a music album.
func (r Record) IsMusicAlbum() bool {
	if strings.EqualFold(strings.TrimSpace(r.PrimaryType), MusicAlbumType) {
		return true
	}
	for _, t := range r.AllTypes {
		if strings.EqualFold(strings.TrimSpace(t), MusicAlbumType) {
			return true
		}
	}
	return false
}

// HasDirectIdentifier reports whether SameAs carries a usable identifier.
func (r Record) HasDirectIdentifier() bool {
	return strings.TrimSpace(r.SameAs) != ""
}

// SearchResult is the finished, display-ready result.
type SearchResult struct {
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author,omitempty" yaml:"author,omitempty"`
	Date   string `json:"date,omitempty" yaml:"date,omitempty"`
	Link   string `json:"link" yaml:"link"`
	Format string `json:"item_format" yaml:"item_format"`

	// Tier is the provenance of Link; kept out of the public payload.
	Tier string `json:"-" yaml:"-"`
}
