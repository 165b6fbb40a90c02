// Package formats maps messy discovery metadata onto a small closed set of
// item format tags.
package formats

import "github.com/lepinkainen/catalink/internal/bib"

// Identifiers returns every raw classification value carried by rec, in
// collection order. Music sub-formats are included only for music albums.
func Identifiers(rec bib.Record) []string {
	ids := make([]string, 0, 2+len(rec.AllTypes)+len(rec.Genres)+len(rec.MusicSubFormats))
	if rec.PrimaryType != "" {
		ids = append(ids, rec.PrimaryType)
	}
	ids = append(ids, rec.AllTypes...)
	if rec.BookFormat != "" {
		ids = append(ids, rec.BookFormat)
	}
	ids = append(ids, rec.Genres...)
	if rec.IsMusicAlbum() {
		ids = append(ids, rec.MusicSubFormats...)
	}
	return ids
}

// Classify returns the most specific format for rec. The highest weight wins,
// equal weights go to the lexicographically greatest tag, and a record with
// no known identifier is Other.
func Classify(rec bib.Record) Format {
	return Best(Identifiers(rec))
}

// Best picks the winning format among raw identifiers.
func Best(ids []string) Format {
	best := Other
	bestWeight := -1
	for _, id := range ids {
		f, w, ok := Lookup(id)
		if !ok {
			continue
		}
		if w > bestWeight || (w == bestWeight && f > best) {
			best, bestWeight = f, w
		}
	}
	return best
}
