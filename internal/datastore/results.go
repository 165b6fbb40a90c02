package datastore

import (
	"time"

	"github.com/lepinkainen/catalink/internal/bib"
)

// SearchResultsTable holds exported search results.
const SearchResultsTable = "search_results"

// SearchResultsSchema creates SearchResultsTable. Re-running a search
// replaces its rows by (query, strategy, position).
const SearchResultsSchema = `
CREATE TABLE IF NOT EXISTS search_results (
	query TEXT NOT NULL,
	strategy TEXT NOT NULL,
	position INTEGER NOT NULL,
	title TEXT,
	author TEXT,
	date TEXT,
	link TEXT NOT NULL,
	tier TEXT,
	item_format TEXT NOT NULL,
	searched_at TEXT NOT NULL,
	PRIMARY KEY (query, strategy, position)
);
`

// ResultRow is one exported result with its search context.
type ResultRow struct {
	Query      string
	Strategy   string
	Position   int
	Result     bib.SearchResult
	SearchedAt time.Time
}

// Map flattens the row into SearchResultsTable columns.
func (r ResultRow) Map() map[string]any {
	return map[string]any{
		"query":       r.Query,
		"strategy":    r.Strategy,
		"position":    r.Position,
		"title":       r.Result.Title,
		"author":      r.Result.Author,
		"date":        r.Result.Date,
		"link":        r.Result.Link,
		"tier":        r.Result.Tier,
		"item_format": r.Result.Format,
		"searched_at": r.SearchedAt.UTC().Format(time.RFC3339),
	}
}

// ResultRows numbers results from start.
func ResultRows(query, strategy string, start int, results []bib.SearchResult, at time.Time) []ResultRow {
	rows := make([]ResultRow, len(results))
	for i, r := range results {
		rows[i] = ResultRow{Query: query, Strategy: strategy, Position: start + i, Result: r, SearchedAt: at}
	}
	return rows
}
