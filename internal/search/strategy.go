package search

import (
	"fmt"
	"strings"

	"github.com/lepinkainen/catalink/internal/discovery"
)

// Strategy selects how a searcher queries, links and classifies.
type Strategy int

const (
	// GeneralCatalog searches everything and links each result to its
	// catalog page.
	GeneralCatalog Strategy = iota
	// Article searches articles and chapters and runs the full link
	// resolution chain.
	Article
)

// ParseStrategy converts a config or flag value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "catalog", "general":
		return GeneralCatalog, nil
	case "article", "articles":
		return Article, nil
	default:
		return 0, fmt.Errorf("unknown search strategy %q (want catalog or article)", s)
	}
}

func (s Strategy) String() string {
	if s == Article {
		return "article"
	}
	return "catalog"
}

// ItemType is the discovery item-type filter the strategy sends.
func (s Strategy) ItemType() string {
	if s == Article {
		return discovery.ItemTypeArticle
	}
	return ""
}
