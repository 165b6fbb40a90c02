package discovery

import (
	"net/url"
	"strconv"
	"strings"
)

// DefaultSortBy ranks holdings of the searching library first.
const DefaultSortBy = "library_plus_relevance"

// ItemTypeArticle restricts a search to articles and chapters.
const ItemTypeArticle = "artchap"

// AllowedPageSizes are the page sizes the API accepts, ascending.
var AllowedPageSizes = []int{10, 25, 50, 100}

// SnapPageSize rounds n up to the nearest allowed page size, capping at the
// largest one.
func SnapPageSize(n int) int {
	for _, size := range AllowedPageSizes {
		if n <= size {
			return size
		}
	}
	return AllowedPageSizes[len(AllowedPageSizes)-1]
}

// Query is one page request against the bib search endpoint.
type Query struct {
	Text       string
	ItemType   string
	StartIndex int
	PageSize   int
	SortBy     string
}

// Values encodes the query parameters. The page size is snapped and sortBy
// defaults to DefaultSortBy.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("q", strings.TrimSpace(q.Text))
	if q.ItemType != "" {
		v.Set("itemType", q.ItemType)
	}
	start := q.StartIndex
	if start < 0 {
		start = 0
	}
	v.Set("startIndex", strconv.Itoa(start))
	v.Set("itemsPerPage", strconv.Itoa(SnapPageSize(q.PageSize)))

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = DefaultSortBy
	}
	v.Set("sortBy", sortBy)
	return v
}
