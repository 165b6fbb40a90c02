package bib

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeNode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var node map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &node))
	return node
}

const completeArticle = `{
	"pageStart": "117",
	"datePublished": "2019-04",
	"isPartOf": {
		"issueNumber": "3",
		"isPartOf": {
			"volumeNumber": 42,
			"isPartOf": {"issn": ["0028-0836", "1476-4687"]}
		}
	}
}`

func TestExtractArticleComplete(t *testing.T) {
	got := ExtractArticle(decodeNode(t, completeArticle))

	require.True(t, got.Complete(), "missing: %v", got.Missing)
	assert.Empty(t, got.Problems)
	assert.Equal(t, ArticleMetadata{
		ISSN:          "0028-0836",
		Volume:        "42",
		Issue:         "3",
		StartPage:     "117",
		DatePublished: "2019-04",
	}, got.Metadata)
}

func TestExtractArticleMissingStartPage(t *testing.T) {
	node := decodeNode(t, completeArticle)
	delete(node, "pageStart")

	got := ExtractArticle(node)

	assert.False(t, got.Complete())
	assert.Equal(t, []string{FieldStartPage}, got.Missing)
	assert.Empty(t, got.Problems)
	assert.Equal(t, "3", got.Metadata.Issue)
}

func TestExtractArticleBrokenRelation(t *testing.T) {
	node := decodeNode(t, `{
		"pageStart": "5",
		"datePublished": "2001",
		"isPartOf": {"issueNumber": "1", "isPartOf": 17}
	}`)

	got := ExtractArticle(node)

	assert.ElementsMatch(t, []string{FieldISSN, FieldVolume}, got.Missing)
	require.Len(t, got.Problems, 1)
	assert.Equal(t, "isPartOf", got.Problems[0].Field)
	assert.Equal(t, "1", got.Metadata.Issue)
	assert.Equal(t, "5", got.Metadata.StartPage)
}

func TestExtractArticleMistypedLeaf(t *testing.T) {
	node := decodeNode(t, `{"pageStart": {"value": "9"}, "datePublished": true}`)

	got := ExtractArticle(node)

	assert.ElementsMatch(t, []string{FieldISSN, FieldVolume, FieldIssue, FieldStartPage, FieldDate}, got.Missing)
	assert.Len(t, got.Problems, 2)
}

func TestExtractArticleNilNode(t *testing.T) {
	got := ExtractArticle(nil)

	assert.Len(t, got.Missing, 5)
	assert.Empty(t, got.Problems)
	assert.Equal(t, ArticleMetadata{}, got.Metadata)
}

func TestRecordIsMusicAlbum(t *testing.T) {
	assert.True(t, Record{PrimaryType: "http://schema.org/musicalbum"}.IsMusicAlbum())
	assert.True(t, Record{AllTypes: []string{"http://schema.org/CreativeWork", MusicAlbumType}}.IsMusicAlbum())
	assert.False(t, Record{PrimaryType: "http://schema.org/Book"}.IsMusicAlbum())
}

func TestRecordHasDirectIdentifier(t *testing.T) {
	assert.True(t, Record{SameAs: "10.1000/xyz"}.HasDirectIdentifier())
	assert.False(t, Record{SameAs: "   "}.HasDirectIdentifier())
	assert.False(t, Record{}.HasDirectIdentifier())
}
