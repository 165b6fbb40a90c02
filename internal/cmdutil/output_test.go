package cmdutil

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/lepinkainen/catalink/internal/bib"
	"github.com/lepinkainen/catalink/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleResponse() *search.Response {
	return &search.Response{
		Strategy:   "catalog",
		Query:      "moby dick",
		Total:      2,
		LoadedLink: "https://www.worldcat.org/search?q=moby+dick",
		Results: []bib.SearchResult{
			{Title: "Moby Dick", Author: "Herman Melville", Date: "1851", Link: "https://www.worldcat.org/oclc/1", Format: "book", Tier: "catalog_fallback"},
			{Title: "Moby Dick", Date: "1956", Link: "https://www.worldcat.org/oclc/2", Format: "dvd"},
		},
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResponse(), FormatJSON))

	var decoded search.Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 2, decoded.Total)
	assert.Equal(t, "book", decoded.Results[0].Format)
	assert.Empty(t, decoded.Results[0].Tier)
	assert.Contains(t, buf.String(), `"item_format": "book"`)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResponse(), "YAML"))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "moby dick", decoded["query"])
	assert.Contains(t, buf.String(), "item_format: dvd")
	assert.NotContains(t, buf.String(), "catalog_fallback")
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleResponse(), ""))

	want := `2 results for "moby dick" (catalog)
 1. [book] Moby Dick
    Herman Melville, 1851
    https://www.worldcat.org/oclc/1
 2. [dvd] Moby Dick
    1956
    https://www.worldcat.org/oclc/2
All results: https://www.worldcat.org/search?q=moby+dick
`
	assert.Equal(t, want, buf.String())
}

func TestRenderUnknownFormat(t *testing.T) {
	assert.Error(t, Render(&bytes.Buffer{}, sampleResponse(), "xml"))
}
