package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lepinkainen/catalink/internal/bib"
	"github.com/lepinkainen/catalink/internal/metrics"
	"github.com/lepinkainen/catalink/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearcher struct {
	got  search.Request
	resp *search.Response
	err  error
}

func (s *stubSearcher) Search(_ context.Context, req search.Request) (*search.Response, error) {
	s.got = req
	return s.resp, s.err
}

func newTestServer(t *testing.T, catalog, article Searcher) *httptest.Server {
	t.Helper()
	searchers := map[search.Strategy]Searcher{search.GeneralCatalog: catalog}
	if article != nil {
		searchers[search.Article] = article
	}
	srv := httptest.NewServer(New(searchers, metrics.NewRecorder().Handler()))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestSearchEndpoint(t *testing.T) {
	stub := &stubSearcher{resp: &search.Response{
		Strategy: "catalog",
		Query:    "moby",
		Total:    1,
		Results:  []bib.SearchResult{{Title: "Moby Dick", Link: "https://www.worldcat.org/oclc/1", Format: "book", Tier: "catalog_fallback"}},
	}}
	srv := newTestServer(t, stub, nil)

	resp, body := get(t, srv.URL+"/search?q=moby&start=10&per_page=25")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, search.Request{Query: "moby", Start: 10, PerPage: 25}, stub.got)

	_, err := uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	results := decoded["results"].([]any)
	first := results[0].(map[string]any)
	assert.Equal(t, "book", first["item_format"])
	assert.NotContains(t, first, "Tier", "tier stays internal")
}

func TestSearchEndpointErrors(t *testing.T) {
	failing := &stubSearcher{err: errors.New("discovery down")}
	srv := newTestServer(t, &stubSearcher{}, failing)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{name: "missing query", path: "/search", status: http.StatusBadRequest},
		{name: "blank query", path: "/search?q=%20%20%09", status: http.StatusBadRequest},
		{name: "blank article query", path: "/search?q=+&strategy=article", status: http.StatusBadRequest},
		{name: "bad strategy", path: "/search?q=x&strategy=books", status: http.StatusBadRequest},
		{name: "bad start", path: "/search?q=x&start=-1", status: http.StatusBadRequest},
		{name: "bad per_page", path: "/search?q=x&per_page=ten", status: http.StatusBadRequest},
		{name: "upstream failure", path: "/search?q=x&strategy=article", status: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)
			assert.Equal(t, tt.status, resp.StatusCode)

			var e errorBody
			require.NoError(t, json.Unmarshal(body, &e))
			assert.NotEmpty(t, e.Error)
			assert.Equal(t, resp.Header.Get(RequestIDHeader), e.RequestID)
		})
	}
}

func TestUnconfiguredStrategy(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{}, nil)

	resp, _ := get(t, srv.URL+"/search?q=x&strategy=article")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{}, nil)
	id := uuid.NewString()

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, id)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, resp.Header.Get(RequestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{}, nil)

	resp, body := get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "# HELP")
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New(map[search.Strategy]Searcher{}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
