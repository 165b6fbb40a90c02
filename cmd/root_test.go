package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/lepinkainen/catalink/internal/bib"
	"github.com/lepinkainen/catalink/internal/cache"
	"github.com/lepinkainen/catalink/internal/config"
	"github.com/lepinkainen/catalink/internal/formats"
	"github.com/lepinkainen/catalink/internal/metrics"
	"github.com/lepinkainen/catalink/internal/search"
	"github.com/lepinkainen/catalink/internal/server"
	"github.com/lepinkainen/catalink/internal/testutil"
	"github.com/lepinkainen/catalink/internal/tui"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetCmdState(t *testing.T) *bytes.Buffer {
	t.Helper()

	testutil.SetTestConfig(t)
	config.SetDefaults()
	t.Cleanup(func() { _ = cache.ResetGlobalCache() })

	var out bytes.Buffer
	orig := stdout
	stdout = &out
	t.Cleanup(func() { stdout = orig })
	return &out
}

func parseCLI(t *testing.T, args ...string) (*CLI, *kong.Context) {
	t.Helper()

	originalArgs := os.Args
	os.Args = append([]string{"catalink"}, args...)
	t.Cleanup(func() { os.Args = originalArgs })

	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("catalink"),
		kong.Description("Search a WorldCat-style catalog and resolve one link per result."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			t.Fatalf("unexpected Kong exit %d", code)
		}),
	)

	return cli, ctx
}

// discoveryServer answers every bib search with the same two records.
func discoveryServer(t *testing.T) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bib/search", r.URL.Path)
		assert.Equal(t, "Bearer "+testutil.TestAccessToken, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"totalResults": 42,
			"bibs": []map[string]any{
				{"oclcNumber": "123", "name": "Moby Dick", "author": "Herman Melville", "datePublished": "1851", "bookFormat": "http://bibliograph.net/PrintBook"},
				{"oclcNumber": "456", "name": "Moby Dick (film)", "types": []string{"http://bibliograph.net/DVD"}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	viper.Set("discovery.base_url", srv.URL)
	return srv
}

// kbServer answers every OpenURL request with links.
func kbServer(t *testing.T, links ...string) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testutil.TestWSKey, r.URL.Query().Get("wskey"))
		body := make([]map[string]string, len(links))
		for i, l := range links {
			body[i] = map[string]string{"url": l}
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	viper.Set("openurl.endpoint", srv.URL+"/resolve")
}

func TestUpdateGlobalConfig(t *testing.T) {
	resetCmdState(t)

	cli := &CLI{
		Datasette:    true,
		DatasetteDB:  "/tmp/catalink.db",
		CacheBackend: "redis",
		CacheDBFile:  "/tmp/cache.db",
		CacheTTL:     "12h",
	}

	updateGlobalConfig(cli)

	assert.True(t, viper.GetBool("datasette.enabled"))
	assert.Equal(t, "/tmp/catalink.db", viper.GetString("datasette.dbfile"))
	assert.Equal(t, "redis", viper.GetString("cache.backend"))
	assert.Equal(t, "/tmp/cache.db", viper.GetString("cache.dbfile"))
	assert.Equal(t, "12h", viper.GetString("cache.ttl"))
}

func TestUpdateGlobalConfigKeepsConfigWithoutFlags(t *testing.T) {
	resetCmdState(t)
	viper.Set("cache.ttl", "48h")

	updateGlobalConfig(&CLI{})

	assert.Equal(t, "48h", viper.GetString("cache.ttl"))
	assert.Equal(t, "none", viper.GetString("cache.backend"))
	assert.False(t, viper.GetBool("datasette.enabled"))
}

func TestSearchCommandParsing(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "search", "-a", "-n", "5", "--start", "10", "-f", "json", "moby", "dick")

	assert.Equal(t, []string{"moby", "dick"}, cli.Search.Query)
	assert.True(t, cli.Search.Articles)
	assert.Equal(t, 5, cli.Search.PerPage)
	assert.Equal(t, 10, cli.Search.Start)
	assert.Equal(t, "json", cli.Search.Format)
	assert.False(t, cli.Search.Interactive)
}

func TestSearchCommandDefaults(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "search", "moby")

	assert.Equal(t, 10, cli.Search.PerPage)
	assert.Equal(t, 0, cli.Search.Start)
	assert.Equal(t, "text", cli.Search.Format)
	assert.Empty(t, cli.CacheBackend)
}

func TestSearchStrategySelection(t *testing.T) {
	resetCmdState(t)

	tests := []struct {
		name    string
		cmd     SearchCmd
		config  string
		want    search.Strategy
		wantErr bool
	}{
		{name: "config default", want: search.GeneralCatalog},
		{name: "config article", config: "article", want: search.Article},
		{name: "flag wins over config", cmd: SearchCmd{Strategy: "catalog"}, config: "article", want: search.GeneralCatalog},
		{name: "articles shorthand", cmd: SearchCmd{Articles: true, Strategy: "catalog"}, want: search.Article},
		{name: "unknown", cmd: SearchCmd{Strategy: "maps"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Set("search.strategy", "catalog")
			if tt.config != "" {
				viper.Set("search.strategy", tt.config)
			}

			got, err := tt.cmd.strategy()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSearchRunRendersText(t *testing.T) {
	out := resetCmdState(t)
	discoveryServer(t)

	_, ctx := parseCLI(t, "search", "moby", "dick")
	require.NoError(t, ctx.Run())

	text := out.String()
	assert.Contains(t, text, `42 results for "moby dick" (catalog)`)
	assert.Contains(t, text, "[book] Moby Dick")
	assert.Contains(t, text, "Herman Melville, 1851")
	assert.Contains(t, text, "https://www.worldcat.org/oclc/123")
	assert.Contains(t, text, "https://www.worldcat.org/oclc/456")
	assert.Contains(t, text, "All results: https://www.worldcat.org/search?q=moby+dick")
}

func TestSearchRunJSON(t *testing.T) {
	out := resetCmdState(t)
	discoveryServer(t)

	_, ctx := parseCLI(t, "search", "-f", "json", "-n", "1", "moby")
	require.NoError(t, ctx.Run())

	var resp search.Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, "catalog", resp.Strategy)
	assert.Equal(t, 42, resp.Total)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Moby Dick", resp.Results[0].Title)
}

func TestSearchRunWritesOutputAndDatastore(t *testing.T) {
	resetCmdState(t)
	discoveryServer(t)
	env := testutil.NewTestEnv(t)

	dbPath := env.Path("catalink.db")
	outPath := env.Path("out", "results.yaml")

	cli, ctx := parseCLI(t, "--datasette", "--datasette-db", dbPath, "search", "-o", outPath, "moby")
	updateGlobalConfig(cli)
	require.NoError(t, ctx.Run())

	env.RequireFileExists("catalink.db")
	env.RequireFileExists("out/results.yaml")
	assert.Contains(t, env.ReadFileString("out/results.yaml"), "title: Moby Dick")
}

func TestSearchRunInteractivePrintsSelection(t *testing.T) {
	out := resetCmdState(t)
	discoveryServer(t)

	orig := selectResult
	t.Cleanup(func() { selectResult = orig })
	selectResult = func(query string, total int, results []bib.SearchResult) (tui.SelectionResult, error) {
		assert.Equal(t, "moby", query)
		assert.Equal(t, 42, total)
		return tui.SelectionResult{Action: tui.ActionSelected, Selection: &results[1]}, nil
	}

	_, ctx := parseCLI(t, "search", "-i", "moby")
	require.NoError(t, ctx.Run())

	assert.Equal(t, "https://www.worldcat.org/oclc/456\n", out.String())
}

func TestSearchRunMissingAccessToken(t *testing.T) {
	resetCmdState(t)
	viper.Set("catalog.access_token", "")

	_, ctx := parseCLI(t, "search", "moby")
	err := ctx.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access token")
}

func TestResolveRunDirectIdentifier(t *testing.T) {
	out := resetCmdState(t)

	_, ctx := parseCLI(t, "resolve", "--oclc", "99", "--doi", "10.1000/xyz")
	require.NoError(t, ctx.Run())

	assert.Equal(t, "direct_identifier\thttps://doi.org/10.1000/xyz\n", out.String())
}

func TestResolveRunSingleLink(t *testing.T) {
	out := resetCmdState(t)
	kbServer(t, "https://publisher.example/article/1")

	_, ctx := parseCLI(t, "resolve", "--oclc", "99",
		"--issn", "1234-5678", "--volume", "3", "--issue", "2", "--spage", "10", "--date", "2001")
	require.NoError(t, ctx.Run())

	assert.Equal(t, "protocol_single\thttps://publisher.example/article/1\n", out.String())
}

func TestResolveRunFallsBackToCatalog(t *testing.T) {
	out := resetCmdState(t)
	kbServer(t)

	// Strict profile needs an issue number, so nothing is sent.
	_, ctx := parseCLI(t, "resolve", "--oclc", "99", "--issn", "1234-5678", "--volume", "3")
	require.NoError(t, ctx.Run())

	assert.Equal(t, "catalog_fallback\thttps://www.worldcat.org/oclc/99\n", out.String())
}

func TestClassifyRun(t *testing.T) {
	out := resetCmdState(t)

	_, ctx := parseCLI(t, "classify", "--book-format", "http://schema.org/EBook")
	require.NoError(t, ctx.Run())
	assert.Equal(t, "e_book\n", out.String())

	out.Reset()
	_, ctx = parseCLI(t, "classify")
	require.NoError(t, ctx.Run())
	assert.Equal(t, "other\n", out.String())
}

func TestClassifyList(t *testing.T) {
	out := resetCmdState(t)

	_, ctx := parseCLI(t, "classify", "--list")
	require.NoError(t, ctx.Run())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, len(formats.All))
	assert.Contains(t, lines, "book\t1")
	assert.Contains(t, lines, "other\t0")
}

func TestServeRunBuildsBothStrategies(t *testing.T) {
	resetCmdState(t)
	viper.Set("server.addr", "127.0.0.1:0")

	orig := listenAndServe
	t.Cleanup(func() { listenAndServe = orig })

	var gotAddr string
	listenAndServe = func(ctx context.Context, srv *server.Server, addr string) error {
		gotAddr = addr
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		return nil
	}

	built := map[search.Strategy]bool{}
	origSearcher := newSearcher
	t.Cleanup(func() { newSearcher = origSearcher })
	newSearcher = func(cfg *config.Config, strategy search.Strategy, rec *metrics.Recorder) (*search.Searcher, error) {
		assert.NotNil(t, rec)
		built[strategy] = true
		return buildSearcher(cfg, strategy, rec)
	}

	_, ctx := parseCLI(t, "serve", "--addr", "127.0.0.1:9999")
	require.NoError(t, ctx.Run())

	assert.Equal(t, "127.0.0.1:9999", gotAddr)
	assert.True(t, built[search.GeneralCatalog])
	assert.True(t, built[search.Article])
}

func TestCacheInvalidateParsing(t *testing.T) {
	resetCmdState(t)

	cli, _ := parseCLI(t, "--cache-backend", "none", "cache", "invalidate", "openurl")

	assert.Equal(t, "openurl", cli.Cache.Invalidate.Source)
	assert.Equal(t, "none", cli.CacheBackend)
}

func TestInitLogging(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		require.NotPanics(t, func() {
			initLogging(verbose)
		})
	}
}
