// Package config turns the viper key space into the typed settings the
// searchers, resolver and server are built from.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lepinkainen/catalink/internal/openurl"
	"github.com/spf13/viper"
)

// Searcher sections. Keys missing in one fall back to the other.
const (
	CatalogSection = "catalog"
	ArticleSection = "article"
)

// envBindings maps config keys to the environment variables that feed them.
var envBindings = map[string]string{
	"catalog.wskey":        "WORLDCAT_WSKEY",
	"catalog.access_token": "WORLDCAT_ACCESS_TOKEN",
	"cache.redis_addr":     "REDIS_ADDR",
}

// SearcherConfig holds the link bases and credentials of one searcher.
type SearcherConfig struct {
	URLLink     string
	LoadedLink  string
	DOILink     string
	WSKey       string
	AccessToken string
}

// DiscoveryConfig configures the bibliographic search client.
type DiscoveryConfig struct {
	BaseURL       string
	Timeout       time.Duration
	RetryAttempts int
	RatePerSecond int
	SortBy        string
}

// OpenURLConfig configures request building against the KB resolver.
type OpenURLConfig struct {
	Endpoint  string
	Profile   openurl.Profile
	AuthParam string
}

// CitationConfig is the fixed host and path of the citation finder.
type CitationConfig struct {
	Host string
	Path string
}

// ResolveConfig bounds each protocol resolve call.
type ResolveConfig struct {
	Timeout       time.Duration
	RatePerSecond int
	RetryAttempts int
}

// Config is a snapshot of the settings taken by Load.
type Config struct {
	Catalog   SearcherConfig
	Article   SearcherConfig
	Discovery DiscoveryConfig
	OpenURL   OpenURLConfig
	Citation  CitationConfig
	Resolve   ResolveConfig
	Server    ServerConfig
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr string
}

// SetDefaults registers default values for every key Load reads.
func SetDefaults() {
	viper.SetDefault("catalog.url_link", "https://www.worldcat.org/oclc/")
	viper.SetDefault("catalog.loaded_link", "https://www.worldcat.org/search?q=")
	viper.SetDefault("article.url_link", "https://www.worldcat.org/oclc/")
	viper.SetDefault("article.loaded_link", "https://www.worldcat.org/search?itemSubType=artchap-artcl&q=")
	viper.SetDefault("article.doi_link", "https://doi.org/")

	viper.SetDefault("discovery.base_url", "https://beta.worldcat.org/discovery")
	viper.SetDefault("discovery.timeout", "10s")
	viper.SetDefault("discovery.retry_attempts", 3)
	viper.SetDefault("discovery.rate_per_second", 10)
	viper.SetDefault("discovery.sort_by", "library_plus_relevance")

	viper.SetDefault("openurl.endpoint", "https://worldcat.org/webservices/kb/openurl/resolve")
	viper.SetDefault("openurl.profile", string(openurl.ProfileStrict))
	viper.SetDefault("openurl.auth_param", "wskey")

	viper.SetDefault("citation.host", "worldcat.on.worldcat.org")
	viper.SetDefault("citation.path", "/atoztitles/link")

	viper.SetDefault("resolve.timeout", "5s")
	viper.SetDefault("resolve.rate_per_second", 10)
	viper.SetDefault("resolve.retry_attempts", 2)

	viper.SetDefault("cache.backend", "sqlite")
	viper.SetDefault("cache.dbfile", "./cache.db")
	viper.SetDefault("cache.ttl", "24h")

	viper.SetDefault("datasette.enabled", false)
	viper.SetDefault("datasette.dbfile", "./catalink.db")

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("search.strategy", "catalog")
}

// BindEnv wires the environment variables in envBindings into viper.
func BindEnv() {
	viper.AutomaticEnv()
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			slog.Error("Failed to bind environment variable", "key", key, "env", env, "error", err)
		}
	}
}

// Load reads the current viper state into a Config.
func Load() (*Config, error) {
	profile, err := openurl.ParseProfile(viper.GetString("openurl.profile"))
	if err != nil {
		return nil, err
	}

	discoveryTimeout, err := duration("discovery.timeout")
	if err != nil {
		return nil, err
	}
	resolveTimeout, err := duration("resolve.timeout")
	if err != nil {
		return nil, err
	}

	return &Config{
		Catalog: searcher(CatalogSection),
		Article: searcher(ArticleSection),
		Discovery: DiscoveryConfig{
			BaseURL:       viper.GetString("discovery.base_url"),
			Timeout:       discoveryTimeout,
			RetryAttempts: viper.GetInt("discovery.retry_attempts"),
			RatePerSecond: viper.GetInt("discovery.rate_per_second"),
			SortBy:        viper.GetString("discovery.sort_by"),
		},
		OpenURL: OpenURLConfig{
			Endpoint:  viper.GetString("openurl.endpoint"),
			Profile:   profile,
			AuthParam: viper.GetString("openurl.auth_param"),
		},
		Citation: CitationConfig{
			Host: viper.GetString("citation.host"),
			Path: viper.GetString("citation.path"),
		},
		Resolve: ResolveConfig{
			Timeout:       resolveTimeout,
			RatePerSecond: viper.GetInt("resolve.rate_per_second"),
			RetryAttempts: viper.GetInt("resolve.retry_attempts"),
		},
		Server: ServerConfig{
			Addr: viper.GetString("server.addr"),
		},
	}, nil
}

// Common looks key up under section and falls back to the other searcher
// section when it is empty there.
func Common(section, key string) string {
	if v := viper.GetString(section + "." + key); v != "" {
		return v
	}
	other := ArticleSection
	if section == ArticleSection {
		other = CatalogSection
	}
	return viper.GetString(other + "." + key)
}

func searcher(section string) SearcherConfig {
	return SearcherConfig{
		URLLink:     Common(section, "url_link"),
		LoadedLink:  Common(section, "loaded_link"),
		DOILink:     Common(section, "doi_link"),
		WSKey:       Common(section, "wskey"),
		AccessToken: Common(section, "access_token"),
	}
}

func duration(key string) (time.Duration, error) {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}
