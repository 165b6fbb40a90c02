package cache

// SQL schemas for cache tables
// All cache tables use "cache_key" as the primary key column for consistency

// Table names used by the catalog clients.
const (
	DiscoveryTable = "discovery_cache"
	OpenURLTable   = "openurl_cache"
)

// DiscoveryCacheSchema defines the schema for discovery API search responses
const DiscoveryCacheSchema = `
CREATE TABLE IF NOT EXISTS discovery_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ttl_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_discovery_cached_at ON discovery_cache(cached_at);
`

// OpenURLCacheSchema defines the schema for link resolver answers
const OpenURLCacheSchema = `
CREATE TABLE IF NOT EXISTS openurl_cache (
	cache_key TEXT PRIMARY KEY NOT NULL,
	data TEXT NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	ttl_seconds INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_openurl_cached_at ON openurl_cache(cached_at);
`

// AllCacheSchemas contains all cache table schemas for easy initialization
var AllCacheSchemas = []string{
	DiscoveryCacheSchema,
	OpenURLCacheSchema,
}

// ValidCacheTableNames is the whitelist of allowed cache table names
// Used to prevent SQL injection when interpolating table names
var ValidCacheTableNames = map[string]bool{
	DiscoveryTable: true,
	OpenURLTable:   true,
}

// Sources maps the user-facing source name to its cache table.
var Sources = map[string]string{
	"discovery": DiscoveryTable,
	"openurl":   OpenURLTable,
}
